package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/tgienger/annotate/internal/models"
	"github.com/tgienger/annotate/internal/records"
)

// Resp is the envelope every JSON endpoint answers with
type Resp struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// SuccessResp writes a 200 envelope with optional data
func SuccessResp(c *gin.Context, data ...any) {
	var payload any
	if len(data) > 0 {
		payload = data[0]
	}
	c.JSON(http.StatusOK, Resp{Code: http.StatusOK, Message: "success", Data: payload})
}

// ErrorStrResp writes an error envelope with an explicit status
func ErrorStrResp(c *gin.Context, msg string, code int) {
	c.JSON(code, Resp{Code: code, Message: msg})
	c.Abort()
}

// ErrorResp maps err onto a status code and writes the envelope
func ErrorResp(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	ErrorStrResp(c, err.Error(), code)
}

var statusTable = []struct {
	err  error
	code int
}{
	{models.ErrUnknownTask, http.StatusNotFound},
	{models.ErrUnknownUser, http.StatusNotFound},
	{models.ErrUnknownWorker, http.StatusNotFound},
	{models.ErrInvalidSplitCount, http.StatusBadRequest},
	{models.ErrIndexOutOfRange, http.StatusBadRequest},
	{models.ErrInvalidResult, http.StatusBadRequest},
	{models.ErrInvalidTaskConfig, http.StatusBadRequest},
	{models.ErrEmptyRecordSet, http.StatusBadRequest},
	{models.ErrUnsupportedFormat, http.StatusBadRequest},
	{records.ErrMalformedRecord, http.StatusBadRequest},
	{models.ErrDuplicateUsername, http.StatusConflict},
	{models.ErrNotOperator, http.StatusForbidden},
	{models.ErrInvalidInvite, http.StatusForbidden},
	{models.ErrInvalidCredentials, http.StatusUnauthorized},
}

func statusFor(err error) int {
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return http.StatusInternalServerError
}
