package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tgienger/annotate/internal/models"
	"github.com/tgienger/annotate/internal/records"
	"github.com/tgienger/annotate/internal/service"
)

type createTaskReq struct {
	Name        string            `json:"name" binding:"required"`
	Description string            `json:"description"`
	Config      models.TaskConfig `json:"config"`
	// Records and JSONL are alternative ways to send the record set.
	Records []json.RawMessage `json:"records"`
	JSONL   string            `json:"jsonl"`
	Splits  int               `json:"splits"`
	Label   *string           `json:"label"`
}

func (req createTaskReq) parseRecords() ([]records.Record, error) {
	if req.JSONL != "" {
		return records.Parse(strings.NewReader(req.JSONL))
	}
	var buf bytes.Buffer
	for _, raw := range req.Records {
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
	}
	return records.Parse(&buf)
}

func (s *Server) createTask(c *gin.Context) {
	var req createTaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorStrResp(c, "invalid request format: "+err.Error(), http.StatusBadRequest)
		return
	}
	recs, err := req.parseRecords()
	if err != nil {
		ErrorStrResp(c, "invalid records: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Splits == 0 {
		req.Splits = 1
	}

	tasks, err := s.svc.CreateTask(service.NewTask{
		Name:        req.Name,
		Description: req.Description,
		Config:      req.Config,
		Records:     recs,
		Splits:      req.Splits,
		Label:       req.Label,
	})
	if err != nil {
		ErrorResp(c, err)
		return
	}
	SuccessResp(c, tasks)
}

func (s *Server) listTasks(c *gin.Context) {
	tasks, err := s.svc.ListTasks()
	if err != nil {
		ErrorResp(c, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	SuccessResp(c, tasks)
}

func (s *Server) getTask(c *gin.Context) {
	task, err := s.svc.GetTask(c.Param("id"))
	if err != nil {
		ErrorResp(c, err)
		return
	}
	SuccessResp(c, task)
}

func (s *Server) partitionTask(c *gin.Context) {
	var req struct {
		Splits int `json:"splits" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorStrResp(c, "invalid request format: "+err.Error(), http.StatusBadRequest)
		return
	}
	tasks, err := s.svc.PartitionTask(c.Param("id"), req.Splits)
	if err != nil {
		ErrorResp(c, err)
		return
	}
	SuccessResp(c, tasks)
}

func (s *Server) updateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorStrResp(c, "invalid request format: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.svc.UpdateStatus(c.Param("id"), req.Status); err != nil {
		ErrorResp(c, err)
		return
	}
	SuccessResp(c)
}

func indexParam(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		ErrorStrResp(c, "item index must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return idx, true
}

func (s *Server) saveAnnotation(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	var req struct {
		WorkerID string          `json:"worker_id"`
		Result   json.RawMessage `json:"result"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorStrResp(c, "invalid request format: "+err.Error(), http.StatusBadRequest)
		return
	}
	if worker := c.GetHeader(WorkerHeader); worker != "" {
		req.WorkerID = worker
	}

	rec, created, err := s.svc.Save(c.Param("id"), idx, req.WorkerID, req.Result)
	if err != nil {
		ErrorResp(c, err)
		return
	}
	SuccessResp(c, gin.H{"annotation": rec, "created": created})
}

func (s *Server) getAnnotation(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	result, saved, err := s.svc.Get(c.Param("id"), idx, workerQuery(c))
	if err != nil {
		ErrorResp(c, err)
		return
	}
	SuccessResp(c, gin.H{"saved": saved, "result": result})
}

func workerQuery(c *gin.Context) string {
	if w := c.Query("worker"); w != "" {
		return w
	}
	return c.GetHeader(WorkerHeader)
}

func (s *Server) taskProgress(c *gin.Context) {
	p, err := s.svc.Progress(c.Param("id"), workerQuery(c))
	if err != nil {
		ErrorResp(c, err)
		return
	}
	SuccessResp(c, p)
}

func (s *Server) assign(c *gin.Context) {
	var req struct {
		WorkerID   string `json:"worker_id" binding:"required"`
		AssignedBy string `json:"assigned_by" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorStrResp(c, "invalid request format: "+err.Error(), http.StatusBadRequest)
		return
	}
	a, err := s.svc.Assign(c.Param("id"), req.WorkerID, req.AssignedBy)
	if err != nil {
		ErrorResp(c, err)
		return
	}
	SuccessResp(c, a)
}

func (s *Server) getAssignment(c *gin.Context) {
	a, err := s.svc.GetAssignment(c.Param("id"))
	if err != nil {
		ErrorResp(c, err)
		return
	}
	if a == nil {
		ErrorStrResp(c, "task is not assigned", http.StatusNotFound)
		return
	}
	SuccessResp(c, a)
}

var exportContentTypes = map[string]string{
	service.FormatJSON:  "application/json",
	service.FormatJSONL: "application/x-ndjson",
	service.FormatCSV:   "text/csv",
}

func (s *Server) export(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", service.FormatJSON))
	opts := service.ExportOptions{
		Format:          format,
		IncludeOriginal: c.DefaultQuery("include_original", "true") == "true",
		OnlyCompleted:   c.Query("only_completed") == "true",
	}

	var buf bytes.Buffer
	if _, err := s.svc.Export(&buf, c.Param("id"), workerQuery(c), opts); err != nil {
		ErrorResp(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="export_`+c.Param("id")+`.`+format+`"`)
	c.Data(http.StatusOK, exportContentTypes[format]+"; charset=utf-8", buf.Bytes())
}

func (s *Server) workerTasks(c *gin.Context) {
	tasks, err := s.svc.ListAssignedTasks(c.Param("id"))
	if err != nil {
		ErrorResp(c, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	SuccessResp(c, tasks)
}

func (s *Server) workerRollup(c *gin.Context) {
	r, err := s.svc.Rollup(c.Param("id"))
	if err != nil {
		ErrorResp(c, err)
		return
	}
	SuccessResp(c, r)
}

func (s *Server) workerStats(c *gin.Context) {
	ws, err := s.svc.WorkerStats(c.Param("id"))
	if err != nil {
		ErrorResp(c, err)
		return
	}
	SuccessResp(c, ws)
}

func (s *Server) leaderboard(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		ErrorStrResp(c, "limit must be an integer", http.StatusBadRequest)
		return
	}
	entries, err := s.svc.Leaderboard(limit)
	if err != nil {
		ErrorResp(c, err)
		return
	}
	SuccessResp(c, entries)
}

func (s *Server) register(c *gin.Context) {
	var req struct {
		Username    string `json:"username" binding:"required"`
		Password    string `json:"password" binding:"required"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
		InviteCode  string `json:"invite_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorStrResp(c, "invalid request format: "+err.Error(), http.StatusBadRequest)
		return
	}
	u, err := s.svc.Register(service.NewUser{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Email:       req.Email,
	}, req.InviteCode)
	if err != nil {
		ErrorResp(c, err)
		return
	}
	SuccessResp(c, u)
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorStrResp(c, "invalid request format: "+err.Error(), http.StatusBadRequest)
		return
	}
	u, err := s.svc.Authenticate(req.Username, req.Password)
	if err != nil {
		ErrorResp(c, err)
		return
	}
	SuccessResp(c, u)
}
