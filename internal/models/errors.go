package models

import "errors"

// Sentinel errors shared by the storage, service and transport layers.
// Wrapped errors keep these as their cause, test them with errors.Is.
var (
	// ErrInvalidSplitCount is returned when a shard count is <= 0 or exceeds the record count.
	ErrInvalidSplitCount = errors.New("invalid split count")

	// ErrDuplicateUsername is returned when registering a username that already exists.
	ErrDuplicateUsername = errors.New("username already taken")

	ErrUnknownTask   = errors.New("unknown task")
	ErrUnknownWorker = errors.New("unknown worker")
	ErrUnknownUser   = errors.New("unknown user")

	// ErrNotOperator is returned when a non-operator tries an operator action.
	ErrNotOperator = errors.New("operator role required")

	ErrIndexOutOfRange   = errors.New("item index out of range")
	ErrInvalidResult     = errors.New("invalid annotation result")
	ErrInvalidTaskConfig = errors.New("invalid task configuration")
	ErrEmptyRecordSet    = errors.New("record set is empty")

	ErrInvalidInvite      = errors.New("invalid invite code")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrSchemaOutdated is returned when the database has pending migrations.
	ErrSchemaOutdated = errors.New("database schema is outdated, run migrate")

	ErrUnsupportedFormat = errors.New("unsupported export format")
)
