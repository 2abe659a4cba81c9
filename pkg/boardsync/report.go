package boardsync

import (
	"fmt"
	"time"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/httputil"
)

// Row error operations.
const (
	OpValidate = "validate"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpConnect  = "connect"
	OpMove     = "move"
	OpGroup    = "group"
)

// RowError is a failure confined to one record.
type RowError struct {
	Key     string         `json:"key"`
	Row     int            `json:"row,omitempty"` // 1-based position in the input, 0 when not applicable
	Op      string         `json:"op"`
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
}

func newRowError(key string, row int, op string, err error) RowError {
	return RowError{Key: key, Row: row, Op: op, Code: codeOf(err), Message: err.Error(), Err: err}
}

// codeOf derives an error code from a coded error or an HTTP status.
func codeOf(err error) apperrors.Code {
	if code := apperrors.GetCode(err); code != "" {
		return code
	}
	if status, ok := httputil.Status(err); ok {
		return apperrors.CodeForStatus(status)
	}
	return apperrors.ErrCodeInternal
}

func (e RowError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d (%s): %s: %s", e.Row, e.Key, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Key, e.Op, e.Message)
}

func (e RowError) Unwrap() error { return e.Err }

// Report summarises one sync.
type Report struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`

	ConnectorsCreated int `json:"connectorsCreated,omitempty"`
	ConnectorsDeleted int `json:"connectorsDeleted,omitempty"`

	Errors []RowError `json:"errors,omitempty"`

	// Widgets maps every applied row key to its widget id after the sync.
	Widgets map[string]string `json:"widgets,omitempty"`

	Duration time.Duration `json:"duration"`
}

// Applied returns the number of successful host mutations.
func (r *Report) Applied() int {
	return r.Created + r.Updated + r.Deleted + r.ConnectorsCreated + r.ConnectorsDeleted
}

// Failed returns the number of failed records.
func (r *Report) Failed() int { return len(r.Errors) }

// OK reports whether every record was applied.
func (r *Report) OK() bool { return len(r.Errors) == 0 }
