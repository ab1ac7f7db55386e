// Package audit provides audit logging for bridge-domain discovery, edit,
// and deployment events.
package audit

import (
	"fmt"
	"time"

	"github.com/fabricbd/bdctl/pkg/model"
)

// Event represents an auditable bridge-domain lifecycle event.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	BDName    string    `json:"bd_name"`
	Operation string    `json:"operation"`
	Device    string    `json:"device,omitempty"`
	SessionID string    `json:"session_id,omitempty"`

	Changes []model.Change `json:"changes,omitempty"`

	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	ExecuteMode bool          `json:"execute_mode"` // true if -x was used
	DryRun      bool          `json:"dry_run"`
	Duration    time.Duration `json:"duration"`
}

// EventType categorizes audit events.
type EventType string

const (
	EventTypeBeginEdit EventType = "begin_edit"
	EventTypeApply     EventType = "apply_change"
	EventTypePreview   EventType = "preview"
	EventTypeDeploy    EventType = "deploy"
	EventTypeRollback  EventType = "rollback"
	EventTypeCancel    EventType = "cancel"
)

// Severity indicates the importance of an audit event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Filter defines criteria for querying audit events.
type Filter struct {
	BDName      string
	User        string
	Operation   string
	Device      string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event.
func NewEvent(user, bdName, operation string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		User:      user,
		BDName:    bdName,
		Operation: operation,
	}
}

// WithDevice sets the device name (for per-device deployment events).
func (e *Event) WithDevice(device string) *Event {
	e.Device = device
	return e
}

// WithSession sets the edit session id.
func (e *Event) WithSession(id string) *Event {
	e.SessionID = id
	return e
}

// WithChanges attaches the change log.
func (e *Event) WithChanges(changes []model.Change) *Event {
	e.Changes = changes
	return e
}

// WithSuccess marks the event as successful.
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed.
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration.
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithExecuteMode marks whether execute mode (-x) was used.
func (e *Event) WithExecuteMode(execute bool) *Event {
	e.ExecuteMode = execute
	e.DryRun = !execute
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
