package model

import "time"

// SessionStatus is the EditSession lifecycle state (spec §3, §4.C9).
type SessionStatus string

const (
	SessionActive     SessionStatus = "active"
	SessionPreviewed  SessionStatus = "previewed"
	SessionValidated  SessionStatus = "validated"
	SessionDeploying  SessionStatus = "deploying"
	SessionDeployed   SessionStatus = "deployed"
	SessionRolledBack SessionStatus = "rolled_back" // apply failed partway through; every applied device was successfully rolled back
	SessionFailed     SessionStatus = "failed"
	SessionCancelled  SessionStatus = "cancelled"
	SessionUnknown    SessionStatus = "unknown" // crash-recovered mid-apply, needs manual reconciliation
)

// IsOpen reports whether a session in this status counts toward the
// exclusive-lock invariant (spec §8 invariant 7): no two sessions with
// status in {active, previewed, validated, deploying} may coexist for the
// same BD.
func (s SessionStatus) IsOpen() bool {
	switch s {
	case SessionActive, SessionPreviewed, SessionValidated, SessionDeploying:
		return true
	default:
		return false
	}
}

// EditSession is the mutable workspace for one (BD, user) edit (spec §3).
type EditSession struct {
	ID     string
	BDName string // primary_name of the BD being edited
	User   string

	Original    *ConsolidatedBridgeDomain // immutable snapshot
	WorkingCopy *ConsolidatedBridgeDomain // deep copy, freely mutated

	Changes []Change // ordered change log
	undoPos int      // index into Changes marking the current undo/redo cursor; equals len(Changes) when nothing has been undone

	Status SessionStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UndoPos exposes the current undo/redo cursor for persistence.
func (s *EditSession) UndoPos() int { return s.undoPos }

// SetUndoPos restores the undo/redo cursor after loading a session from
// the store.
func (s *EditSession) SetUndoPos(pos int) { s.undoPos = pos }

// AppendChange records a new change, truncating any redo tail (spec
// §4.C7: applying a new change after an undo discards the redo branch,
// matching standard editor semantics).
func (s *EditSession) AppendChange(c Change) {
	s.Changes = s.Changes[:s.undoPos]
	s.Changes = append(s.Changes, c)
	s.undoPos = len(s.Changes)
}

// CanUndo reports whether there is a change to undo.
func (s *EditSession) CanUndo() bool { return s.undoPos > 0 }

// CanRedo reports whether there is an undone change to redo.
func (s *EditSession) CanRedo() bool { return s.undoPos < len(s.Changes) }
