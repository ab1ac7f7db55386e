// Package editsession implements the Edit Session Manager (C7): exclusive
// per-BD locking, deep-copy working-copy isolation, change-log apply with
// undo/redo, and the begin/save/recover/cancel/complete lifecycle.
package editsession

import (
	"fmt"
	"time"

	"github.com/fabricbd/bdctl/pkg/ferrors"
	"github.com/fabricbd/bdctl/pkg/model"
)

// sessionStore is the subset of pkg/store.Store the manager needs, kept
// narrow so tests can substitute an in-memory fake.
type sessionStore interface {
	Get(name string) (*model.ConsolidatedBridgeDomain, error)
	UpsertConsolidated(bd *model.ConsolidatedBridgeDomain) error
	SaveSession(session *model.EditSession) error
	LoadSession(id string) (*model.EditSession, error)
	DeleteSession(id string) error
	ActiveSessionForBD(bdName string) (string, bool, error)
}

// idGenerator produces session ids; tests substitute a deterministic one.
type idGenerator func() string

// Manager owns the lifecycle of EditSessions over a BD Store (spec §4.C7).
type Manager struct {
	store              sessionStore
	newID              idGenerator
	isInfraBundle      func(parentName string) bool
	validateChangeType func(bd *model.ConsolidatedBridgeDomain, change model.Change) error
}

// New builds a Manager. validateType applies the DNAAS-type rules from
// §4.C8 to a proposed change (wired to pkg/diffengine by the caller);
// isInfraBundle classifies a bundle's parent name as infrastructure,
// matching the patterns used by pkg/classify.
func New(store sessionStore, isInfraBundle func(string) bool, validateType func(*model.ConsolidatedBridgeDomain, model.Change) error) *Manager {
	return &Manager{
		store:              store,
		newID:              defaultIDGenerator(),
		isInfraBundle:      isInfraBundle,
		validateChangeType: validateType,
	}
}

func defaultIDGenerator() idGenerator {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("sess-%d-%d", time.Now().UnixNano(), n)
	}
}

// Begin opens a new EditSession on bdName for user, failing with
// ErrAlreadyLocked if another open session already holds it (spec §4.C7).
func (m *Manager) Begin(bdName, user string) (*model.EditSession, error) {
	if _, locked, err := m.store.ActiveSessionForBD(bdName); err != nil {
		return nil, err
	} else if locked {
		return nil, ferrors.NewDiagnosticError(model.DiagAlreadyLocked, "", bdName, "bd already has an open edit session", ferrors.ErrAlreadyLocked)
	}

	original, err := m.store.Get(bdName)
	if err != nil {
		return nil, err
	}

	now := timeNow()
	session := &model.EditSession{
		ID:          m.newID(),
		BDName:      bdName,
		User:        user,
		Original:    original,
		WorkingCopy: original.Clone(),
		Status:      model.SessionActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.SaveSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// timeNow is a seam so tests can avoid wall-clock nondeterminism if needed.
var timeNow = time.Now

// ValidationResult is the outcome of ApplyChange.
type ValidationResult struct {
	Accepted bool
	Reason   string
}

// ApplyChange validates change against the working copy's DNAAS type,
// appends it to the change log, and mutates the working copy in place
// (spec §4.C7). Only customer-editable interfaces may be targeted.
func (m *Manager) ApplyChange(session *model.EditSession, change model.Change) (ValidationResult, error) {
	if session.Status != model.SessionActive && session.Status != model.SessionPreviewed {
		return ValidationResult{}, fmt.Errorf("session %s is not open for edits (status=%s)", session.ID, session.Status)
	}

	if change.Kind != model.ChangeVLANID && change.Kind != model.ChangeOuterVLAN && change.Kind != model.ChangeInnerVLAN {
		iface, ok := session.WorkingCopy.FindInterface(change.Device, change.Iface)
		editable := ok && iface.IsCustomerEditable(m.isInfraBundle)
		if change.Kind == model.ChangeAddInterface {
			// an add targets an interface that does not yet exist in the
			// working copy, so no editability check is made; applyMutation
			// adds it with the access role.
			editable = true
		}
		if !editable {
			return ValidationResult{Accepted: false, Reason: "interface is not customer-editable"},
				ferrors.NewDiagnosticError(model.DiagValidationFailed, change.Device, session.BDName, "interface is not customer-editable", ferrors.ErrNotCustomerEditable)
		}
	}

	if m.validateChangeType != nil {
		if err := m.validateChangeType(session.WorkingCopy, change); err != nil {
			return ValidationResult{Accepted: false, Reason: err.Error()}, err
		}
	}

	applyMutation(session.WorkingCopy, change)
	session.AppendChange(change)
	session.UpdatedAt = timeNow()
	session.Status = model.SessionActive
	return ValidationResult{Accepted: true}, nil
}

// applyMutation performs the in-place edit on the working copy per change
// kind (spec §4.C7's change type enumeration).
func applyMutation(bd *model.ConsolidatedBridgeDomain, change model.Change) {
	switch change.Kind {
	case model.ChangeAddInterface:
		iface := &model.Interface{Device: change.Device, Name: change.Iface, Role: model.RoleAccess}
		if change.After != nil {
			iface.VLAN = *change.After
		}
		parent, subID, has := model.SplitInterfaceName(change.Iface)
		iface.ParentName, iface.HasSubinterface, iface.SubinterfaceID = parent, has, subID
		if model.IsBundle(parent) {
			iface.Kind = model.KindBundle
		} else {
			iface.Kind = model.KindPhysical
		}
		bd.Devices[change.Device] = append(bd.Devices[change.Device], iface)

	case model.ChangeRemoveInterface:
		removeInterface(bd, change.Device, change.Iface)

	case model.ChangeModifyInterface:
		if iface, ok := bd.FindInterface(change.Device, change.Iface); ok && change.After != nil {
			iface.VLAN = *change.After
		}

	case model.ChangeMoveInterface:
		if iface, ok := bd.FindInterface(change.Device, change.Iface); ok {
			moved := *iface
			moved.Device, moved.Name = change.ToDevice, change.ToIface
			parent, subID, has := model.SplitInterfaceName(change.ToIface)
			moved.ParentName, moved.HasSubinterface, moved.SubinterfaceID = parent, has, subID
			removeInterface(bd, change.Device, change.Iface)
			bd.Devices[change.ToDevice] = append(bd.Devices[change.ToDevice], &moved)
		}

	case model.ChangeVLANID, model.ChangeOuterVLAN, model.ChangeInnerVLAN:
		applyBDWideVLANChange(bd, change)
	}
}

func removeInterface(bd *model.ConsolidatedBridgeDomain, device, name string) {
	ifaces := bd.Devices[device]
	for i, iface := range ifaces {
		if iface.Name == name {
			bd.Devices[device] = append(ifaces[:i], ifaces[i+1:]...)
			return
		}
	}
}

// applyBDWideVLANChange cascades a BD-wide VLAN edit to every customer
// (access) interface, per spec §4.C7.
func applyBDWideVLANChange(bd *model.ConsolidatedBridgeDomain, change model.Change) {
	for _, ifaces := range bd.Devices {
		for _, iface := range ifaces {
			if iface.Role != model.RoleAccess {
				continue
			}
			switch change.Kind {
			case model.ChangeVLANID:
				if change.After != nil {
					iface.VLAN.VLANID = change.After.VLANID
				}
			case model.ChangeOuterVLAN:
				if change.After != nil {
					iface.VLAN.OuterVLAN = change.After.OuterVLAN
					iface.VLAN.HasOuter = true
				}
			case model.ChangeInnerVLAN:
				if change.After != nil {
					iface.VLAN.InnerVLAN = change.After.InnerVLAN
					iface.VLAN.HasInner = true
				}
			}
		}
	}
}

// Undo reverts the most recently applied change, if any (spec §4.C7).
func (m *Manager) Undo(session *model.EditSession) error {
	if !session.CanUndo() {
		return fmt.Errorf("nothing to undo")
	}
	change := session.Changes[session.UndoPos()-1]
	inv, ok := change.Inverse()
	if !ok {
		return fmt.Errorf("change is not reversible")
	}
	applyMutation(session.WorkingCopy, inv)
	session.SetUndoPos(session.UndoPos() - 1)
	session.UpdatedAt = timeNow()
	return nil
}

// Redo reapplies the most recently undone change, if any.
func (m *Manager) Redo(session *model.EditSession) error {
	if !session.CanRedo() {
		return fmt.Errorf("nothing to redo")
	}
	change := session.Changes[session.UndoPos()]
	applyMutation(session.WorkingCopy, change)
	session.SetUndoPos(session.UndoPos() + 1)
	session.UpdatedAt = timeNow()
	return nil
}

// Save persists the session so it can be recovered later (spec §4.C7).
func (m *Manager) Save(session *model.EditSession) error {
	return m.store.SaveSession(session)
}

// Recover loads a previously-saved session by id. A session persisted
// as deploying (interrupted mid-apply) is returned with status unknown.
func (m *Manager) Recover(id string) (*model.EditSession, error) {
	session, err := m.store.LoadSession(id)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionDeploying {
		session.Status = model.SessionUnknown
	}
	return session, nil
}

// Cancel discards the working copy and releases the BD's lock (spec
// §4.C7: terminal transition, no store mutation).
func (m *Manager) Cancel(session *model.EditSession) error {
	session.Status = model.SessionCancelled
	session.UpdatedAt = timeNow()
	if err := m.store.SaveSession(session); err != nil {
		return err
	}
	return m.store.DeleteSession(session.ID)
}

// Complete marks the session terminal after a successful deployment (spec
// §4.C9 step 5 calls this once the store merge succeeds).
func (m *Manager) Complete(session *model.EditSession) error {
	session.Status = model.SessionDeployed
	session.UpdatedAt = timeNow()
	if err := m.store.UpsertConsolidated(session.WorkingCopy); err != nil {
		return err
	}
	if err := m.store.SaveSession(session); err != nil {
		return err
	}
	return m.store.DeleteSession(session.ID)
}
