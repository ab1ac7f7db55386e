// Package bdfabric is the top-level Fabric object that owns and wires every
// pipeline stage (C1..C10) behind the public operation surface from spec §6:
// Discover, GetBD, ListBDs, BeginEdit, ApplyChange, Preview, Deploy,
// CancelEdit. Grounded on the teacher's top-level Network object
// (pkg/network/network.go), which likewise loads its subsystems once at
// construction and exposes one hierarchical entry point to callers.
package bdfabric

import (
	"context"
	"strings"

	"github.com/fabricbd/bdctl/pkg/bdproc"
	"github.com/fabricbd/bdctl/pkg/classify"
	"github.com/fabricbd/bdctl/pkg/config"
	"github.com/fabricbd/bdctl/pkg/consolidate"
	"github.com/fabricbd/bdctl/pkg/deploy"
	"github.com/fabricbd/bdctl/pkg/diffengine"
	"github.com/fabricbd/bdctl/pkg/discover"
	"github.com/fabricbd/bdctl/pkg/editsession"
	"github.com/fabricbd/bdctl/pkg/ferrors"
	"github.com/fabricbd/bdctl/pkg/health"
	"github.com/fabricbd/bdctl/pkg/log"
	"github.com/fabricbd/bdctl/pkg/model"
	"github.com/fabricbd/bdctl/pkg/store"
)

// bdStore is the subset of pkg/store.Store the Fabric and its edit session
// manager need, kept narrow so tests can substitute an in-memory fake
// instead of dialing Redis.
type bdStore interface {
	Get(name string) (*model.ConsolidatedBridgeDomain, error)
	List(filter store.Filter) ([]*model.ConsolidatedBridgeDomain, error)
	UpsertConsolidated(bd *model.ConsolidatedBridgeDomain) error
	SaveSession(session *model.EditSession) error
	LoadSession(id string) (*model.EditSession, error)
	DeleteSession(id string) error
	ActiveSessionForBD(bdName string) (string, bool, error)
	ListActiveSessions() ([]store.ActiveSessionSummary, error)
	Close() error
}

// Fabric is the top-level object wiring the discovery, classification,
// consolidation, storage, edit, diff, health, and deploy subsystems.
type Fabric struct {
	settings *config.Settings

	store         bdStore
	roleAssigner  *classify.RoleAssigner
	bdProcessor   *bdproc.Processor
	editMgr       *editsession.Manager
	coordinator   *deploy.Coordinator
	isInfraBundle func(string) bool
}

// New builds a Fabric over settings, an LLDP neighbor map (discovered or
// operator-supplied), and a deploy.Executor (SSH by default, a fake in
// tests). It builds the BD Store's Redis client without contacting Redis;
// the first store call opens the connection.
func New(settings *config.Settings, lldp classify.LLDPMap, exec deploy.Executor) *Fabric {
	st := store.New(settings.RedisAddr, settings.RedisDB, 0)
	return newFabric(settings, lldp, exec, st)
}

// newFabric builds a Fabric over an already-constructed store, letting
// tests inject an in-memory fake in place of the Redis-backed Store.
func newFabric(settings *config.Settings, lldp classify.LLDPMap, exec deploy.Executor, st bdStore) *Fabric {
	deviceClassifier := classify.NewDeviceClassifier(settings.DeviceClassOverrides)
	roleAssigner := classify.NewRoleAssigner(deviceClassifier, lldp)

	isInfraBundle := func(name string) bool {
		lower := strings.ToLower(name)
		if len(settings.InfrastructureBundlePatterns) == 0 {
			return strings.HasPrefix(lower, "bundle-6000")
		}
		for _, pattern := range settings.InfrastructureBundlePatterns {
			if strings.Contains(lower, strings.ToLower(pattern)) {
				return true
			}
		}
		return false
	}

	f := &Fabric{
		settings:      settings,
		store:         st,
		roleAssigner:  roleAssigner,
		bdProcessor:   bdproc.NewProcessor(roleAssigner),
		coordinator:   deploy.New(exec),
		isInfraBundle: isInfraBundle,
	}
	f.editMgr = editsession.New(st, isInfraBundle, f.validateChangeType)
	return f
}

// Close releases the Fabric's store connection.
func (f *Fabric) Close() error {
	return f.store.Close()
}

// Discover runs C1 through C6: loads and pairs per-device dumps, parses
// them, runs BD-PROC, consolidates, and persists every result to the BD
// Store (spec §6: "Discover() → DiscoveryReport{ consolidated[],
// individuals[], diagnostics[] }").
func (f *Fabric) Discover(ctx context.Context, dir string) (*model.DiscoveryReport, error) {
	log.WithOperation("discover").WithField("dir", dir).Info("starting discovery")

	loadResult, err := discover.Load(dir)
	if err != nil {
		return nil, err
	}
	diagnostics := append([]model.Diagnostic(nil), loadResult.Diagnostics...)

	raws, parseDiags, err := discover.ParseAll(ctx, loadResult.Pairs, f.settings.WorkerPoolSize)
	if err != nil {
		return nil, err
	}
	diagnostics = append(diagnostics, parseDiags...)

	for _, raw := range raws {
		for _, iface := range raw.Members {
			if diag := f.roleAssigner.AssignRole(iface); diag != nil {
				diagnostics = append(diagnostics, *diag)
			}
		}
	}

	processed, procDiags, err := bdproc.ProcessAll(ctx, f.bdProcessor, raws, f.settings.WorkerPoolSize)
	if err != nil {
		return nil, err
	}
	diagnostics = append(diagnostics, procDiags...)

	consolidated, consolidateDiags := consolidate.Consolidate(processed)
	diagnostics = append(diagnostics, consolidateDiags...)

	report := &model.DiscoveryReport{Diagnostics: diagnostics}
	for _, bd := range consolidated {
		if err := f.store.UpsertConsolidated(bd); err != nil {
			return nil, err
		}
		if strings.HasPrefix(bd.ConsolidationKey, "INDIVIDUAL|") {
			report.Individuals = append(report.Individuals, bd)
		} else {
			report.Consolidated = append(report.Consolidated, bd)
		}
	}

	log.WithOperation("discover").WithFields(map[string]interface{}{
		"consolidated": len(report.Consolidated),
		"individuals":  len(report.Individuals),
		"diagnostics":  len(report.Diagnostics),
	}).Info("discovery complete")

	return report, nil
}

// GetBD returns one ConsolidatedBridgeDomain by primary name.
func (f *Fabric) GetBD(name string) (*model.ConsolidatedBridgeDomain, error) {
	return f.store.Get(name)
}

// ListBDs returns every ConsolidatedBridgeDomain matching filter.
func (f *Fabric) ListBDs(filter store.Filter) ([]*model.ConsolidatedBridgeDomain, error) {
	return f.store.List(filter)
}

// BeginEdit opens a new EditSession on bdName for user (spec §4.C7).
func (f *Fabric) BeginEdit(bdName, user string) (*model.EditSession, error) {
	return f.editMgr.Begin(bdName, user)
}

// ActiveSession returns the currently open EditSession for bdName, if the
// CLI's previous invocation left one in progress (spec §4.C7: sessions
// outlive a single process and are recovered by id).
func (f *Fabric) ActiveSession(bdName string) (*model.EditSession, error) {
	id, open, err := f.store.ActiveSessionForBD(bdName)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, ferrors.NewDiagnosticError(model.DiagValidationFailed, "", bdName, "no open edit session for this bridge domain", ferrors.ErrNotLocked)
	}
	return f.editMgr.Recover(id)
}

// ListActiveSessions returns every currently open EditSession across all
// bridge domains, for the operator-facing "what's in flight" view.
func (f *Fabric) ListActiveSessions() ([]store.ActiveSessionSummary, error) {
	return f.store.ListActiveSessions()
}

// RecoverSession loads a previously-saved EditSession by id directly,
// bypassing the one-open-session-per-BD lookup ActiveSession performs —
// used by `bdctl session recover <id>` when the operator already knows the
// session id (e.g. from `bdctl session list`).
func (f *Fabric) RecoverSession(id string) (*model.EditSession, error) {
	return f.editMgr.Recover(id)
}

// ApplyChange validates and applies change against session's working copy.
func (f *Fabric) ApplyChange(session *model.EditSession, change model.Change) (editsession.ValidationResult, error) {
	return f.editMgr.ApplyChange(session, change)
}

// Undo reverts the most recently applied change in session, if any.
func (f *Fabric) Undo(session *model.EditSession) error {
	return f.editMgr.Undo(session)
}

// Redo reapplies the most recently undone change in session, if any.
func (f *Fabric) Redo(session *model.EditSession) error {
	return f.editMgr.Redo(session)
}

// SaveSession persists session's current state so a later process can
// recover it by BD name (spec §4.C7: "so an interrupted operator can
// resume").
func (f *Fabric) SaveSession(session *model.EditSession) error {
	return f.editMgr.Save(session)
}

// validateChangeType is wired into the edit session manager so every
// accepted change is immediately checked against the DNAAS type's rules,
// instead of deferring all validation to Preview (spec §4.C7/§4.C8).
func (f *Fabric) validateChangeType(bd *model.ConsolidatedBridgeDomain, change model.Change) error {
	if !bd.DNAASType.Editable() {
		return ferrors.NewDiagnosticError(model.DiagValidationFailed, change.Device, bd.PrimaryName,
			"dnaas type has no edit template", ferrors.ErrNotEditable)
	}
	return nil
}

// PreviewResult bundles a DeploymentPlan with its computed impact, per spec
// §6: "Preview(session) → DeploymentPlan + ImpactSummary".
type PreviewResult struct {
	Plan   *model.DeploymentPlan
	Impact model.ImpactSummary
}

// Preview runs the diff engine and health/impact analyzer over session's
// pending changes without touching any device (spec §4.C9 step 1, §4.C10).
func (f *Fabric) Preview(session *model.EditSession) (*PreviewResult, error) {
	checks := health.RunPreEditChecks(session.WorkingCopy)
	if health.Blocked(checks) {
		return nil, ferrors.NewDiagnosticError(model.DiagValidationFailed, "", session.BDName,
			"pre-edit health checks failed", ferrors.ErrValidationFailed)
	}

	plan, err := diffengine.Generate(session.Original, session.WorkingCopy)
	if err != nil {
		return nil, err
	}
	plan.Impact = health.Impact(session.Original, session.WorkingCopy)

	session.Status = model.SessionPreviewed
	if err := f.editMgr.Save(session); err != nil {
		return nil, err
	}

	return &PreviewResult{Plan: plan, Impact: plan.Impact}, nil
}

// Deploy runs the full commit-check/apply/rollback sequence for session's
// pending changes and, on success, merges the working copy into the BD
// Store and closes the session (spec §4.C9 step 5).
func (f *Fabric) Deploy(ctx context.Context, session *model.EditSession) (*deploy.DeploymentResult, error) {
	preview, err := f.Preview(session)
	if err != nil {
		return nil, err
	}

	session.Status = model.SessionDeploying
	if err := f.editMgr.Save(session); err != nil {
		return nil, err
	}

	result := f.coordinator.Deploy(ctx, preview.Plan)

	switch result.Status {
	case model.SessionDeployed:
		if err := f.editMgr.Complete(session); err != nil {
			return result, err
		}
	default:
		session.Status = result.Status
		if err := f.editMgr.Save(session); err != nil {
			return result, err
		}
	}
	return result, nil
}

// CancelEdit discards session's working copy and releases its BD lock.
func (f *Fabric) CancelEdit(session *model.EditSession) error {
	return f.editMgr.Cancel(session)
}
