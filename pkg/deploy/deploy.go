// Package deploy implements the Deployment Coordinator (C9): it drives a
// DeploymentPlan across an opaque external SSH executor through the
// commit-check → apply → rollback state machine (spec §4.C9), grounded on
// the teacher's device-exclusivity and changeset apply/rollback pattern
// (pkg/network/changeset.go) generalized from one device to an ordered set.
package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v5"

	"github.com/fabricbd/bdctl/pkg/ferrors"
	"github.com/fabricbd/bdctl/pkg/model"
)

// FailureClass classifies an executor-reported error as retryable or not
// (spec §6: "classification∈{transient,permanent}").
type FailureClass string

const (
	Transient FailureClass = "transient"
	Permanent FailureClass = "permanent"
)

// ExecError is the structured failure an Executor reports for commit-check
// or apply.
type ExecError struct {
	Reason string
	Class  FailureClass
}

func (e *ExecError) Error() string { return fmt.Sprintf("%s (%s)", e.Reason, e.Class) }

// Conn is an opaque handle to one device's executor session.
type Conn interface{}

// Executor is the narrow external contract the coordinator depends on
// (spec §6). No assumptions are made about the transport beyond this
// interface — the default adapter lives in pkg/deploy/sshexec.
type Executor interface {
	Connect(ctx context.Context, device string) (Conn, error)
	CommitCheck(ctx context.Context, conn Conn, commands []string) error // returns *ExecError on failure
	Apply(ctx context.Context, conn Conn, commands []string) error      // returns *ExecError on failure
	Disconnect(conn Conn) error
}

// StepResult records the outcome of one device's apply/rollback for the
// DeploymentResult log (spec §7: "a full per-device result log").
type StepResult struct {
	Device     string
	Phase      string // "commit_check", "apply", "rollback"
	Success    bool
	Error      string
}

// DeploymentResult is the terminal outcome of Deploy (spec §6 public
// operation surface).
type DeploymentResult struct {
	BDName      string
	Status      model.SessionStatus // deployed, rolled_back, failed, or unknown
	Steps       []StepResult
	Diagnostics []model.Diagnostic
}

// Coordinator drives one DeploymentPlan to completion against an Executor.
type Coordinator struct {
	exec Executor
}

// New builds a Coordinator over exec.
func New(exec Executor) *Coordinator {
	return &Coordinator{exec: exec}
}

// Deploy runs the full commit-check/apply/rollback sequence for plan, per
// spec §4.C9 steps 1-5. health must have already been run by the caller;
// Deploy runs no pre-checks of its own. An empty plan returns deployed
// without contacting any device, and only devices listed in DeviceOrder
// are checked and applied.
func (c *Coordinator) Deploy(ctx context.Context, plan *model.DeploymentPlan) *DeploymentResult {
	result := &DeploymentResult{BDName: plan.BDName}

	if plan.IsEmpty() {
		result.Status = model.SessionDeployed
		return result
	}

	for _, device := range plan.DeviceOrder {
		if err := c.commitCheckOne(ctx, device, plan.CommandsByDevice[device]); err != nil {
			result.Steps = append(result.Steps, StepResult{Device: device, Phase: "commit_check", Success: false, Error: err.Error()})
			appendDiagnostic(result, err)
			result.Status = model.SessionFailed
			return result
		}
		result.Steps = append(result.Steps, StepResult{Device: device, Phase: "commit_check", Success: true})
	}

	var applied []string
	for _, device := range plan.DeviceOrder {
		if err := c.applyOneWithRetry(ctx, device, plan.CommandsByDevice[device]); err != nil {
			result.Steps = append(result.Steps, StepResult{Device: device, Phase: "apply", Success: false, Error: err.Error()})
			appendDiagnostic(result, err)
			if len(applied) == 0 {
				result.Status = model.SessionFailed
				return result
			}
			c.rollbackApplied(ctx, plan, applied, result)
			result.Status = rolledBackOrUnknown(result, applied)
			return result
		}
		result.Steps = append(result.Steps, StepResult{Device: device, Phase: "apply", Success: true})
		applied = append(applied, device)
	}

	result.Status = model.SessionDeployed
	return result
}

// rolledBackOrUnknown implements the spec §4.C9 terminal-state split: if
// every already-applied device's rollback step succeeded, the session
// lands cleanly in rolled_back (scenario S6); if any rollback itself
// failed, the fabric is left in a state no "deploy.Executor" primitive can
// describe, so the session is marked unknown for manual reconciliation.
func rolledBackOrUnknown(result *DeploymentResult, applied []string) model.SessionStatus {
	for _, step := range result.Steps {
		if step.Phase == "rollback" && !step.Success {
			return model.SessionUnknown
		}
	}
	return model.SessionRolledBack
}

// appendDiagnostic records the failing device's diagnostic code onto the
// result stream (spec §7: per-device diagnostics travel with the result,
// not just the per-step error string) when err carries one.
func appendDiagnostic(result *DeploymentResult, err error) {
	var diagErr *ferrors.DiagnosticError
	if errors.As(err, &diagErr) {
		result.Diagnostics = append(result.Diagnostics, diagErr.Diagnostic)
	}
}

func (c *Coordinator) commitCheckOne(ctx context.Context, device string, commands []string) error {
	conn, err := c.exec.Connect(ctx, device)
	if err != nil {
		return ferrors.NewDiagnosticError(model.DiagCommitCheckFailed, device, "", err.Error(), ferrors.ErrCommitCheckFailed)
	}
	defer c.exec.Disconnect(conn)

	if err := c.exec.CommitCheck(ctx, conn, commands); err != nil {
		return ferrors.NewDiagnosticError(model.DiagCommitCheckFailed, device, "", err.Error(), ferrors.ErrCommitCheckFailed)
	}
	return nil
}

// applyOneWithRetry applies commands to device, retrying at most once if
// the executor classifies the failure as transient (spec §4.C9 Timeouts).
func (c *Coordinator) applyOneWithRetry(ctx context.Context, device string, commands []string) error {
	conn, err := c.exec.Connect(ctx, device)
	if err != nil {
		return ferrors.NewDiagnosticError(model.DiagApplyFailed, device, "", err.Error(), ferrors.ErrApplyFailed)
	}
	defer c.exec.Disconnect(conn)

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		applyErr := c.exec.Apply(ctx, conn, commands)
		if applyErr == nil {
			return struct{}{}, nil
		}
		if execErr, ok := applyErr.(*ExecError); ok && execErr.Class == Permanent {
			return struct{}{}, backoff.Permanent(applyErr)
		}
		return struct{}{}, applyErr
	}, backoff.WithMaxTries(2))

	if err != nil {
		return ferrors.NewDiagnosticError(model.DiagApplyFailed, device, "", err.Error(), ferrors.ErrApplyFailed)
	}
	return nil
}

// rollbackApplied runs rollback_by_device on every already-applied device
// in reverse order (spec §4.C9 step 4), recording a DiagRolledBack
// diagnostic per device whose rollback succeeds (scenario S6).
func (c *Coordinator) rollbackApplied(ctx context.Context, plan *model.DeploymentPlan, applied []string, result *DeploymentResult) {
	for i := len(applied) - 1; i >= 0; i-- {
		device := applied[i]
		conn, err := c.exec.Connect(ctx, device)
		if err != nil {
			result.Steps = append(result.Steps, StepResult{Device: device, Phase: "rollback", Success: false, Error: err.Error()})
			continue
		}
		rollbackErr := c.exec.Apply(ctx, conn, plan.RollbackByDevice[device])
		c.exec.Disconnect(conn)
		if rollbackErr != nil {
			result.Steps = append(result.Steps, StepResult{Device: device, Phase: "rollback", Success: false, Error: rollbackErr.Error()})
			continue
		}
		result.Steps = append(result.Steps, StepResult{Device: device, Phase: "rollback", Success: true})
		result.Diagnostics = append(result.Diagnostics, model.NewDiagnostic(model.DiagRolledBack, device, plan.BDName, "apply failed on a later device; this device's changes were rolled back"))
	}
}
