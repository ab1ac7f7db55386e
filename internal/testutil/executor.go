package testutil

import (
	"context"

	"github.com/fabricbd/bdctl/pkg/deploy"
)

// FakeExecutor is a scriptable deploy.Executor double shared across
// integration-style tests, grounded on pkg/deploy/deploy_test.go's
// in-package scriptedExecutor, promoted here so callers outside pkg/deploy
// (e.g. a future bdctl end-to-end test) don't need to re-declare it.
type FakeExecutor struct {
	CommitCheckFail map[string]bool
	ApplyFail       map[string]*deploy.ExecError
	ApplyCalls      map[string]int
}

// NewFakeExecutor returns a FakeExecutor with every device succeeding by
// default; populate CommitCheckFail/ApplyFail per device to script a failure.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{
		CommitCheckFail: map[string]bool{},
		ApplyFail:       map[string]*deploy.ExecError{},
		ApplyCalls:      map[string]int{},
	}
}

func (e *FakeExecutor) Connect(ctx context.Context, device string) (deploy.Conn, error) {
	return device, nil
}

func (e *FakeExecutor) CommitCheck(ctx context.Context, conn deploy.Conn, commands []string) error {
	device := conn.(string)
	if e.CommitCheckFail[device] {
		return &deploy.ExecError{Reason: "commit check rejected", Class: deploy.Permanent}
	}
	return nil
}

func (e *FakeExecutor) Apply(ctx context.Context, conn deploy.Conn, commands []string) error {
	device := conn.(string)
	e.ApplyCalls[device]++
	if execErr, ok := e.ApplyFail[device]; ok {
		if execErr.Class == deploy.Transient && e.ApplyCalls[device] > 1 {
			return nil
		}
		return execErr
	}
	return nil
}

func (e *FakeExecutor) Disconnect(conn deploy.Conn) error { return nil }
