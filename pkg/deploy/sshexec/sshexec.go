// Package sshexec is the default deploy.Executor adapter: it dials each
// device over SSH and runs commit-check/apply as a sequence of CLI
// commands in one session, grounded on the teacher's SSHTunnel dial and
// ExecCommand pattern (pkg/device/tunnel.go), generalized from a single
// Redis-forwarding tunnel to a general-purpose command executor.
package sshexec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/fabricbd/bdctl/pkg/deploy"
)

// Credentials names the SSH auth material used to reach fabric devices.
type Credentials struct {
	User     string
	Password string
	Port     int
}

// Executor dials a fresh SSH connection per device and runs commands
// through a new session each call, matching the teacher's
// ExecCommand "stateless per call" pattern.
type Executor struct {
	creds   Credentials
	timeout time.Duration
}

// New builds an Executor. A zero Port defaults to 22; the dial timeout
// is fixed at 30s, matching the teacher's tunnel dial timeout.
func New(creds Credentials) *Executor {
	if creds.Port == 0 {
		creds.Port = 22
	}
	return &Executor{creds: creds, timeout: 30 * time.Second}
}

type conn struct {
	device string
	client *ssh.Client
}

// Connect dials device over SSH (spec §6: "connect(device) → conn").
func (e *Executor) Connect(ctx context.Context, device string) (deploy.Conn, error) {
	config := &ssh.ClientConfig{
		User: e.creds.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(e.creds.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         e.timeout,
	}
	addr := fmt.Sprintf("%s:%d", device, e.creds.Port)
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s@%s: %w", e.creds.User, addr, err)
	}
	return &conn{device: device, client: client}, nil
}

// CommitCheck runs commands in a dry-run/validate-only mode (spec §6:
// "commit_check(conn, commands) → {ok | error(reason, classification)}").
// The wire-level dry-run flag is device-family specific; this adapter
// assumes a "commit check" wrapper command understood by the fabric's CLI.
func (e *Executor) CommitCheck(ctx context.Context, c deploy.Conn, commands []string) error {
	return e.run(c, wrapCommitCheck(commands))
}

// Apply runs commands for real (spec §6: "apply(conn, commands) →
// {ok | error(reason, classification)}").
func (e *Executor) Apply(ctx context.Context, c deploy.Conn, commands []string) error {
	return e.run(c, commands)
}

func (e *Executor) run(c deploy.Conn, commands []string) error {
	connection := c.(*conn)
	session, err := connection.client.NewSession()
	if err != nil {
		return &deploy.ExecError{Reason: fmt.Sprintf("SSH session: %s", err), Class: deploy.Transient}
	}
	defer session.Close()

	script := strings.Join(commands, "\n")
	output, err := session.CombinedOutput(script)
	if err != nil {
		return &deploy.ExecError{Reason: fmt.Sprintf("SSH exec failed: %s: %s", err, string(output)), Class: classify(err)}
	}
	return nil
}

// wrapCommitCheck prefixes commands with a validate-only marker understood
// by the fabric CLI's configuration-session mode.
func wrapCommitCheck(commands []string) []string {
	wrapped := make([]string, 0, len(commands)+2)
	wrapped = append(wrapped, "configure")
	wrapped = append(wrapped, commands...)
	wrapped = append(wrapped, "commit check")
	return wrapped
}

// classify maps a raw SSH/command error to transient or permanent. Network
// and session-level errors are retried; command rejections from the
// device's own CLI are not.
func classify(err error) deploy.FailureClass {
	msg := err.Error()
	if strings.Contains(msg, "i/o timeout") || strings.Contains(msg, "connection reset") || strings.Contains(msg, "EOF") {
		return deploy.Transient
	}
	return deploy.Permanent
}

// Disconnect closes the SSH client for conn (spec §6: "disconnect(conn)").
func (e *Executor) Disconnect(c deploy.Conn) error {
	connection := c.(*conn)
	return connection.client.Close()
}
