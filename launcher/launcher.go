// Package launcher hands a file to an endpoint program by spawning it as an
// independent process. The broker never waits for, replaces itself with, or
// supervises the spawned program.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
)

// Process identifies a spawned endpoint program.
type Process struct {
	PID int
}

// Launcher starts endpoint programs.
type Launcher interface {
	Launch(ctx context.Context, executable, path string) (Process, error)
}

// Exec launches programs with os/exec in their own session with stdio detached.
// A goroutine per child reaps it once it exits; the exit status is only logged.
type Exec struct {
	logger *slog.Logger
	reaped sync.WaitGroup
}

var _ Launcher = (*Exec)(nil)

// New returns an Exec launcher. A nil logger discards child exit reports.
func New(logger *slog.Logger) *Exec {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Exec{logger: logger}
}

// Launch starts executable with path as its only argument and returns as soon as the
// process exists. Any failure to spawn is reported as ErrLaunchFailed.
func (l *Exec) Launch(ctx context.Context, executable, path string) (Process, error) {
	if err := ctx.Err(); err != nil {
		return Process{}, err
	}

	if executable == "" {
		return Process{}, fmt.Errorf("launch %q: no executable configured: %w", path, berr.ErrLaunchFailed)
	}

	// Not CommandContext: the child must outlive the call that started it.
	cmd := exec.Command(executable, path)
	cmd.SysProcAttr = detachedAttr()

	if err := cmd.Start(); err != nil {
		return Process{}, fmt.Errorf("launch %s %q: %w", executable, path, errors.Join(berr.ErrLaunchFailed, err))
	}

	proc := Process{PID: cmd.Process.Pid}

	l.reaped.Add(1)
	go l.reap(cmd, proc)

	return proc, nil
}

func (l *Exec) reap(cmd *exec.Cmd, proc Process) {
	defer l.reaped.Done()

	err := cmd.Wait()
	l.logger.Debug("endpoint process exited", "pid", proc.PID, "executable", cmd.Path, "err", err)
}

// Wait blocks until every process started so far has exited and been reaped.
// The broker does not call it while serving; it exists for orderly shutdown and tests.
func (l *Exec) Wait() { l.reaped.Wait() }
