//go:build unix

package launcher_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
	"github.com/nullptr-deref/dbus-sharing/launcher"
)

// writeScript creates an endpoint program that records its arguments into out.
func writeScript(t *testing.T, dir, out string) string {
	t.Helper()

	script := filepath.Join(dir, "endpoint.sh")
	body := "#!/bin/sh\nprintf '%s|' \"$#\" \"$@\" > " + out + "\n"

	if err := os.WriteFile(script, []byte(body), 0o700); err != nil {
		t.Fatalf("write script: %v", err)
	}

	return script
}

func TestExec_LaunchPassesPathAsOnlyArgument(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "args.txt")
	script := writeScript(t, dir, out)

	l := launcher.New(nil)

	proc, err := l.Launch(t.Context(), script, "my photo.jpg")
	if err != nil {
		t.Fatalf("launch: %v", err)
	}

	if proc.PID <= 0 {
		t.Fatalf("pid=%d", proc.PID)
	}

	l.Wait()

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}

	if string(got) != "1|my photo.jpg|" {
		t.Fatalf("args=%q", got)
	}
}

func TestExec_LaunchDoesNotWaitForChild(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "blocked.sh")

	if err := os.WriteFile(script, []byte("#!/bin/sh\nread _ < \"$1\"\n"), 0o700); err != nil {
		t.Fatalf("write script: %v", err)
	}

	gate := filepath.Join(dir, "gate")
	if err := syscall.Mkfifo(gate, 0o600); err != nil {
		t.Fatalf("mkfifo: %v", err)
	}

	l := launcher.New(nil)

	// The child blocks on the fifo until we write to it, so Launch returning
	// proves it did not wait for the child.
	if _, err := l.Launch(t.Context(), script, gate); err != nil {
		t.Fatalf("launch: %v", err)
	}

	w, err := os.OpenFile(gate, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open gate: %v", err)
	}

	_, _ = w.WriteString("go\n")
	_ = w.Close()

	l.Wait()
}

func TestExec_LaunchFailures(t *testing.T) {
	l := launcher.New(nil)

	_, err := l.Launch(t.Context(), filepath.Join(t.TempDir(), "missing"), "a.jpg")
	if !errors.Is(err, berr.ErrLaunchFailed) {
		t.Fatalf("missing executable: want ErrLaunchFailed, got %v", err)
	}

	_, err = l.Launch(t.Context(), "", "a.jpg")
	if !errors.Is(err, berr.ErrLaunchFailed) || !strings.Contains(err.Error(), "no executable") {
		t.Fatalf("empty executable: want ErrLaunchFailed, got %v", err)
	}

	notExec := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(notExec, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err = l.Launch(t.Context(), notExec, "a.jpg")
	if !errors.Is(err, berr.ErrLaunchFailed) {
		t.Fatalf("non-executable: want ErrLaunchFailed, got %v", err)
	}
}

func TestExec_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := launcher.New(nil).Launch(ctx, "/bin/true", "a.jpg")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
