package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/spf13/pflag"

	"github.com/nullptr-deref/dbus-sharing/config"
	"github.com/nullptr-deref/dbus-sharing/launcher"
	"github.com/nullptr-deref/dbus-sharing/logging"
	"github.com/nullptr-deref/dbus-sharing/registry"
	"github.com/nullptr-deref/dbus-sharing/sharing"
)

type journalEntry struct {
	message  string
	priority journal.Priority
}

func captureJournal(t *testing.T) *[]journalEntry {
	t.Helper()

	var entries []journalEntry

	prev := journalSend
	journalSend = func() logging.JournalSend {
		return func(message string, priority journal.Priority, _ map[string]string) error {
			entries = append(entries, journalEntry{message, priority})
			return nil
		}
	}

	t.Cleanup(func() { journalSend = prev })

	return &entries
}

func TestRun_MissingRegistryIsCritical(t *testing.T) {
	entries := captureJournal(t)

	var stderr bytes.Buffer

	missing := filepath.Join(t.TempDir(), "absent.conf")

	err := run(t.Context(), []string{"--config", missing, "--nats-url", "nats://127.0.0.1:1"}, &stderr)

	var code exitError
	if !errors.As(err, &code) || code.ExitCode() != 1 {
		t.Fatalf("want exit status 1, got %v", err)
	}

	out := stderr.String()
	if !strings.Contains(out, "level=CRITICAL") || !strings.Contains(out, "could not open file "+missing) {
		t.Fatalf("missing critical entry: %s", out)
	}

	if strings.Contains(out, "serving methods") {
		t.Fatalf("methods served after a fatal load: %s", out)
	}

	if len(*entries) != 1 {
		t.Fatalf("want 1 journal entry, got %d", len(*entries))
	}

	e := (*entries)[0]
	if e.priority != journal.PriCrit || !strings.Contains(e.message, "could not open file "+missing) {
		t.Fatalf("journal entry %+v", e)
	}
}

func TestRun_Help(t *testing.T) {
	var stderr bytes.Buffer

	if err := run(t.Context(), []string{"-h"}, &stderr); !errors.Is(err, pflag.ErrHelp) {
		t.Fatalf("want ErrHelp, got %v", err)
	}
}

func TestRun_BadLogLevel(t *testing.T) {
	if err := run(t.Context(), []string{"--log-level", "shout"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error")
	}
}

type nopLauncher struct{}

func (nopLauncher) Launch(context.Context, string, string) (launcher.Process, error) {
	return launcher.Process{PID: 1}, nil
}

func writeRegistry(t *testing.T, path, src string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sharing.conf")
	writeRegistry(t, path, "[Viewer]\ncmd=/bin/viewer\nformats=.png\n")

	reg, err := registry.LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var logs bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&logs, nil))
	svc := sharing.NewService(reg, nopLauncher{}, nil, logger)

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	reload(t.Context(), svc, path, logger)

	if svc.Registry() != reg {
		t.Fatalf("failed reload replaced the registry")
	}

	if got := svc.Endpoints(t.Context()); !slices.Equal(got, []string{"Viewer"}) {
		t.Fatalf("endpoints after failed reload: %v", got)
	}

	if !strings.Contains(logs.String(), "registry reload failed") {
		t.Fatalf("failure not logged: %s", logs.String())
	}

	writeRegistry(t, path, "[Mailer]\ncmd=/bin/mailer\nformats=.pdf\n")
	reload(t.Context(), svc, path, logger)

	if got := svc.Endpoints(t.Context()); !slices.Equal(got, []string{"Mailer"}) {
		t.Fatalf("endpoints after reload: %v", got)
	}
}

func TestKafkaConfig(t *testing.T) {
	kc := kafkaConfig(config.Kafka{
		Brokers:         []string{"k1:9092"},
		ClientID:        "sharingd",
		TLS:             true,
		Acks:            "leader",
		Compression:     "lz4",
		DeliveryTimeout: 3 * time.Second,
	})

	if kc.TLS == nil || kc.Acks != "leader" || kc.Idempotent || kc.Compression != "lz4" || kc.DeliveryTimeout != 3*time.Second {
		t.Fatalf("kafka config %+v", kc)
	}

	if kafkaConfig(config.Kafka{}).TLS != nil {
		t.Fatalf("TLS enabled without being asked for")
	}
}
