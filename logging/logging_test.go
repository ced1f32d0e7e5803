package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/coreos/go-systemd/v22/journal"

	"github.com/nullptr-deref/dbus-sharing/logging"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		"":         slog.LevelInfo,
		"INFO":     slog.LevelInfo,
		" warn ":   slog.LevelWarn,
		"error":    slog.LevelError,
		"Critical": logging.LevelCritical,
	}

	for in, want := range cases {
		got, err := logging.ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}

	if _, err := logging.ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNew_TextRendersCritical(t *testing.T) {
	var buf bytes.Buffer

	logger, err := logging.New(&buf, "error", "text")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	logger.Warn("dropped")
	logging.Critical(t.Context(), logger, "cannot open", "path", "/etc/x.conf")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("warn logged below threshold: %s", out)
	}

	if !strings.Contains(out, "level=CRITICAL") || !strings.Contains(out, "path=/etc/x.conf") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger, err := logging.New(&buf, "info", "json")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	logging.Critical(t.Context(), logger, "boom")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}

	if rec["level"] != "CRITICAL" || rec["msg"] != "boom" {
		t.Fatalf("record: %v", rec)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := logging.New(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}

	if _, err := logging.New(&bytes.Buffer{}, "chatty", "text"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

type journalEntry struct {
	message  string
	priority journal.Priority
	vars     map[string]string
}

func TestNew_CriticalReachesJournal(t *testing.T) {
	var entries []journalEntry

	send := func(message string, priority journal.Priority, vars map[string]string) error {
		entries = append(entries, journalEntry{message, priority, vars})
		return nil
	}

	var buf bytes.Buffer

	logger, err := logging.New(&buf, "info", "text", logging.WithJournal("sharingd", send))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	logger.Error("not critical")
	logging.Critical(t.Context(), logger.With("component", "registry"), "could not open file /etc/x.conf", "err", "no such file")

	if len(entries) != 1 {
		t.Fatalf("want 1 journal entry, got %d", len(entries))
	}

	e := entries[0]
	if e.priority != journal.PriCrit {
		t.Fatalf("priority=%d, want %d", e.priority, journal.PriCrit)
	}

	if e.message != "could not open file /etc/x.conf component=registry err=no such file" {
		t.Fatalf("message=%q", e.message)
	}

	if e.vars["SYSLOG_IDENTIFIER"] != "sharingd" {
		t.Fatalf("vars=%v", e.vars)
	}

	if !strings.Contains(buf.String(), "level=CRITICAL") {
		t.Fatalf("stderr copy missing: %s", buf.String())
	}
}

func TestNew_NilJournalIsIgnored(t *testing.T) {
	logger, err := logging.New(&bytes.Buffer{}, "info", "text", logging.WithJournal("sharingd", nil))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	logging.Critical(t.Context(), logger, "still fine")
}
