package logging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// JournalSend writes one entry to the system journal.
type JournalSend func(message string, priority journal.Priority, vars map[string]string) error

// Option configures New.
type Option func(*options)

type options struct {
	send       JournalSend
	identifier string
}

// WithJournal also writes every LevelCritical record to the system journal at LOG_CRIT,
// tagged with identifier. A nil send disables it.
func WithJournal(identifier string, send JournalSend) Option {
	return func(o *options) { o.send, o.identifier = send, identifier }
}

// SystemJournal returns the journald sender when the journal socket is reachable, nil otherwise.
func SystemJournal() JournalSend {
	if journal.Enabled() {
		return journal.Send
	}

	return nil
}

type journalHandler struct {
	slog.Handler

	send       JournalSend
	identifier string
	attrs      []slog.Attr
}

func (h *journalHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.Handler.Handle(ctx, r)

	if r.Level >= LevelCritical {
		vars := map[string]string{"SYSLOG_IDENTIFIER": h.identifier}
		if jerr := h.send(journalMessage(r, h.attrs), journal.PriCrit, vars); jerr != nil && err == nil {
			err = fmt.Errorf("journal: %w", jerr)
		}
	}

	return err
}

func (h *journalHandler) WithAttrs(as []slog.Attr) slog.Handler {
	return &journalHandler{
		Handler:    h.Handler.WithAttrs(as),
		send:       h.send,
		identifier: h.identifier,
		attrs:      append(slices.Clip(h.attrs), as...),
	}
}

func (h *journalHandler) WithGroup(name string) slog.Handler {
	return &journalHandler{
		Handler:    h.Handler.WithGroup(name),
		send:       h.send,
		identifier: h.identifier,
		attrs:      h.attrs,
	}
}

// journalMessage renders "msg key=value ..." with logger attrs before record attrs.
func journalMessage(r slog.Record, attrs []slog.Attr) string {
	var b strings.Builder

	b.WriteString(r.Message)

	write := func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Resolve())
		return true
	}

	for _, a := range attrs {
		write(a)
	}

	r.Attrs(write)

	return b.String()
}
