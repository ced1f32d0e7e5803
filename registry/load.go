package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
)

// DefaultPath is where the broker looks for its registry unless told otherwise.
const DefaultPath = "/etc/sharing/dbus-sharing.conf"

const (
	keyFormats = "formats"
	keyCmd     = "cmd"
	listSep    = ","
)

// LoadOption configures a load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	logger *slog.Logger
}

// WithLogger reports ignored lines (orphan keys, malformed headers) to logger.
func WithLogger(l *slog.Logger) LoadOption {
	return func(o *loadOptions) { o.logger = l }
}

// LoadFile opens path and parses it with Load.
// An unopenable file fails with ErrConfigUnreadable.
func LoadFile(path string, opts ...LoadOption) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry %s: %w", path, errors.Join(berr.ErrConfigUnreadable, err))
	}
	defer f.Close()

	return Load(f, opts...)
}

// Load parses the line-oriented registry source:
//
//	[Viewer]
//	formats=.png,.jpg
//	cmd=/usr/bin/viewer
//
// A section header starts a fresh endpoint, formats lines accumulate within a section,
// the last cmd line wins. Keys outside any section and unknown lines are ignored.
func Load(r io.Reader, opts ...LoadOption) (*Registry, error) {
	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	reg := newRegistry()
	p := parser{reg: reg, logger: o.logger}

	// Lines may be arbitrarily long.
	br := bufio.NewReader(r)

	for {
		l, err := br.ReadString('\n')
		if l != "" {
			p.line(strings.TrimSpace(l))
		}

		if errors.Is(err, io.EOF) {
			return reg, nil
		}

		if err != nil {
			return nil, fmt.Errorf("read registry: %w", errors.Join(berr.ErrConfigUnreadable, err))
		}
	}
}

// parser carries the current section between lines. It never outlives a Load call.
type parser struct {
	reg     *Registry
	logger  *slog.Logger
	lineNo  int
	current string
	inside  bool
}

func (p *parser) line(l string) {
	p.lineNo++

	switch {
	case strings.Contains(l, "["):
		p.header(l)
	case strings.HasPrefix(l, keyFormats):
		if v, ok := p.value(l, keyFormats); ok {
			p.reg.update(p.current, func(e *Endpoint) { e.Formats = appendFormats(e.Formats, v) })
		}
	case strings.HasPrefix(l, keyCmd):
		if v, ok := p.value(l, keyCmd); ok {
			p.reg.update(p.current, func(e *Endpoint) { e.Executable = strings.TrimSpace(v) })
		}
	}
}

func (p *parser) header(l string) {
	open := strings.Index(l, "[")
	end := strings.Index(l[open+1:], "]")

	if end <= 0 {
		p.logger.Warn("ignoring malformed section header", "line", p.lineNo, "text", l)
		p.inside = false

		return
	}

	p.current = l[open+1 : open+1+end]
	p.inside = true
	p.reg.declare(p.current)
}

// value returns the text after the first '=' of a key line that belongs to a section.
func (p *parser) value(l, key string) (string, bool) {
	if !p.inside {
		p.logger.Warn("ignoring key outside of any section", "line", p.lineNo, "key", key)
		return "", false
	}

	_, v, found := strings.Cut(l, "=")
	if !found {
		p.logger.Warn("ignoring key without value", "line", p.lineNo, "key", key, "endpoint", p.current)
		return "", false
	}

	return v, true
}

func appendFormats(dst []string, list string) []string {
	for _, f := range strings.Split(list, listSep) {
		if f = strings.TrimSpace(f); f != "" {
			dst = append(dst, f)
		}
	}

	return dst
}
