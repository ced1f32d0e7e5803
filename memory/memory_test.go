package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	cbus "github.com/nullptr-deref/dbus-sharing/contract/bus"
	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
	"github.com/nullptr-deref/dbus-sharing/launcher"
	"github.com/nullptr-deref/dbus-sharing/memory"
	"github.com/nullptr-deref/dbus-sharing/registry"
	"github.com/nullptr-deref/dbus-sharing/servicebus"
	"github.com/nullptr-deref/dbus-sharing/sharing"
)

type nopLauncher struct{ n int }

func (l *nopLauncher) Launch(context.Context, string, string) (launcher.Process, error) {
	l.n++
	return launcher.Process{PID: 100 + l.n}, nil
}

func TestNew_WiresEverything(t *testing.T) {
	reg, err := registry.Load(strings.NewReader("[Viewer]\ncmd=/usr/bin/viewer\nformats=.png\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	l := &nopLauncher{}

	br, err := memory.New(reg, l, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	names, err := br.Client.Endpoints(t.Context())
	if err != nil || len(names) != 1 || names[0] != "Viewer" {
		t.Fatalf("endpoints=%v err=%v", names, err)
	}

	if got := len(br.Transport.Published()); got != 1 {
		t.Fatalf("want 1 signal, got %d", got)
	}

	var routed []sharing.FileRouted

	if err := servicebus.BindDomainEvent[sharing.FileRouted](br.Bus, collect(&routed)); err != nil {
		t.Fatalf("bind: %v", err)
	}

	if err := br.Client.PassFile(t.Context(), "Viewer", "/tmp/a.png"); err != nil {
		t.Fatalf("pass: %v", err)
	}

	if l.n != 1 || len(routed) != 1 || routed[0].PID != 101 {
		t.Fatalf("launches=%d routed=%+v", l.n, routed)
	}

	// A second Bind collides with the first.
	if err := sharing.Bind(br.Bus, br.Service); !errors.Is(err, berr.ErrHandlerExists) {
		t.Fatalf("want ErrHandlerExists, got %v", err)
	}
}

type collector struct{ out *[]sharing.FileRouted }

func (c collector) Handle(_ context.Context, e sharing.FileRouted) error {
	*c.out = append(*c.out, e)
	return nil
}

func collect(out *[]sharing.FileRouted) cbus.DomainEventHandler[sharing.FileRouted] {
	return collector{out: out}
}
