// sharingctl talks to a running sharingd over NATS.
//
//	sharingctl list                 print endpoint names
//	sharingctl formats NAME         print the formats NAME accepts
//	sharingctl send NAME FILE       hand FILE to NAME
//	sharingctl watch                print every endpointsReady broadcast
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/nullptr-deref/dbus-sharing/adapters/nats"
	"github.com/nullptr-deref/dbus-sharing/config"
	"github.com/nullptr-deref/dbus-sharing/sharing"
)

const usage = "usage: sharingctl [flags] list | formats NAME | send NAME FILE | watch"

var errUsage = errors.New(usage)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, usage)
			return
		}

		fmt.Fprintf(os.Stderr, "sharingctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load("sharingctl", args, stderr)
	if err != nil {
		return err
	}

	if len(cfg.Args) == 0 {
		return errUsage
	}

	conn, closeNATS, err := nats.Connect(nats.Config{
		URL:           cfg.NATS.URL,
		Name:          cfg.NATS.Name,
		ConnTimeout:   cfg.NATS.Timeout,
		MaxReconnects: cfg.NATS.MaxReconnects,
	})
	if err != nil {
		return err
	}
	defer closeNATS()

	if cfg.Args[0] == "watch" {
		return watch(ctx, conn, cfg.Interface, stdout)
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.NATS.Timeout)
	defer cancel()

	return call(callCtx, sharing.NewClient(nats.NewCaller(conn, cfg.Interface)), cfg.Args, stdout)
}

func call(ctx context.Context, client *sharing.Client, args []string, stdout io.Writer) error {
	switch {
	case args[0] == "list" && len(args) == 1:
		names, err := client.Endpoints(ctx)
		if err != nil {
			return err
		}

		for _, n := range names {
			fmt.Fprintln(stdout, n)
		}

		return nil

	case args[0] == "formats" && len(args) == 2:
		formats, err := client.EndpointFormats(ctx, args[1])
		if err != nil {
			return err
		}

		fmt.Fprintln(stdout, strings.Join(formats, " "))

		return nil

	case args[0] == "send" && len(args) == 3:
		path, err := filepath.Abs(args[2])
		if err != nil {
			return err
		}

		return client.PassFile(ctx, args[1], path)
	}

	return errUsage
}

func watch(ctx context.Context, sub nats.Subscriber, iface string, stdout io.Writer) error {
	topic := sharing.EndpointsReady{Interface: iface}.Topic()

	unsubscribe, err := sub.Subscribe(topic, func(m nats.Msg) {
		var ready sharing.EndpointsReady
		if err := json.Unmarshal(m.Data, &ready); err != nil {
			fmt.Fprintf(stdout, "malformed signal: %v\n", err)
			return
		}

		fmt.Fprintln(stdout, strings.Join(ready.Endpoints, " "))
	})
	if err != nil {
		return err
	}
	defer unsubscribe() //nolint:errcheck // best effort on exit

	<-ctx.Done()

	return nil
}
