// sharingd is the file sharing broker. It loads the endpoint registry, serves
// getEndpoints, getEndpointFormats and passFileForProcessing over NATS, and
// broadcasts endpointsReady to NATS plus any configured RabbitMQ or Kafka sink.
//
// SIGHUP reloads the registry; SIGINT and SIGTERM stop the broker. Programs it
// started keep running.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/nullptr-deref/dbus-sharing/adapters/kafka"
	"github.com/nullptr-deref/dbus-sharing/adapters/nats"
	"github.com/nullptr-deref/dbus-sharing/adapters/rabbitmq"
	"github.com/nullptr-deref/dbus-sharing/config"
	cbus "github.com/nullptr-deref/dbus-sharing/contract/bus"
	"github.com/nullptr-deref/dbus-sharing/launcher"
	"github.com/nullptr-deref/dbus-sharing/logging"
	"github.com/nullptr-deref/dbus-sharing/registry"
	"github.com/nullptr-deref/dbus-sharing/servicebus"
	"github.com/nullptr-deref/dbus-sharing/sharing"
)

// exitError carries a process exit code for failures that were already logged.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func (e exitError) ExitCode() int { return int(e) }

// journalSend is where CRITICAL records are copied besides stderr.
var journalSend = logging.SystemJournal

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}

		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}

		fmt.Fprintf(os.Stderr, "sharingd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := config.Load("sharingd", args, stderr)
	if err != nil {
		return err
	}

	logger, err := logging.New(stderr, cfg.LogLevel, cfg.LogFormat, logging.WithJournal("sharingd", journalSend()))
	if err != nil {
		return err
	}

	reg, err := registry.LoadFile(cfg.RegistryPath, registry.WithLogger(logger))
	if err != nil {
		logging.Critical(ctx, logger, "File sharing proxy service could not open file "+cfg.RegistryPath, "err", err)
		return exitError(1)
	}

	logger.Info("registry loaded", "path", cfg.RegistryPath, "endpoints", reg.Len())

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

	sinks, closeSinks, err := signalSinks(cfg, conn, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	bus := servicebus.New(sinks, logger, servicebus.WithCommandMiddleware(servicebus.LogCommands(logger)))
	svc := sharing.NewService(reg, launcher.New(logger), bus, logger,
		sharing.WithInterface(cfg.Interface),
		sharing.WithBroadcastTimeout(cfg.BroadcastTimeout),
	)

	if err := sharing.Bind(bus, svc); err != nil {
		return err
	}

	if err := servicebus.BindDomainEvent[sharing.FileRouted](bus, sharing.RoutedLogger{Logger: logger}); err != nil {
		return err
	}

	srv := nats.NewServer(conn, cfg.Interface, logger, nats.WithCallTimeout(cfg.CallTimeout))
	if err := sharing.RegisterMethods(srv, bus); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-serveErr:
		return err
	}

	if err := svc.AnnounceEndpoints(ctx); err != nil {
		logger.Warn("endpointsReady broadcast failed", "err", err)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-hup:
			reload(ctx, svc, cfg.RegistryPath, logger)
		case err := <-serveErr:
			return err
		case <-ctx.Done():
			logger.Info("shutting down")
			return <-serveErr
		}
	}
}

// signalSinks returns the publishers endpointsReady is mirrored to and a cleanup for them.
func signalSinks(cfg config.Config, conn *nats.Conn, logger *slog.Logger) (servicebus.FanOut, func(), error) {
	hp := cbus.RequestIDPropagator{}
	sinks := servicebus.FanOut{nats.NewWithPropagator(conn, hp)}

	var cleanups []func()

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if cfg.AMQP.URL != "" {
		ad, done, err := rabbitmq.NewWithAMQPConn(rabbitmq.Config{
			URL:         cfg.AMQP.URL,
			Exchange:    cfg.AMQP.Exchange,
			ConnTimeout: cfg.AMQP.Timeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}

		ad.Propagator = hp
		cleanups = append(cleanups, done)
		sinks = append(sinks, ad)

		logger.Info("mirroring signals to rabbitmq", "exchange", ad.Exchange)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		ad, done, err := kafka.NewWithKgo(kafkaConfig(cfg.Kafka))
		if err != nil {
			cleanup()
			return nil, nil, err
		}

		ad.Propagator = hp
		cleanups = append(cleanups, done)
		sinks = append(sinks, ad)

		logger.Info("mirroring signals to kafka", "brokers", cfg.Kafka.Brokers)
	}

	return sinks, cleanup, nil
}

// reload swaps in a freshly parsed registry. On failure the current one stays.
func reload(ctx context.Context, svc *sharing.Service, path string, logger *slog.Logger) {
	reg, err := registry.LoadFile(path, registry.WithLogger(logger))
	if err != nil {
		logger.Error("registry reload failed, keeping current endpoints", "path", path, "err", err)
		return
	}

	svc.Reload(reg)

	if err := svc.AnnounceEndpoints(ctx); err != nil {
		logger.Warn("endpointsReady broadcast failed", "err", err)
	}
}

func kafkaConfig(k config.Kafka) kafka.Config {
	kc := kafka.Config{
		Brokers:         k.Brokers,
		ClientID:        k.ClientID,
		Acks:            k.Acks,
		Idempotent:      k.Idempotent,
		Compression:     k.Compression,
		DeliveryTimeout: k.DeliveryTimeout,
	}

	if k.TLS {
		kc.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return kc
}
