// Package config reads broker and client settings from SHARING_* environment variables,
// then lets command-line flags override them.
package config

import (
	"fmt"
	"io"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"

	"github.com/nullptr-deref/dbus-sharing/registry"
	"github.com/nullptr-deref/dbus-sharing/sharing"
)

type Config struct {
	RegistryPath string `env:"REGISTRY"`
	Interface    string `env:"INTERFACE"`
	LogLevel     string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"text"`

	// CallTimeout bounds one remote call; BroadcastTimeout bounds one endpointsReady fan-out.
	CallTimeout      time.Duration `env:"CALL_TIMEOUT"      envDefault:"10s"`
	BroadcastTimeout time.Duration `env:"BROADCAST_TIMEOUT" envDefault:"2s"`

	NATS  NATS  `envPrefix:"NATS_"`
	AMQP  AMQP  `envPrefix:"AMQP_"`
	Kafka Kafka `envPrefix:"KAFKA_"`

	// Args holds positional arguments left after flag parsing.
	Args []string
}

type NATS struct {
	URL           string        `env:"URL"            envDefault:"nats://127.0.0.1:4222"`
	Name          string        `env:"NAME"`
	Timeout       time.Duration `env:"TIMEOUT"        envDefault:"2s"`
	MaxReconnects int           `env:"MAX_RECONNECTS" envDefault:"60"`
}

// AMQP enables the RabbitMQ signal sink when URL is set.
type AMQP struct {
	URL      string        `env:"URL"`
	Exchange string        `env:"EXCHANGE" envDefault:"sharing"`
	Timeout  time.Duration `env:"TIMEOUT"  envDefault:"5s"`
}

// Kafka enables the Kafka signal sink when Brokers is non-empty.
type Kafka struct {
	Brokers         []string      `env:"BROKERS"          envSeparator:","`
	ClientID        string        `env:"CLIENT_ID"`
	TLS             bool          `env:"TLS"`
	Acks            string        `env:"ACKS"             envDefault:"all"`
	Idempotent      bool          `env:"IDEMPOTENT"       envDefault:"true"`
	Compression     string        `env:"COMPRESSION"`
	DeliveryTimeout time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"10s"`
}

const envPrefix = "SHARING_"

// Load builds the configuration for the program name from the environment and args.
// Usage and flag errors are written to out. A help request returns pflag.ErrHelp.
func Load(name string, args []string, out io.Writer) (Config, error) {
	cfg := Config{
		RegistryPath: registry.DefaultPath,
		Interface:    sharing.DefaultInterface,
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.NATS.Name == "" {
		cfg.NATS.Name = name
	}

	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = name
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVarP(&cfg.RegistryPath, "config", "c", cfg.RegistryPath, "endpoint registry file")
	fs.StringVar(&cfg.Interface, "interface", cfg.Interface, "bus interface name")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn, error or critical")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	fs.DurationVar(&cfg.CallTimeout, "call-timeout", cfg.CallTimeout, "deadline for one remote call")
	fs.DurationVar(&cfg.BroadcastTimeout, "broadcast-timeout", cfg.BroadcastTimeout, "deadline for one endpointsReady broadcast")
	fs.StringVar(&cfg.NATS.URL, "nats-url", cfg.NATS.URL, "NATS server URL")
	fs.DurationVar(&cfg.NATS.Timeout, "nats-timeout", cfg.NATS.Timeout, "NATS connect and call timeout")
	fs.IntVar(&cfg.NATS.MaxReconnects, "nats-max-reconnects", cfg.NATS.MaxReconnects, "NATS reconnect attempts (-1 for unlimited)")
	fs.StringVar(&cfg.AMQP.URL, "amqp-url", cfg.AMQP.URL, "RabbitMQ URL for signal mirroring (optional)")
	fs.StringVar(&cfg.AMQP.Exchange, "amqp-exchange", cfg.AMQP.Exchange, "RabbitMQ topic exchange")
	fs.DurationVar(&cfg.AMQP.Timeout, "amqp-timeout", cfg.AMQP.Timeout, "RabbitMQ dial timeout")
	fs.StringSliceVar(&cfg.Kafka.Brokers, "kafka-brokers", cfg.Kafka.Brokers, "Kafka seed brokers for signal mirroring (optional)")
	fs.StringVar(&cfg.Kafka.ClientID, "kafka-client-id", cfg.Kafka.ClientID, "Kafka client id")
	fs.BoolVar(&cfg.Kafka.TLS, "kafka-tls", cfg.Kafka.TLS, "dial Kafka brokers over TLS")
	fs.StringVar(&cfg.Kafka.Acks, "kafka-acks", cfg.Kafka.Acks, "Kafka acks: all, leader or none")
	fs.BoolVar(&cfg.Kafka.Idempotent, "kafka-idempotent", cfg.Kafka.Idempotent, "idempotent Kafka writes (needs acks=all)")
	fs.StringVar(&cfg.Kafka.Compression, "kafka-compression", cfg.Kafka.Compression, "Kafka compression: none, gzip, snappy, lz4 or zstd")
	fs.DurationVar(&cfg.Kafka.DeliveryTimeout, "kafka-delivery-timeout", cfg.Kafka.DeliveryTimeout, "how long a signal may wait for Kafka")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.Args = fs.Args()

	return cfg, nil
}
