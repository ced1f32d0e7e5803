package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
)

// Concrete franz-go based constructor and writer wrapper.

// DefaultDeliveryTimeout bounds how long a record may wait for an unreachable cluster.
const DefaultDeliveryTimeout = 10 * time.Second

type Config struct {
	Brokers  []string
	ClientID string
	// TLS dials brokers over TLS when set.
	TLS *tls.Config
	// Acks is all, leader or none. Empty means all.
	Acks       string
	Idempotent bool
	// Compression is none, gzip, snappy, lz4 or zstd. Empty leaves the client default.
	Compression     string
	DeliveryTimeout time.Duration
}

type kgoWriter struct{ cl *kgo.Client }

func (w kgoWriter) Write(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	rec := &kgo.Record{Topic: topic, Key: key, Value: value}
	if len(headers) > 0 {
		rec.Headers = make([]kgo.RecordHeader, 0, len(headers))
		for k, v := range headers {
			rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
		}
	}

	return w.cl.ProduceSync(ctx, rec).FirstErr()
}

func parseAcks(s string) (kgo.Acks, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return kgo.AllISRAcks(), nil
	case "leader":
		return kgo.LeaderAck(), nil
	case "none":
		return kgo.NoAck(), nil
	}

	return kgo.Acks{}, fmt.Errorf("%w: unknown kafka acks %q", berr.ErrPublishFailed, s)
}

func parseCompression(s string) (kgo.CompressionCodec, error) {
	switch strings.ToLower(s) {
	case "none":
		return kgo.NoCompression(), nil
	case "gzip":
		return kgo.GzipCompression(), nil
	case "snappy":
		return kgo.SnappyCompression(), nil
	case "lz4":
		return kgo.Lz4Compression(), nil
	case "zstd":
		return kgo.ZstdCompression(), nil
	}

	return kgo.CompressionCodec{}, fmt.Errorf("%w: unknown kafka compression %q", berr.ErrPublishFailed, s)
}

func clientOpts(cfg Config) ([]kgo.Opt, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: kafka brokers required", berr.ErrPublishFailed)
	}

	acks, err := parseAcks(cfg.Acks)
	if err != nil {
		return nil, err
	}

	if cfg.Idempotent && acks != kgo.AllISRAcks() {
		return nil, fmt.Errorf("%w: idempotent kafka writes need acks=all", berr.ErrPublishFailed)
	}

	timeout := cfg.DeliveryTimeout
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(acks),
		kgo.RecordDeliveryTimeout(timeout),
	}

	if !cfg.Idempotent {
		opts = append(opts, kgo.DisableIdempotentWrite())
	}

	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	if cfg.TLS != nil {
		opts = append(opts, kgo.DialTLSConfig(cfg.TLS))
	}

	if cfg.Compression != "" {
		codec, err := parseCompression(cfg.Compression)
		if err != nil {
			return nil, err
		}

		opts = append(opts, kgo.ProducerBatchCompression(codec))
	}

	return opts, nil
}

// NewWithKgo builds a franz-go client based Adapter. The client connects lazily; the
// returned cleanup flushes and closes it.
func NewWithKgo(cfg Config) (*Adapter, func(), error) {
	opts, err := clientOpts(cfg)
	if err != nil {
		return nil, nil, err
	}

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: kafka client init: %w", berr.ErrPublishFailed, err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = cl.Flush(ctx)
		cl.Close()
	}

	return New(kgoWriter{cl: cl}), cleanup, nil
}
