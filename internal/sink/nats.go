package sink

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/jittakal/ringlog/internal/errors"
	"github.com/jittakal/ringlog/pkg/sink"
)

// Ensure implementation satisfies interface at compile time.
var _ sink.Sink = (*NATSSink)(nil)

// natsDefaultMaxPayload is the NATS server default max_payload.
const natsDefaultMaxPayload = 1 << 20

// natsHeaderLen is the encoded size of a header block holding only the
// message id. The server counts it against max_payload with the data.
func natsHeaderLen(msgID string) int {
	return len("NATS/1.0\r\n") + len(nats.MsgIdHdr) + len(": ") + len(msgID) + len("\r\n\r\n")
}

// NATSConfig contains NATS JetStream configuration.
type NATSConfig struct {
	URL           string
	Subject       string
	Stream        string
	CreateStream  bool
	ClientName    string
	Username      string
	Password      string
	Token         string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Validate validates NATS configuration.
func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("nats url is required")
	}
	if c.Subject == "" {
		return fmt.Errorf("nats subject is required")
	}
	if c.CreateStream && c.Stream == "" {
		return fmt.Errorf("nats stream name is required when create_stream is set")
	}
	return nil
}

func (c *NATSConfig) options() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.MaxReconnects),
		nats.ReconnectWait(c.ReconnectWait),
		nats.Timeout(c.Timeout),
	}
	if c.Username != "" && c.Password != "" {
		opts = append(opts, nats.UserInfo(c.Username, c.Password))
	}
	if c.Token != "" {
		opts = append(opts, nats.Token(c.Token))
	}
	if c.ClientName != "" {
		opts = append(opts, nats.Name(c.ClientName))
	}
	return opts
}

// jsPublisher is the subset of jetstream.JetStream used by NATSSink.
type jsPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSSink publishes drained chunks to a JetStream subject. Chunks larger
// than the server's max payload are split across consecutive messages.
type NATSSink struct {
	conn       *nats.Conn
	js         jsPublisher
	subject    string
	maxPayload int
	router     *Router
	run        string
	seq        uint64
	logger     *slog.Logger
	metrics    recorder
}

// NewNATSSink connects to NATS and prepares the JetStream publisher.
func NewNATSSink(
	ctx context.Context,
	cfg NATSConfig,
	router *Router,
	logger *slog.Logger,
	metrics MetricsCollector,
) (*NATSSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := nats.Connect(cfg.URL, cfg.options()...)
	if err != nil {
		return nil, &errors.SinkError{Backend: BackendNATS, Operation: "connect", Err: err}
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if cfg.CreateStream {
		if err := ensureStream(ctx, js, cfg.Stream, cfg.Subject); err != nil {
			conn.Close()
			return nil, &errors.SinkError{Backend: BackendNATS, Operation: "create_stream", Err: err}
		}
	}

	s := newNATSSink(js, cfg.Subject, int(conn.MaxPayload()), router, logger, metrics)
	s.conn = conn

	logger.Info("NATS sink created",
		"url", conn.ConnectedUrlRedacted(),
		"subject", cfg.Subject,
		"stream", cfg.Stream,
		"max_payload", s.maxPayload,
		"run", s.run,
	)
	return s, nil
}

func newNATSSink(js jsPublisher, subject string, maxPayload int, router *Router, logger *slog.Logger, metrics MetricsCollector) *NATSSink {
	if maxPayload <= 0 {
		maxPayload = natsDefaultMaxPayload
	}
	return &NATSSink{
		js:         js,
		subject:    subject,
		maxPayload: maxPayload,
		router:     router,
		run:        router.NewRun(time.Now()),
		logger:     logger,
		metrics:    recorder{backend: BackendNATS, metrics: metrics},
	}
}

func ensureStream(ctx context.Context, js jetstream.JetStream, name, subject string) error {
	_, err := js.Stream(ctx, name)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, jetstream.ErrStreamNotFound) {
		return err
	}
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: []string{subject},
	})
	return err
}

// Append publishes p as one or more messages. Each message carries a
// message id so that JetStream discards duplicates of a retried publish.
// Headers and data together stay within the server's max payload.
func (s *NATSSink) Append(ctx context.Context, p []byte) error {
	start := time.Now()

	for off := 0; off < len(p); {
		s.seq++
		id := s.router.MessageID(s.run, s.seq)
		room := s.maxPayload - natsHeaderLen(id)
		if room <= 0 {
			s.metrics.failure("publish")
			return &errors.SinkError{
				Backend:   BackendNATS,
				Operation: "publish",
				Err:       fmt.Errorf("max payload %d leaves no room for data after headers", s.maxPayload),
				Delivered: off,
			}
		}
		end := min(off+room, len(p))

		msg := nats.NewMsg(s.subject)
		msg.Data = p[off:end]
		msg.Header.Set(nats.MsgIdHdr, id)
		if _, err := s.js.PublishMsg(ctx, msg); err != nil {
			s.metrics.failure("publish")
			return &errors.SinkError{Backend: BackendNATS, Operation: "publish", Err: err, Delivered: off}
		}
		off = end
	}

	duration := time.Since(start)
	s.logger.Debug("published chunk to NATS",
		"subject", s.subject,
		"bytes", len(p),
		"duration_ms", duration.Milliseconds(),
	)
	s.metrics.success(len(p), duration.Seconds())
	return nil
}

// Close closes the NATS connection.
func (s *NATSSink) Close() error {
	s.logger.Info("closing NATS sink")
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
