package sink

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"github.com/jittakal/ringlog/internal/errors"
	"github.com/jittakal/ringlog/internal/kafka"
	"github.com/jittakal/ringlog/pkg/sink"
)

// Ensure implementation satisfies interface at compile time.
var _ sink.Sink = (*KafkaSink)(nil)

// kafkaRecordOverhead leaves room for the record key, headers and
// batch framing under the broker message size limit.
const kafkaRecordOverhead = 512

// KafkaSink produces drained chunks to partition 0 of a topic, so the
// partition log holds the drained byte stream in order.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
	maxBytes int
	router   *Router
	run      string
	seq      uint64
	logger   *slog.Logger
	metrics  recorder
}

// NewKafkaSink creates the producer and returns a sink writing to cfg.Topic.
func NewKafkaSink(cfg kafka.ProducerConfig, router *Router, logger *slog.Logger, metrics MetricsCollector) (*KafkaSink, error) {
	producer, err := kafka.NewSyncProducer(cfg, logger)
	if err != nil {
		return nil, &errors.SinkError{Backend: BackendKafka, Operation: "connect", Err: err}
	}
	return newKafkaSink(producer, cfg.Topic, cfg.MessageBytes(), router, logger, metrics), nil
}

func newKafkaSink(producer sarama.SyncProducer, topic string, maxMessageBytes int, router *Router, logger *slog.Logger, metrics MetricsCollector) *KafkaSink {
	maxBytes := maxMessageBytes - kafkaRecordOverhead
	if maxBytes <= 0 {
		maxBytes = maxMessageBytes
	}
	return &KafkaSink{
		producer: producer,
		topic:    topic,
		maxBytes: maxBytes,
		router:   router,
		run:      router.NewRun(time.Now()),
		logger:   logger,
		metrics:  recorder{backend: BackendKafka, metrics: metrics},
	}
}

// Append sends p as one or more records.
func (s *KafkaSink) Append(ctx context.Context, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	start := time.Now()

	msgs := make([]*sarama.ProducerMessage, 0, len(p)/s.maxBytes+1)
	for off := 0; off < len(p); off += s.maxBytes {
		end := min(off+s.maxBytes, len(p))
		s.seq++
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic:     s.topic,
			Partition: 0,
			Key:       sarama.StringEncoder(s.router.Instance()),
			// The ring is reused after Append returns
			Value: sarama.ByteEncoder(append([]byte(nil), p[off:end]...)),
			Headers: []sarama.RecordHeader{
				{Key: []byte("instance"), Value: []byte(s.router.Instance())},
				{Key: []byte("run"), Value: []byte(s.run)},
				{Key: []byte("sequence"), Value: strconv.AppendUint(nil, s.seq, 10)},
			},
			Timestamp: start,
		})
	}

	if err := ctx.Err(); err != nil {
		s.metrics.failure("send")
		return &errors.SinkError{Backend: BackendKafka, Operation: "send", Err: err}
	}

	if err := s.producer.SendMessages(msgs); err != nil {
		s.metrics.failure("send")
		return &errors.SinkError{Backend: BackendKafka, Operation: "send", Err: err, Delivered: deliveredBytes(msgs, err)}
	}

	duration := time.Since(start)
	last := msgs[len(msgs)-1]
	s.logger.Debug("produced chunk to Kafka",
		"topic", s.topic,
		"records", len(msgs),
		"bytes", len(p),
		"last_offset", last.Offset,
		"duration_ms", duration.Milliseconds(),
	)
	s.metrics.success(len(p), duration.Seconds())
	return nil
}

// deliveredBytes sums the records of a failed batch that the broker
// acknowledged. Only sarama.ProducerErrors says which records failed.
func deliveredBytes(msgs []*sarama.ProducerMessage, err error) int {
	var perrs sarama.ProducerErrors
	if !stderrors.As(err, &perrs) {
		return 0
	}
	failed := make(map[*sarama.ProducerMessage]bool, len(perrs))
	for _, pe := range perrs {
		failed[pe.Msg] = true
	}
	n := 0
	for _, msg := range msgs {
		if !failed[msg] {
			n += msg.Value.Length()
		}
	}
	return n
}

// Close closes the producer.
func (s *KafkaSink) Close() error {
	s.logger.Info("closing Kafka sink", "topic", s.topic)
	if err := s.producer.Close(); err != nil {
		return &errors.SinkError{Backend: BackendKafka, Operation: "close", Err: err}
	}
	return nil
}
