package sink

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/appendblob"
	"github.com/IBM/sarama"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockMetricsCollector records sink metrics by backend.
type mockMetricsCollector struct {
	mu      sync.Mutex
	written map[string]int
	errors  map[string]int
	sizes   []float64
}

func newMockMetricsCollector() *mockMetricsCollector {
	return &mockMetricsCollector{
		written: make(map[string]int),
		errors:  make(map[string]int),
	}
}

func (m *mockMetricsCollector) IncChunksWritten(backend string, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written[backend+"/"+status]++
}

func (m *mockMetricsCollector) ObserveChunkSize(backend string, size float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizes = append(m.sizes, size)
}

func (m *mockMetricsCollector) ObserveAppendDuration(backend string, duration float64) {}

func (m *mockMetricsCollector) IncSinkErrors(backend string, operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[backend+"/"+operation]++
}

func (m *mockMetricsCollector) writtenCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written[key]
}

func (m *mockMetricsCollector) errorCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[key]
}

var errInjected = stderrors.New("injected failure")

// fakeUploader captures S3 uploads.
type fakeUploader struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (u *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if u.err != nil {
		return nil, u.err
	}
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	u.inputs = append(u.inputs, input)
	u.bodies = append(u.bodies, body)
	return &manager.UploadOutput{Location: "https://bucket.s3.amazonaws.com/" + *input.Key}, nil
}

// fakeObject is an in-memory GCS object writer.
type fakeObject struct {
	key         string
	contentType string
	buf         bytes.Buffer
	closed      bool
	closeErr    error
}

func (o *fakeObject) Write(p []byte) (int, error) {
	return o.buf.Write(p)
}

func (o *fakeObject) Close() error {
	o.closed = true
	return o.closeErr
}

// fakeBucket hands out fakeObjects.
type fakeBucket struct {
	objects  []*fakeObject
	closeErr error
}

func (b *fakeBucket) newWriter(ctx context.Context, key, contentType string) io.WriteCloser {
	o := &fakeObject{key: key, contentType: contentType, closeErr: b.closeErr}
	b.objects = append(b.objects, o)
	return o
}

// fakeAppendBlob is an in-memory append blob.
type fakeAppendBlob struct {
	created   int
	createErr error
	appendErr error
	failAfter int // blocks accepted before appendErr applies
	blocks    [][]byte
}

func (b *fakeAppendBlob) Create(ctx context.Context, o *appendblob.CreateOptions) (appendblob.CreateResponse, error) {
	b.created++
	return appendblob.CreateResponse{}, b.createErr
}

func (b *fakeAppendBlob) AppendBlock(ctx context.Context, body io.ReadSeekCloser, o *appendblob.AppendBlockOptions) (appendblob.AppendBlockResponse, error) {
	if b.appendErr != nil && len(b.blocks) >= b.failAfter {
		return appendblob.AppendBlockResponse{}, b.appendErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return appendblob.AppendBlockResponse{}, err
	}
	b.blocks = append(b.blocks, data)
	return appendblob.AppendBlockResponse{}, nil
}

func (b *fakeAppendBlob) contents() []byte {
	return bytes.Join(b.blocks, nil)
}

// fakePublisher captures JetStream publishes. A positive maxPayload
// rejects messages the way the server does, counting encoded headers.
// failAfter > 0 fails every publish after that many successes.
type fakePublisher struct {
	subjects   []string
	payloads   [][]byte
	msgIDs     []string
	sizes      []int
	err        error
	maxPayload int
	failAfter  int
}

func (p *fakePublisher) PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.failAfter > 0 && len(p.payloads) >= p.failAfter {
		return nil, errInjected
	}
	size := len(msg.Data)
	if len(msg.Header) > 0 {
		size += len("NATS/1.0\r\n") + len("\r\n")
		for k, vs := range msg.Header {
			for _, v := range vs {
				size += len(k) + len(": ") + len(v) + len("\r\n")
			}
		}
	}
	if p.maxPayload > 0 && size > p.maxPayload {
		return nil, nats.ErrMaxPayload
	}
	p.sizes = append(p.sizes, size)
	p.subjects = append(p.subjects, msg.Subject)
	p.payloads = append(p.payloads, append([]byte(nil), msg.Data...))
	p.msgIDs = append(p.msgIDs, msg.Header.Get(nats.MsgIdHdr))
	return &jetstream.PubAck{Stream: "LOGS", Sequence: uint64(len(p.payloads))}, nil
}

// batchProducer records SendMessages batches and fails the records whose
// index is in failIdx with a sarama.ProducerErrors.
type batchProducer struct {
	sarama.SyncProducer
	batches [][]*sarama.ProducerMessage
	failIdx map[int]bool
}

func (p *batchProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	p.batches = append(p.batches, msgs)
	var errs sarama.ProducerErrors
	for i, msg := range msgs {
		if p.failIdx[i] {
			errs = append(errs, &sarama.ProducerError{Msg: msg, Err: sarama.ErrNotLeaderForPartition})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (p *batchProducer) Close() error { return nil }

func header(msg *sarama.ProducerMessage, key string) string {
	for _, h := range msg.Headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}
