package sink

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	internalencoder "github.com/jittakal/ringlog/internal/encoder"
	"github.com/jittakal/ringlog/pkg/encoder"
)

// segmenter turns chunks into encoded, routed segment objects.
type segmenter struct {
	enc    encoder.Encoder
	router *Router
	run    string

	mu  sync.Mutex
	seq uint64
}

func newSegmenter(format encoder.Format, compression string, router *Router) (*segmenter, error) {
	enc, err := internalencoder.NewFactory(format, compression).CreateEncoder()
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}
	return &segmenter{enc: enc, router: router, run: router.NewRun(time.Now())}, nil
}

// next encodes p as the next segment and returns its key and body.
func (s *segmenter) next(p []byte, now time.Time) (string, *bytes.Buffer, error) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	var body bytes.Buffer
	chunk := encoder.Chunk{Sequence: seq, DrainedAt: now, Payload: p}
	if _, err := s.enc.Encode(&body, chunk); err != nil {
		return "", nil, err
	}
	return s.router.Route(s.run, seq, now, s.enc.FileExtension()), &body, nil
}
