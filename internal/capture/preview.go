package capture

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Preview holds the most recent captured frame as JPEG for viewers. The
// capture loop publishes into it; any number of readers wait on it, so the
// camera itself is only ever read by one goroutine.
type Preview struct {
	mu      sync.Mutex
	jpeg    []byte
	seq     uint64
	changed chan struct{}
}

// NewPreview creates an empty Preview.
func NewPreview() *Preview {
	return &Preview{changed: make(chan struct{})}
}

// Publish encodes frame as JPEG and makes it the latest frame.
func (p *Preview) Publish(frame *gocv.Mat) error {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return fmt.Errorf("encode preview frame: %w", err)
	}
	defer buf.Close()

	p.Store(append([]byte(nil), buf.GetBytes()...))
	return nil
}

// Store makes jpeg the latest frame and wakes every waiting reader.
func (p *Preview) Store(jpeg []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.jpeg = jpeg
	p.seq++
	close(p.changed)
	p.changed = make(chan struct{})
}

// Latest returns the newest frame and its sequence number. The sequence is
// zero while nothing was published.
func (p *Preview) Latest() ([]byte, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jpeg, p.seq
}

// Next blocks until a frame newer than after is available or ctx ends.
func (p *Preview) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		p.mu.Lock()
		jpeg, seq, changed := p.jpeg, p.seq, p.changed
		p.mu.Unlock()

		if seq > after {
			return jpeg, seq, nil
		}

		select {
		case <-ctx.Done():
			return nil, after, ctx.Err()
		case <-changed:
		}
	}
}
