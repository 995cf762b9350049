package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rhuss/copaw/pkg/api"
)

// writerState tracks the state of an SSE event writer.
type writerState int

const (
	writerIdle      writerState = iota // No bytes written yet
	writerStreaming                    // Headers sent, events flowing
	writerCompleted                    // Stream ended, further writes fail
)

var errWriterCompleted = errors.New("cannot write event: stream is completed")

// sseWriter writes "data:" only server-sent events. Both protocol adapters
// share it; they differ only in the JSON documents they pass to WriteData
// and in how they end the stream.
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	return &sseWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// startLocked sends the SSE headers. The caller must hold s.mu.
func (s *sseWriter) startLocked() {
	if s.state != writerIdle {
		return
	}
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.state = writerStreaming
}

// WriteData marshals v and sends it as one event:
//
//	data: {json}\n
//	\n
//
// HTML characters are not escaped; model output is sent as written.
func (s *sseWriter) WriteData(v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return s.writeRaw(strings.TrimSuffix(buf.String(), "\n"))
}

// WriteDone sends the [DONE] sentinel and completes the stream.
func (s *sseWriter) WriteDone() error {
	if err := s.writeRaw(api.DoneSentinel); err != nil {
		return err
	}
	s.Close()
	return nil
}

// Close completes the stream without a sentinel. Later writes fail.
func (s *sseWriter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = writerCompleted
}

func (s *sseWriter) writeRaw(payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errWriterCompleted
	}
	s.startLocked()

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

// keepAlive sends an SSE comment line every interval until ctx ends or the
// stream completes, so idle proxies do not drop a slow upstream answer.
// A zero interval disables it.
func (s *sseWriter) keepAlive(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.ping() {
				return
			}
		}
	}
}

// startKeepAlive runs keepAlive in the background. The returned stop
// function ends it and waits for the goroutine to exit, so no ping is
// written after the handler returns.
func (s *sseWriter) startKeepAlive(ctx context.Context, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.keepAlive(ctx, interval)
	}()
	return func() {
		cancel()
		<-done
	}
}

func (s *sseWriter) ping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return false
	}
	s.startLocked()
	if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
		return false
	}
	return s.rc.Flush() == nil
}

// hasStarted reports whether the SSE headers have been sent.
func (s *sseWriter) hasStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != writerIdle
}
