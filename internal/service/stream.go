package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloo-solutions/docuchat/internal/domain"
)

// CitationsSentinel separates the streamed answer text from the
// structured citation payload. Everything after this marker line is
// JSON, not answer text.
const CitationsSentinel = "---__CITATIONS__---"

// flusher matches http.ResponseWriter implementations that can push
// buffered bytes to the client mid-response.
type flusher interface {
	Flush()
}

// StreamAssembler emits a fully computed answer incrementally: one
// line per write with a fixed pacing delay, then the sentinel, then
// the citation list as one JSON payload. The pacing is cosmetic — the
// generation call already completed before streaming starts — so a
// consumer closing the connection early loses presentation, never the
// recorded turn.
type StreamAssembler struct {
	delay time.Duration
}

// NewStreamAssembler creates a StreamAssembler with the given
// inter-line pacing delay.
func NewStreamAssembler(delay time.Duration) *StreamAssembler {
	return &StreamAssembler{delay: delay}
}

// Stream writes the answer to w. Emission stops when ctx is cancelled
// or a write fails; the error reports how far emission got, and the
// caller should not treat it as a failed answer.
func (a *StreamAssembler) Stream(ctx context.Context, w io.Writer, text string, citations []domain.Citation) error {
	for _, line := range strings.Split(text, "\n") {
		if err := a.writeChunk(ctx, w, line+"\n"); err != nil {
			return err
		}
		if err := a.pause(ctx); err != nil {
			return err
		}
	}

	if err := a.writeChunk(ctx, w, "\n\n"+CitationsSentinel+"\n"); err != nil {
		return err
	}

	payload, err := json.Marshal(citations)
	if err != nil {
		return fmt.Errorf("failed to marshal citations: %w", err)
	}
	return a.writeChunk(ctx, w, string(payload))
}

func (a *StreamAssembler) writeChunk(ctx context.Context, w io.Writer, chunk string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := io.WriteString(w, chunk); err != nil {
		return fmt.Errorf("failed to write stream chunk: %w", err)
	}
	if f, ok := w.(flusher); ok {
		f.Flush()
	}
	return nil
}

func (a *StreamAssembler) pause(ctx context.Context) error {
	if a.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(a.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
