package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/rhuss/copaw/pkg/api"
	"github.com/rhuss/copaw/pkg/debug"
	"github.com/rhuss/copaw/pkg/observability"
	"github.com/rhuss/copaw/pkg/provider"
)

// maxLineSize bounds a single SSE line. Chunks are small, but a backend
// error document may arrive on one line.
const maxLineSize = 1 << 20

// ParseSSEStream reads Chat Completions SSE chunks from the given reader,
// translates each chunk to ProviderEvent values, and sends them on ch.
// The channel is NOT closed by this function; the caller is responsible
// for closing it.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[{"delta":{"content":"Hi"}}]}\n
//	\n
//	data: [DONE]\n
//
// Only lines prefixed with "data: " are considered. Chunks that cannot be
// decoded, or carry no choice, are skipped: each is logged at WARN and
// counted in copaw_upstream_malformed_chunks_total. Context cancellation
// stops reading immediately.
func ParseSSEStream(ctx context.Context, body io.Reader, ch chan<- provider.ProviderEvent) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var finishReason string

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		debug.Raw("upstream", line)

		// Empty lines, comments (":") and other SSE fields are ignored.
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data: "))

		if payload == api.DoneSentinel {
			send(ctx, ch, provider.ProviderEvent{Type: provider.ProviderEventDone, FinishReason: finishReason})
			return
		}

		var chunk ChatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			skipMalformed("invalid json", payload, err)
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta == nil {
			skipMalformed("missing choice delta", payload, nil)
			continue
		}

		choice := chunk.Choices[0]
		if choice.FinishReason != nil {
			finishReason = *choice.FinishReason
		}
		if c := choice.Delta.Content; c != nil && *c != "" {
			if !send(ctx, ch, provider.ProviderEvent{Type: provider.ProviderEventTextDelta, Delta: *c}) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		// Context cancellation is not an error from our perspective.
		if ctx.Err() != nil {
			return
		}
		send(ctx, ch, provider.ProviderEvent{
			Type: provider.ProviderEventError,
			Err:  api.NewServerError("upstream stream read error: " + err.Error()),
		})
		return
	}

	// The backend closed the body without a [DONE] sentinel.
	send(ctx, ch, provider.ProviderEvent{Type: provider.ProviderEventDone, FinishReason: finishReason})
}

// send delivers ev unless the context ends first. It reports whether the
// event was delivered.
func send(ctx context.Context, ch chan<- provider.ProviderEvent, ev provider.ProviderEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func skipMalformed(reason, payload string, err error) {
	observability.UpstreamMalformedChunks.Inc()
	attrs := []any{"reason", reason, "data", Truncate(payload, 200)}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	slog.Warn("skipping malformed upstream chunk", attrs...)
}
