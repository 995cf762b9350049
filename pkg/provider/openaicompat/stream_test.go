package openaicompat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rhuss/copaw/pkg/observability"
	"github.com/rhuss/copaw/pkg/provider"
)

// collectEvents runs ParseSSEStream and returns all events.
func collectEvents(t *testing.T, r io.Reader) []provider.ProviderEvent {
	t.Helper()
	ch := make(chan provider.ProviderEvent, 64)

	go func() {
		defer close(ch)
		ParseSSEStream(context.Background(), r, ch)
	}()

	var events []provider.ProviderEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func deltas(events []provider.ProviderEvent) []string {
	var out []string
	for _, ev := range events {
		if ev.Type == provider.ProviderEventTextDelta {
			out = append(out, ev.Delta)
		}
	}
	return out
}

func TestParseSSEStream_SingleFragment(t *testing.T) {
	sseData := "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n" +
		"data: [DONE]\n"

	events := collectEvents(t, strings.NewReader(sseData))

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Type != provider.ProviderEventTextDelta || events[0].Delta != "Hi" {
		t.Errorf("event[0] = %+v, want text delta %q", events[0], "Hi")
	}
	if events[1].Type != provider.ProviderEventDone {
		t.Errorf("event[1].Type = %s, want done", events[1].Type)
	}
}

func TestParseSSEStream_TextDeltas(t *testing.T) {
	sseData := `data: {"id":"c1","object":"chat.completion.chunk","model":"deepseek-chat","choices":[{"index":0,"delta":{"role":"assistant","content":""},"finish_reason":null}]}

data: {"id":"c1","object":"chat.completion.chunk","model":"deepseek-chat","choices":[{"index":0,"delta":{"content":"Hello"},"finish_reason":null}]}

data: {"id":"c1","object":"chat.completion.chunk","model":"deepseek-chat","choices":[{"index":0,"delta":{"content":" world"},"finish_reason":null}]}

data: {"id":"c1","object":"chat.completion.chunk","model":"deepseek-chat","choices":[{"index":0,"delta":{"content":""},"finish_reason":"stop"}]}

data: [DONE]
`
	events := collectEvents(t, strings.NewReader(sseData))

	got := deltas(events)
	if len(got) != 2 || got[0] != "Hello" || got[1] != " world" {
		t.Errorf("deltas = %q, want [Hello, \" world\"]", got)
	}

	last := events[len(events)-1]
	if last.Type != provider.ProviderEventDone || last.FinishReason != "stop" {
		t.Errorf("last event = %+v, want done with finish reason stop", last)
	}
}

func TestParseSSEStream_StopsAtDone(t *testing.T) {
	sseData := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
		"data: [DONE]\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"after\"}}]}\n"

	got := deltas(collectEvents(t, strings.NewReader(sseData)))
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("deltas = %q, want [a]", got)
	}
}

func TestParseSSEStream_MalformedChunksSkippedAndCounted(t *testing.T) {
	before := testutil.ToFloat64(observability.UpstreamMalformedChunks)

	sseData := "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n" +
		"data: {this is not valid json}\n" +
		"data: {\"choices\":[]}\n" +
		"data: {\"choices\":[{\"index\":0}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"!\"}}]}\n" +
		"data: [DONE]\n"

	events := collectEvents(t, strings.NewReader(sseData))

	got := deltas(events)
	if len(got) != 2 || got[0] != "Hi" || got[1] != "!" {
		t.Errorf("deltas = %q, want [Hi !]", got)
	}
	for _, ev := range events {
		if ev.Type == provider.ProviderEventError {
			t.Errorf("malformed chunk surfaced as error: %v", ev.Err)
		}
	}

	after := testutil.ToFloat64(observability.UpstreamMalformedChunks)
	if after-before != 3 {
		t.Errorf("malformed chunk counter delta = %v, want 3", after-before)
	}
}

func TestParseSSEStream_IgnoresNonDataLines(t *testing.T) {
	sseData := ": keep-alive\n" +
		"event: message\n" +
		"data:{\"choices\":[{\"delta\":{\"content\":\"no space\"}}]}\n" +
		"id: 7\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n" +
		"data: [DONE]\n"

	got := deltas(collectEvents(t, strings.NewReader(sseData)))
	if len(got) != 1 || got[0] != "ok" {
		t.Errorf("deltas = %q, want [ok]", got)
	}
}

func TestParseSSEStream_EOFWithoutDone(t *testing.T) {
	sseData := "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n"

	events := collectEvents(t, strings.NewReader(sseData))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Type != provider.ProviderEventDone {
		t.Errorf("last event = %s, want done", events[1].Type)
	}
}

type failingReader struct {
	data string
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("connection reset by peer")
}

func TestParseSSEStream_ReadErrorEmitsErrorEvent(t *testing.T) {
	r := &failingReader{data: "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n"}

	events := collectEvents(t, r)
	last := events[len(events)-1]
	if last.Type != provider.ProviderEventError {
		t.Fatalf("last event = %s, want error", last.Type)
	}
	if !strings.Contains(last.Err.Error(), "connection reset") {
		t.Errorf("error = %v, want read error", last.Err)
	}
}

func TestParseSSEStream_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan provider.ProviderEvent) // unbuffered: nothing may be sent
	done := make(chan struct{})
	go func() {
		defer close(done)
		ParseSSEStream(ctx, strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n"), ch)
	}()
	<-done
}
