package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rhuss/copaw/pkg/api"
	"github.com/rhuss/copaw/pkg/debug"
	"github.com/rhuss/copaw/pkg/observability"
	"github.com/rhuss/copaw/pkg/provider"
	"github.com/rhuss/copaw/pkg/transport"
)

// HistoryStore is the session store as seen by the engine.
type HistoryStore interface {
	// Get returns a copy of the session's turns, creating it if needed.
	Get(ctx context.Context, sessionID string) []api.Message

	// Append adds turns to the session and trims it to its cap.
	Append(ctx context.Context, sessionID string, turns ...api.Message)

	// Acquire takes the session's exclusive lease.
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}

// Engine relays chat requests to a provider backend. It implements
// transport.Relayer.
type Engine struct {
	provider provider.Provider
	store    HistoryStore
	cfg      Config
}

var _ transport.Relayer = (*Engine)(nil)

// New creates a new Engine. Neither the provider nor the store may be nil.
func New(p provider.Provider, store HistoryStore, cfg Config) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("engine: provider must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("engine: history store must not be nil")
	}
	return &Engine{
		provider: p,
		store:    store,
		cfg:      cfg,
	}, nil
}

// Relay streams one answer for req into sink.
//
// The session lease is held for the whole call, so the history read, the
// upstream round trip and the history write of one call never interleave
// with another call on the same session. History is only written after the
// stream completed; a failed call leaves the session untouched.
func (e *Engine) Relay(ctx context.Context, req *api.RelayRequest, sink transport.FragmentSink) error {
	if req == nil || len(req.Messages) == 0 {
		return api.NewInvalidRequestError("messages", "no messages to relay")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = api.DefaultSessionID
	}

	release, err := e.store.Acquire(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("acquire session %q: %w", sessionID, err)
	}
	defer release()

	history := e.store.Get(ctx, sessionID)
	provReq := e.buildRequest(history, req.Messages)

	debug.Log("relay", "forwarding",
		"session_id", sessionID,
		"history", len(history),
		"new", len(req.Messages),
		"protocol", req.Protocol)

	reply, err := e.stream(ctx, provReq, sink)
	if err != nil {
		return err
	}

	turns := append([]api.Message(nil), req.Messages...)
	if reply != "" {
		turns = append(turns, api.Message{Role: api.RoleAssistant, Content: reply})
	}
	e.store.Append(ctx, sessionID, turns...)

	debug.Log("relay", "completed", "session_id", sessionID, "reply_len", len(reply))
	return nil
}

// buildRequest assembles [system, history..., new...] for the provider.
func (e *Engine) buildRequest(history, turns []api.Message) *provider.ProviderRequest {
	msgs := make([]provider.ProviderMessage, 0, 1+len(history)+len(turns))
	msgs = append(msgs, provider.ProviderMessage{
		Role:    string(api.RoleSystem),
		Content: e.cfg.systemPrompt(),
	})
	for _, m := range history {
		msgs = append(msgs, provider.ProviderMessage{Role: string(m.Role), Content: m.Content})
	}
	for _, m := range turns {
		msgs = append(msgs, provider.ProviderMessage{Role: string(m.Role), Content: m.Content})
	}
	return &provider.ProviderRequest{
		Model:    e.cfg.Model,
		Messages: msgs,
		Stream:   true,
	}
}

// stream runs the upstream call, forwards every text delta to sink, and
// returns the accumulated reply.
func (e *Engine) stream(ctx context.Context, req *provider.ProviderRequest, sink transport.FragmentSink) (reply string, err error) {
	model := req.Model
	if model == "" {
		model = e.provider.Model()
	}

	start := time.Now()
	defer func() {
		observability.UpstreamRequestsTotal.WithLabelValues(model, upstreamStatus(err)).Inc()
		observability.UpstreamLatency.WithLabelValues(model).Observe(time.Since(start).Seconds())
	}()

	eventCh, err := e.provider.Stream(ctx, req)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for ev := range eventCh {
		switch ev.Type {
		case provider.ProviderEventTextDelta:
			if err := sink.WriteFragment(ctx, ev.Delta); err != nil {
				drain(eventCh)
				return "", err
			}
			text.WriteString(ev.Delta)

		case provider.ProviderEventError:
			drain(eventCh)
			return "", ev.Err

		case provider.ProviderEventDone:
			debug.Log("relay", "upstream done", "finish_reason", ev.FinishReason)
			drain(eventCh)
			return text.String(), nil
		}
	}

	// The channel closed without a terminal event: the context ended.
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return text.String(), nil
}

// drain consumes any remaining events so the producer goroutine can exit.
func drain(ch <-chan provider.ProviderEvent) {
	go func() {
		for range ch {
		}
	}()
}

// upstreamStatus is the status label for copaw_upstream_requests_total.
func upstreamStatus(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return string(apiErr.Type)
	}
	return "error"
}
