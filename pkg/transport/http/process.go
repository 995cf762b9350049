package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rhuss/copaw/pkg/api"
	"github.com/rhuss/copaw/pkg/debug"
	"github.com/rhuss/copaw/pkg/observability"
	"github.com/rhuss/copaw/pkg/transport"
)

// ProtocolProcess names the /process adapter in relay requests.
const ProtocolProcess = "process"

// handleProcess handles POST /process.
//
// Request:
//
//	{"session_id": "...", "input": [{"role": "user", "content": [{"type": "text", "text": "..."}]}]}
//
// Each fragment of the answer is sent as an output envelope. A relay fault
// is sent as an {"error":{...}} event. The stream always ends with [DONE].
func (a *Adapter) handleProcess(w http.ResponseWriter, r *http.Request) {
	doc, ok := a.readJSONBody(w, r)
	if !ok {
		return
	}

	req := &api.RelayRequest{
		SessionID: stringOr(doc, "session_id", api.DefaultSessionID),
		Messages:  parseProcessInput(doc.Get("input")),
		Protocol:  ProtocolProcess,
	}
	if len(req.Messages) == 0 {
		transport.WriteAPIError(w, api.NewInvalidRequestError("input", "No input messages"))
		return
	}
	if !a.validate(w, req) {
		return
	}

	observability.StreamingConnections.Inc()
	defer observability.StreamingConnections.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sw := newSSEWriter(w)
	defer sw.Close()
	stopKeepAlive := sw.startKeepAlive(ctx, a.config.KeepAlive)
	defer stopKeepAlive()

	sink := transport.FragmentSinkFunc(func(_ context.Context, text string) error {
		return sw.WriteData(api.NewOutputEnvelope(text))
	})

	if err := a.relayer.Relay(ctx, req, sink); err != nil {
		if r.Context().Err() != nil {
			debug.Log("transport", "client disconnected", "protocol", ProtocolProcess, "session_id", req.SessionID)
			return
		}
		apiErr := transport.AsAPIError(err)
		if werr := sw.WriteData(api.ErrorResponse{Error: apiErr}); werr != nil {
			slog.Warn("failed to write error event", "error", werr.Error())
		}
	}

	if err := sw.WriteDone(); err != nil {
		debug.Log("transport", "failed to write [DONE]", "error", err.Error())
	}
}

// parseProcessInput normalizes the input array. String content passes
// through unchanged. List content becomes the space-joined text of its
// "text" segments; messages whose list yields no text are dropped. A
// missing role means "user".
func parseProcessInput(input gjson.Result) []api.Message {
	if !input.IsArray() {
		return nil
	}
	var msgs []api.Message
	input.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		role := item.Get("role").String()
		content := item.Get("content")

		switch {
		case content.Type == gjson.String:
			msgs = append(msgs, api.NewMessage(role, content.String()))
		case content.IsArray():
			if text := joinTextSegments(content); text != "" {
				msgs = append(msgs, api.NewMessage(role, text))
			}
		}
		return true
	})
	return msgs
}

// joinTextSegments space-joins the "text" field of every segment whose
// type is "text".
func joinTextSegments(parts gjson.Result) string {
	var texts []string
	parts.ForEach(func(_, part gjson.Result) bool {
		if part.Get("type").String() == "text" {
			texts = append(texts, part.Get("text").String())
		}
		return true
	})
	return strings.Join(texts, " ")
}
