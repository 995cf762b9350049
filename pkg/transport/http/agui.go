package http

import (
	"context"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rhuss/copaw/pkg/api"
	"github.com/rhuss/copaw/pkg/debug"
	"github.com/rhuss/copaw/pkg/observability"
	"github.com/rhuss/copaw/pkg/transport"
)

// ProtocolAGUI names the /ag-ui adapter in relay requests.
const ProtocolAGUI = "ag-ui"

// handleAGUI handles POST /ag-ui.
//
// Request:
//
//	{"threadId": "...", "runId": "...", "messages": [{"id": "...", "role": "user", "content": "..."}],
//	 "tools": [], "context": [], "forwardedProps": {}}
//
// The event sequence is RUN_STARTED, TEXT_MESSAGE_START, zero or more
// TEXT_MESSAGE_CONTENT, TEXT_MESSAGE_END, RUN_FINISHED, [DONE]. A relay
// fault ends the stream with RUN_ERROR and nothing after it. The threadId
// is the session key. tools, context and forwardedProps are accepted and
// ignored.
func (a *Adapter) handleAGUI(w http.ResponseWriter, r *http.Request) {
	doc, ok := a.readJSONBody(w, r)
	if !ok {
		return
	}

	threadID := stringOr(doc, "threadId", api.DefaultSessionID)
	runID := stringOr(doc, "runId", api.NewRunID(time.Now()))

	req := &api.RelayRequest{
		SessionID: threadID,
		Messages:  parseAGUIMessages(doc.Get("messages")),
		Protocol:  ProtocolAGUI,
	}
	if len(req.Messages) == 0 {
		transport.WriteAPIError(w, api.NewInvalidRequestError("messages", "No messages"))
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

	if err := writeAGUIEvent(sw, api.AGUIEvent{Type: api.AGUIRunStarted, RunID: runID, ThreadID: threadID}); err != nil {
		return
	}

	messageID := api.NewMessageID()
	if err := writeAGUIEvent(sw, api.AGUIEvent{Type: api.AGUITextMessageStart, MessageID: messageID}); err != nil {
		return
	}

	sink := transport.FragmentSinkFunc(func(_ context.Context, text string) error {
		return writeAGUIEvent(sw, api.AGUIEvent{
			Type:      api.AGUITextMessageContent,
			MessageID: messageID,
			Delta:     text,
		})
	})

	if err := a.relayer.Relay(ctx, req, sink); err != nil {
		if r.Context().Err() != nil {
			debug.Log("transport", "client disconnected", "protocol", ProtocolAGUI, "thread_id", threadID, "run_id", runID)
			return
		}
		apiErr := transport.AsAPIError(err)
		writeAGUIEvent(sw, api.AGUIEvent{
			Type:    api.AGUIRunError,
			Message: apiErr.Message,
			Code:    apiErr.Code,
		})
		return
	}

	if err := writeAGUIEvent(sw, api.AGUIEvent{Type: api.AGUITextMessageEnd, MessageID: messageID}); err != nil {
		return
	}
	writeAGUIEvent(sw, api.AGUIEvent{Type: api.AGUIRunFinished, RunID: runID})
}

// writeAGUIEvent sends ev and ends the stream after a terminal event:
// RUN_FINISHED is followed by [DONE], RUN_ERROR by nothing.
func writeAGUIEvent(sw *sseWriter, ev api.AGUIEvent) error {
	if err := sw.WriteData(ev); err != nil {
		return err
	}
	switch {
	case ev.Type == api.AGUIRunFinished:
		return sw.WriteDone()
	case ev.Type.IsTerminal():
		sw.Close()
	}
	return nil
}

// parseAGUIMessages keeps messages with non-empty content. String content
// passes through; list content is reduced to its text segments the same
// way /process does. A missing role means "user".
func parseAGUIMessages(messages gjson.Result) []api.Message {
	if !messages.IsArray() {
		return nil
	}
	var msgs []api.Message
	messages.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		content := item.Get("content")

		var text string
		switch {
		case content.Type == gjson.String:
			text = content.String()
		case content.IsArray():
			text = joinTextSegments(content)
		}
		if text != "" {
			msgs = append(msgs, api.NewMessage(item.Get("role").String(), text))
		}
		return true
	})
	return msgs
}
