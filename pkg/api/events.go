package api

// DoneSentinel is the literal data payload that closes a successful stream.
const DoneSentinel = "[DONE]"

// OutputEnvelope is the "process" protocol payload carrying one text fragment:
//
//	{"output":[{"content":[{"type":"text","text":"..."}]}]}
type OutputEnvelope struct {
	Output []OutputMessage `json:"output"`
}

// OutputMessage is a single entry of an OutputEnvelope.
type OutputMessage struct {
	Content []ContentPart `json:"content"`
}

// ContentPart is a typed content segment. Only "text" parts carry text.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewOutputEnvelope wraps a text fragment in the "process" envelope.
func NewOutputEnvelope(text string) OutputEnvelope {
	return OutputEnvelope{
		Output: []OutputMessage{{
			Content: []ContentPart{{Type: "text", Text: text}},
		}},
	}
}

// AGUIEventType identifies the lifecycle stage of an AG-UI event.
type AGUIEventType string

const (
	AGUIRunStarted         AGUIEventType = "RUN_STARTED"
	AGUITextMessageStart   AGUIEventType = "TEXT_MESSAGE_START"
	AGUITextMessageContent AGUIEventType = "TEXT_MESSAGE_CONTENT"
	AGUITextMessageEnd     AGUIEventType = "TEXT_MESSAGE_END"
	AGUIRunFinished        AGUIEventType = "RUN_FINISHED"
	AGUIRunError           AGUIEventType = "RUN_ERROR"
)

// AGUIEvent is a single AG-UI stream event. Only the fields relevant to the
// event type are populated.
type AGUIEvent struct {
	Type      AGUIEventType `json:"type"`
	RunID     string        `json:"runId,omitempty"`
	ThreadID  string        `json:"threadId,omitempty"`
	MessageID string        `json:"messageId,omitempty"`
	Delta     string        `json:"delta,omitempty"`
	Message   string        `json:"message,omitempty"`
	Code      string        `json:"code,omitempty"`
}

// IsTerminal reports whether no further events follow this one.
func (t AGUIEventType) IsTerminal() bool {
	return t == AGUIRunFinished || t == AGUIRunError
}
