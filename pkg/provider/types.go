package provider

// ProviderRequest is the backend-facing request. It contains only the
// information the provider needs, stripped of transport and session concerns.
type ProviderRequest struct {
	Model    string            `json:"model"`
	Messages []ProviderMessage `json:"messages"`
	Stream   bool              `json:"stream"`
}

// ProviderMessage represents a message in the provider's conversation format.
type ProviderMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProviderEventType classifies a streaming event from the backend.
type ProviderEventType int

const (
	ProviderEventTextDelta ProviderEventType = iota // Incremental text content
	ProviderEventDone                               // Stream finished
	ProviderEventError                              // Stream error
)

// String returns a readable name for logs and test failures.
func (t ProviderEventType) String() string {
	switch t {
	case ProviderEventTextDelta:
		return "text_delta"
	case ProviderEventDone:
		return "done"
	case ProviderEventError:
		return "error"
	default:
		return "unknown"
	}
}

// ProviderEvent is a single streaming event from the backend.
type ProviderEvent struct {
	// Type indicates what kind of event this is.
	Type ProviderEventType

	// Delta contains incremental text.
	Delta string

	// FinishReason is set on the done event when the backend reported one.
	FinishReason string

	// Err is populated if the stream encountered an error.
	Err error
}
