package api

// MessageRole represents the role of a chat turn.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// DefaultSessionID is used when a client does not name a session.
const DefaultSessionID = "default"

// Message is a single chat turn exchanged with the upstream model.
// Messages are treated as immutable once appended to a session.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// NewMessage creates a message, defaulting an empty role to user.
func NewMessage(role, content string) Message {
	r := MessageRole(role)
	if r == "" {
		r = RoleUser
	}
	return Message{Role: r, Content: content}
}

// RelayRequest is the normalized form of an inbound chat request. Protocol
// adapters build it from their own wire shapes before handing it to the
// relay engine.
type RelayRequest struct {
	// SessionID scopes the rolling conversation history.
	SessionID string

	// Messages are the new turns sent by the client for this call.
	Messages []Message

	// Protocol names the adapter that produced the request ("process",
	// "ag-ui"). Used for logging and metrics only.
	Protocol string
}

// Skill describes a capability advertised by the runtime.
type Skill struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Source  string `json:"source"`
	Enabled bool   `json:"enabled"`
}

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status  string `json:"status"`
	Runtime string `json:"runtime"`
	Model   string `json:"model"`
	Version string `json:"version"`
}
