package engine

// DefaultSystemPrompt is sent ahead of every conversation unless configured
// otherwise.
const DefaultSystemPrompt = "You are CoPaw Assistant, a helpful AI assistant running on AgentScope Runtime. " +
	"Keep responses concise and helpful. Respond in the same language the user uses."

// Config holds configuration for the relay engine.
type Config struct {
	// SystemPrompt is the first turn of every upstream request. Empty
	// means DefaultSystemPrompt.
	SystemPrompt string

	// Model is passed to the provider. Empty lets the provider use its
	// own default.
	Model string
}

func (c Config) systemPrompt() string {
	if c.SystemPrompt == "" {
		return DefaultSystemPrompt
	}
	return c.SystemPrompt
}
