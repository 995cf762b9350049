// Package provider defines the interface for the upstream LLM backend the
// relay streams from. The interface operates on the relay's own types
// (ProviderRequest, ProviderEvent), keeping the backend wire protocol
// invisible to the engine.
package provider
