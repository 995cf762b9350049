// Package openaicompat streams chat completions from any OpenAI-compatible
// backend (DeepSeek, OpenAI, vLLM, LiteLLM). It handles request
// serialization, SSE chunk parsing, and error mapping.
package openaicompat
