// Package api defines the core protocol types for the copaw relay.
//
// It holds the normalized chat turn model shared by every protocol adapter,
// the outbound event envelopes for the "process" and AG-UI streams, the
// structured error type, and ID generation helpers. The package performs no
// I/O.
//
// Core types:
//   - [Message]: one chat turn (system, user or assistant) with text content
//   - [RelayRequest]: a normalized request handed to the relay engine
//   - [OutputEnvelope]: the "process" stream payload for one text fragment
//   - [AGUIEvent]: a lifecycle-tagged AG-UI stream event
//   - [APIError]: structured error with type, code, param, and message
package api
