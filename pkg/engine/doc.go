// Package engine implements the relay orchestration for copaw. The Engine
// implements transport.Relayer: for each call it takes the session lease,
// prepends the system prompt and the session's history to the new turns,
// streams the answer from the provider into the adapter's FragmentSink,
// and records the exchange in the session store once the stream succeeds.
package engine
