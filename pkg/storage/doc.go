// Package storage provides utilities shared across session store
// implementations, including sentinel errors and history limits.
//
// The memory subpackage holds the only implementation. Session history
// lives for the lifetime of the process; there is no persistence.
package storage
