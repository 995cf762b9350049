// Package memory provides an in-memory session history store. Sessions are
// created on first access and live until the process exits. Each session's
// turn list is capped; the oldest turns are discarded first.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rhuss/copaw/pkg/api"
	"github.com/rhuss/copaw/pkg/debug"
	"github.com/rhuss/copaw/pkg/storage"
)

// session holds one conversation's turns and its exclusive lease.
type session struct {
	turns []api.Message

	// lease has capacity one. A relay call holds it for the whole
	// upstream round trip so turns from concurrent calls never interleave.
	lease chan struct{}
}

// Store is an in-memory session history store with a per-session turn cap.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	maxTurns int // 0 = unlimited
}

// New creates a new in-memory store. If maxTurns is 0, session histories
// grow without limit. If maxTurns > 0, each session keeps only its most
// recent maxTurns turns.
func New(maxTurns int) *Store {
	if maxTurns < 0 {
		maxTurns = 0
	}
	return &Store{
		sessions: make(map[string]*session),
		maxTurns: maxTurns,
	}
}

// getOrCreate returns the session for id, creating it when absent.
// The caller must hold s.mu.
func (s *Store) getOrCreate(id string) *session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{lease: make(chan struct{}, 1)}
		s.sessions[id] = sess
		debug.Log("session", "created", "session_id", id)
	}
	return sess
}

// Get returns a copy of the ordered turns for a session. A session that
// does not exist yet is created empty.
func (s *Store) Get(_ context.Context, id string) []api.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreate(id)
	out := make([]api.Message, len(sess.turns))
	copy(out, sess.turns)
	return out
}

// Append adds turns to the end of a session's history and trims it to
// the configured cap.
func (s *Store) Append(_ context.Context, id string, turns ...api.Message) {
	if len(turns) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreate(id)
	sess.turns = append(sess.turns, turns...)
	s.trimLocked(id, sess)
}

// Trim drops all but the most recent turns of a session.
func (s *Store) Trim(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		s.trimLocked(id, sess)
	}
}

func (s *Store) trimLocked(id string, sess *session) {
	if s.maxTurns == 0 || len(sess.turns) <= s.maxTurns {
		return
	}
	dropped := len(sess.turns) - s.maxTurns
	// Copy into a fresh slice so the evicted turns can be collected.
	kept := make([]api.Message, s.maxTurns)
	copy(kept, sess.turns[dropped:])
	sess.turns = kept
	debug.Log("session", "trimmed", "session_id", id, "dropped", dropped)
}

// Acquire takes the exclusive lease on a session, waiting for any other
// holder to release it. The returned release function is safe to call
// more than once. If ctx ends while waiting, Acquire returns an error
// wrapping storage.ErrSessionBusy.
func (s *Store) Acquire(ctx context.Context, id string) (func(), error) {
	if id == "" {
		return nil, storage.ErrInvalidSessionID
	}

	s.mu.Lock()
	sess := s.getOrCreate(id)
	s.mu.Unlock()

	select {
	case sess.lease <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", storage.ErrSessionBusy, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-sess.lease })
	}, nil
}

// Len returns the number of turns stored for a session without creating it.
func (s *Store) Len(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return len(sess.turns)
	}
	return 0
}

// Count returns the number of known sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// MaxTurns returns the per-session turn cap (0 = unlimited).
func (s *Store) MaxTurns() int {
	return s.maxTurns
}
