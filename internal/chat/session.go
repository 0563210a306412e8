// Package chat holds the user-facing conversation and runs one exchange at a
// time: send to the model, extract actions, apply them, record the turns.
package chat

import (
	"sync"
	"time"

	"github.com/dvloznov/finbot/internal/executor"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the visible log. Turns are never changed once appended.
type Turn struct {
	Role      Role              `json:"role"`
	Text      string            `json:"text"`
	Timestamp time.Time         `json:"timestamp"`
	ImageRef  string            `json:"image_ref,omitempty"`
	Results   []executor.Result `json:"results,omitempty"`
}

func (t Turn) clone() Turn {
	if t.Results != nil {
		t.Results = append([]executor.Result(nil), t.Results...)
	}
	return t
}

// Session is an append-only ordered turn log. It has no size bound.
type Session struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

// Append adds turn to the end of the log.
func (s *Session) Append(turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn.clone())
}

// Turns returns a copy of the log in order.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.turns))
	for i, t := range s.turns {
		out[i] = t.clone()
	}
	return out
}

// Len returns the number of turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Clear empties the log.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}
