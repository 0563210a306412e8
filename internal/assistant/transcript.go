package assistant

import "sync"

// Role tags a transcript entry with its author.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Entry is one message as it was sent to or received from the model.
type Entry struct {
	Role Role
	Text string
}

// Transcript is the multi-turn memory sent to the model as history.
// Entries are only added in user/model pairs.
type Transcript struct {
	mu      sync.Mutex
	entries []Entry
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append records one completed exchange.
func (t *Transcript) Append(user, model string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries,
		Entry{Role: RoleUser, Text: user},
		Entry{Role: RoleModel, Text: model},
	)
}

// Entries returns a copy of the transcript.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Window returns a copy of at most the last maxPairs exchanges. maxPairs <= 0
// returns everything.
func (t *Transcript) Window(maxPairs int) []Entry {
	entries := t.Entries()
	if maxPairs <= 0 || len(entries) <= 2*maxPairs {
		return entries
	}
	return entries[len(entries)-2*maxPairs:]
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Reset empties the transcript.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}
