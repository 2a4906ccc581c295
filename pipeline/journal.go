package pipeline

import (
	"sync"
	"time"
)

// Note is one transcribed segment as shown to the user. Analysis is
// empty when the analyze call failed or returned nothing.
type Note struct {
	Text     string
	Analysis string
	At       time.Time
}

// Journal is the append-only, insertion-ordered display list of notes.
// It is cleared wholesale by explicit user action and never persisted.
type Journal struct {
	mu    sync.Mutex
	notes []Note
}

func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) Append(n Note) {
	j.mu.Lock()
	j.notes = append(j.notes, n)
	j.mu.Unlock()
}

// Clear empties the list. In-flight segment processing is unaffected;
// notes completed after a clear are still appended.
func (j *Journal) Clear() {
	j.mu.Lock()
	j.notes = nil
	j.mu.Unlock()
}

func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.notes)
}

// Snapshot returns a copy of the notes in arrival order.
func (j *Journal) Snapshot() []Note {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Note(nil), j.notes...)
}
