package pipeline

import (
	"testing"
	"time"
)

func TestJournalAppendsInOrder(t *testing.T) {
	j := NewJournal()
	j.Append(Note{Text: "alpha", At: time.Now()})
	j.Append(Note{Text: "beta", At: time.Now()})

	notes := j.Snapshot()
	if len(notes) != 2 {
		t.Fatalf("len = %d, want 2", len(notes))
	}
	if notes[0].Text != "alpha" || notes[1].Text != "beta" {
		t.Errorf("notes out of order: %+v", notes)
	}
}

func TestJournalClear(t *testing.T) {
	j := NewJournal()
	j.Append(Note{Text: "gone"})
	j.Clear()

	if j.Len() != 0 {
		t.Fatalf("len after clear = %d, want 0", j.Len())
	}

	j.Append(Note{Text: "fresh"})
	if j.Len() != 1 {
		t.Fatalf("len after clear+append = %d, want 1", j.Len())
	}
}

func TestJournalSnapshotIsACopy(t *testing.T) {
	j := NewJournal()
	j.Append(Note{Text: "original"})

	snap := j.Snapshot()
	snap[0].Text = "mutated"

	if got := j.Snapshot()[0].Text; got != "original" {
		t.Errorf("snapshot mutation leaked into journal: %q", got)
	}
}
