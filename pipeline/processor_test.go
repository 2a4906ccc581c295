package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"voxnote/backend"
	"voxnote/recorder"
)

func makeSegment(t *testing.T, seq int) recorder.Segment {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seg.flac")
	if err := os.WriteFile(path, []byte("pcm"), 0o600); err != nil {
		t.Fatal(err)
	}
	return recorder.Segment{
		ID:        "seg",
		Seq:       seq,
		Path:      path,
		MediaType: "audio/flac",
		Duration:  6 * time.Second,
		Size:      3,
	}
}

func waitIdle(t *testing.T, p *Processor) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for p.Pending() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("processor still has %d pending segments", p.Pending())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// segmentGate wraps the fake service and flags any moment where calls
// for two different segments overlap.
type segmentGate struct {
	svc *backend.FakeService

	mu       sync.Mutex
	active   map[string]int
	violated bool
}

func newSegmentGate(svc *backend.FakeService) *segmentGate {
	return &segmentGate{svc: svc, active: make(map[string]int)}
}

func (g *segmentGate) enter(path string) {
	g.mu.Lock()
	g.active[path]++
	if len(g.active) > 1 {
		g.violated = true
	}
	g.mu.Unlock()
}

func (g *segmentGate) leave(path string) {
	g.mu.Lock()
	g.active[path]--
	if g.active[path] == 0 {
		delete(g.active, path)
	}
	g.mu.Unlock()
}

func (g *segmentGate) Transcribe(ctx context.Context, path, mediaType string) (string, error) {
	g.enter(path)
	defer g.leave(path)
	return g.svc.Transcribe(ctx, path, mediaType)
}

func (g *segmentGate) Analyze(ctx context.Context, path, mediaType string) (string, error) {
	g.enter(path)
	defer g.leave(path)
	return g.svc.Analyze(ctx, path, mediaType)
}

func (g *segmentGate) Violated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.violated
}

func TestProcessesInArrivalOrder(t *testing.T) {
	svc := &backend.FakeService{
		Transcripts: []backend.Outcome{{Text: "one"}, {Text: "two"}, {Text: "three"}},
	}
	journal := NewJournal()
	p := NewProcessor(svc, journal, nil)
	defer p.Close()

	var paths []string
	for i := 0; i < 3; i++ {
		seg := makeSegment(t, i)
		paths = append(paths, seg.Path)
		p.Enqueue(seg)
	}
	waitIdle(t, p)

	got := svc.TranscribedPaths()
	if len(got) != 3 {
		t.Fatalf("transcribed %d segments, want 3", len(got))
	}
	for i := range paths {
		if got[i] != paths[i] {
			t.Fatalf("segment %d uploaded out of order: got %s, want %s", i, got[i], paths[i])
		}
	}

	notes := journal.Snapshot()
	want := []string{"one", "two", "three"}
	if len(notes) != len(want) {
		t.Fatalf("journal has %d notes, want %d", len(notes), len(want))
	}
	for i, w := range want {
		if notes[i].Text != w {
			t.Errorf("note %d text = %q, want %q", i, notes[i].Text, w)
		}
	}
}

func TestSingleSegmentInFlight(t *testing.T) {
	svc := &backend.FakeService{
		Transcripts: []backend.Outcome{{Text: "a"}, {Text: "b"}, {Text: "c"}},
		Delay:       20 * time.Millisecond,
	}
	gate := newSegmentGate(svc)
	p := NewProcessor(gate, NewJournal(), nil)
	defer p.Close()

	for i := 0; i < 3; i++ {
		p.Enqueue(makeSegment(t, i))
	}
	waitIdle(t, p)

	if gate.Violated() {
		t.Fatal("calls for two segments overlapped")
	}
}

func TestTranscribeFailureDropsSegment(t *testing.T) {
	svc := &backend.FakeService{
		Transcripts: []backend.Outcome{{Err: errors.New("upstream 500")}},
		Analyses:    []backend.Outcome{{Text: "calm"}},
	}
	journal := NewJournal()
	p := NewProcessor(svc, journal, nil)
	defer p.Close()

	seg := makeSegment(t, 0)
	p.Enqueue(seg)
	waitIdle(t, p)

	if journal.Len() != 0 {
		t.Fatalf("journal has %d notes, want 0", journal.Len())
	}
	if _, err := os.Stat(seg.Path); !os.IsNotExist(err) {
		t.Errorf("segment file still present after failed transcribe")
	}
}

func TestAnalyzeFailureKeepsNote(t *testing.T) {
	svc := &backend.FakeService{
		Transcripts: []backend.Outcome{{Text: "hello there"}},
		Analyses:    []backend.Outcome{{Err: errors.New("timeout")}},
	}
	journal := NewJournal()
	p := NewProcessor(svc, journal, nil)
	defer p.Close()

	p.Enqueue(makeSegment(t, 0))
	waitIdle(t, p)

	notes := journal.Snapshot()
	if len(notes) != 1 {
		t.Fatalf("journal has %d notes, want 1", len(notes))
	}
	if notes[0].Text != "hello there" {
		t.Errorf("note text = %q, want %q", notes[0].Text, "hello there")
	}
	if notes[0].Analysis != "" {
		t.Errorf("note analysis = %q, want empty after failed analyze", notes[0].Analysis)
	}
}

func TestEmptyTranscriptionProducesNoNote(t *testing.T) {
	svc := &backend.FakeService{
		Transcripts: []backend.Outcome{{Text: ""}},
	}
	journal := NewJournal()
	p := NewProcessor(svc, journal, nil)
	defer p.Close()

	seg := makeSegment(t, 0)
	p.Enqueue(seg)
	waitIdle(t, p)

	if journal.Len() != 0 {
		t.Fatalf("journal has %d notes, want 0", journal.Len())
	}
	if _, err := os.Stat(seg.Path); !os.IsNotExist(err) {
		t.Errorf("segment file still present")
	}
}

func TestSegmentFileRemovedAfterSuccess(t *testing.T) {
	svc := &backend.FakeService{
		Transcripts: []backend.Outcome{{Text: "ok"}},
	}
	p := NewProcessor(svc, NewJournal(), nil)
	defer p.Close()

	seg := makeSegment(t, 0)
	p.Enqueue(seg)
	waitIdle(t, p)

	if _, err := os.Stat(seg.Path); !os.IsNotExist(err) {
		t.Errorf("segment file still present after processing")
	}
}

func TestCloseDiscardsQueuedSegments(t *testing.T) {
	svc := &backend.FakeService{
		Transcripts: []backend.Outcome{{Text: "a"}, {Text: "b"}, {Text: "c"}},
		Delay:       100 * time.Millisecond,
	}
	p := NewProcessor(svc, NewJournal(), nil)

	segs := make([]recorder.Segment, 3)
	for i := range segs {
		segs[i] = makeSegment(t, i)
		p.Enqueue(segs[i])
	}
	time.Sleep(20 * time.Millisecond) // let the head go in flight
	p.Close()

	if got := len(svc.TranscribedPaths()); got != 1 {
		t.Fatalf("transcribed %d segments after close, want 1", got)
	}
	for i, seg := range segs {
		if _, err := os.Stat(seg.Path); !os.IsNotExist(err) {
			t.Errorf("segment %d file still present after close", i)
		}
	}
}

func TestEnqueueAfterCloseIsDropped(t *testing.T) {
	p := NewProcessor(&backend.FakeService{}, NewJournal(), nil)
	p.Close()

	seg := makeSegment(t, 0)
	p.Enqueue(seg)

	if _, err := os.Stat(seg.Path); !os.IsNotExist(err) {
		t.Errorf("segment file still present after enqueue on closed processor")
	}
	if p.Pending() != 0 {
		t.Errorf("pending = %d, want 0", p.Pending())
	}
}

func TestClearWhileDrainingKeepsInFlightNote(t *testing.T) {
	svc := &backend.FakeService{
		Transcripts: []backend.Outcome{{Text: "survivor"}},
		Delay:       50 * time.Millisecond,
	}
	journal := NewJournal()
	p := NewProcessor(svc, journal, nil)
	defer p.Close()

	p.Enqueue(makeSegment(t, 0))
	time.Sleep(10 * time.Millisecond)
	journal.Clear()
	waitIdle(t, p)

	notes := journal.Snapshot()
	if len(notes) != 1 || notes[0].Text != "survivor" {
		t.Fatalf("journal = %+v, want the in-flight note to land after clear", notes)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	depths []int
	notes  []Note
}

func (s *recordingSink) QueueDepth(n int) {
	s.mu.Lock()
	s.depths = append(s.depths, n)
	s.mu.Unlock()
}

func (s *recordingSink) NoteAdded(n Note) {
	s.mu.Lock()
	s.notes = append(s.notes, n)
	s.mu.Unlock()
}

func TestSinkSeesNotesAndDepth(t *testing.T) {
	svc := &backend.FakeService{
		Transcripts: []backend.Outcome{{Text: "first"}, {Text: "second"}},
	}
	sink := &recordingSink{}
	p := NewProcessor(svc, NewJournal(), sink)
	defer p.Close()

	p.Enqueue(makeSegment(t, 0))
	p.Enqueue(makeSegment(t, 1))
	waitIdle(t, p)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.notes) != 2 {
		t.Fatalf("sink saw %d notes, want 2", len(sink.notes))
	}
	if sink.notes[0].Text != "first" || sink.notes[1].Text != "second" {
		t.Errorf("sink notes out of order: %+v", sink.notes)
	}
	if len(sink.depths) == 0 || sink.depths[len(sink.depths)-1] != 0 {
		t.Errorf("final queue depth = %v, want trailing 0", sink.depths)
	}
}
