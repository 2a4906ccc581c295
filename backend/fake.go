package backend

import (
	"context"
	"sync"
	"time"
)

// Outcome is one scripted reply from the FakeService.
type Outcome struct {
	Text string
	Err  error
}

// FakeService is a scriptable stand-in for the remote service. Replies
// are popped in call order; when a list runs out the zero Outcome (no
// text, no error) is returned. It also tracks how many segments are in
// flight at once so tests can assert single-flight processing.
type FakeService struct {
	mu          sync.Mutex
	Transcripts []Outcome
	Analyses    []Outcome
	Delay       time.Duration

	transcribed []string // segment paths, in call order

	inflight    int
	maxInflight int
}

func (f *FakeService) Transcribe(ctx context.Context, path, mediaType string) (string, error) {
	f.mu.Lock()
	f.transcribed = append(f.transcribed, path)
	out := pop(&f.Transcripts)
	f.mu.Unlock()
	f.wait(ctx)
	return out.Text, out.Err
}

func (f *FakeService) Analyze(ctx context.Context, path, mediaType string) (string, error) {
	f.mu.Lock()
	out := pop(&f.Analyses)
	f.mu.Unlock()
	f.wait(ctx)
	return out.Text, out.Err
}

// EnterSegment marks the start of one segment's call pair. The pipeline
// does not call this; tests wrap FakeService to count overlap.
func (f *FakeService) EnterSegment() {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	f.mu.Unlock()
}

func (f *FakeService) LeaveSegment() {
	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()
}

func (f *FakeService) MaxInflight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInflight
}

// TranscribedPaths returns segment paths in the order they were sent.
func (f *FakeService) TranscribedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.transcribed...)
}

func (f *FakeService) wait(ctx context.Context) {
	if f.Delay <= 0 {
		return
	}
	select {
	case <-time.After(f.Delay):
	case <-ctx.Done():
	}
}

func pop(outcomes *[]Outcome) Outcome {
	if len(*outcomes) == 0 {
		return Outcome{}
	}
	out := (*outcomes)[0]
	*outcomes = (*outcomes)[1:]
	return out
}
