// Package pipeline drains recorded segments through the remote service
// one at a time and appends the joined results to the display journal.
package pipeline

import (
	"context"
	"os"
	"sync"
	"time"

	"voxnote/log"
	"voxnote/recorder"
)

// Service is the remote contract the processor consumes. Both calls
// upload one full segment; an absent result is ("", nil).
type Service interface {
	Transcribe(ctx context.Context, path, mediaType string) (string, error)
	Analyze(ctx context.Context, path, mediaType string) (string, error)
}

// Sink receives processor events for the UI.
type Sink interface {
	QueueDepth(n int)
	NoteAdded(n Note)
}

type NopSink struct{}

func (NopSink) QueueDepth(int) {}
func (NopSink) NoteAdded(Note) {}

// Processor serializes segment uploads. Segments are processed strictly
// in arrival order with at most one in flight; the pair of remote calls
// for a segment runs concurrently, but segment N+1 never starts before
// segment N's cleanup completes. The queue itself is unbounded — the
// single-flight discipline is the only backpressure.
type Processor struct {
	svc     Service
	journal *Journal
	sink    Sink

	mu     sync.Mutex
	queue  []recorder.Segment
	busy   bool
	closed bool

	wake chan struct{}
	done chan struct{}
}

func NewProcessor(svc Service, journal *Journal, sink Sink) *Processor {
	if sink == nil {
		sink = NopSink{}
	}
	p := &Processor{
		svc:     svc,
		journal: journal,
		sink:    sink,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go p.loop()
	return p
}

// Enqueue appends a segment at the queue tail and wakes the worker.
// After Close, segments are dropped and their files removed.
func (p *Processor) Enqueue(seg recorder.Segment) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		removeSegment(seg.Path)
		return
	}
	p.queue = append(p.queue, seg)
	depth := len(p.queue)
	p.mu.Unlock()

	p.sink.QueueDepth(depth)
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Pending reports queued plus in-flight segments.
func (p *Processor) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.queue)
	if p.busy {
		n++
	}
	return n
}

// Close stops accepting segments, waits for the in-flight segment to
// finish, and discards whatever is still queued.
func (p *Processor) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	<-p.done

	p.mu.Lock()
	remaining := p.queue
	p.queue = nil
	p.mu.Unlock()
	for _, seg := range remaining {
		removeSegment(seg.Path)
	}
}

func (p *Processor) loop() {
	defer close(p.done)
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			<-p.wake
			continue
		}
		// Head only; the segment leaves the queue once its side
		// effects (journal append, file cleanup) are complete.
		seg := p.queue[0]
		p.busy = true
		p.mu.Unlock()

		p.process(seg)

		p.mu.Lock()
		p.queue = p.queue[1:]
		p.busy = false
		depth := len(p.queue)
		p.mu.Unlock()
		p.sink.QueueDepth(depth)
	}
}

// process joins the two remote calls for one segment. Either call may
// fail independently: a failed analyze degrades the note, a failed
// transcribe drops the segment entirely. The temp file is removed in
// every case.
func (p *Processor) process(seg recorder.Segment) {
	ctx := context.Background()

	var (
		text, analysis string
		terr, aerr     error
		wg             sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		text, terr = p.svc.Transcribe(ctx, seg.Path, seg.MediaType)
	}()
	go func() {
		defer wg.Done()
		analysis, aerr = p.svc.Analyze(ctx, seg.Path, seg.MediaType)
	}()
	wg.Wait()

	if terr != nil {
		log.UploadError("/transcribe", terr)
	}
	if aerr != nil {
		log.UploadError("/analyze", aerr)
		analysis = ""
	}

	if terr == nil && text != "" {
		note := Note{Text: text, Analysis: analysis, At: time.Now()}
		p.journal.Append(note)
		log.NoteText(text)
		p.sink.NoteAdded(note)
	}

	removeSegment(seg.Path)
}

func removeSegment(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.CleanupError(path, err)
	}
}
