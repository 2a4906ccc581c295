// Package recorder owns the recording lifecycle: it cuts microphone
// audio into fixed-length segments and hands each finished segment to
// the upload pipeline.
package recorder

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"voxnote/audio"
	"voxnote/log"
)

const tickInterval = 100 * time.Millisecond

var ErrAlreadyRecording = errors.New("recording already active")

// Sink receives recorder lifecycle events. The TUI implements it; tests
// and script mode can use NopSink.
type Sink interface {
	RecordingStart()
	RecordingStop()
	RecordingTick(seconds float64)
	AudioLevel(level float64)
	SegmentCut(seg Segment)
}

type NopSink struct{}

func (NopSink) RecordingStart()          {}
func (NopSink) RecordingStop()           {}
func (NopSink) RecordingTick(float64)    {}
func (NopSink) AudioLevel(float64)       {}
func (NopSink) SegmentCut(Segment)       {}

// EnqueueFunc hands a finished segment to the upload queue.
type EnqueueFunc func(Segment)

type Config struct {
	Format     string        // "wav" or "flac"
	SegmentLen time.Duration // rollover interval
	TmpDir     string        // "" uses the OS default
}

// Recorder cycles recording segments. At most one recording session is
// active at a time; Start while active is rejected. While active, every
// SegmentLen the current segment is finalized and enqueued and a new one
// begins, without stopping capture, so consecutive segments are
// back-to-back with no gap.
type Recorder struct {
	capture audio.CaptureDevice
	cfg     Config
	enqueue EnqueueFunc
	sink    Sink

	cur atomic.Pointer[segmentWriter]

	mu       sync.Mutex
	active   bool
	stopping bool // teardown in progress; Start is rejected until it clears
	seq      int
	stopTick chan struct{}
	tickDone chan struct{}
}

func New(capture audio.CaptureDevice, cfg Config, enqueue EnqueueFunc, sink Sink) *Recorder {
	if cfg.SegmentLen <= 0 {
		cfg.SegmentLen = 6 * time.Second
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Recorder{
		capture: capture,
		cfg:     cfg,
		enqueue: enqueue,
		sink:    sink,
	}
}

func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Start begins a new recording session. Device failures (including a
// denied microphone) are returned for logging; the recorder stays idle
// and nothing is retried.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.active || r.stopping {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}

	w, err := newSegmentWriter(r.cfg.Format)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.cur.Store(w)
	r.capture.SetCallback(r.onData)

	if err := r.capture.Start(); err != nil {
		r.capture.ClearCallback()
		r.cur.Store(nil)
		w.discard()
		r.mu.Unlock()
		return fmt.Errorf("starting capture: %w", err)
	}

	r.active = true
	r.stopTick = make(chan struct{})
	r.tickDone = make(chan struct{})
	go r.tickLoop(r.stopTick, r.tickDone)
	r.mu.Unlock()

	log.Info("recording_start: " + r.capture.DeviceName())
	r.sink.RecordingStart()
	return nil
}

// Stop finalizes the current segment, enqueues it, and deactivates.
// No-op when nothing is active. In-flight uploads are not touched.
// The stopping flag keeps the whole teardown atomic with respect to
// Start: a Start arriving mid-teardown is rejected rather than racing
// the capture device and the writer swap.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	r.active = false
	r.stopping = true
	tickDone := r.tickDone
	close(r.stopTick)
	seq := r.seq
	r.seq++
	r.mu.Unlock()

	<-tickDone
	r.capture.Stop()
	r.capture.ClearCallback()

	if old := r.cur.Swap(nil); old != nil {
		r.finishSegment(old, seq)
	}

	r.mu.Lock()
	r.stopping = false
	r.mu.Unlock()

	log.Info("recording_stop")
	r.sink.RecordingStop()
}

// onData runs on the capture callback. It feeds the current segment and
// reports an RMS level for the TUI meter.
func (r *Recorder) onData(data []byte, _ uint32) {
	w := r.cur.Load()
	if w == nil {
		return
	}
	w.feed(data)

	if len(data) > 1 {
		var sumSquares float64
		for i := 0; i+1 < len(data); i += 2 {
			sample := int16(uint16(data[i]) | uint16(data[i+1])<<8)
			normalized := float64(sample) / 32768.0
			sumSquares += normalized * normalized
		}
		rms := math.Sqrt(sumSquares / float64(len(data)/2))
		r.sink.AudioLevel(rms)
	}
}

func (r *Recorder) tickLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	rollAt := int(r.cfg.SegmentLen / tickInterval)
	if rollAt < 1 {
		rollAt = 1
	}
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	started := time.Now()
	ticks := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ticks++
			r.sink.RecordingTick(time.Since(started).Seconds())
			if ticks%rollAt == 0 {
				r.rollover()
			}
		}
	}
}

// rollover swaps in a fresh segment writer and finalizes the old one.
// Capture keeps running throughout, so segment boundaries are gapless.
func (r *Recorder) rollover() {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	next, err := newSegmentWriter(r.cfg.Format)
	if err != nil {
		r.mu.Unlock()
		log.Errorf("segment rollover error: %v", err)
		return
	}
	old := r.cur.Swap(next)
	seq := r.seq
	r.seq++
	r.mu.Unlock()

	if old != nil {
		r.finishSegment(old, seq)
	}
}

func (r *Recorder) finishSegment(w *segmentWriter, seq int) {
	seg, err := w.finalize(r.cfg.Format, r.cfg.TmpDir, seq)
	if err != nil {
		// The segment is lost; recording carries on.
		log.Errorf("segment finalize error: %v", err)
		return
	}
	log.SegmentCut(seg.ID, seg.Seq, seg.Duration.Seconds(), float64(seg.Size)/1024)
	r.enqueue(seg)
	r.sink.SegmentCut(seg)
}
