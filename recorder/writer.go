package recorder

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"voxnote/encoder"
)

// segmentWriter accumulates PCM for one segment and encodes it into the
// configured container. feed is called from the capture callback, which
// can race with finalize from the tick loop, so the writer guards itself.
type segmentWriter struct {
	mu        sync.Mutex
	enc       encoder.Encoder
	sampleBuf []int16
	closed    bool
	encErr    error
}

func newSegmentWriter(format string) (*segmentWriter, error) {
	enc, err := encoder.New(format)
	if err != nil {
		return nil, err
	}
	return &segmentWriter{enc: enc}, nil
}

// feed converts S16LE bytes to samples and encodes full blocks.
func (w *segmentWriter) feed(pcm []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		w.sampleBuf = append(w.sampleBuf, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	for len(w.sampleBuf) >= encoder.BlockSize && w.encErr == nil {
		block := make([]int16, encoder.BlockSize)
		copy(block, w.sampleBuf[:encoder.BlockSize])
		w.sampleBuf = w.sampleBuf[encoder.BlockSize:]
		w.encErr = w.enc.EncodeBlock(block)
	}
}

// finalize flushes residual samples, closes the encoder, and persists
// the segment to a temp file.
func (w *segmentWriter) finalize(format, tmpDir string, seq int) (Segment, error) {
	w.mu.Lock()
	w.closed = true
	if len(w.sampleBuf) > 0 && w.encErr == nil {
		w.encErr = w.enc.EncodeBlock(w.sampleBuf)
		w.sampleBuf = nil
	}
	encErr := w.encErr
	w.mu.Unlock()

	if encErr != nil {
		return Segment{}, fmt.Errorf("encoding segment: %w", encErr)
	}
	if err := w.enc.Close(); err != nil {
		return Segment{}, fmt.Errorf("closing encoder: %w", err)
	}

	data := w.enc.Bytes()
	f, err := os.CreateTemp(tmpDir, "voxnote-segment-*."+encoder.FileExt(format))
	if err != nil {
		return Segment{}, fmt.Errorf("creating segment file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return Segment{}, fmt.Errorf("writing segment file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return Segment{}, fmt.Errorf("closing segment file: %w", err)
	}

	frames := w.enc.TotalFrames()
	return Segment{
		ID:        uuid.NewString(),
		Seq:       seq,
		Path:      f.Name(),
		MediaType: encoder.MediaType(format),
		Duration:  time.Duration(float64(frames) / float64(encoder.SampleRate) * float64(time.Second)),
		Size:      int64(len(data)),
	}, nil
}

// discard marks the writer closed without persisting anything.
func (w *segmentWriter) discard() {
	w.mu.Lock()
	w.closed = true
	w.sampleBuf = nil
	w.mu.Unlock()
}
