package recorder

import "time"

// Segment is an immutable reference to one finished slice of recorded
// audio, persisted to a temp file. It is produced by the Recorder,
// consumed exactly once by the upload pipeline, then deleted.
type Segment struct {
	ID        string
	Seq       int
	Path      string
	MediaType string
	Duration  time.Duration
	Size      int64
}
