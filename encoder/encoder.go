// Package encoder turns captured PCM into a segment container suitable
// for one multipart upload.
package encoder

import "fmt"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
}

// New returns a fresh encoder for the given container format.
func New(format string) (Encoder, error) {
	switch format {
	case "wav":
		return NewWav(), nil
	case "flac":
		return NewFlac()
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// MediaType is the declared content type of an uploaded segment.
func MediaType(format string) string {
	switch format {
	case "flac":
		return "audio/flac"
	default:
		return "audio/wav"
	}
}

// FileExt is the extension used for temp files and upload filenames.
func FileExt(format string) string {
	switch format {
	case "flac":
		return "flac"
	default:
		return "wav"
	}
}
