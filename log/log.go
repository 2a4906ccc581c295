package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog   zerolog.Logger
	diagFile  *os.File
	notesFile *os.File
	logMu     sync.Mutex
	logReady  bool
	pid       int
	dir       string
)

// UploadMetrics captures per-request network timings for one
// backend upload (transcribe or analyze).
type UploadMetrics struct {
	SizeKB  float64
	DNSMs   float64
	TLSMs   float64
	TTFBMs  float64
	TotalMs float64
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		if !filepath.IsAbs(flagPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, flagPath), nil
		}
		return flagPath, nil
	}

	// Priority 2: VOXNOTE_LOG_PATH environment variable
	envPath := os.Getenv("VOXNOTE_LOG_PATH")
	if envPath != "" {
		if !filepath.IsAbs(envPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, envPath), nil
		}
		return envPath, nil
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	notesPath := filepath.Join(dir, "notes_log.txt")
	notesFile, err = os.OpenFile(notesPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if notesFile != nil {
		notesFile.Close()
		notesFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// SegmentCut records one finished recording segment.
func SegmentCut(id string, seq int, durS, sizeKB float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("segment", id).
		Int("seq", seq).
		Float64("duration_s", durS).
		Float64("size_kb", sizeKB).
		Msg("segment_cut")
}

// Upload records the network timings of one backend call.
func Upload(endpoint string, m UploadMetrics, connReused bool, tlsProto string) {
	if !logReady {
		return
	}

	connStatus := "new"
	if connReused {
		connStatus = "reused"
	}

	ev := diagLog.Info().
		Str("endpoint", endpoint).
		Str("conn", connStatus)
	if tlsProto != "" {
		ev = ev.Str("tls_proto", tlsProto)
	}
	ev.Float64("size_kb", m.SizeKB).
		Float64("dns_ms", m.DNSMs).
		Float64("tls_ms", m.TLSMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalMs).
		Msg("upload")
}

// UploadError records a failed backend call. Failures degrade a note's
// fields, they never abort the queue, so this is warn-level.
func UploadError(endpoint string, err error) {
	if logReady {
		diagLog.Warn().Str("endpoint", endpoint).Err(err).Msg("upload_error")
	}
}

// CleanupError records a failed temp-file removal (non-fatal).
func CleanupError(path string, err error) {
	if logReady {
		diagLog.Warn().Str("path", path).Err(err).Msg("cleanup_error")
	}
}

// NoteText appends transcribed note text to the plain notes log.
func NoteText(text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	notesFile.WriteString(line)
}

func SessionStart(backendURL, format string, segmentS int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("backend", backendURL).
		Str("format", format).
		Int("segment_s", segmentS).
		Msg("session_start")
}

func SessionEnd(notes int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("notes", notes).
		Msg("session_end")
}
