package main

import (
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"voxnote/audio"
	"voxnote/backend"
	"voxnote/beep"
	"voxnote/config"
	"voxnote/doctor"
	"voxnote/encoder"
	"voxnote/log"
	"voxnote/pipeline"
	"voxnote/recorder"
	"voxnote/shutdown"
)

var version = "dev"

func main() {
	run()
}

func run() {
	backendFlag := flag.String("backend", "", "Backend base URL (overrides BACKEND_URL)")
	formatFlag := flag.String("format", "", "Audio format: wav or flac (overrides VOXNOTE_FORMAT)")
	segmentFlag := flag.Int("segment", 0, "Segment length in seconds (overrides VOXNOTE_SEGMENT_SECONDS)")
	timeoutFlag := flag.Int("timeout", -1, "Per-request timeout in seconds, 0 disables (overrides VOXNOTE_REQUEST_TIMEOUT_S)")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	scriptFlag := flag.Bool("script", false, "Headless mode driven by stdin commands (optional WAV file argument)")
	flag.Parse()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *versionFlag {
		fmt.Printf("voxnote %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// Flags win over environment
	if *backendFlag != "" {
		cfg.BackendURL = *backendFlag
	}
	if *formatFlag != "" {
		cfg.Format = *formatFlag
	}
	if *segmentFlag > 0 {
		cfg.SegmentSeconds = *segmentFlag
	}
	if *timeoutFlag >= 0 {
		cfg.RequestTimeoutS = *timeoutFlag
	}

	if *doctorFlag {
		os.Exit(doctor.Run(cfg.BackendURL))
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	log.SessionStart(cfg.BackendURL, cfg.Format, cfg.SegmentSeconds)

	if *scriptFlag {
		wavPath := ""
		if args := flag.Args(); len(args) > 0 {
			wavPath = args[0]
		}
		runScript(cfg, wavPath)
		return
	}

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	var selectedDevice *audio.DeviceInfo
	if *deviceFlag != "" {
		if devices, err := ctx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == *deviceFlag {
					selectedDevice = &devices[i]
					break
				}
			}
		}
		if selectedDevice == nil {
			fmt.Fprintf(os.Stderr, "Warning: device %q not found, using system default\n", *deviceFlag)
		}
	} else if *setupFlag {
		selectedDevice, err = audio.SelectDevice(ctx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	captureConfig := audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	}
	capture, err := ctx.NewCapture(selectedDevice, captureConfig)
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()

	go beep.Init()

	client := backend.NewClient(cfg.BackendURL, cfg.RequestTimeout())
	go client.Warm()

	app := newApp(cfg, capture, client)
	app.program = NewTUIProgram(app, headerInfo{
		Version:    version,
		BackendURL: cfg.BackendURL,
		Device:     deviceLineText(selectedDevice),
		Format:     cfg.Format,
		SegmentS:   cfg.SegmentSeconds,
	})

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		app.program.Quit()
	}()

	if _, err := app.program.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	app.Shutdown()
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}

// app owns the recording session and the upload pipeline and mediates
// between the TUI's key commands and the long-lived components.
type app struct {
	cfg     *config.Config
	rec     *recorder.Recorder
	proc    *pipeline.Processor
	journal *pipeline.Journal
	program *tea.Program

	toggleMu sync.Mutex
}

func newApp(cfg *config.Config, capture audio.CaptureDevice, svc pipeline.Service) *app {
	a := &app{cfg: cfg, journal: pipeline.NewJournal()}
	sink := &uiSink{app: a}
	a.proc = pipeline.NewProcessor(svc, a.journal, sink)
	a.rec = recorder.New(capture, recorder.Config{
		Format:     cfg.Format,
		SegmentLen: cfg.SegmentLength(),
	}, a.proc.Enqueue, sink)
	return a
}

// Toggle flips between recording and idle. Called from the TUI; the
// actual start/stop runs off the update loop so the view never blocks
// on device calls.
// Toggle flips recording off the TUI goroutine. toggleMu serializes
// the flips so a rapid second keypress waits for the stop teardown
// instead of racing it.
func (a *app) Toggle() {
	go func() {
		a.toggleMu.Lock()
		defer a.toggleMu.Unlock()
		if a.rec.Active() {
			a.rec.Stop()
			go beep.PlayEnd()
			return
		}
		if err := a.rec.Start(); err != nil {
			log.Errorf("recording start error: %v", err)
			beep.PlayError()
			a.send(RecordErrorMsg{Err: err})
			return
		}
		go beep.PlayStart()
	}()
}

// Clear empties the displayed notes. Uploads already in flight still
// append their results afterwards.
func (a *app) Clear() {
	a.journal.Clear()
	a.send(NotesClearedMsg{})
}

func (a *app) send(msg tea.Msg) {
	if a.program != nil {
		a.program.Send(msg)
	}
}

// Shutdown stops capture, lets the in-flight upload finish, and closes
// the logs. Queued segments that never started are discarded.
func (a *app) Shutdown() {
	a.rec.Stop()
	a.proc.Close()
	log.SessionEnd(a.journal.Len())
	log.Close()
}
