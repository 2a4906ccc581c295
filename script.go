package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"voxnote/audio"
	"voxnote/backend"
	"voxnote/beep"
	"voxnote/config"
	"voxnote/encoder"
	"voxnote/log"
	"voxnote/pipeline"
	"voxnote/recorder"
)

// runScript drives the full pipeline headlessly from stdin commands:
// START, STOP, CLEAR, SLEEP <ms>, WAIT_IDLE, QUIT. Audio comes from a
// WAV file when given, otherwise a generated tone. Notes are printed
// on QUIT so callers can assert on them.
func runScript(cfg *config.Config, wavPath string) {
	beep.Disable()
	defer log.Close()

	var pcm []byte
	if wavPath != "" {
		var err error
		pcm, err = audio.LoadWAV(wavPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
			os.Exit(1)
		}
	} else {
		pcm = tonePCM(440, 2*time.Second)
	}

	fakeCtx := audio.NewFakeContext(pcm, encoder.SampleRate, true)
	capture, err := fakeCtx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: encoder.SampleRate, Channels: encoder.Channels,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating capture: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()

	client := backend.NewClient(cfg.BackendURL, cfg.RequestTimeout())
	journal := pipeline.NewJournal()
	proc := pipeline.NewProcessor(client, journal, nil)
	rec := recorder.New(capture, recorder.Config{
		Format:     cfg.Format,
		SegmentLen: cfg.SegmentLength(),
	}, proc.Enqueue, recorder.NopSink{})

	quit := func() {
		rec.Stop()
		proc.Close()
		for _, n := range journal.Snapshot() {
			fmt.Printf("NOTE\t%s\t%s\n", n.Text, n.Analysis)
		}
		log.SessionEnd(journal.Len())
		os.Exit(0)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch cmd {
		case "START":
			if err := rec.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "start error: %v\n", err)
			}
		case "STOP":
			rec.Stop()
		case "CLEAR":
			journal.Clear()
		case "WAIT_IDLE":
			for proc.Pending() > 0 {
				time.Sleep(10 * time.Millisecond)
			}
		case "QUIT":
			quit()
		default:
			if strings.HasPrefix(cmd, "SLEEP ") {
				if ms, err := strconv.Atoi(cmd[6:]); err == nil {
					time.Sleep(time.Duration(ms) * time.Millisecond)
				}
			}
		}
	}
	quit()
}

// tonePCM renders a mono sine tone as 16-bit little-endian PCM.
func tonePCM(freq float64, dur time.Duration) []byte {
	n := int(float64(encoder.SampleRate) * dur.Seconds())
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(encoder.SampleRate)
		s := int16(math.Sin(2*math.Pi*freq*t) * 16000)
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}
