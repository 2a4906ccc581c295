// Package doctor runs system diagnostics: microphone capture, backend
// reachability, and log directory writability.
package doctor

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"voxnote/audio"
	"voxnote/backend"
	"voxnote/encoder"
	"voxnote/log"
)

// Run executes the checks and returns an exit code (0=all pass, 1=any fail).
func Run(backendURL string) int {
	fmt.Println("voxnote doctor - system diagnostics")
	fmt.Println("===================================")

	allPass := true

	if !checkMicrophone() {
		allPass = false
	}
	if !checkBackend(backendURL) {
		allPass = false
	}
	if !checkLogDir() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkMicrophone() bool {
	fmt.Println()
	fmt.Println("[1/3] Microphone capture")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: audio context: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: device enumeration: %v\n", err)
		return false
	}
	fmt.Printf("  found %d capture device(s)\n", len(devices))
	for _, d := range devices {
		marker := ""
		if audio.IsBluetooth(d.Name) {
			marker = " (bluetooth)"
		}
		fmt.Printf("    - %s%s\n", d.Name, marker)
	}

	capture, err := ctx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		fmt.Printf("  FAIL: open default device: %v\n", err)
		return false
	}
	defer capture.Close()

	var frames atomic.Uint64
	var peak atomic.Uint64
	capture.SetCallback(func(data []byte, frameCount uint32) {
		frames.Add(uint64(frameCount))
		for i := 0; i+1 < len(data); i += 2 {
			s := int16(uint16(data[i]) | uint16(data[i+1])<<8)
			if s < 0 {
				s = -s
			}
			for {
				old := peak.Load()
				if uint64(s) <= old || peak.CompareAndSwap(old, uint64(s)) {
					break
				}
			}
		}
	})

	fmt.Println("  recording 2 seconds from the default device...")
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		fmt.Printf("  FAIL: start capture: %v\n", err)
		return false
	}
	time.Sleep(2 * time.Second)
	capture.Stop()
	capture.ClearCallback()

	got := frames.Load()
	if got == 0 {
		fmt.Println("  FAIL: no audio frames received")
		return false
	}
	level := float64(peak.Load()) / 32768.0
	fmt.Printf("  PASS: %d frames, peak level %.3f", got, level)
	if level < 0.01 {
		fmt.Print(" (very quiet — is the mic muted?)")
	}
	fmt.Println()
	return true
}

func checkBackend(backendURL string) bool {
	fmt.Println()
	fmt.Println("[2/3] Backend reachability")

	if backendURL == "" {
		fmt.Println("  FAIL: backend URL not set (BACKEND_URL or -backend)")
		return false
	}
	fmt.Printf("  %s\n", backendURL)

	client := backend.NewTracedClient(10 * time.Second)
	req, err := http.NewRequest(http.MethodGet, backendURL, nil)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}

	m := resp.Metrics
	fmt.Printf("  PASS: HTTP %d (dns %dms, tls %dms, ttfb %dms)\n",
		resp.StatusCode, m.DNS.Milliseconds(), m.TLS.Milliseconds(), m.TTFB.Milliseconds())
	return true
}

func checkLogDir() bool {
	fmt.Println()
	fmt.Println("[3/3] Log directory")

	dir, err := log.ResolveDir("")
	if err != nil {
		fmt.Printf("  FAIL: resolve: %v\n", err)
		return false
	}
	fmt.Printf("  %s\n", dir)

	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Printf("  FAIL: create: %v\n", err)
		return false
	}
	probe := filepath.Join(dir, ".doctor_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		fmt.Printf("  FAIL: write: %v\n", err)
		return false
	}
	os.Remove(probe)
	fmt.Println("  PASS: writable")
	return true
}
