package audio

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestIsBluetooth(t *testing.T) {
	for _, tt := range []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"Jabra Elite 75t", true},
		{"Built-in Microphone", false},
		{"USB Audio Device", false},
		{"Headset (Bluetooth)", true},
	} {
		if got := IsBluetooth(tt.name); got != tt.want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFakeCaptureDeliversPCM(t *testing.T) {
	pcm := make([]byte, 4096)
	ctx := NewFakeContext(pcm, 16000, false)
	capture, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}

	var got atomic.Uint64
	capture.SetCallback(func(data []byte, frameCount uint32) {
		got.Add(uint64(len(data)))
	})

	if err := capture.Start(); err != nil {
		t.Fatal(err)
	}

	fake := capture.(*FakeCapture)
	select {
	case <-fake.AudioDone():
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for canned audio")
	}
	capture.Stop()
	capture.ClearCallback()

	if got.Load() < uint64(len(pcm)) {
		t.Errorf("delivered %d bytes, want at least %d", got.Load(), len(pcm))
	}
}
