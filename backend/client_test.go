package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSegment(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seg.wav")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribeUploadShape(t *testing.T) {
	var gotFilename, gotMediaType string
	var gotBytes []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Errorf("path = %q, want /transcribe", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("missing multipart field audio: %v", err)
		}
		defer file.Close()
		gotFilename = header.Filename
		gotMediaType = header.Header.Get("Content-Type")
		gotBytes, _ = io.ReadAll(file)

		json.NewEncoder(w).Encode(map[string]string{"transcription": " hello world "})
	}))
	defer srv.Close()

	path := writeSegment(t, []byte("RIFFxxxxWAVE"))
	c := NewClient(srv.URL, 5*time.Second)

	text, err := c.Transcribe(context.Background(), path, "audio/wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want trimmed %q", text, "hello world")
	}
	if gotFilename != "audio.wav" {
		t.Errorf("filename = %q, want audio.wav", gotFilename)
	}
	if gotMediaType != "audio/wav" {
		t.Errorf("part content type = %q, want audio/wav", gotMediaType)
	}
	if string(gotBytes) != "RIFFxxxxWAVE" {
		t.Errorf("uploaded bytes = %q", gotBytes)
	}
}

func TestTranscribeAbsentField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	path := writeSegment(t, []byte("data"))
	c := NewClient(srv.URL, 5*time.Second)

	text, err := c.Transcribe(context.Background(), path, "audio/wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty for absent field", text)
	}
}

func TestTranscribeNullField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"transcription": null}`))
	}))
	defer srv.Close()

	path := writeSegment(t, []byte("data"))
	c := NewClient(srv.URL, 5*time.Second)

	text, err := c.Transcribe(context.Background(), path, "audio/wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty for null field", text)
	}
}

func TestAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			t.Errorf("path = %q, want /analyze", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"analysis": "calm tone"})
	}))
	defer srv.Close()

	path := writeSegment(t, []byte("data"))
	c := NewClient(srv.URL, 5*time.Second)

	analysis, err := c.Analyze(context.Background(), path, "audio/flac")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis != "calm tone" {
		t.Errorf("analysis = %q", analysis)
	}
}

func TestNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	path := writeSegment(t, []byte("data"))
	c := NewClient(srv.URL, 5*time.Second)

	if _, err := c.Transcribe(context.Background(), path, "audio/wav"); err == nil {
		t.Error("expected error on 502")
	}
}

func TestMissingSegmentFile(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", time.Second)
	if _, err := c.Transcribe(context.Background(), "/nonexistent/seg.wav", "audio/wav"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	path := writeSegment(t, []byte("data"))
	c := NewClient(srv.URL, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := c.Transcribe(ctx, path, "audio/wav"); err == nil {
		t.Error("expected error when context expires")
	}
}
