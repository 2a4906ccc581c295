// Package backend is the HTTP client for the remote transcription and
// analysis service addressed by BACKEND_URL.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"voxnote/log"
)

const (
	transcribePath = "/transcribe"
	analyzePath    = "/analyze"
)

type Client struct {
	baseURL string
	http    *TracedClient
}

// NewClient builds a client for the service at baseURL. A zero timeout
// leaves requests without a deadline.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    NewTracedClient(timeout),
	}
}

// Warm pre-opens a connection to the service.
func (c *Client) Warm() {
	c.http.Warm(c.baseURL + transcribePath)
}

type transcribeResponse struct {
	Transcription *string `json:"transcription"`
}

type analyzeResponse struct {
	Analysis *string `json:"analysis"`
}

// Transcribe uploads one segment and returns its transcription text.
// An absent or null field in the response yields "" with no error.
func (c *Client) Transcribe(ctx context.Context, path, mediaType string) (string, error) {
	body, err := c.upload(ctx, transcribePath, path, mediaType)
	if err != nil {
		return "", err
	}
	var resp transcribeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("transcribe response parse error: %w", err)
	}
	if resp.Transcription == nil {
		return "", nil
	}
	return strings.TrimSpace(*resp.Transcription), nil
}

// Analyze uploads one segment and returns its analysis text, with the
// same absent-field semantics as Transcribe.
func (c *Client) Analyze(ctx context.Context, path, mediaType string) (string, error) {
	body, err := c.upload(ctx, analyzePath, path, mediaType)
	if err != nil {
		return "", err
	}
	var resp analyzeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("analyze response parse error: %w", err)
	}
	if resp.Analysis == nil {
		return "", nil
	}
	return strings.TrimSpace(*resp.Analysis), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// upload POSTs the segment file as multipart field "audio" and returns
// the raw response body on HTTP 200.
func (c *Client) upload(ctx context.Context, endpoint, path, mediaType string) ([]byte, error) {
	audioData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading segment: %w", err)
	}

	filename := "audio." + strings.TrimPrefix(mediaType, "audio/")

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	// CreateFormFile hardcodes application/octet-stream; the service
	// expects the declared audio media type.
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="audio"; filename="%s"`, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", mediaType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend error %d on %s: %s", resp.StatusCode, endpoint, truncate(resp.Body, 200))
	}

	m := resp.Metrics
	log.Upload(endpoint, log.UploadMetrics{
		SizeKB:  float64(len(audioData)) / 1024,
		DNSMs:   float64(m.DNS.Milliseconds()),
		TLSMs:   float64(m.TLS.Milliseconds()),
		TTFBMs:  float64(m.TTFB.Milliseconds()),
		TotalMs: float64(m.Total.Milliseconds()),
	}, m.ConnReused, m.TLSProtocol)

	return resp.Body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
