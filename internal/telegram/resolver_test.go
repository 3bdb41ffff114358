package telegram

import (
	"bytes"
	"context"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestFetchFile verifies the happy path and both failure modes of the file
// download: HTTP errors become wrapped errors, and payloads over the size
// cap are rejected without buffering the whole body.
func TestFetchFile(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		maxBytes int64
		wantErr  string
	}{
		{name: "success", status: http.StatusOK, body: "file-bytes", maxBytes: 1024},
		{name: "not found", status: http.StatusNotFound, body: "nope", maxBytes: 1024, wantErr: "status 404"},
		{name: "over size cap", status: http.StatusOK, body: strings.Repeat("x", 32), maxBytes: 16, wantErr: "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := &http.Client{Timeout: 5 * time.Second}
			data, err := fetchFile(context.Background(), client, srv.URL, tt.maxBytes)

			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %q, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("fetchFile: %v", err)
			}
			if string(data) != tt.body {
				t.Errorf("data = %q, want %q", data, tt.body)
			}
		})
	}
}

// TestFetchFile_ContextCancelled verifies that an already-cancelled context
// aborts the download instead of blocking on a slow server.
func TestFetchFile_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	if _, err := fetchFile(ctx, client, srv.URL, 1024); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

// TestNormalizePhoto verifies that arbitrary input images come out as JPEG
// so the describer always receives the advertised MIME type.
func TestNormalizePhoto(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	out, err := normalizePhoto(buf.Bytes())
	if err != nil {
		t.Fatalf("normalizePhoto: %v", err)
	}

	_, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("output format = %q, want jpeg", format)
	}
}

// TestNormalizePhoto_GarbageInput verifies undecodable bytes surface an error
// so the resolver can fall back to the raw payload.
func TestNormalizePhoto_GarbageInput(t *testing.T) {
	if _, err := normalizePhoto([]byte("not an image at all")); err == nil {
		t.Fatal("expected decode error")
	}
}
