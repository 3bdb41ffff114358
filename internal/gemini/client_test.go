package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/qzbx-cloud/avision/internal/pipeline"
)

// newTestClient points a client at srv with a recorded (non-waiting) sleep.
func newTestClient(srv *httptest.Server, cfg RetryConfig) (*Client, *[]time.Duration) {
	c := NewClient("test-key", "gemini-2.5-flash").WithBaseURL(srv.URL).WithRetry(cfg)
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) { slept = append(slept, d) }
	return c, &slept
}

func candidateJSON(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
}

func photo(data string) pipeline.ResolvedMedia {
	return pipeline.ResolvedMedia{Data: []byte(data), MIME: "image/jpeg", Kind: pipeline.KindPhoto}
}

// TestDescribe_Success verifies the request shape (model path, API key
// header, prompt part followed by inline media parts) and response parsing.
func TestDescribe_Success(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, candidateJSON("на фото серый кот"))
	}))
	defer srv.Close()

	c, _ := newTestClient(srv, DefaultRetryConfig())
	text, err := c.Describe(context.Background(), pipeline.DescribeRequest{Media: []pipeline.ResolvedMedia{photo("jpegdata")}})
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if text != "на фото серый кот" {
		t.Errorf("text = %q", text)
	}

	if gotPath != "/v1beta/models/gemini-2.5-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if len(gotReq.Contents) != 1 || len(gotReq.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected request contents: %+v", gotReq.Contents)
	}
	parts := gotReq.Contents[0].Parts
	if parts[0].Text == "" || parts[0].InlineData != nil {
		t.Errorf("first part should be the prompt text, got %+v", parts[0])
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MimeType != "image/jpeg" {
		t.Errorf("second part should be inline jpeg data, got %+v", parts[1])
	}
	if len(gotReq.SafetySettings) != 4 {
		t.Errorf("safety settings = %d categories, want 4", len(gotReq.SafetySettings))
	}
}

// TestDescribe_EmptyResponseIsSuccess verifies that an empty model reply is
// returned as-is with no error — the caller decides what emptiness means.
func TestDescribe_EmptyResponseIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, candidateJSON(""))
	}))
	defer srv.Close()

	c, slept := newTestClient(srv, DefaultRetryConfig())
	text, err := c.Describe(context.Background(), pipeline.DescribeRequest{Media: []pipeline.ResolvedMedia{photo("x")}})
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %d times on a successful call", len(*slept))
	}
}

// TestDescribe_RetriesThenSucceeds verifies the retry schedule: two failures
// then success returns the text and sleeps exactly twice, with linear delays
// base*1 then base*2.
func TestDescribe_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, `{"error":{"status":"RESOURCE_EXHAUSTED"}}`, http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, candidateJSON("готово"))
	}))
	defer srv.Close()

	base := 250 * time.Millisecond
	c, slept := newTestClient(srv, RetryConfig{MaxAttempts: 3, BaseDelay: base})

	text, err := c.Describe(context.Background(), pipeline.DescribeRequest{Media: []pipeline.ResolvedMedia{photo("x")}})
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if text != "готово" {
		t.Errorf("text = %q", text)
	}
	if calls != 3 {
		t.Errorf("made %d HTTP calls, want 3", calls)
	}
	want := []time.Duration{base, 2 * base}
	if len(*slept) != len(want) {
		t.Fatalf("slept %d times (%v), want %d", len(*slept), *slept, len(want))
	}
	for i := range want {
		if (*slept)[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i+1, (*slept)[i], want[i])
		}
	}
}

// TestDescribe_ExhaustedAttempts verifies the terminal failure: DescribeError
// carrying the last underlying error after exactly MaxAttempts calls.
func TestDescribe_ExhaustedAttempts(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, slept := newTestClient(srv, RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond})

	_, err := c.Describe(context.Background(), pipeline.DescribeRequest{Media: []pipeline.ResolvedMedia{photo("x")}})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}

	var de *DescribeError
	if !errors.As(err, &de) {
		t.Fatalf("error type = %T, want *DescribeError", err)
	}
	if de.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", de.Attempts)
	}
	if !strings.Contains(de.Err.Error(), "503") {
		t.Errorf("wrapped error should carry the last failure, got: %v", de.Err)
	}
	if calls != 3 {
		t.Errorf("made %d HTTP calls, want 3", calls)
	}
	if len(*slept) != 2 {
		t.Errorf("slept %d times, want 2", len(*slept))
	}
}

// TestDescribe_NoMedia verifies that an empty request is rejected without an
// HTTP call.
func TestDescribe_NoMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("unexpected HTTP call for empty request")
	}))
	defer srv.Close()

	c, _ := newTestClient(srv, DefaultRetryConfig())
	if _, err := c.Describe(context.Background(), pipeline.DescribeRequest{}); err == nil {
		t.Fatal("expected an error for a request with no media")
	}
}

// --- selectPrompt tests ---

// TestSelectPrompt verifies the three prompt branches and that the album
// variant states the item count.
func TestSelectPrompt(t *testing.T) {
	voice := pipeline.ResolvedMedia{Kind: pipeline.KindVoice, MIME: "audio/ogg"}
	img := pipeline.ResolvedMedia{Kind: pipeline.KindPhoto, MIME: "image/jpeg"}
	vid := pipeline.ResolvedMedia{Kind: pipeline.KindVideo, MIME: "video/mp4"}

	t.Run("single voice uses the transcription prompt verbatim", func(t *testing.T) {
		if got := selectPrompt([]pipeline.ResolvedMedia{voice}); got != voicePrompt {
			t.Errorf("got %q", got)
		}
	})

	t.Run("single photo uses the description prompt verbatim", func(t *testing.T) {
		if got := selectPrompt([]pipeline.ResolvedMedia{img}); got != mediaPrompt {
			t.Errorf("got %q", got)
		}
	})

	t.Run("single video uses the description prompt verbatim", func(t *testing.T) {
		if got := selectPrompt([]pipeline.ResolvedMedia{vid}); got != mediaPrompt {
			t.Errorf("got %q", got)
		}
	})

	t.Run("album augments the prompt with the item count", func(t *testing.T) {
		got := selectPrompt([]pipeline.ResolvedMedia{img, img, vid})
		if !strings.HasPrefix(got, mediaPrompt) {
			t.Error("album prompt should start with the description prompt")
		}
		if !strings.Contains(got, "3 медиафайлов") {
			t.Errorf("album prompt should state the item count, got %q", got)
		}
		if !strings.Contains(got, "в одном ответе") {
			t.Errorf("album prompt should ask for one consolidated answer, got %q", got)
		}
	})
}
