package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewDownloader(t *testing.T) {
	options := DefaultOptions()
	downloader := NewDownloader(options)

	if downloader == nil {
		t.Fatal("NewDownloader returned nil")
	}

	if downloader.client == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if downloader.client.Timeout != options.Timeout {
		t.Errorf("Expected timeout %v, got %v", options.Timeout, downloader.client.Timeout)
	}
}

func TestDefaultOptions(t *testing.T) {
	options := DefaultOptions()

	if options.MaxSize != int64(500*1024*1024) {
		t.Errorf("Expected MaxSize 500MB, got %v", options.MaxSize)
	}

	if options.Timeout != 5*time.Minute {
		t.Errorf("Expected Timeout 5m, got %v", options.Timeout)
	}

	if !options.ValidateAudio {
		t.Error("Expected ValidateAudio to default to true")
	}

	if options.UserAgent == "" {
		t.Error("Expected a default User-Agent")
	}
}

func TestFetch_Success(t *testing.T) {
	audioData := strings.Repeat("audio-data", 128) // 1280 bytes
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("Expected User-Agent header")
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(audioData))
	}))
	defer server.Close()

	downloader := NewDownloader(DefaultOptions())

	var calls int
	var last int64
	result, err := downloader.Fetch(context.Background(), server.URL, func(downloaded, total int64) {
		calls++
		if downloaded < last {
			t.Errorf("Progress went backwards: %d after %d", downloaded, last)
		}
		last = downloaded
		if total != 1280 {
			t.Errorf("Expected total 1280, got %d", total)
		}
	})

	if err != nil {
		t.Fatalf("Expected successful download, got error: %v", err)
	}

	if result.ContentType != "audio/mpeg" {
		t.Errorf("Expected content type 'audio/mpeg', got %v", result.ContentType)
	}

	if result.ContentLength != 1280 || string(result.Data) != audioData {
		t.Errorf("Expected 1280 bytes of audio, got %d", result.ContentLength)
	}

	if calls == 0 || last != 1280 {
		t.Errorf("Expected progress to reach 1280, got %d after %d calls", last, calls)
	}
}

func TestFetch_Forbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Forbidden"))
	}))
	defer server.Close()

	_, err := NewDownloader(DefaultOptions()).Fetch(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("Expected error for 403 response, got nil")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusForbidden {
		t.Fatalf("Expected StatusError 403, got: %v", err)
	}

	if !strings.Contains(err.Error(), "403 Forbidden") {
		t.Errorf("Expected 403 message, got: %v", err)
	}
}

func TestFetch_InvalidContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>Not audio</html>"))
	}))
	defer server.Close()

	_, err := NewDownloader(DefaultOptions()).Fetch(context.Background(), server.URL, nil)
	if !errors.Is(err, ErrInvalidContentType) {
		t.Fatalf("Expected content type error, got: %v", err)
	}

	options := DefaultOptions()
	options.ValidateAudio = false
	if _, err := NewDownloader(options).Fetch(context.Background(), server.URL, nil); err != nil {
		t.Errorf("Expected no error with validation disabled, got: %v", err)
	}
}

func TestFetch_DeclaredTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Content-Length", "1000000000") // 1GB
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	options := DefaultOptions()
	options.MaxSize = 1024
	_, err := NewDownloader(options).Fetch(context.Background(), server.URL, nil)

	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Expected file too large error, got: %v", err)
	}
}

func TestFetch_UndeclaredTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		// flushing forces chunked encoding, so no length is announced
		_, _ = w.Write([]byte(strings.Repeat("a", 600)))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte(strings.Repeat("b", 600)))
	}))
	defer server.Close()

	options := DefaultOptions()
	options.MaxSize = 1024
	_, err := NewDownloader(options).Fetch(context.Background(), server.URL, nil)

	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Expected file too large error, got: %v", err)
	}
}

func TestFetch_ExactlyMaxSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte(strings.Repeat("a", 1024)))
	}))
	defer server.Close()

	options := DefaultOptions()
	options.MaxSize = 1024
	result, err := NewDownloader(options).Fetch(context.Background(), server.URL, nil)

	if err != nil {
		t.Fatalf("Expected body at the limit to succeed, got: %v", err)
	}
	if len(result.Data) != 1024 {
		t.Errorf("Expected 1024 bytes, got %d", len(result.Data))
	}
}

func TestOpenRequest_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "audio/ogg")
		_, _ = w.Write([]byte("ogg"))
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodPost, server.URL, strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}

	stream, err := NewDownloader(DefaultOptions()).OpenRequest(req)
	if err != nil {
		t.Fatalf("OpenRequest failed: %v", err)
	}

	result, err := stream.ReadAll(nil)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if result.ContentType != "audio/ogg" || string(result.Data) != "ogg" {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestIsAudioContentType(t *testing.T) {
	testCases := []struct {
		contentType string
		expected    bool
	}{
		{"audio/mpeg", true},
		{"audio/mp3", true},
		{"audio/wav", true},
		{"AUDIO/MPEG", true},               // Case insensitive
		{"application/octet-stream", true}, // Special case for some servers
		{"text/html", false},
		{"image/jpeg", false},
		{"application/json", false},
		{"", false},
	}

	for _, tc := range testCases {
		result := IsAudioContentType(tc.contentType)
		if result != tc.expected {
			t.Errorf("IsAudioContentType(%q) = %v, expected %v", tc.contentType, result, tc.expected)
		}
	}
}
