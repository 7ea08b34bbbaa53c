package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 1024

var (
	// ErrTooLarge is returned when a body exceeds the configured maximum size
	ErrTooLarge = errors.New("file too large")
	// ErrInvalidContentType is returned when audio validation rejects a response
	ErrInvalidContentType = errors.New("invalid content type")
)

// StatusError reports a non-success upstream status
type StatusError struct {
	StatusCode int
	Body       []byte // leading bytes of the error response
}

func (e *StatusError) Error() string {
	if e.StatusCode == http.StatusForbidden {
		return "audio download blocked by upstream (403 Forbidden)"
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// DownloadOptions configures the download behavior
type DownloadOptions struct {
	MaxSize       int64         // Maximum body size in bytes (0 = no limit)
	Timeout       time.Duration // Whole-request timeout
	UserAgent     string        // User agent string
	ValidateAudio bool          // Validate content-type is audio
}

// ProgressFunc is called while a body is read. total is -1 when the
// upstream did not announce a length.
type ProgressFunc func(downloaded, total int64)

// DefaultOptions returns default download options
func DefaultOptions() DownloadOptions {
	return DownloadOptions{
		MaxSize:       500 * 1024 * 1024, // 500MB default max
		Timeout:       5 * time.Minute,
		UserAgent:     "PodcastPlayer/1.0",
		ValidateAudio: true,
	}
}

// Result is a fully buffered download
type Result struct {
	Data          []byte
	ContentType   string
	ContentLength int64
}

// Stream is an open upstream response whose body has not been consumed
type Stream struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64 // -1 when unknown

	maxSize int64
}

// Downloader fetches audio over HTTP
type Downloader struct {
	client  *http.Client
	options DownloadOptions
}

// NewDownloader creates a new downloader with the given options
func NewDownloader(options DownloadOptions) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: options.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				DisableCompression:  true, // Don't compress audio
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		options: options,
	}
}

// WithClient replaces the HTTP client, keeping the options
func (d *Downloader) WithClient(client *http.Client) *Downloader {
	return &Downloader{client: client, options: d.options}
}

// Options returns the downloader's options
func (d *Downloader) Options() DownloadOptions {
	return d.options
}

// Open issues a GET for url and returns the unread response
func (d *Downloader) Open(ctx context.Context, url string) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "audio/*,*/*")
	return d.OpenRequest(req)
}

// OpenRequest executes req and validates the response headers. The caller
// must close the returned stream's body.
func (d *Downloader) OpenRequest(req *http.Request) (*Stream, error) {
	if req.Header.Get("User-Agent") == "" && d.options.UserAgent != "" {
		req.Header.Set("User-Agent", d.options.UserAgent)
	}

	log.Printf("[DEBUG] Starting download from %s", req.URL.Redacted())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	contentType := resp.Header.Get("Content-Type")
	if d.options.ValidateAudio && !IsAudioContentType(contentType) {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}

	if d.options.MaxSize > 0 && resp.ContentLength > d.options.MaxSize {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, resp.ContentLength, d.options.MaxSize)
	}

	return &Stream{
		Body:          resp.Body,
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
		maxSize:       d.options.MaxSize,
	}, nil
}

// Fetch downloads url into memory
func (d *Downloader) Fetch(ctx context.Context, url string, progress ProgressFunc) (*Result, error) {
	stream, err := d.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	return stream.ReadAll(progress)
}

// Reader wraps the body with progress reporting and the size limit.
// Reading past the limit fails with ErrTooLarge.
func (s *Stream) Reader(progress ProgressFunc) io.Reader {
	var reader io.Reader = s.Body
	if progress != nil {
		reader = &progressReader{
			reader:   reader,
			total:    s.ContentLength,
			callback: progress,
		}
	}
	if s.maxSize > 0 {
		reader = &limitReader{reader: reader, remaining: s.maxSize}
	}
	return reader
}

// ReadAll consumes and closes the body
func (s *Stream) ReadAll(progress ProgressFunc) (*Result, error) {
	defer s.Body.Close()

	var buf bytes.Buffer
	if s.ContentLength > 0 {
		buf.Grow(int(s.ContentLength))
	}

	written, err := io.Copy(&buf, s.Reader(progress))
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}

	log.Printf("[DEBUG] Downloaded %d bytes", written)

	return &Result{
		Data:          buf.Bytes(),
		ContentType:   s.ContentType,
		ContentLength: written,
	}, nil
}

// IsAudioContentType checks if content type is audio
func IsAudioContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.HasPrefix(contentType, "audio/") ||
		strings.HasPrefix(contentType, "application/octet-stream") // Some servers use this for audio
}

// progressReader wraps a reader to report progress
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	callback   ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.downloaded += int64(n)
		pr.callback(pr.downloaded, pr.total)
	}
	return n, err
}

// limitReader errors instead of silently truncating at the limit
type limitReader struct {
	reader    io.Reader
	remaining int64
}

func (lr *limitReader) Read(p []byte) (int, error) {
	if lr.remaining < 0 {
		return 0, ErrTooLarge
	}
	// read one byte past the limit so an exact-size body is not rejected
	if int64(len(p)) > lr.remaining+1 {
		p = p[:lr.remaining+1]
	}
	n, err := lr.reader.Read(p)
	lr.remaining -= int64(n)
	if lr.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
