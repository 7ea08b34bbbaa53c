// Package telemetry reports episode plays to the backend.
package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/killallgit/podcast-player/internal/session"
	apperrors "github.com/killallgit/podcast-player/pkg/errors"
)

const (
	// DefaultDebounce suppresses a repeat report for the same episode
	DefaultDebounce = 10 * time.Second
	defaultTimeout  = 10 * time.Second
)

// Payload is one play report
type Payload struct {
	EpisodeID string  `json:"episode_id"`
	UserID    *string `json:"user_id"`
}

// Endpoint delivers play reports
type Endpoint interface {
	RecordPlay(ctx context.Context, p Payload) error
}

// Option configures a Reporter
type Option func(*Reporter)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// WithDebounce sets the repeat suppression window
func WithDebounce(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithTimeout bounds each send
func WithTimeout(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// Reporter sends play reports without blocking playback
type Reporter struct {
	endpoint Endpoint
	sessions session.Provider
	debounce time.Duration
	timeout  time.Duration
	now      func() time.Time

	mu     sync.Mutex
	lastID string
	lastAt time.Time

	wg sync.WaitGroup
}

// NewReporter creates a reporter. sessions may be nil for anonymous use.
func NewReporter(endpoint Endpoint, sessions session.Provider, opts ...Option) *Reporter {
	r := &Reporter{
		endpoint: endpoint,
		sessions: sessions,
		debounce: DefaultDebounce,
		timeout:  defaultTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record reports a play of episodeID unless the same episode was reported
// within the debounce window. It returns whether a report was sent.
// Delivery is asynchronous; failures are logged and dropped.
func (r *Reporter) Record(ctx context.Context, episodeID string) bool {
	now := r.now()

	r.mu.Lock()
	if episodeID == r.lastID && now.Sub(r.lastAt) < r.debounce {
		r.mu.Unlock()
		log.Printf("[DEBUG] Skipping duplicate play report for episode %s", episodeID)
		return false
	}
	r.lastID = episodeID
	r.lastAt = now
	r.mu.Unlock()

	// the report outlives the caller's cancellation
	sendCtx := context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.send(sendCtx, episodeID)
	}()
	return true
}

func (r *Reporter) send(ctx context.Context, episodeID string) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payload := Payload{EpisodeID: episodeID}
	if r.sessions != nil {
		s, err := r.sessions.Session(ctx)
		if err != nil {
			log.Printf("[WARN] Could not resolve session for play report, sending anonymously: %v", err)
		} else if s != nil {
			userID := s.UserID
			payload.UserID = &userID
		}
	}

	if err := r.endpoint.RecordPlay(ctx, payload); err != nil {
		log.Printf("[WARN] %v", apperrors.TelemetryError(episodeID, err))
		return
	}
	log.Printf("[DEBUG] Recorded play for episode %s", episodeID)
}

// Wait blocks until in-flight reports finish
func (r *Reporter) Wait() {
	r.wg.Wait()
}
