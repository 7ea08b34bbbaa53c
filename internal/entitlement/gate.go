// Package entitlement decides whether the current user may play premium
// episodes. Any doubt resolves to free.
package entitlement

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/killallgit/podcast-player/internal/models"
	"github.com/killallgit/podcast-player/internal/session"
)

// Status is the entitlement tri-state
type Status string

const (
	StatusLoading Status = "loading"
	StatusFree    Status = "free"
	StatusPremium Status = "premium"
)

// Source looks up a user's subscription status
type Source interface {
	SubscriptionStatus(ctx context.Context, s *session.Session) (string, error)
}

// Gate holds the resolved entitlement
type Gate struct {
	source Source

	mu         sync.Mutex
	status     Status
	generation uint64

	subMu       sync.Mutex
	subscribers map[int]func(Status)
	nextSub     int
}

// NewGate creates a gate in the loading state
func NewGate(source Source) *Gate {
	return &Gate{
		source:      source,
		status:      StatusLoading,
		subscribers: make(map[int]func(Status)),
	}
}

// Resolve looks up the entitlement for s. No session, a missing profile
// and lookup errors all resolve to free.
func (g *Gate) Resolve(ctx context.Context, s *session.Session) Status {
	g.mu.Lock()
	gen := g.generation
	g.mu.Unlock()

	return g.resolve(ctx, s, gen)
}

// OnAuthChange re-resolves after a sign-in or sign-out. The gate reports
// loading until the lookup finishes; a later change supersedes an earlier
// one still in flight.
func (g *Gate) OnAuthChange(ctx context.Context, s *session.Session) Status {
	g.mu.Lock()
	g.generation++
	gen := g.generation
	g.status = StatusLoading
	g.mu.Unlock()
	g.publish(StatusLoading)

	return g.resolve(ctx, s, gen)
}

func (g *Gate) resolve(ctx context.Context, s *session.Session, gen uint64) Status {
	status := g.lookup(ctx, s)

	g.mu.Lock()
	if gen != g.generation {
		current := g.status
		g.mu.Unlock()
		return current
	}
	g.status = status
	g.mu.Unlock()

	g.publish(status)
	return status
}

func (g *Gate) lookup(ctx context.Context, s *session.Session) Status {
	if s == nil || g.source == nil {
		return StatusFree
	}

	value, err := g.source.SubscriptionStatus(ctx, s)
	if err != nil {
		log.Printf("[WARN] Subscription lookup failed for user %s, treating as free: %v", s.UserID, err)
		return StatusFree
	}
	if value == models.SubscriptionPremium {
		return StatusPremium
	}
	return StatusFree
}

// Status returns the current entitlement
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// IsPremium reports whether premium episodes are allowed right now.
// Loading counts as not premium.
func (g *Gate) IsPremium() bool {
	return g.Status() == StatusPremium
}

// Subscribe registers fn for status changes. The returned func removes it.
func (g *Gate) Subscribe(fn func(Status)) (cancel func()) {
	g.subMu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subscribers[id] = fn
	g.subMu.Unlock()

	return func() {
		g.subMu.Lock()
		delete(g.subscribers, id)
		g.subMu.Unlock()
	}
}

func (g *Gate) publish(status Status) {
	g.subMu.Lock()
	ids := make([]int, 0, len(g.subscribers))
	for id := range g.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Status), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, g.subscribers[id])
	}
	g.subMu.Unlock()

	for _, fn := range fns {
		fn(status)
	}
}
