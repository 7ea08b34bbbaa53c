// Package player owns the single playback session: which episode is
// loaded, where its audio comes from, and what the media element is doing.
package player

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/killallgit/podcast-player/internal/media"
	"github.com/killallgit/podcast-player/internal/models"
	"github.com/killallgit/podcast-player/internal/notice"
	apperrors "github.com/killallgit/podcast-player/pkg/errors"
)

const (
	// DefaultVolume is the starting volume in percent
	DefaultVolume = 70
	// UpgradePath is where the user is sent to unlock premium episodes
	UpgradePath = "/premium"
	// resumeReportThreshold is how close to the start a resume still counts as a new play
	resumeReportThreshold = 5.0
)

// ErrNoEpisode is returned by controls that need a loaded episode
var ErrNoEpisode = errors.New("no episode loaded")

// Library is the read side of the offline downloads
type Library interface {
	IsDownloaded(id string) bool
	Load(ctx context.Context, id string) (*models.StoredEpisode, error)
}

// Entitlements reports whether premium episodes may play
type Entitlements interface {
	IsPremium() bool
}

// Telemetry records plays
type Telemetry interface {
	Record(ctx context.Context, episodeID string) bool
}

// ObjectURLs mints and releases URLs for in-memory audio
type ObjectURLs interface {
	Create(data []byte, contentType string) string
	Revoke(url string) bool
}

// Navigator receives navigation hints for the surrounding UI
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Dependencies are the engine's collaborators. Element is required, and
// so is ObjectURLs whenever Library is set. Telemetry, Notifier and
// Navigator are optional.
type Dependencies struct {
	Element      media.Element
	ObjectURLs   ObjectURLs
	Entitlements Entitlements
	Library      Library
	Telemetry    Telemetry
	Notifier     notice.Notifier
	Navigator    Navigator
}

// Engine is the playback session
type Engine struct {
	element   media.Element
	urls      ObjectURLs
	gate      Entitlements
	library   Library
	telemetry Telemetry
	notifier  notice.Notifier
	navigator Navigator

	// loadMu serializes source replacement so object URLs are swapped one at a time
	loadMu sync.Mutex

	mu         sync.Mutex
	state      State
	activeURL  string
	generation uint64

	subMu       sync.Mutex
	subscribers map[int]func(State)
	nextSub     int
}

// ErrMissingDependency is returned by NewEngine when a required collaborator is nil
var ErrMissingDependency = errors.New("missing engine dependency")

// NewEngine creates an idle engine and registers it as the element's listener
func NewEngine(deps Dependencies, volume int) (*Engine, error) {
	if deps.Element == nil {
		return nil, fmt.Errorf("%w: media element", ErrMissingDependency)
	}
	if deps.Library != nil && deps.ObjectURLs == nil {
		return nil, fmt.Errorf("%w: object URLs are needed to play downloads", ErrMissingDependency)
	}

	e := &Engine{
		element:     deps.Element,
		urls:        deps.ObjectURLs,
		gate:        deps.Entitlements,
		library:     deps.Library,
		telemetry:   deps.Telemetry,
		notifier:    deps.Notifier,
		navigator:   deps.Navigator,
		state:       State{Status: StatusIdle, Volume: clampVolume(volume)},
		subscribers: make(map[int]func(State)),
	}
	if e.notifier == nil {
		e.notifier = notice.Discard
	}
	e.element.SetListener(e)
	return e, nil
}

// PlayEpisode loads ep and starts playback. Asking for the episode that is
// already loaded from the same source toggles play and pause instead.
func (e *Engine) PlayEpisode(ctx context.Context, ep models.Episode) error {
	if ep.IsPremium && (e.gate == nil || !e.gate.IsPremium()) {
		err := apperrors.PremiumRequired(ep.ID)
		log.Printf("[INFO] Blocked premium episode %s", ep.ID)
		e.notifier.Notify(notice.Error("Premium episode", err))
		if e.navigator != nil {
			e.navigator.Navigate(UpgradePath)
		}
		return err
	}

	local := e.library != nil && e.library.IsDownloaded(ep.ID)

	e.mu.Lock()
	current := e.state.CurrentEpisode
	source := e.state.Source
	e.mu.Unlock()

	if current != nil && current.ID == ep.ID && source.Local == local && (local || source.URL == ep.AudioURL) {
		return e.TogglePlayPause(ctx)
	}

	var blob []byte
	var contentType string
	if local {
		stored, err := e.library.Load(ctx, ep.ID)
		if err != nil {
			log.Printf("[WARN] Could not read downloaded episode %s, streaming instead: %v", ep.ID, err)
			local = false
		} else {
			blob, contentType = stored.AudioBlob, stored.ContentType
		}
	}

	if !local && !ep.HasAudio() {
		err := apperrors.PlaybackSourceUnavailable(ep.ID)
		log.Printf("[WARN] No audio source for episode %s", ep.ID)
		e.notifier.Notify(notice.Error("Cannot play episode", err))
		return err
	}

	gen, src, err := e.load(ep, local, blob, contentType)
	e.publish()
	if err != nil {
		return err
	}

	started, err := e.start(ctx, gen)
	if err != nil || !started {
		return err
	}

	if !src.Local && e.telemetry != nil {
		e.telemetry.Record(ctx, ep.ID)
	}
	return nil
}

// load swaps the element's source. The previous object URL is revoked
// before the new one is minted. The caller publishes the result once
// loadMu is released.
func (e *Engine) load(ep models.Episode, local bool, blob []byte, contentType string) (uint64, Source, error) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	e.mu.Lock()
	previous := e.activeURL
	e.activeURL = ""
	volume := e.state.Volume
	e.mu.Unlock()

	if previous != "" {
		e.urls.Revoke(previous)
	}

	src := Source{URL: ep.AudioURL}
	if local {
		src = Source{URL: e.urls.Create(blob, contentType), Local: true}
	}

	if err := e.element.Load(src.URL); err != nil {
		if src.Local {
			e.urls.Revoke(src.URL)
		}
		// the element may still hold the revoked URL after a failed load
		if previous != "" {
			if stopErr := e.element.Stop(); stopErr != nil {
				log.Printf("[WARN] Failed to stop element after load failure: %v", stopErr)
			}
		}

		e.mu.Lock()
		e.generation++
		e.state = State{Status: StatusIdle, Volume: e.state.Volume}
		e.mu.Unlock()

		log.Printf("[ERROR] Failed to load episode %s: %v", ep.ID, err)
		err = fmt.Errorf("failed to load episode %s: %w", ep.ID, err)
		e.notifier.Notify(notice.Error("Playback failed", err))
		return 0, src, err
	}

	if err := e.element.SetVolume(float64(volume) / 100); err != nil {
		log.Printf("[WARN] Failed to apply volume: %v", err)
	}

	e.mu.Lock()
	e.generation++
	gen := e.generation
	if src.Local {
		e.activeURL = src.URL
	}
	episode := ep
	e.state = State{
		Status:         StatusLoading,
		CurrentEpisode: &episode,
		Volume:         e.state.Volume,
		Source:         src,
	}
	e.mu.Unlock()

	log.Printf("[INFO] Loaded episode %s (local=%t)", ep.ID, src.Local)
	return gen, src, nil
}

// start begins output for the load identified by gen. A newer load
// supersedes it and the outcome is dropped; started is false then.
func (e *Engine) start(ctx context.Context, gen uint64) (started bool, err error) {
	err = e.element.Play(ctx)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		log.Printf("[DEBUG] Discarding play result for superseded load")
		return false, nil
	}
	if err != nil {
		e.state.IsPlaying = false
		e.state.Status = StatusPaused
		e.mu.Unlock()
		e.publish()

		log.Printf("[WARN] Playback did not start: %v", err)
		e.notifier.Notify(notice.Warning("Playback did not start", err.Error()))
		return false, fmt.Errorf("playback did not start: %w", err)
	}
	e.state.IsPlaying = true
	e.state.Status = StatusPlaying
	e.mu.Unlock()
	e.publish()
	return true, nil
}

// Pause halts playback
func (e *Engine) Pause() error {
	e.mu.Lock()
	playing := e.state.IsPlaying
	e.mu.Unlock()
	if !playing {
		return nil
	}

	if err := e.element.Pause(); err != nil {
		log.Printf("[WARN] Failed to pause: %v", err)
		return err
	}

	e.mu.Lock()
	e.state.IsPlaying = false
	e.state.Status = StatusPaused
	e.mu.Unlock()
	e.publish()
	return nil
}

// TogglePlayPause pauses a playing episode or resumes the current one. A
// resume near the start of a streamed episode counts as a play.
func (e *Engine) TogglePlayPause(ctx context.Context) error {
	e.mu.Lock()
	if e.state.CurrentEpisode == nil {
		e.mu.Unlock()
		return ErrNoEpisode
	}
	if e.state.IsPlaying {
		e.mu.Unlock()
		return e.Pause()
	}
	episodeID := e.state.CurrentEpisode.ID
	src := e.state.Source
	ended := e.state.Status == StatusIdle
	gen := e.generation
	e.mu.Unlock()

	// a finished track is unloaded by the element, so give it the source again
	if ended {
		if err := e.element.Load(src.URL); err != nil {
			log.Printf("[WARN] Failed to reload episode %s: %v", episodeID, err)
			e.notifier.Notify(notice.Error("Playback failed", err))
			return err
		}
	}

	position := e.element.CurrentTime()
	started, err := e.start(ctx, gen)
	if err != nil || !started {
		return err
	}

	if !src.Local && position < resumeReportThreshold && e.telemetry != nil {
		e.telemetry.Record(ctx, episodeID)
	}
	return nil
}

// Seek moves to seconds, clamped to the known duration
func (e *Engine) Seek(seconds float64) error {
	e.mu.Lock()
	if e.state.CurrentEpisode == nil {
		e.mu.Unlock()
		return ErrNoEpisode
	}
	target := clampPosition(seconds, e.state.Duration)
	e.mu.Unlock()

	if err := e.element.SetCurrentTime(target); err != nil {
		log.Printf("[WARN] Failed to seek to %.1fs: %v", target, err)
		return err
	}

	e.mu.Lock()
	e.state.Progress = target
	e.mu.Unlock()
	e.publish()
	return nil
}

// SetVolume sets the volume in percent, clamped to [0, 100]
func (e *Engine) SetVolume(percent int) error {
	percent = clampVolume(percent)

	e.mu.Lock()
	e.state.Volume = percent
	e.mu.Unlock()
	e.publish()

	if err := e.element.SetVolume(float64(percent) / 100); err != nil {
		log.Printf("[WARN] Failed to set volume: %v", err)
		return err
	}
	return nil
}

// OnTimeUpdate tracks the element's playback clock
func (e *Engine) OnTimeUpdate(position float64) {
	e.mu.Lock()
	if e.state.CurrentEpisode == nil {
		e.mu.Unlock()
		return
	}
	e.state.Progress = position
	e.mu.Unlock()
	e.publish()
}

// OnLoadedMetadata records the duration and re-applies the volume
func (e *Engine) OnLoadedMetadata(duration float64) {
	e.mu.Lock()
	e.state.Duration = duration
	volume := e.state.Volume
	e.mu.Unlock()
	e.publish()

	if err := e.element.SetVolume(float64(volume) / 100); err != nil {
		log.Printf("[WARN] Failed to apply volume: %v", err)
	}
}

// OnEnded returns to idle at the start of the track. The episode stays
// current so it can be replayed.
func (e *Engine) OnEnded() {
	e.mu.Lock()
	e.state.IsPlaying = false
	e.state.Progress = 0
	e.state.Status = StatusIdle
	e.mu.Unlock()
	e.publish()
}

// State returns a copy of the playback session
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Subscribe registers fn for state changes. The returned func removes it.
func (e *Engine) Subscribe(fn func(State)) (cancel func()) {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = fn
	e.subMu.Unlock()

	return func() {
		e.subMu.Lock()
		delete(e.subscribers, id)
		e.subMu.Unlock()
	}
}

// publish calls subscribers outside subMu so they may drive the engine
// or unsubscribe from inside the callback.
func (e *Engine) publish() {
	e.subMu.Lock()
	ids := make([]int, 0, len(e.subscribers))
	for id := range e.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, e.subscribers[id])
	}
	e.subMu.Unlock()

	if len(fns) == 0 {
		return
	}
	state := e.State()
	for _, fn := range fns {
		fn(state)
	}
}

// Close revokes the outstanding object URL and releases the element
func (e *Engine) Close() error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	e.mu.Lock()
	active := e.activeURL
	e.activeURL = ""
	e.generation++
	e.state.IsPlaying = false
	e.state.Status = StatusIdle
	e.mu.Unlock()

	if active != "" {
		e.urls.Revoke(active)
	}
	return e.element.Close()
}
