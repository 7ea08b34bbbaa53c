// Package downloads tracks which episodes are available offline and runs
// the fetch-then-persist flow that puts them there.
package downloads

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/killallgit/podcast-player/internal/models"
	"github.com/killallgit/podcast-player/internal/notice"
	"github.com/killallgit/podcast-player/internal/offline"
	"github.com/killallgit/podcast-player/pkg/download"
	apperrors "github.com/killallgit/podcast-player/pkg/errors"
)

// ErrEmptyPayload is returned when the proxy answered with no audio bytes
var ErrEmptyPayload = errors.New("received empty audio payload")

// Library is the persistence the manager needs
type Library interface {
	List(ctx context.Context) ([]models.StoredEpisode, error)
	Get(ctx context.Context, id string) (*models.StoredEpisode, error)
	Put(ctx context.Context, ep models.Episode, blob []byte, contentType string) error
	Delete(ctx context.Context, id string) error
}

// Fetcher retrieves episode audio by its source URL
type Fetcher interface {
	Fetch(ctx context.Context, audioURL string, progress download.ProgressFunc) (*download.Result, error)
}

// Snapshot is a copy of the manager's observable state
type Snapshot struct {
	Downloaded    []models.StoredEpisode // metadata only
	DownloadedIDs map[string]struct{}
	Progress      map[string]int // percent, in-flight downloads only
	Loading       bool
}

// Manager coordinates downloads against an offline library
type Manager struct {
	library  Library
	fetcher  Fetcher
	notifier notice.Notifier

	mu         sync.Mutex
	downloaded []models.StoredEpisode
	ids        map[string]struct{}
	progress   map[string]int
	loading    bool
	// refreshes issued before lastApplied carry a stale listing
	refreshSeq  uint64
	lastApplied uint64

	publishMu   sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSub     int
}

// NewManager creates a manager. It starts in the loading state until the
// first Refresh completes.
func NewManager(library Library, fetcher Fetcher, notifier notice.Notifier) *Manager {
	if notifier == nil {
		notifier = notice.Discard
	}
	return &Manager{
		library:     library,
		fetcher:     fetcher,
		notifier:    notifier,
		ids:         make(map[string]struct{}),
		progress:    make(map[string]int),
		loading:     true,
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Refresh reloads the downloaded set from the library. On failure the
// previous set is kept. A listing older than one already applied is
// dropped.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	m.refreshSeq++
	seq := m.refreshSeq
	m.mu.Unlock()

	rows, err := m.library.List(ctx)
	if err != nil {
		log.Printf("[ERROR] Failed to load downloaded episodes: %v", err)
		m.notifier.Notify(notice.Error("Failed to load downloaded episodes", err))

		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
		m.publish()
		return err
	}

	ids := make(map[string]struct{}, len(rows))
	for i := range rows {
		rows[i] = rows[i].WithoutBlob()
		ids[rows[i].ID] = struct{}{}
	}

	m.mu.Lock()
	if seq < m.lastApplied {
		m.mu.Unlock()
		log.Printf("[DEBUG] Dropping stale offline listing")
		return nil
	}
	m.lastApplied = seq
	m.downloaded = rows
	m.ids = ids
	m.loading = false
	m.mu.Unlock()

	m.publish()
	return nil
}

// Download fetches the episode through the fetcher and stores it.
// Requests for an episode with no audio, an episode already stored, or one
// already downloading are ignored with a notice and return nil. A stored
// copy that no longer reads back is dropped and fetched again.
func (m *Manager) Download(ctx context.Context, ep models.Episode) error {
	if !ep.HasAudio() {
		m.notifier.Notify(notice.Warning("Cannot download", "This episode has no audio available"))
		return nil
	}
	if m.IsDownloaded(ep.ID) && m.confirmStored(ctx, ep.ID) {
		m.notifier.Notify(notice.Info("Already downloaded", ep.Title))
		return nil
	}

	m.mu.Lock()
	_, done := m.ids[ep.ID]
	_, running := m.progress[ep.ID]
	switch {
	case done:
		m.mu.Unlock()
		m.notifier.Notify(notice.Info("Already downloaded", ep.Title))
		return nil
	case running:
		m.mu.Unlock()
		m.notifier.Notify(notice.Info("Download in progress", ep.Title))
		return nil
	}
	m.progress[ep.ID] = 0
	m.mu.Unlock()
	m.publish()

	log.Printf("[INFO] Downloading episode %s", ep.ID)

	if err := m.transfer(ctx, ep); err != nil {
		log.Printf("[ERROR] Download of episode %s failed: %v", ep.ID, err)
		m.notifier.Notify(notice.Error("Download failed", err))
		return err
	}

	_ = m.Refresh(ctx)
	m.notifier.Notify(notice.Success("Downloaded", ep.Title))
	log.Printf("[INFO] Episode %s downloaded", ep.ID)
	return nil
}

// confirmStored reads the entry back. An unreadable entry leaves the
// downloaded set; other failures keep it.
func (m *Manager) confirmStored(ctx context.Context, id string) bool {
	_, err := m.library.Get(ctx, id)
	if err == nil {
		return true
	}
	if !errors.Is(err, offline.ErrNotFound) {
		log.Printf("[WARN] Could not verify offline episode %s: %v", id, err)
		return true
	}

	log.Printf("[WARN] Offline episode %s is unreadable, downloading again", id)
	m.mu.Lock()
	delete(m.ids, id)
	kept := m.downloaded[:0:0]
	for _, row := range m.downloaded {
		if row.ID != id {
			kept = append(kept, row)
		}
	}
	m.downloaded = kept
	m.refreshSeq++
	m.lastApplied = m.refreshSeq
	m.mu.Unlock()

	m.publish()
	return false
}

// transfer runs the fetch and the write. The progress entry is removed
// when it returns, whatever the outcome.
func (m *Manager) transfer(ctx context.Context, ep models.Episode) error {
	stored := false
	defer func() { m.finish(ep.ID, stored) }()

	result, err := m.fetcher.Fetch(ctx, ep.AudioURL, func(downloaded, total int64) {
		if total > 0 {
			m.setProgress(ep.ID, int(downloaded*100/total))
		}
	})
	if err != nil {
		return apperrors.DownloadFetchError(ep.ID, err)
	}
	if len(result.Data) == 0 {
		return apperrors.DownloadFetchError(ep.ID, ErrEmptyPayload)
	}

	if err := m.library.Put(ctx, ep, result.Data, result.ContentType); err != nil {
		return err
	}
	stored = true
	return nil
}

func (m *Manager) setProgress(id string, percent int) {
	if percent > 100 {
		percent = 100
	}

	m.mu.Lock()
	current, ok := m.progress[id]
	if !ok || percent <= current {
		m.mu.Unlock()
		return
	}
	m.progress[id] = percent
	m.mu.Unlock()

	m.publish()
}

// finish clears the progress entry. A stored episode joins the downloaded
// set in the same step so no reader sees it as neither.
func (m *Manager) finish(id string, stored bool) {
	m.mu.Lock()
	delete(m.progress, id)
	if stored {
		m.ids[id] = struct{}{}
		m.refreshSeq++
		m.lastApplied = m.refreshSeq
	}
	m.mu.Unlock()

	m.publish()
}

// Delete removes an episode from the library. Removing an episode that is
// not stored succeeds.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.library.Delete(ctx, id); err != nil {
		log.Printf("[ERROR] Failed to delete episode %s: %v", id, err)
		m.notifier.Notify(notice.Error("Failed to delete download", err))
		return err
	}

	_ = m.Refresh(ctx)
	m.notifier.Notify(notice.Success("Download removed", ""))
	return nil
}

// IsDownloaded reports whether the episode is in the downloaded set
func (m *Manager) IsDownloaded(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[id]
	return ok
}

// Load reads a stored episode with its audio
func (m *Manager) Load(ctx context.Context, id string) (*models.StoredEpisode, error) {
	return m.library.Get(ctx, id)
}

// Snapshot returns a copy of the current state
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Downloaded:    make([]models.StoredEpisode, len(m.downloaded)),
		DownloadedIDs: make(map[string]struct{}, len(m.ids)),
		Progress:      make(map[string]int, len(m.progress)),
		Loading:       m.loading,
	}
	copy(snap.Downloaded, m.downloaded)
	for id := range m.ids {
		snap.DownloadedIDs[id] = struct{}{}
	}
	for id, pct := range m.progress {
		snap.Progress[id] = pct
	}
	return snap
}

// Subscribe registers fn for state changes. The returned func removes it.
func (m *Manager) Subscribe(fn func(Snapshot)) (cancel func()) {
	m.publishMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	m.publishMu.Unlock()

	return func() {
		m.publishMu.Lock()
		delete(m.subscribers, id)
		m.publishMu.Unlock()
	}
}

// publish runs subscribers after releasing publishMu; a callback may
// call back into the manager or cancel itself.
func (m *Manager) publish() {
	m.publishMu.Lock()
	ids := make([]int, 0, len(m.subscribers))
	for id := range m.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.subscribers[id])
	}
	m.publishMu.Unlock()

	if len(fns) == 0 {
		return
	}
	snap := m.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}
