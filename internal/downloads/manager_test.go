package downloads

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/podcast-player/internal/database"
	"github.com/killallgit/podcast-player/internal/models"
	"github.com/killallgit/podcast-player/internal/notice"
	"github.com/killallgit/podcast-player/internal/offline"
	"github.com/killallgit/podcast-player/pkg/download"
	apperrors "github.com/killallgit/podcast-player/pkg/errors"
)

// MockFetcher is a mock implementation of Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, audioURL string, progress download.ProgressFunc) (*download.Result, error) {
	args := m.Called(ctx, audioURL, progress)
	result, _ := args.Get(0).(*download.Result)
	return result, args.Error(1)
}

// MockLibrary is a mock implementation of Library
type MockLibrary struct {
	mock.Mock
}

func (m *MockLibrary) List(ctx context.Context) ([]models.StoredEpisode, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]models.StoredEpisode)
	return rows, args.Error(1)
}

func (m *MockLibrary) Get(ctx context.Context, id string) (*models.StoredEpisode, error) {
	args := m.Called(ctx, id)
	row, _ := args.Get(0).(*models.StoredEpisode)
	return row, args.Error(1)
}

func (m *MockLibrary) Put(ctx context.Context, ep models.Episode, blob []byte, contentType string) error {
	args := m.Called(ctx, ep, blob, contentType)
	return args.Error(0)
}

func (m *MockLibrary) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func testEpisode(id string) models.Episode {
	return models.Episode{ID: id, Title: "Episode " + id, AudioURL: "https://cdn.example.com/" + id + ".mp3"}
}

func newStore(t *testing.T) *offline.Store {
	t.Helper()
	store := offline.NewStore(database.MemoryPath, false)
	require.NoError(t, store.Open(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func audio(data string) *download.Result {
	return &download.Result{Data: []byte(data), ContentType: "audio/mpeg", ContentLength: int64(len(data))}
}

func TestManager_DownloadSuccess(t *testing.T) {
	ctx := context.Background()
	ep := testEpisode("e1")
	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, ep.AudioURL, mock.Anything).Return(audio("mp3 bytes"), nil)
	notices := &notice.Recorder{}

	m := NewManager(newStore(t), fetcher, notices)
	require.NoError(t, m.Refresh(ctx))
	require.NoError(t, m.Download(ctx, ep))

	snap := m.Snapshot()
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Progress)
	assert.Contains(t, snap.DownloadedIDs, "e1")
	require.Len(t, snap.Downloaded, 1)
	assert.Nil(t, snap.Downloaded[0].AudioBlob)
	assert.True(t, m.IsDownloaded("e1"))

	stored, err := m.Load(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3 bytes"), stored.AudioBlob)

	last, ok := notices.Last()
	require.True(t, ok)
	assert.Equal(t, notice.LevelSuccess, last.Level)
	fetcher.AssertExpectations(t)
}

func TestManager_DownloadPreconditions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(t *testing.T, m *Manager)
		ep    models.Episode
	}{
		{
			name: "no audio url",
			ep:   models.Episode{ID: "e1", Title: "Silent"},
		},
		{
			name: "already downloaded",
			setup: func(t *testing.T, m *Manager) {
				require.NoError(t, m.library.Put(ctx, testEpisode("e1"), []byte("x"), ""))
				require.NoError(t, m.Refresh(ctx))
			},
			ep: testEpisode("e1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &MockFetcher{}
			notices := &notice.Recorder{}
			m := NewManager(newStore(t), fetcher, notices)
			if tt.setup != nil {
				tt.setup(t, m)
			}

			assert.NoError(t, m.Download(ctx, tt.ep))
			fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
			assert.Empty(t, m.Snapshot().Progress)
			assert.Len(t, notices.Notices(), 1)
		})
	}
}

func TestManager_AtMostOneDownloadPerEpisode(t *testing.T) {
	ctx := context.Background()
	ep := testEpisode("e1")

	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, ep.AudioURL, mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			<-release
		}).
		Return(audio("payload"), nil).Once()

	notices := &notice.Recorder{}
	m := NewManager(newStore(t), fetcher, notices)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, m.Download(ctx, ep))
	}()

	<-started
	assert.Contains(t, m.Snapshot().Progress, "e1")

	for i := 0; i < 5; i++ {
		assert.NoError(t, m.Download(ctx, ep))
	}
	assert.Equal(t, 5, notices.Count(notice.LevelInfo))

	close(release)
	wg.Wait()

	fetcher.AssertNumberOfCalls(t, "Fetch", 1)
	assert.True(t, m.IsDownloaded("e1"))
	assert.Empty(t, m.Snapshot().Progress)
}

func TestManager_DownloadFailures(t *testing.T) {
	ctx := context.Background()
	ep := testEpisode("e1")

	tests := []struct {
		name     string
		result   *download.Result
		fetchErr error
		putErr   error
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "network error",
			fetchErr: errors.New("connection reset"),
			wantCode: apperrors.ErrCodeDownloadFetch,
		},
		{
			name:     "empty payload",
			result:   audio(""),
			wantCode: apperrors.ErrCodeDownloadFetch,
		},
		{
			name:     "storage write",
			result:   audio("payload"),
			putErr:   apperrors.StorageWriteError("e1", errors.New("disk full")),
			wantCode: apperrors.ErrCodeStorageWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &MockFetcher{}
			fetcher.On("Fetch", mock.Anything, ep.AudioURL, mock.Anything).Return(tt.result, tt.fetchErr)

			library := &MockLibrary{}
			library.On("Put", mock.Anything, ep, mock.Anything, mock.Anything).Return(tt.putErr)

			notices := &notice.Recorder{}
			m := NewManager(library, fetcher, notices)

			err := m.Download(ctx, ep)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tt.wantCode))

			snap := m.Snapshot()
			assert.Empty(t, snap.Progress)
			assert.False(t, m.IsDownloaded("e1"))

			last, ok := notices.Last()
			require.True(t, ok)
			assert.Equal(t, notice.LevelError, last.Level)
			assert.Equal(t, tt.wantCode, last.Code)
			library.AssertNotCalled(t, "List", mock.Anything)
		})
	}
}

func TestManager_ProgressUpdates(t *testing.T) {
	ctx := context.Background()
	ep := testEpisode("e1")

	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, ep.AudioURL, mock.Anything).
		Run(func(args mock.Arguments) {
			progress := args.Get(2).(download.ProgressFunc)
			progress(25, 100)
			progress(10, 100) // never goes backwards
			progress(50, -1)  // unknown total is ignored
			progress(100, 100)
		}).
		Return(audio("payload"), nil)

	m := NewManager(newStore(t), fetcher, nil)

	var mu sync.Mutex
	var seen []int
	cancel := m.Subscribe(func(s Snapshot) {
		if pct, ok := s.Progress["e1"]; ok {
			mu.Lock()
			seen = append(seen, pct)
			mu.Unlock()
		}
	})
	defer cancel()

	require.NoError(t, m.Download(ctx, ep))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 25, 100}, seen)
	assert.Empty(t, m.Snapshot().Progress)
}

func TestManager_Delete(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Put(ctx, testEpisode("e1"), []byte("x"), ""))

	notices := &notice.Recorder{}
	m := NewManager(store, &MockFetcher{}, notices)
	require.NoError(t, m.Refresh(ctx))
	require.True(t, m.IsDownloaded("e1"))

	require.NoError(t, m.Delete(ctx, "e1"))
	assert.False(t, m.IsDownloaded("e1"))
	assert.Empty(t, m.Snapshot().Downloaded)

	// absent ids are not an error
	require.NoError(t, m.Delete(ctx, "e1"))
	require.NoError(t, m.Delete(ctx, "missing"))
	assert.Equal(t, 3, notices.Count(notice.LevelSuccess))
}

func TestManager_RefreshFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	stored := *models.NewStoredEpisode(testEpisode("e1"), []byte("x"), "")

	library := &MockLibrary{}
	library.On("List", mock.Anything).Return([]models.StoredEpisode{stored}, nil).Once()
	library.On("List", mock.Anything).Return(nil, apperrors.StorageUnavailable(errors.New("locked"))).Once()

	notices := &notice.Recorder{}
	m := NewManager(library, &MockFetcher{}, notices)
	assert.True(t, m.Snapshot().Loading)

	require.NoError(t, m.Refresh(ctx))
	err := m.Refresh(ctx)
	require.Error(t, err)

	snap := m.Snapshot()
	assert.False(t, snap.Loading)
	assert.Contains(t, snap.DownloadedIDs, "e1")
	assert.Equal(t, 1, notices.Count(notice.LevelError))
}

func TestManager_SubscribeCancel(t *testing.T) {
	m := NewManager(newStore(t), &MockFetcher{}, nil)

	calls := make(chan Snapshot, 4)
	cancel := m.Subscribe(func(s Snapshot) { calls <- s })

	require.NoError(t, m.Refresh(context.Background()))
	select {
	case s := <-calls:
		assert.False(t, s.Loading)
	case <-time.After(time.Second):
		t.Fatal("subscriber not notified")
	}

	cancel()
	require.NoError(t, m.Refresh(context.Background()))
	assert.Empty(t, calls)
}

// gatedLibrary holds the first List call until release is closed
type gatedLibrary struct {
	*offline.Store
	listed  chan struct{}
	release chan struct{}
	once    sync.Once
}

func (l *gatedLibrary) List(ctx context.Context) ([]models.StoredEpisode, error) {
	first := false
	l.once.Do(func() { first = true })
	if !first {
		return l.Store.List(ctx)
	}
	rows, err := l.Store.List(ctx)
	close(l.listed)
	<-l.release
	return rows, err
}

func TestManager_StaleRefreshDoesNotDropDownload(t *testing.T) {
	ctx := context.Background()
	ep := testEpisode("a")
	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, ep.AudioURL, mock.Anything).Return(audio("payload"), nil)

	library := &gatedLibrary{Store: newStore(t), listed: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(library, fetcher, nil)

	refreshed := make(chan error, 1)
	go func() { refreshed <- m.Refresh(ctx) }()
	<-library.listed

	require.NoError(t, m.Download(ctx, ep))
	assert.True(t, m.IsDownloaded("a"))

	close(library.release)
	require.NoError(t, <-refreshed)

	assert.True(t, m.IsDownloaded("a"))
	assert.Contains(t, m.Snapshot().DownloadedIDs, "a")

	require.NoError(t, m.Download(ctx, ep))
	fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestManager_UnreadableDownloadIsFetchedAgain(t *testing.T) {
	ctx := context.Background()
	ep := testEpisode("flipped")
	row := *models.NewStoredEpisode(ep, []byte("flipped audio"), "audio/mpeg")

	library := &MockLibrary{}
	library.On("List", mock.Anything).Return([]models.StoredEpisode{row}, nil)
	library.On("Get", mock.Anything, "flipped").Return(nil, offline.ErrNotFound).Once()
	library.On("Put", mock.Anything, ep, []byte("fresh audio"), "audio/mpeg").Return(nil)

	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, ep.AudioURL, mock.Anything).Return(audio("fresh audio"), nil)

	notices := &notice.Recorder{}
	m := NewManager(library, fetcher, notices)
	require.NoError(t, m.Refresh(ctx))
	require.True(t, m.IsDownloaded("flipped"))

	require.NoError(t, m.Download(ctx, ep))

	fetcher.AssertNumberOfCalls(t, "Fetch", 1)
	library.AssertCalled(t, "Put", mock.Anything, ep, []byte("fresh audio"), "audio/mpeg")
	assert.True(t, m.IsDownloaded("flipped"))
	last, ok := notices.Last()
	require.True(t, ok)
	assert.Equal(t, notice.LevelSuccess, last.Level)
}

func TestManager_SubscriberCanCallBack(t *testing.T) {
	ctx := context.Background()
	ep := testEpisode("e1")
	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, ep.AudioURL, mock.Anything).Return(audio("payload"), nil)

	m := NewManager(newStore(t), fetcher, nil)

	var mu sync.Mutex
	calls := 0
	var cancel func()
	cancel = m.Subscribe(func(s Snapshot) {
		mu.Lock()
		calls++
		mu.Unlock()
		_ = m.Snapshot()
		_ = m.IsDownloaded("e1")
		cancel()
	})

	done := make(chan error, 1)
	go func() { done <- m.Download(ctx, ep) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Download did not return")
	}

	assert.True(t, m.IsDownloaded("e1"))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}
