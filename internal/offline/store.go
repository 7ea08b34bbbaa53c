// Package offline persists downloaded episode audio keyed by episode id.
//
// Entries are validated on every read. A row whose payload no longer
// matches its recorded size and checksum is logged and treated as absent,
// so one damaged download never breaks the rest of the library.
package offline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gofrs/flock"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/killallgit/podcast-player/internal/database"
	"github.com/killallgit/podcast-player/internal/models"
	apperrors "github.com/killallgit/podcast-player/pkg/errors"
)

// Store is the offline audio library
type Store struct {
	path    string
	verbose bool

	group singleflight.Group

	mu     sync.RWMutex
	db     *database.DB
	lock   *flock.Flock
	closed bool
}

// NewStore creates a store backed by the SQLite file at path. Nothing is
// opened until the first operation or an explicit Open.
func NewStore(path string, verbose bool) *Store {
	return &Store{path: path, verbose: verbose}
}

// Open initializes the library. It is safe to call repeatedly and from
// concurrent goroutines: the first caller performs setup and the others
// wait for that same attempt. A failed attempt is not cached.
func (s *Store) Open(ctx context.Context) error {
	if _, err := s.conn(); err == nil || errors.Is(err, ErrClosed) {
		return err
	}

	ch := s.group.DoChan("open", func() (any, error) {
		if _, err := s.conn(); err == nil {
			return nil, nil
		}
		return nil, s.open()
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) open() error {
	var lock *flock.Flock
	if s.path != "" && s.path != database.MemoryPath {
		lock = flock.New(s.path + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			return apperrors.StorageUnavailable(fmt.Errorf("failed to lock offline library: %w", err))
		}
		if !locked {
			return apperrors.StorageUnavailable(ErrLocked)
		}
	}

	db, err := database.Initialize(s.path, s.verbose)
	if err == nil {
		err = db.AutoMigrate(&models.StoredEpisode{})
		if err != nil {
			_ = db.Close()
		}
	}
	if err != nil {
		if lock != nil {
			_ = lock.Unlock()
		}
		log.Printf("[ERROR] Failed to open offline library %s: %v", s.path, err)
		return apperrors.StorageUnavailable(err)
	}

	s.mu.Lock()
	s.db = db
	s.lock = lock
	s.mu.Unlock()

	log.Printf("[INFO] Offline library opened at %s", s.path)
	return nil
}

func (s *Store) conn() (*gorm.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.db == nil {
		return nil, apperrors.StorageUnavailable(errors.New("offline library not opened"))
	}
	return s.db.DB, nil
}

// ready opens the store on first use and returns the connection
func (s *Store) ready(ctx context.Context) (*gorm.DB, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	return db.WithContext(ctx), nil
}

// Put stores the episode and its audio, replacing any previous entry with
// the same id. The write is a single statement, so a failure leaves the
// previous state intact.
func (s *Store) Put(ctx context.Context, ep models.Episode, blob []byte, contentType string) error {
	if len(blob) == 0 {
		return apperrors.StorageWriteError(ep.ID, models.ErrEmptyAudio)
	}

	db, err := s.ready(ctx)
	if err != nil {
		return err
	}

	stored := models.NewStoredEpisode(ep, blob, contentType)
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(stored).Error
	if err != nil {
		log.Printf("[ERROR] Failed to save episode %s to offline library: %v", ep.ID, err)
		return apperrors.StorageWriteError(ep.ID, err)
	}

	log.Printf("[DEBUG] Stored episode %s (%d bytes)", ep.ID, stored.Size)
	return nil
}

// GetAll returns every usable entry in the library
func (s *Store) GetAll(ctx context.Context) ([]models.StoredEpisode, error) {
	db, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	var rows []models.StoredEpisode
	if err := db.Order("stored_at DESC").Find(&rows).Error; err != nil {
		return nil, apperrors.DatabaseError("list offline episodes", err)
	}

	valid := rows[:0]
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			log.Printf("[WARN] Skipping offline episode %s: %v", row.ID, err)
			continue
		}
		valid = append(valid, row)
	}
	return valid, nil
}

// List returns the library's metadata without loading audio payloads.
// Rows whose stored length disagrees with the recorded size are skipped.
func (s *Store) List(ctx context.Context) ([]models.StoredEpisode, error) {
	db, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	var rows []models.StoredEpisode
	err = db.Omit("audio_blob").
		Where("size > 0 AND length(audio_blob) = size").
		Order("stored_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.DatabaseError("list offline episodes", err)
	}
	return rows, nil
}

// Get returns one entry. Missing and damaged entries both yield ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*models.StoredEpisode, error) {
	db, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	var row models.StoredEpisode
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, apperrors.DatabaseError("get offline episode", err)
	}

	if err := row.Validate(); err != nil {
		log.Printf("[WARN] Offline episode %s is unusable: %v", id, err)
		return nil, ErrNotFound
	}
	return &row, nil
}

// Delete removes an entry. Deleting an absent id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	db, err := s.ready(ctx)
	if err != nil {
		return err
	}

	if err := db.Delete(&models.StoredEpisode{}, "id = ?", id).Error; err != nil {
		return apperrors.DatabaseError("delete offline episode", err)
	}
	return nil
}

// Close releases the database and the library lock
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.db != nil {
		err = s.db.Close()
		s.db = nil
	}
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
		s.lock = nil
	}
	return err
}
