package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ripeness/internal/logger"
	"ripeness/internal/model"
)

var (
	// ErrUploadNotFound is returned for unknown or evicted upload ids.
	ErrUploadNotFound = errors.New("upload not found")
	// ErrRunInProgress is returned when a run is already outstanding for an upload.
	ErrRunInProgress = errors.New("inference already running for this upload")
)

// Upload is an image held in memory together with its latest inference outcome.
type Upload struct {
	ID          string
	Filename    string
	Format      string
	Width       int
	Height      int
	Data        []byte
	CreatedAt   time.Time
	Settings    model.Settings
	Result      *model.InferenceResult
	Failure     error
	running     bool
	lastTouched time.Time
}

// Running reports whether a run was in flight when the snapshot was taken.
func (u Upload) Running() bool {
	return u.running
}

// UploadService keeps a bounded set of uploads in memory. Uploads expire
// after ttl; when the limit is reached the oldest upload is discarded.
type UploadService struct {
	uploads map[string]*Upload
	limit   int
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	logger  *logger.Logger
}

// NewUploadService creates a store holding at most limit uploads.
func NewUploadService(limit int, ttl time.Duration, logger *logger.Logger) *UploadService {
	if limit < 1 {
		limit = 1
	}
	return &UploadService{
		uploads: make(map[string]*Upload),
		limit:   limit,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// Run evicts expired uploads every interval until ctx is cancelled.
func (s *UploadService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.EvictExpired(); n > 0 {
				s.logger.Info("Evicted %d expired uploads", n)
			}
		}
	}
}

// Add stores a decoded image and returns a snapshot of the new upload.
func (s *UploadService) Add(data []byte, filename string, info ImageInfo) (Upload, error) {
	id, err := newID()
	if err != nil {
		return Upload{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.uploads) >= s.limit {
		s.evictOldestLocked()
	}

	now := s.now()
	upload := &Upload{
		ID:          id,
		Filename:    filename,
		Format:      info.Format,
		Width:       info.Width,
		Height:      info.Height,
		Data:        data,
		CreatedAt:   now,
		lastTouched: now,
	}
	s.uploads[id] = upload

	s.logger.Info("Stored upload %s (%s, %dx%d, %d bytes). Total: %d/%d", id, info.Format, info.Width, info.Height, len(data), len(s.uploads), s.limit)
	return *upload, nil
}

// Get returns a snapshot of the upload.
func (s *UploadService) Get(id string) (Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	upload, ok := s.uploads[id]
	if !ok {
		return Upload{}, ErrUploadNotFound
	}
	upload.lastTouched = s.now()
	return *upload, nil
}

// BeginRun marks the upload as running and clears its previous outcome.
// Only one run per upload may be outstanding.
func (s *UploadService) BeginRun(id string, settings model.Settings) (Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	upload, ok := s.uploads[id]
	if !ok {
		return Upload{}, ErrUploadNotFound
	}
	if upload.running {
		return Upload{}, ErrRunInProgress
	}

	upload.running = true
	upload.Settings = settings
	upload.Result = nil
	upload.Failure = nil
	upload.lastTouched = s.now()
	return *upload, nil
}

// FinishRun records the outcome of a run started with BeginRun. Outcomes for
// uploads evicted in the meantime are dropped.
func (s *UploadService) FinishRun(id string, result *model.InferenceResult, failure error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	upload, ok := s.uploads[id]
	if !ok {
		s.logger.Warning("Upload %s evicted before its run finished", id)
		return
	}
	upload.running = false
	upload.Result = result
	upload.Failure = failure
	upload.lastTouched = s.now()
}

// Delete discards an upload.
func (s *UploadService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.uploads[id]; !ok {
		return ErrUploadNotFound
	}
	delete(s.uploads, id)
	return nil
}

// Len returns the number of stored uploads.
func (s *UploadService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

// EvictExpired drops idle uploads older than the ttl and returns how many.
// Uploads with a run in flight are kept.
func (s *UploadService) EvictExpired() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	evicted := 0
	for id, upload := range s.uploads {
		if !upload.running && upload.lastTouched.Before(cutoff) {
			delete(s.uploads, id)
			evicted++
		}
	}
	return evicted
}

func (s *UploadService) evictOldestLocked() {
	ids := make([]string, 0, len(s.uploads))
	for id := range s.uploads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.uploads[ids[i]].lastTouched.Before(s.uploads[ids[j]].lastTouched)
	})

	oldest := ids[0]
	delete(s.uploads, oldest)
	s.logger.Info("Upload limit reached, discarded %s", oldest)
}

func newID() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate upload id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
