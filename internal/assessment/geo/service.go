package geo

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/common/logger"
)

// Loader produces the full dataset.
type Loader interface {
	Load(ctx context.Context) ([]GeoRecord, error)
}

// CSVFileLoader loads the dataset from a CSV file on disk.
type CSVFileLoader struct {
	Path   string
	Logger logger.Logger
}

func (l CSVFileLoader) Load(ctx context.Context) ([]GeoRecord, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, apperrors.NewDataUnavailableError("", fmt.Errorf("open geo dataset: %w", err))
	}
	defer f.Close()

	records, stats, err := LoadCSV(f, l.Logger)
	if err != nil {
		return nil, err
	}
	l.Logger.Info("geo dataset read", map[string]interface{}{
		"path":     l.Path,
		"accepted": stats.Accepted,
		"skipped":  stats.Skipped,
	})
	return records, nil
}

// StaticLoader serves a fixed slice, for tests and tools.
type StaticLoader []GeoRecord

func (s StaticLoader) Load(ctx context.Context) ([]GeoRecord, error) {
	return s, nil
}

// Service owns the process-wide index. It loads lazily on first use, keeps
// the index until Close, and does not remember a failed load so a later call
// can succeed once the data is available.
type Service struct {
	loader    Loader
	scanLimit int
	earlyExit float64
	logger    logger.Logger

	mu    sync.RWMutex
	index *Index
}

func NewService(loader Loader, scanLimit int, earlyExit float64, log logger.Logger) *Service {
	return &Service{
		loader:    loader,
		scanLimit: scanLimit,
		earlyExit: earlyExit,
		logger:    log,
	}
}

// Init loads the dataset if it is not loaded yet.
func (s *Service) Init(ctx context.Context) error {
	_, err := s.Index(ctx)
	return err
}

// Index returns the loaded index, loading it first if needed.
func (s *Service) Index(ctx context.Context) (*Index, error) {
	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()
	if idx != nil {
		return idx, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		return s.index, nil
	}

	start := time.Now()
	records, err := s.loader.Load(ctx)
	if err != nil {
		s.logger.Error("geo dataset load failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, asDataUnavailable(err)
	}

	s.index = NewIndex(records, s.scanLimit, s.earlyExit)
	s.logger.Info("geo index ready", map[string]interface{}{
		"records":   s.index.Len(),
		"scanLimit": s.scanLimit,
		"duration":  time.Since(start).String(),
	})
	return s.index, nil
}

// Loaded reports whether an index is currently held.
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index != nil
}

// Close drops the index. The next Index call reloads it.
func (s *Service) Close() error {
	s.mu.Lock()
	s.index = nil
	s.mu.Unlock()
	return nil
}

func asDataUnavailable(err error) error {
	if _, ok := apperrors.AsStandardError(err); ok {
		return err
	}
	return apperrors.NewDataUnavailableError("", err)
}
