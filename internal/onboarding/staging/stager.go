package staging

import (
	"sync"

	stderrors "sme-onboarding/internal/common/errors"
	"sme-onboarding/internal/common/logger"
	"sme-onboarding/internal/common/metrics"
	"sme-onboarding/internal/common/validation"

	"github.com/google/uuid"
)

// Stager validates selected files and tracks live preview handles.
type Stager struct {
	defaults validation.FileOptions
	logger   logger.Logger

	mu      sync.Mutex
	handles map[string]*File
}

func NewStager(defaults validation.FileOptions, log logger.Logger) *Stager {
	return &Stager{
		defaults: defaults,
		logger:   log.WithFields(map[string]interface{}{"component": "staging"}),
		handles:  make(map[string]*File),
	}
}

// Defaults returns the options applied when a slot has no declaration.
func (s *Stager) Defaults() validation.FileOptions {
	return s.defaults
}

// Accept applies the acceptance contract. On success it returns a copy of
// f carrying a fresh preview handle; on rejection nothing is registered.
func (s *Stager) Accept(f *File, opts validation.FileOptions) (*File, *stderrors.StandardError) {
	if stdErr := validation.ValidateFile(f.Name, f.ContentType, f.Size, opts); stdErr != nil {
		metrics.FileRejections.WithLabelValues(string(stdErr.Code)).Inc()
		s.logger.Info("File rejected", map[string]interface{}{
			"file":  f.Name,
			"size":  f.Size,
			"type":  f.ContentType,
			"error": stdErr.Message,
		})
		return nil, stdErr
	}

	staged := f.clone()
	staged.Handle = uuid.NewString()

	s.mu.Lock()
	s.handles[staged.Handle] = staged
	s.mu.Unlock()

	s.logger.Debug("File staged", map[string]interface{}{
		"file":   staged.Name,
		"handle": staged.Handle,
	})
	return staged, nil
}

// Lookup resolves a live handle.
func (s *Stager) Lookup(handle string) (*File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.handles[handle]
	return f, ok
}

// Release invalidates a handle. Releasing an unknown handle is a no-op.
func (s *Stager) Release(handle string) {
	if handle == "" {
		return
	}
	s.mu.Lock()
	delete(s.handles, handle)
	s.mu.Unlock()
}

// ReleaseAll invalidates every handle.
func (s *Stager) ReleaseAll() {
	s.mu.Lock()
	s.handles = make(map[string]*File)
	s.mu.Unlock()
}

// Live reports the number of outstanding handles.
func (s *Stager) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}
