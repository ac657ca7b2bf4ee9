package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Session is one user's workflow: the option store, the selected file and
// the request state. It is safe for concurrent use. At most one submission
// is in flight at a time; overlapping submits are rejected at entry.
type Session struct {
	id          string
	cleaner     Cleaner
	legacy      bool
	maxFileSize int64
	logger      *slog.Logger
	now         func() time.Time

	mu    sync.Mutex
	store *OptionStore
	file  *SelectedFile
	state RequestState
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLegacyEndpoint routes invoices to the unified /api/clean endpoint.
func WithLegacyEndpoint(legacy bool) SessionOption {
	return func(s *Session) { s.legacy = legacy }
}

// WithMaxFileSize caps the size of files accepted by SelectFile.
func WithMaxFileSize(n int64) SessionOption {
	return func(s *Session) { s.maxFileSize = n }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession creates an idle session in invoices mode with default options.
func NewSession(id string, cleaner Cleaner, opts ...SessionOption) *Session {
	s := &Session{
		id:          id,
		cleaner:     cleaner,
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
		now:         time.Now,
		store:       NewOptionStore(),
		state:       RequestState{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", id)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Submit sends the selected file with the current mode and options.
//
// If a submission is already in flight Submit returns ErrSubmitInFlight and
// changes nothing. Otherwise any prior outcome is discarded and the state
// becomes in flight until the service answers. Without a selected file the
// state becomes failed with ErrNoFileSelected and no request is sent.
//
// The outbound call ignores cancellation of ctx; it runs until the service
// answers or the client times out. The returned error is the one recorded
// in the state.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Phase == PhaseInFlight {
		s.mu.Unlock()
		s.logger.Debug("submit ignored, already in flight")
		return ErrSubmitInFlight
	}

	started := s.now()
	s.state = RequestState{Phase: PhaseInFlight, StartedAt: started}

	if s.file == nil {
		s.state = RequestState{
			Phase:      PhaseFailed,
			Err:        ErrNoFileSelected,
			StartedAt:  started,
			FinishedAt: s.now(),
		}
		s.mu.Unlock()
		s.logger.Info("submit rejected", "error", ErrNoFileSelected)
		return ErrNoFileSelected
	}

	req := s.requestLocked()
	s.mu.Unlock()

	logger := s.logger.With("mode", req.Mode, "path", req.Path, "file", req.File.Name)
	logger.Info("submission started", "query", req.Query.Encode(), "size", len(req.File.Data))

	result, err := s.cleaner.Clean(context.WithoutCancel(ctx), req)

	s.mu.Lock()
	defer s.mu.Unlock()

	finished := s.now()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			var te *TransportError
			if !errors.As(err, &te) {
				err = NewNetworkError(err)
			}
		}
		s.state = RequestState{Phase: PhaseFailed, Err: err, StartedAt: started, FinishedAt: finished}
		logger.Warn("submission failed",
			"kind", Kind(err),
			"error", err,
			"duration_ms", finished.Sub(started).Milliseconds(),
		)
		return err
	}

	s.state = RequestState{Phase: PhaseSucceeded, Result: &result, StartedAt: started, FinishedAt: finished}
	logger.Info("submission succeeded",
		"has_download", result.DownloadToken != "",
		"has_share", result.ShareURL != "",
		"duration_ms", finished.Sub(started).Milliseconds(),
	)
	return nil
}

// Request returns the request a submit would send right now.
func (s *Session) Request() (CleanRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return CleanRequest{}, ErrNoFileSelected
	}
	return s.requestLocked(), nil
}

func (s *Session) requestLocked() CleanRequest {
	mode := s.store.Mode()
	return CleanRequest{
		Mode:  mode,
		Path:  mode.CleanPath(s.legacy),
		Query: s.store.Options().Query(mode),
		File:  s.file,
	}
}

// State returns the current request state.
func (s *Session) State() RequestState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SelectFile validates and stores a file, replacing any previous selection.
// On error the previous selection is kept.
func (s *Session) SelectFile(name string, data []byte) (*SelectedFile, error) {
	f, err := NewSelectedFile(name, data, s.maxFileSize)
	if err != nil {
		s.logger.Info("file rejected", "file", name, "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.file = f
	s.mu.Unlock()

	s.logger.Info("file selected", "file", f.Name, "kind", f.Info.Kind, "rows", f.Info.Rows)
	return f, nil
}

// ClearFile drops the current selection.
func (s *Session) ClearFile() {
	s.mu.Lock()
	s.file = nil
	s.mu.Unlock()
}

// File returns the current selection, or nil.
func (s *Session) File() *SelectedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file
}

// Update runs fn against the option store while holding the session lock.
// fn must not call back into the session.
func (s *Session) Update(fn func(*OptionStore)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.store)
}

// SetMode switches the processing mode.
func (s *Session) SetMode(m Mode) {
	s.Update(func(o *OptionStore) { o.SetMode(m) })
}

// Mode returns the active processing mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Mode()
}

// Options returns a copy of the current option set.
func (s *Session) Options() OptionSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Options()
}

// Snapshot is a consistent view of the session for rendering.
type Snapshot struct {
	ID       string
	Mode     Mode
	Options  OptionSet
	FileName string
	File     *FileInfo
	State    RequestState
}

// Snapshot returns everything a presenter needs, read under one lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:      s.id,
		Mode:    s.store.Mode(),
		Options: s.store.Options(),
		State:   s.state,
	}
	if s.file != nil {
		info := s.file.Info
		snap.FileName = s.file.Name
		snap.File = &info
	}
	return snap
}
