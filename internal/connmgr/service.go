package connmgr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"go.sqlitecore.dev/core/internal/dberrors"
	"go.sqlitecore.dev/core/internal/observer"
)

// Service is the process-wide registry mapping a database path to its
// Manager (spec.md §9 "Design Notes": "A process-wide mapping from db path
// to Connection Manager... accessed through a small service object, never
// as ambient global mutable state").
type Service struct {
	mu       sync.RWMutex
	managers map[string]*Manager

	baseDir        string
	metricsFactory func(path string) (Metrics, observer.BrokerMetrics)
	logger         *slog.Logger
}

// ServiceOption configures a Service at construction time.
type ServiceOption func(*Service)

// WithBaseDir sets the directory logical paths resolve against (spec.md
// §6 "Persisted state": "the application-config directory"). Defaults to
// the current working directory.
func WithBaseDir(dir string) ServiceOption {
	return func(s *Service) { s.baseDir = dir }
}

// WithMetricsFactory injects a constructor for the pool-occupancy and
// broker metrics sinks, called once per database so implementations can
// scope gauge label values (e.g. a "db" label) per identity.
func WithMetricsFactory(f func(path string) (Metrics, observer.BrokerMetrics)) ServiceOption {
	return func(s *Service) { s.metricsFactory = f }
}

// WithLogger injects a structured logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates an empty registry.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{managers: make(map[string]*Manager)}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// resolvePath joins a logical relative path against baseDir and ensures
// its containing directory exists (spec.md §4.A "load": "Resolves the
// database path, ensures containing directories exist").
func (s *Service) resolvePath(path string) (string, error) {
	full := path
	if s.baseDir != "" && !filepath.IsAbs(path) {
		full = filepath.Join(s.baseDir, path)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", dberrors.Wrap(dberrors.IOError, "create database directory", err)
	}
	return full, nil
}

// OnOpen is run once, immediately after a new Manager's writer connection
// is opened and before it becomes visible to any other caller. It is the
// hook the migration runner attaches to (spec.md §4.D: migrations run "on
// load"). Returning an error aborts the load: the freshly opened Manager
// is closed and nothing is registered (spec.md §4.A "no partial
// registration").
type OnOpen func(ctx context.Context, path string, mgr *Manager) error

// Load resolves path, opens (or returns the existing) Manager for it, and
// — only on a fresh open — invokes onOpen before the Manager becomes
// visible to Get/AcquireReader/AcquireWriter from any other caller.
// Idempotent: a second Load with an equivalent Config returns the
// existing Manager without calling onOpen again (spec.md §4.A "load",
// §8 invariant 6 "Idempotent load").
func (s *Service) Load(ctx context.Context, path string, cfg Config, onOpen OnOpen) (mgr *Manager, fresh bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.managers[path]; ok {
		if !existing.cfg.Equal(cfg) {
			return nil, false, dberrors.Newf(dberrors.AlreadyLoaded,
				"database %q is already loaded with a different configuration", path)
		}
		return existing, false, nil
	}

	resolved, err := s.resolvePath(path)
	if err != nil {
		return nil, false, err
	}

	var metrics Metrics
	var brokerMetrics observer.BrokerMetrics
	if s.metricsFactory != nil {
		metrics, brokerMetrics = s.metricsFactory(path)
	}

	dsn := fmt.Sprintf("file:%s", resolved)
	m, err := newManager(path, resolved, dsn, cfg, metrics, brokerMetrics, s.logger)
	if err != nil {
		return nil, false, err
	}

	if onOpen != nil {
		if err := onOpen(ctx, path, m); err != nil {
			_ = m.Close(context.Background())
			return nil, false, dberrors.Wrap(dberrors.MigrationFailed, "run migrations", err)
		}
	}

	s.managers[path] = m
	return m, true, nil
}

// Get returns the already-loaded Manager for path, if any.
func (s *Service) Get(path string) (*Manager, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.managers[path]
	return m, ok
}

// Close closes and unregisters path's Manager, reporting whether it had
// been loaded (spec.md §4.A "close").
func (s *Service) Close(ctx context.Context, path string) (bool, error) {
	s.mu.Lock()
	m, ok := s.managers[path]
	if ok {
		delete(s.managers, path)
	}
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, m.Close(ctx)
}

// CloseAll closes and unregisters every loaded database, used on
// server-wide shutdown (spec.md §4.B "A server-wide shutdown rolls back
// all live transactions and then drains the manager").
func (s *Service) CloseAll(ctx context.Context) error {
	s.mu.Lock()
	managers := s.managers
	s.managers = make(map[string]*Manager)
	s.mu.Unlock()

	var firstErr error
	for _, m := range managers {
		if err := m.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Remove closes path's Manager (if loaded) and deletes the main database
// file and its WAL/SHM/journal sidecars (spec.md §4.A "remove"). Reports
// dberrors.DatabaseNotLoaded if no identity was registered.
func (s *Service) Remove(ctx context.Context, path string) (bool, error) {
	s.mu.Lock()
	m, ok := s.managers[path]
	if ok {
		delete(s.managers, path)
	}
	s.mu.Unlock()
	if !ok {
		return false, dberrors.Newf(dberrors.DatabaseNotLoaded, "database %q is not loaded", path)
	}

	resolved, err := s.resolvePath(path)
	if err != nil {
		return false, err
	}
	if err := m.Close(ctx); err != nil {
		return false, err
	}

	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if err := os.Remove(resolved + suffix); err != nil && !os.IsNotExist(err) {
			return false, dberrors.Wrap(dberrors.IOError, "remove database file", err)
		}
	}
	return true, nil
}
