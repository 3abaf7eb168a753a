// Package session provides the durable per-thread conversation store.
//
// The in-memory map is authoritative: every mutation is visible to the next
// event on the same key immediately, while a debounced background task
// coalesces bursts of mutations into one atomic write of the session file.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/annai/internal/models"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("session store closed")

const (
	defaultSaveDelay = 500 * time.Millisecond
	defaultTTL       = time.Hour
)

// Store is the conversation state store keyed by (user, thread).
type Store interface {
	// Get returns a copy of the session for key. An absent or expired
	// session reads as a fresh idle one (the usage-log correlation handle
	// survives expiry so a trailing feedback action still attributes).
	Get(key models.SessionKey) models.Session
	// Update runs fn against the session for key under an exclusive
	// per-key section and refreshes the TTL timestamp. Concurrent updates
	// for different keys proceed in parallel.
	Update(key models.SessionKey, fn func(*models.Session)) error
	// Delete removes the session for key.
	Delete(key models.SessionKey) error
	// Flush performs any pending durable write immediately.
	Flush() error
	// Close flushes and releases the store.
	Close() error
}

// FileStore is a Store persisted as a single JSON file written atomically
// (temp file + rename).
type FileStore struct {
	path      string
	saveDelay time.Duration
	ttl       time.Duration
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions map[models.SessionKey]models.Session
	closed   bool

	lockMu   sync.Mutex
	keyLocks map[models.SessionKey]*sync.Mutex

	timerMu   sync.Mutex
	saveTimer *time.Timer
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithSaveDelay sets the debounce delay for durable writes.
func WithSaveDelay(d time.Duration) Option {
	return func(s *FileStore) { s.saveDelay = d }
}

// WithTTL sets the session time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(s *FileStore) { s.ttl = ttl }
}

// WithLogger sets a logger for persistence failures and load diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *FileStore) { s.logger = l }
}

// NewFileStore loads existing sessions from path (absence is fresh state),
// pruning entries older than the TTL.
func NewFileStore(path string, opts ...Option) (*FileStore, error) {
	s := &FileStore{
		path:      path,
		saveDelay: defaultSaveDelay,
		ttl:       defaultTTL,
		logger:    zap.NewNop(),
		sessions:  make(map[models.SessionKey]models.Session),
		keyLocks:  make(map[models.SessionKey]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no previous session file, starting fresh", zap.String("path", s.path))
			return nil
		}
		return fmt.Errorf("read session file: %w", err)
	}

	var raw map[string]models.Session
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse session file: %w", err)
	}

	loaded, pruned := 0, 0
	for k, sess := range raw {
		key, err := models.ParseSessionKey(k)
		if err != nil {
			s.logger.Warn("skipping malformed session key", zap.String("key", k))
			continue
		}
		if sess.Expired(s.ttl) {
			pruned++
			continue
		}
		s.sessions[key] = sess
		loaded++
	}
	s.logger.Info("sessions loaded",
		zap.String("path", s.path),
		zap.Int("loaded", loaded),
		zap.Int("pruned", pruned),
	)
	return nil
}

// keyLock returns the mutex serializing updates for key.
func (s *FileStore) keyLock(key models.SessionKey) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		s.keyLocks[key] = l
	}
	return l
}

// current returns the stored session for key with TTL applied, without
// mutating the store. Expired and absent sessions read as fresh idle
// sessions; the correlation handle is carried across expiry.
func (s *FileStore) current(key models.SessionKey) models.Session {
	sess, ok := s.sessions[key]
	if !ok {
		return *models.NewSession()
	}
	if sess.Expired(s.ttl) {
		fresh := *models.NewSession()
		fresh.LastLogID = sess.LastLogID
		return fresh
	}
	return sess
}

// Get implements Store.
func (s *FileStore) Get(key models.SessionKey) models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current(key)
}

// Update implements Store.
func (s *FileStore) Update(key models.SessionKey, fn func(*models.Session)) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	sess := s.current(key)
	s.mu.RUnlock()

	fn(&sess)
	sess.Touch()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.sessions[key] = sess
	s.mu.Unlock()

	s.scheduleSave()
	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(key models.SessionKey) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	delete(s.sessions, key)
	s.mu.Unlock()

	s.scheduleSave()
	return nil
}

// scheduleSave (re)arms the debounce timer; every mutation pushes the
// durable write out by the full delay so bursts coalesce into one write.
func (s *FileStore) scheduleSave() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(s.saveDelay, func() {
		if err := s.saveNow(); err != nil {
			// Best-effort: in-memory state stays correct and the next
			// mutation reschedules another attempt.
			s.logger.Error("session save failed", zap.Error(err))
		}
	})
}

// saveNow snapshots the session map and writes it atomically.
func (s *FileStore) saveNow() error {
	s.mu.RLock()
	snapshot := make(map[string]models.Session, len(s.sessions))
	for k, sess := range s.sessions {
		snapshot[k.String()] = sess
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename session file: %w", err)
	}
	return nil
}

// Flush implements Store.
func (s *FileStore) Flush() error {
	s.timerMu.Lock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	s.timerMu.Unlock()
	return s.saveNow()
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.Flush()
}
