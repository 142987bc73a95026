package session

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orvd/logviewer/internal/chart"
	"github.com/orvd/logviewer/internal/models"
	"github.com/orvd/logviewer/internal/page"
	"github.com/orvd/logviewer/internal/storage"
	"github.com/orvd/logviewer/internal/viewer"
	"github.com/rs/zerolog"
)

// MaxSessions limits concurrent viewer sessions; each holds a rendered chart.
const MaxSessions = 64

// SessionMaxAge is how long an idle session is kept before cleanup.
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow protects sessions accessed this recently from cleanup.
const SessionKeepAliveWindow = 5 * time.Minute

// Options configures the sessions created by a Manager.
type Options struct {
	Fetcher     viewer.Fetcher
	Store       storage.Store
	ChartWidth  int
	ChartHeight int
	Location    *time.Location
	TimeLayout  string
	MaxSessions int
	// BasePath prefixes the chart and file URLs handed to the page,
	// e.g. "/api/view".
	BasePath string
	Logger   zerolog.Logger
}

// Manager handles active viewer sessions.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	opts     Options
	nowFunc  func() time.Time
}

// Session is one browser's viewer: its controller, page and chart renderer.
type Session struct {
	ID         string
	CreatedAt  time.Time
	Controller *viewer.Controller
	Page       *page.Page
	Renderer   *chart.Renderer

	mu           sync.Mutex
	lastAccessed time.Time
}

// NewManager creates a session manager.
func NewManager(opts Options) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = MaxSessions
	}
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
		nowFunc:  time.Now,
	}
}

// Create starts a new session, evicting the least recently used one when
// the manager is at capacity.
func (m *Manager) Create() *Session {
	m.evictIfNeeded()

	now := m.nowFunc()
	id := uuid.New().String()
	renderer := chart.NewRenderer(m.opts.ChartWidth, m.opts.ChartHeight, m.opts.Location)
	pg := page.New(func(inst *chart.Instance) string {
		return m.opts.BasePath + "/chart.png?v=" + inst.ID
	})
	logger := m.opts.Logger.With().Str("session", id[:8]).Logger()

	s := &Session{
		ID:           id,
		CreatedAt:    now,
		Page:         pg,
		Renderer:     renderer,
		lastAccessed: now,
	}
	s.Controller = viewer.New(viewer.Deps{
		Fetcher:  m.opts.Fetcher,
		Display:  pg,
		Notifier: pg,
		Saver:    &downloadSaver{store: m.opts.Store, page: pg, basePath: m.opts.BasePath},
		Renderer: renderer,
	}, viewer.Options{
		Location:   m.opts.Location,
		TimeLayout: m.opts.TimeLayout,
		Logger:     logger,
	})

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	logger.Debug().Msg("viewer session created")
	return s
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	return s, ok
}

// GetOrCreate returns the session id, or a new one when it does not exist.
// The second result reports whether a session was created.
func (m *Manager) GetOrCreate(id string) (*Session, bool) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			s.touch(m.nowFunc())
			return s, false
		}
	}
	return m.Create(), true
}

// Touch updates the LastAccessed timestamp for a session.
func (m *Manager) Touch(id string) bool {
	s, ok := m.Get(id)
	if !ok {
		return false
	}
	s.touch(m.nowFunc())
	return true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns the sessions, most recently used first.
func (m *Manager) List() []models.ViewerSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]models.ViewerSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s.Info())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].LastAccessed.After(list[j].LastAccessed)
	})
	return list
}

// CleanupOldSessions removes sessions idle for longer than maxAge, but keeps
// sessions accessed within SessionKeepAliveWindow. It returns the number of
// sessions removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-SessionKeepAliveWindow)

	removed := 0
	for id, s := range m.sessions {
		last := s.LastAccessed()
		if last.After(keepAliveCutoff) || !last.Before(cutoff) {
			continue
		}
		s.Close()
		delete(m.sessions, id)
		removed++
		m.opts.Logger.Debug().Str("session", id[:8]).
			Dur("idle", now.Sub(last).Round(time.Second)).
			Msg("cleaned up idle session")
	}
	return removed
}

// Run cleans up idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.CleanupOldSessions(maxAge); n > 0 {
				m.opts.Logger.Info().Int("removed", n).Int("active", m.Len()).Msg("session cleanup")
			}
		}
	}
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
	}
}

// evictIfNeeded removes least recently used sessions until there is room
// for one more.
func (m *Manager) evictIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < m.opts.MaxSessions {
		return
	}

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.sessions[ids[i]].LastAccessed().Before(m.sessions[ids[j]].LastAccessed())
	})

	toFree := len(m.sessions) - m.opts.MaxSessions + 1
	for _, id := range ids[:toFree] {
		m.sessions[id].Close()
		delete(m.sessions, id)
		m.opts.Logger.Debug().Str("session", id[:8]).Msg("evicted session to make room")
	}
}

// LastAccessed returns when the session was last used.
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// Info describes the session.
func (s *Session) Info() models.ViewerSession {
	return models.ViewerSession{
		ID:           s.ID,
		Region:       s.Controller.Region(),
		CreatedAt:    s.CreatedAt,
		LastAccessed: s.LastAccessed(),
	}
}

// Close cancels in-flight requests, destroys the chart and ends page
// subscriptions.
func (s *Session) Close() {
	s.Controller.Close()
	s.Page.Close()
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.touch(time.Now())
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccessed = now
	s.mu.Unlock()
}

// downloadSaver saves a downloaded file to the store and offers it on the
// page, which makes the browser fetch it as an attachment.
type downloadSaver struct {
	store    storage.Store
	page     *page.Page
	basePath string
}

func (d *downloadSaver) SaveFile(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := d.store.Save(name, r)
	if err != nil {
		return err
	}
	d.page.OfferDownload(page.Download{
		FileID: info.ID,
		Name:   info.Name,
		URL:    d.basePath + "/files/" + info.ID,
	})
	return nil
}
