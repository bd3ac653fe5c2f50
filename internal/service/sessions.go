// Path: internal/service/sessions.go
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"sync"
	"time"

	"recipe-finder/internal/config"
	"recipe-finder/internal/domain"
	"recipe-finder/internal/events"
)

// Sessions keeps one Service per page load. Every load gets its own document,
// loop, result cache and dialog; favorites and the theme are shared through the
// key-value store.
type Sessions struct {
	cfg     config.ClientConfig
	kv      domain.KeyValueStore
	fetcher RecipeFetcher
	log     *slog.Logger
	idle    time.Duration
	limit   int
	now     func() time.Time

	mu    sync.Mutex
	ctx   context.Context
	pages map[string]*session
}

type session struct {
	svc      *Service
	lastSeen time.Time
}

// NewSessions creates the registry. Pages run until ctx is cancelled, they sit
// idle for cfg.SessionIdleMinutes, or they are evicted to stay under
// cfg.MaxSessions.
func NewSessions(ctx context.Context, cfg config.ClientConfig, kv domain.KeyValueStore,
	fetcher RecipeFetcher, log *slog.Logger) *Sessions {
	idle := time.Duration(cfg.SessionIdleMinutes) * time.Minute
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	limit := cfg.MaxSessions
	if limit <= 0 {
		limit = 100
	}
	return &Sessions{
		cfg:     cfg,
		kv:      kv,
		fetcher: fetcher,
		log:     log,
		idle:    idle,
		limit:   limit,
		now:     time.Now,
		ctx:     ctx,
		pages:   make(map[string]*session),
	}
}

// Open starts a fresh page and returns its token.
func (s *Sessions) Open(ctx context.Context) (string, *Service, error) {
	token, err := newToken()
	if err != nil {
		return "", nil, err
	}
	svc := NewService(ctx, s.cfg, s.kv, s.fetcher, events.NewBroker(), s.log.With("page", token[:8]))

	s.mu.Lock()
	if len(s.pages) >= s.limit {
		s.evictOldestLocked()
	}
	s.pages[token] = &session{svc: svc, lastSeen: s.now()}
	runCtx := s.ctx
	s.mu.Unlock()

	go func() {
		if err := svc.Start(runCtx); err != nil {
			s.log.Error("page: stopped with error", "error", err)
		}
	}()
	s.log.Debug("page: opened", "pages", s.Len())
	return token, svc, nil
}

// Lookup returns the page for token and marks it as seen.
func (s *Sessions) Lookup(token string) (*Service, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[token]
	if !ok {
		return nil, false
	}
	p.lastSeen = s.now()
	return p.svc, true
}

// Len returns the number of live pages.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// Reap stops every page idle for longer than the idle limit.
func (s *Sessions) Reap() int {
	cutoff := s.now().Add(-s.idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for token, p := range s.pages {
		if p.lastSeen.Before(cutoff) {
			s.dropLocked(token)
			n++
		}
	}
	return n
}

// Run reaps idle pages until ctx is cancelled, then stops all of them.
func (s *Sessions) Run(ctx context.Context) {
	ticker := time.NewTicker(s.idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.StopAll()
			return
		case <-ticker.C:
			if n := s.Reap(); n > 0 {
				s.log.Info("page: reaped idle pages", "count", n)
			}
		}
	}
}

// StopAll stops and forgets every page.
func (s *Sessions) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token := range s.pages {
		s.dropLocked(token)
	}
}

func (s *Sessions) evictOldestLocked() {
	var oldest string
	var at time.Time
	for token, p := range s.pages {
		if oldest == "" || p.lastSeen.Before(at) {
			oldest, at = token, p.lastSeen
		}
	}
	if oldest != "" {
		s.log.Warn("page: too many pages, evicting the least recent", "max", s.limit)
		s.dropLocked(oldest)
	}
}

func (s *Sessions) dropLocked(token string) {
	s.pages[token].svc.Stop()
	delete(s.pages, token)
}

func newToken() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
