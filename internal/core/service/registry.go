package service

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rl1809/click-n-sip/internal/port"
)

// NotifierFactory returns the notification sink for a new session.
type NotifierFactory func(sessionID string) port.Notifier

// Registry owns the live sessions served by the transports.
type Registry struct {
	mu        sync.RWMutex
	catalog   *CatalogService
	opts      SessionOptions
	notifiers NotifierFactory
	sessions  map[string]*SessionService
}

func NewRegistry(catalog *CatalogService, notifiers NotifierFactory, opts SessionOptions) *Registry {
	return &Registry{
		catalog:   catalog,
		opts:      opts,
		notifiers: notifiers,
		sessions:  make(map[string]*SessionService),
	}
}

func (r *Registry) Create() *SessionService {
	id := uuid.NewString()
	sess := newSession(id, r.catalog, r.notifiers(id), r.opts)

	r.mu.Lock()
	r.sessions[sess.ID()] = sess
	r.mu.Unlock()
	return sess
}

func (r *Registry) Get(id string) (*SessionService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return sess, nil
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		sess.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops every session's pending order transitions.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*SessionService)
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}
