package notifier

import (
	"context"
	"log"
	"sync"

	"github.com/rl1809/click-n-sip/internal/core/domain"
	"github.com/rl1809/click-n-sip/internal/port"
)

const DefaultInboxSize = 50

// LogNotifier writes notifications to the standard logger.
type LogNotifier struct {
	SessionID string
}

func (l LogNotifier) Notify(ctx context.Context, n domain.Notification) {
	log.Printf("session %s: [%s] %s: %s", l.SessionID, n.Severity, n.Title, n.Message)
}

// Inbox buffers notifications until the rendering layer drains them.
// When full, the oldest entry is dropped.
type Inbox struct {
	mu    sync.Mutex
	size  int
	notes []domain.Notification
}

func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{size: size}
}

func (i *Inbox) Notify(ctx context.Context, n domain.Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.notes) == i.size {
		i.notes = i.notes[1:]
	}
	i.notes = append(i.notes, n)
}

// Drain returns the buffered notifications, oldest first, and empties the inbox.
func (i *Inbox) Drain() []domain.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.notes
	i.notes = nil
	return out
}

func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.notes)
}

// Multi delivers each notification to every sink in order.
type Multi []port.Notifier

func (m Multi) Notify(ctx context.Context, n domain.Notification) {
	for _, sink := range m {
		if sink != nil {
			sink.Notify(ctx, n)
		}
	}
}

// InboxSet keeps one Inbox per session id.
type InboxSet struct {
	mu      sync.Mutex
	size    int
	inboxes map[string]*Inbox
}

func NewInboxSet(size int) *InboxSet {
	return &InboxSet{size: size, inboxes: make(map[string]*Inbox)}
}

// For returns the inbox of sessionID, creating it on first use.
func (s *InboxSet) For(sessionID string) *Inbox {
	s.mu.Lock()
	defer s.mu.Unlock()
	inbox, ok := s.inboxes[sessionID]
	if !ok {
		inbox = NewInbox(s.size)
		s.inboxes[sessionID] = inbox
	}
	return inbox
}

func (s *InboxSet) Drain(sessionID string) []domain.Notification {
	s.mu.Lock()
	inbox, ok := s.inboxes[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return inbox.Drain()
}

func (s *InboxSet) Remove(sessionID string) {
	s.mu.Lock()
	delete(s.inboxes, sessionID)
	s.mu.Unlock()
}
