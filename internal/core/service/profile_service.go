package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rl1809/click-n-sip/internal/core/domain"
	"github.com/rl1809/click-n-sip/internal/port"
)

const minPasswordLength = 6

type ProfileSection struct {
	ID          string
	Title       string
	Subsections []string
}

var ProfileSections = []ProfileSection{
	{ID: "personal", Title: "Personal Data", Subsections: []string{"notifications", "transactions"}},
	{ID: "settings", Title: "Settings", Subsections: []string{"password", "theme", "language", "notification-settings"}},
	{ID: "other", Title: "Other Information", Subsections: []string{"contact", "about", "rate", "share", "faq", "terms", "policies", "logout"}},
}

// ProfileService is the navigation stack of the profile screen:
// empty at the profile root, then a section, then one of its subsections.
type ProfileService struct {
	mu       sync.Mutex
	notifier port.Notifier
	path     []string
}

func NewProfileService(notifier port.Notifier) *ProfileService {
	return &ProfileService{notifier: notifier}
}

func (p *ProfileService) Path() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.path...)
}

func (p *ProfileService) Reset() {
	p.mu.Lock()
	p.path = nil
	p.mu.Unlock()
}

func (p *ProfileService) OpenSection(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.path) != 0 {
		return fmt.Errorf("open section %q: %w", id, ErrInvalidTransition)
	}
	if findSection(id) == nil {
		return fmt.Errorf("open section %q: %w", id, ErrUnknownSection)
	}
	p.path = []string{id}
	return nil
}

func (p *ProfileService) OpenSubsection(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.path) != 1 {
		return fmt.Errorf("open subsection %q: %w", id, ErrInvalidTransition)
	}
	section := findSection(p.path[0])
	if !slices.Contains(section.Subsections, id) {
		return fmt.Errorf("open subsection %q: %w", id, ErrUnknownSection)
	}
	p.path = append(p.path, id)
	return nil
}

// Back pops one level. It returns false when already at the profile root,
// meaning the caller should leave the profile.
func (p *ProfileService) Back() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.path) == 0 {
		return false
	}
	p.path = p.path[:len(p.path)-1]
	return true
}

// ChangePassword validates the form of the change-password screen and
// returns to the settings section on success. Nothing is stored.
func (p *ProfileService) ChangePassword(ctx context.Context, current, next, confirm string) error {
	if current == "" || next == "" || confirm == "" {
		p.notifier.Notify(ctx, domain.Notification{
			Title:    "Missing Fields",
			Message:  "Please fill in all password fields.",
			Severity: domain.SeverityDestructive,
		})
		return ErrMissingFields
	}
	if next != confirm {
		p.notifier.Notify(ctx, domain.Notification{
			Title:    "Passwords Don't Match",
			Message:  "New password and confirmation don't match.",
			Severity: domain.SeverityDestructive,
		})
		return ErrPasswordMismatch
	}
	if len(next) < minPasswordLength {
		p.notifier.Notify(ctx, domain.Notification{
			Title:    "Password Too Short",
			Message:  fmt.Sprintf("Password must be at least %d characters long.", minPasswordLength),
			Severity: domain.SeverityDestructive,
		})
		return ErrPasswordTooShort
	}

	p.notifier.Notify(ctx, domain.Notification{
		Title:    "Password Changed",
		Message:  "Your password has been successfully updated.",
		Severity: domain.SeverityInfo,
	})

	p.mu.Lock()
	if len(p.path) == 2 && p.path[1] == "password" {
		p.path = p.path[:1]
	}
	p.mu.Unlock()
	return nil
}

func findSection(id string) *ProfileSection {
	for i := range ProfileSections {
		if ProfileSections[i].ID == id {
			return &ProfileSections[i]
		}
	}
	return nil
}
