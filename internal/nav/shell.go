// Package nav is the navigation shell: it runs every route change through
// the guard, follows redirects and decides which side menu entries to show.
package nav

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/khutwa-dev/khutwa/internal/guard"
	"github.com/khutwa-dev/khutwa/internal/models"
	"github.com/khutwa-dev/khutwa/internal/session"
)

// maxEvaluations bounds redirect following. The route table guarantees that
// login and home are terminal, so two evaluations always suffice.
const maxEvaluations = 3

// SessionSource is the part of the session store the shell needs
type SessionSource interface {
	Snapshot() session.Snapshot
	ClearSession() error
	OnExternalChange(fn func()) func()
}

// Outcome is the result of one navigation
type Outcome struct {
	Requested     string            `json:"requested"`
	Path          string            `json:"path"`
	Pattern       string            `json:"pattern,omitempty"`
	Params        map[string]string `json:"params,omitempty"`
	Steps         []guard.Verdict   `json:"steps"`
	Authenticated bool              `json:"authenticated"`
	Identity      *models.Identity  `json:"identity,omitempty"`
	ShowMenu      bool              `json:"show_menu"`
	Menu          Menu              `json:"menu,omitempty"`
}

// Redirected reports whether the guard sent the user somewhere else
func (o Outcome) Redirected() bool {
	return len(o.Steps) > 1
}

// Shell tracks the current location of one console (a CLI session or one
// browser tab)
type Shell struct {
	sessions SessionSource
	table    *guard.Table
	menu     Menu
	logger   zerolog.Logger

	mu        sync.Mutex
	location  string
	nextID    int
	listeners map[int]func(Outcome)
}

// NewShell creates a shell with no current location
func NewShell(sessions SessionSource, table *guard.Table, menu Menu, logger zerolog.Logger) *Shell {
	return &Shell{
		sessions:  sessions,
		table:     table,
		menu:      menu,
		logger:    logger.With().Str("component", "nav").Logger(),
		listeners: make(map[int]func(Outcome)),
	}
}

// Table returns the route table the shell guards with
func (s *Shell) Table() *guard.Table {
	return s.table
}

// Location returns the path of the last allowed navigation
func (s *Shell) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// Navigate evaluates p against the current session, following redirects
// until a route is allowed, and makes the final route the current location
func (s *Shell) Navigate(p string) Outcome {
	snap := s.sessions.Snapshot()
	out := s.resolve(p, snap)

	s.mu.Lock()
	s.location = out.Path
	listeners := make([]func(Outcome), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	if out.Redirected() {
		s.logger.Debug().
			Str("requested", out.Requested).
			Str("path", out.Path).
			Msg("Navigation redirected")
	}

	for _, fn := range listeners {
		fn(out)
	}
	return out
}

// Redirect navigates to p, discarding the outcome; listeners still observe it
func (s *Shell) Redirect(p string) {
	s.Navigate(p)
}

func (s *Shell) resolve(p string, snap session.Snapshot) Outcome {
	out := Outcome{
		Requested:     guard.NormalizePath(p),
		Authenticated: snap.HasToken(),
		Identity:      snap.Identity,
	}

	target := out.Requested
	for i := 0; i < maxEvaluations; i++ {
		v := s.table.Evaluate(target, snap.HasToken(), snap.Role())
		out.Steps = append(out.Steps, v)
		if v.Decision == guard.Allow {
			out.Path = v.Path
			out.Pattern = v.Match.Pattern
			out.Params = v.Match.Params
			break
		}
		target = v.Decision.Target()
		out.Path = target
	}

	out.ShowMenu = snap.HasToken() && snap.Identity != nil
	if out.ShowMenu {
		out.Menu = s.menu.Visible(snap.Role())
	}
	return out
}

// Menu returns the side menu for the current session, or nil when the menu
// is hidden
func (s *Shell) Menu() Menu {
	snap := s.sessions.Snapshot()
	if !snap.HasToken() || snap.Identity == nil {
		return nil
	}
	return s.menu.Visible(snap.Role())
}

// OnNavigate registers fn for every navigation, including forced ones
func (s *Shell) OnNavigate(fn func(Outcome)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Watch re-evaluates the current location whenever another console changes
// the session and hands the new outcome to fn
func (s *Shell) Watch(fn func(Outcome)) func() {
	return s.sessions.OnExternalChange(func() {
		location := s.Location()
		if location == "" {
			location = guard.HomePath
		}
		fn(s.Navigate(location))
	})
}

// Logout clears the session and navigates to the login route. The API
// client's 401 handling goes through the same two steps.
func (s *Shell) Logout() (Outcome, error) {
	if err := s.sessions.ClearSession(); err != nil {
		return Outcome{}, err
	}
	return s.Navigate(guard.LoginPath), nil
}
