// Package browser manages the Chrome session redveil curates: launch a
// local Chrome (or connect to a remote instance) via Rod, open the feed tab
// with stealth applied, and tear everything down on exit.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Mode controls how Chrome runs.
type Mode int

const (
	ModeHeadless Mode = iota
	ModeHeadful
)

func (m Mode) String() string {
	if m == ModeHeadless {
		return "headless"
	}
	return "headful"
}

// ParseMode maps a config string to a Mode. Unknown values mean headful:
// redveil curates a feed the user is looking at.
func ParseMode(s string) Mode {
	if s == "headless" {
		return ModeHeadless
	}
	return ModeHeadful
}

// Config configures the browser manager.
type Config struct {
	// Remote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	Remote string

	Mode Mode

	Logger *slog.Logger
}

// Manager owns the Chrome connection for one redveil session.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a Manager. Call Start to launch or connect.
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance) and returns the
// Rod browser handle.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}

	log := m.cfg.Logger
	var wsURL string

	if m.cfg.Remote != "" {
		wsURL = m.cfg.Remote
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New()
		if m.cfg.Mode == ModeHeadful {
			l = l.Headless(false)
		} else {
			l = l.Headless(true)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "mode", m.cfg.Mode)
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	m.browser = b
	return b, nil
}

// Browser returns the current Rod browser handle. Thread-safe.
func (m *Manager) Browser() *rod.Browser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser
}

// Close shuts down Chrome.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true

	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}
