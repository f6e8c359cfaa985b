package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// Tab wraps the Rod page redveil operates on.
type Tab struct {
	Page *rod.Page
}

// OpenTab creates a stealth tab and navigates it to pageURL.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{Page: page}, nil
}

// CurrentURL reports the page's current location (client-side navigations
// included).
func (t *Tab) CurrentURL(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(`() => location.href`)
	if err != nil {
		return "", fmt.Errorf("browser: current url: %w", err)
	}
	return res.Value.Str(), nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
