// Package session is the coordinator: it owns the in-memory caches, the
// page lifecycle, and the single event loop that serializes every scan,
// input event, and store change. Nothing else mutates the side-table or
// the caches.
package session

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/redveil/redveil/agent"
	"github.com/redveil/redveil/config"
	"github.com/redveil/redveil/locator"
	"github.com/redveil/redveil/snapshot"
	"github.com/redveil/redveil/store"
	"github.com/redveil/redveil/visibility"
	"github.com/redveil/redveil/watcher"
)

// pageAgent is the slice of the in-page agent the session drives
// directly. Visual state goes through the visibility controller instead.
type pageAgent interface {
	Events() <-chan agent.Event
	Collect(ctx context.Context) ([]agent.Candidate, []string, error)
	PageURL(ctx context.Context) (string, error)
	Toast(ctx context.Context, text string, isError bool) error
	Reinject(ctx context.Context) error
}

// storage is the persistence surface the session needs.
type storage interface {
	LoadHidden(ctx context.Context, retention time.Duration, now time.Time) (map[string]store.PostRecord, error)
	PutHidden(ctx context.Context, rec store.PostRecord) error
	DeleteHidden(ctx context.Context, id string) error
	LoadBlockedSet(ctx context.Context) (map[string]bool, error)
	Subscribe() <-chan store.Change
}

type Session struct {
	cfg    *config.Config
	logger *slog.Logger
	st     storage
	ag     pageAgent
	loc    *locator.Locator
	vis    *visibility.Controller
	w      *watcher.Watcher

	hidden     map[string]store.PostRecord
	blocked    map[string]bool
	hoverToken string
	retention  time.Duration
}

func New(cfg *config.Config, logger *slog.Logger, st storage, ag pageAgent,
	loc *locator.Locator, vis *visibility.Controller, w *watcher.Watcher) *Session {
	return &Session{
		cfg:       cfg,
		logger:    logger,
		st:        st,
		ag:        ag,
		loc:       loc,
		vis:       vis,
		w:         w,
		hidden:    map[string]store.PostRecord{},
		blocked:   map[string]bool{},
		retention: time.Duration(cfg.Storage.CleanupDays) * 24 * time.Hour,
	}
}

// Run loads the caches, classifies the current page, and enters the
// event loop. It returns when ctx is cancelled or the agent's event
// stream closes.
func (s *Session) Run(ctx context.Context) error {
	s.loadCaches(ctx)
	changes := s.st.Subscribe()

	if rawURL, err := s.ag.PageURL(ctx); err != nil {
		s.logger.Warn("session: read page URL", "error", err)
		s.w.Pause()
	} else {
		s.classify(rawURL)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.ag.Events():
			if !ok {
				return nil
			}
			s.handleEvent(ctx, ev)
		case <-s.w.InitialC():
			idx := s.w.OnInitial()
			s.scan(ctx, "initial", idx)
		case <-s.w.DebounceC():
			s.w.OnDebounce()
			s.scan(ctx, "mutation", -1)
		case <-s.w.NavC():
			s.w.OnNav()
			s.logger.Debug("session: navigation settled")
		case ch := <-changes:
			s.onChange(ctx, ch)
		}
	}
}

// loadCaches pulls both persisted sets in parallel. A failed load leaves
// the corresponding cache empty: the page stays fully usable, nothing
// extra gets hidden, and the error is logged.
func (s *Session) loadCaches(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		hidden, err := s.st.LoadHidden(ctx, s.retention, time.Now())
		if err != nil {
			s.logger.Warn("session: load hidden cache", "error", err)
			return
		}
		s.hidden = hidden
	}()
	go func() {
		defer wg.Done()
		blocked, err := s.st.LoadBlockedSet(ctx)
		if err != nil {
			s.logger.Warn("session: load blocked cache", "error", err)
			return
		}
		s.blocked = blocked
	}()
	wg.Wait()
	s.logger.Info("session: caches loaded",
		"hidden", len(s.hidden), "blocked", len(s.blocked))
}

func (s *Session) classify(rawURL string) {
	if Curated(rawURL) {
		s.logger.Info("session: curated page", "url", rawURL)
		s.w.Activate()
		return
	}
	s.logger.Info("session: page not curated", "url", rawURL)
	s.w.Pause()
}

func (s *Session) handleEvent(ctx context.Context, ev agent.Event) {
	switch ev.Type {
	case "dirty":
		s.w.Dirty()
	case "nav":
		s.onNavigated(ev.URL)
	case "click":
		s.onClick(ctx, ev)
	case "hover":
		s.onHover(ctx, ev)
	case "unhide":
		s.onUnhide(ctx, ev.Token)
	case "key":
		s.onKey(ctx, ev)
	default:
		s.logger.Debug("session: unknown event", "type", ev.Type)
	}
}

func (s *Session) onNavigated(rawURL string) {
	s.logger.Info("session: in-page navigation", "url", rawURL)
	// The old document's elements are gone or about to be; drop the
	// side-table without issuing per-element cleanup.
	s.vis.Clear()
	s.hoverToken = ""
	if Curated(rawURL) {
		s.w.Navigated()
		return
	}
	s.w.Pause()
}

func (s *Session) onClick(ctx context.Context, ev agent.Event) {
	p, ok := s.vis.Get(ev.Token)
	if !ok || p.State == visibility.Blocked {
		return
	}
	decision := snapshot.DecideClick(ev.Chain)
	s.logger.Debug("session: click", "token", ev.Token,
		"decision", decision.String(), "prevented", ev.Prevented)
	if decision != snapshot.DecideToggle {
		return
	}
	s.toggle(ctx, p)
}

func (s *Session) onHover(ctx context.Context, ev agent.Event) {
	if ev.Inside {
		s.hoverToken = ev.Token
	} else if s.hoverToken == ev.Token {
		s.hoverToken = ""
	}
	s.vis.HandleHover(ctx, ev.Token, ev.Inside)
}

func (s *Session) onUnhide(ctx context.Context, token string) {
	p, ok := s.vis.Get(token)
	if !ok || p.State != visibility.Hidden {
		return
	}
	s.toggle(ctx, p)
}

func (s *Session) onKey(ctx context.Context, ev agent.Event) {
	switch ev.Combo {
	case "toggle":
		token := ev.Token
		if token == "" {
			token = s.hoverToken
		}
		if token == "" {
			return
		}
		if p, ok := s.vis.Get(token); ok && p.State != visibility.Blocked {
			s.toggle(ctx, p)
		}
	case "help":
		s.toast(ctx, "Ctrl+H: hide/unhide hovered post. Click a post background to toggle it.", false)
	}
}

// toggle flips a post between hidden and normal. The visual change is
// applied first; a persistence failure is surfaced but never rolls the
// visual state back.
func (s *Session) toggle(ctx context.Context, p *visibility.TrackedPost) {
	if p.State == visibility.Hidden {
		s.vis.SetNormal(ctx, p.Token)
		delete(s.hidden, p.ID)
		if err := s.st.DeleteHidden(ctx, p.ID); err != nil {
			s.logger.Error("session: persist unhide", "id", p.ID, "error", err)
			s.toast(ctx, "Could not save: post may reappear as hidden", true)
			return
		}
		s.toast(ctx, "Post unhidden", false)
		return
	}

	rec := store.PostRecord{ID: p.ID, HiddenAt: time.Now().UnixMilli()}
	s.vis.SetHidden(ctx, p.Token)
	s.hidden[p.ID] = rec
	if err := s.st.PutHidden(ctx, rec); err != nil {
		s.logger.Error("session: persist hide", "id", p.ID, "error", err)
		s.toast(ctx, "Could not save: post may reappear after reload", true)
		return
	}
	s.toast(ctx, "Post hidden", false)
}

// scan runs one full locate-classify-apply pass over the page.
func (s *Session) scan(ctx context.Context, reason string, idx int) {
	rawURL, err := s.ag.PageURL(ctx)
	if err != nil {
		s.logger.Warn("session: scan aborted, no page URL", "error", err)
		return
	}
	pagePath := ""
	if u, err := url.Parse(rawURL); err == nil {
		pagePath = u.Path
	}

	cands, dead, err := s.ag.Collect(ctx)
	if err != nil {
		// A full page load replaces the document and takes the injected
		// script with it. Reinstall and retry once before giving up.
		s.logger.Warn("session: collect failed, reinjecting", "reason", reason, "error", err)
		if rerr := s.ag.Reinject(ctx); rerr != nil {
			s.logger.Warn("session: reinject failed", "error", rerr)
			return
		}
		s.vis.Clear()
		cands, dead, err = s.ag.Collect(ctx)
		if err != nil {
			s.logger.Warn("session: collect failed after reinject", "reason", reason, "error", err)
			return
		}
	}
	s.vis.DropDead(dead)

	posts := s.loc.Sift(cands, pagePath)
	var hid, blk int
	for _, p := range posts {
		switch {
		// Channel blocking wins over per-post hiding.
		case p.Channel != "" && s.blocked[p.Channel]:
			s.vis.TrackBlocked(ctx, p)
			blk++
		case s.isHidden(p.ID):
			s.vis.TrackHidden(ctx, p, snapshot.HasMedia(p.Elem))
			hid++
		default:
			s.vis.TrackNormal(ctx, p, snapshot.HasMedia(p.Elem))
		}
	}
	s.logger.Debug("session: scan complete", "reason", reason, "index", idx,
		"candidates", len(cands), "posts", len(posts),
		"hidden", hid, "blocked", blk, "tracked", s.vis.Len())
}

func (s *Session) isHidden(id string) bool {
	_, ok := s.hidden[id]
	return ok
}

// onChange filters store notifications. Only blocked-channel changes
// come from another writer (the management API); the session's own
// hide/unhide writes already updated the caches, and reacting to them
// would rerun the load-time sweep on every toggle.
func (s *Session) onChange(ctx context.Context, ch store.Change) {
	if ch.Record != store.RecordBlocked {
		return
	}
	s.onStoreChange(ctx)
}

// onStoreChange reloads both caches and resweeps every tracked post so
// an external writer (the management API) takes effect on the open page
// without a reload.
func (s *Session) onStoreChange(ctx context.Context) {
	s.loadCaches(ctx)

	type shift struct {
		token string
		to    visibility.State
	}
	var shifts []shift
	s.vis.ForEach(func(p *visibility.TrackedPost) {
		blocked := p.Channel != "" && s.blocked[p.Channel]
		switch {
		case blocked && p.State != visibility.Blocked:
			shifts = append(shifts, shift{p.Token, visibility.Blocked})
		case !blocked && p.State == visibility.Blocked:
			if s.isHidden(p.ID) {
				shifts = append(shifts, shift{p.Token, visibility.Hidden})
			} else {
				shifts = append(shifts, shift{p.Token, visibility.Normal})
			}
		case !blocked && p.State == visibility.Normal && s.isHidden(p.ID):
			shifts = append(shifts, shift{p.Token, visibility.Hidden})
		case !blocked && p.State == visibility.Hidden && !s.isHidden(p.ID):
			shifts = append(shifts, shift{p.Token, visibility.Normal})
		}
	})

	for _, sh := range shifts {
		switch sh.to {
		case visibility.Blocked:
			s.vis.SetBlocked(ctx, sh.token)
		case visibility.Hidden:
			if p, ok := s.vis.Get(sh.token); ok && p.State == visibility.Blocked {
				s.vis.Unblock(ctx, sh.token, true)
			} else {
				s.vis.SetHidden(ctx, sh.token)
			}
		case visibility.Normal:
			if p, ok := s.vis.Get(sh.token); ok && p.State == visibility.Blocked {
				s.vis.Unblock(ctx, sh.token, false)
			} else {
				s.vis.SetNormal(ctx, sh.token)
			}
		}
	}
	if len(shifts) > 0 {
		s.logger.Info("session: resweep applied", "changes", len(shifts))
	}
}

func (s *Session) toast(ctx context.Context, text string, isErr bool) {
	if err := s.ag.Toast(ctx, text, isErr); err != nil {
		s.logger.Debug("session: toast", "error", err)
	}
}
