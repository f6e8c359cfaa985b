// Package visibility applies per-post display state in the page and keeps
// the side-table that maps element tokens to what is known about them.
// All methods are called from the session loop; the side-table is not
// safe for concurrent use.
package visibility

import (
	"context"
	"log/slog"

	"github.com/redveil/redveil/locator"
)

// Commander is the in-page command surface the controller drives. It is
// satisfied by *agent.Agent.
type Commander interface {
	ApplyNormal(ctx context.Context, token string) error
	ApplyHidden(ctx context.Context, token string) error
	ApplyBlocked(ctx context.Context, token, channel string) error
	Overlay(ctx context.Context, token string) error
	HoverOn(ctx context.Context, token string) error
	HoverOff(ctx context.Context, token string) error
	ShowUnhide(ctx context.Context, token string) error
	HideUnhide(ctx context.Context, token string) error
	Detach(ctx context.Context, token string) error
	DetachAll(ctx context.Context) error
}

type State int

const (
	Normal State = iota
	Hidden
	Blocked
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case Hidden:
		return "hidden"
	case Blocked:
		return "blocked"
	}
	return "unknown"
}

// TrackedPost is one side-table entry.
type TrackedPost struct {
	Token   string
	ID      string
	Channel string
	State   State
	Media   bool
}

type Controller struct {
	agent  Commander
	logger *slog.Logger
	posts  map[string]*TrackedPost
}

func New(a Commander, logger *slog.Logger) *Controller {
	return &Controller{
		agent:  a,
		logger: logger,
		posts:  make(map[string]*TrackedPost),
	}
}

func (c *Controller) Get(token string) (*TrackedPost, bool) {
	p, ok := c.posts[token]
	return p, ok
}

// ForEach visits every tracked post. The visitor must not mutate the
// side-table; collect tokens and call state methods afterwards.
func (c *Controller) ForEach(visit func(*TrackedPost)) {
	for _, p := range c.posts {
		visit(p)
	}
}

func (c *Controller) Len() int { return len(c.posts) }

// TrackNormal registers a post in its default interactive state. Media
// posts get a transparent overlay so that background clicks reach the
// toggle handler instead of the embedded player chrome.
func (c *Controller) TrackNormal(ctx context.Context, p locator.Post, media bool) {
	c.track(p, Normal, media)
	if err := c.agent.ApplyNormal(ctx, p.Token); err != nil {
		c.logger.Warn("visibility: apply normal", "token", p.Token, "error", err)
	}
	if media {
		if err := c.agent.Overlay(ctx, p.Token); err != nil {
			c.logger.Warn("visibility: overlay", "token", p.Token, "error", err)
		}
	}
}

// TrackHidden registers a post already present in the hidden cache and
// dims it.
func (c *Controller) TrackHidden(ctx context.Context, p locator.Post, media bool) {
	c.track(p, Hidden, media)
	if err := c.agent.ApplyHidden(ctx, p.Token); err != nil {
		c.logger.Warn("visibility: apply hidden", "token", p.Token, "error", err)
	}
}

// TrackBlocked registers a post from a blocked channel and removes it
// from the layout. Blocked wins over hidden; callers check the blocked
// set first.
func (c *Controller) TrackBlocked(ctx context.Context, p locator.Post) {
	c.track(p, Blocked, false)
	if err := c.agent.ApplyBlocked(ctx, p.Token, p.Channel); err != nil {
		c.logger.Warn("visibility: apply blocked", "token", p.Token, "error", err)
	}
}

func (c *Controller) track(p locator.Post, s State, media bool) {
	c.posts[p.Token] = &TrackedPost{
		Token:   p.Token,
		ID:      p.ID,
		Channel: p.Channel,
		State:   s,
		Media:   media,
	}
}

// SetHidden transitions a tracked post to hidden. No-op for unknown
// tokens and for blocked posts.
func (c *Controller) SetHidden(ctx context.Context, token string) bool {
	p, ok := c.posts[token]
	if !ok || p.State == Blocked {
		return false
	}
	p.State = Hidden
	if err := c.agent.ApplyHidden(ctx, token); err != nil {
		c.logger.Warn("visibility: apply hidden", "token", token, "error", err)
	}
	return true
}

// SetNormal transitions a tracked post back to its interactive state.
func (c *Controller) SetNormal(ctx context.Context, token string) bool {
	p, ok := c.posts[token]
	if !ok || p.State == Blocked {
		return false
	}
	p.State = Normal
	if err := c.agent.ApplyNormal(ctx, token); err != nil {
		c.logger.Warn("visibility: apply normal", "token", token, "error", err)
	}
	if p.Media {
		if err := c.agent.Overlay(ctx, token); err != nil {
			c.logger.Warn("visibility: overlay", "token", token, "error", err)
		}
	}
	return true
}

// SetBlocked forces a tracked post into the blocked state, used when its
// channel joins the blocked set while the page is open.
func (c *Controller) SetBlocked(ctx context.Context, token string) bool {
	p, ok := c.posts[token]
	if !ok || p.State == Blocked {
		return false
	}
	p.State = Blocked
	if err := c.agent.ApplyBlocked(ctx, token, p.Channel); err != nil {
		c.logger.Warn("visibility: apply blocked", "token", token, "error", err)
	}
	return true
}

// Unblock returns a blocked post to view after its channel leaves the
// blocked set. The post lands hidden or normal depending on whether it
// is still in the hidden cache.
func (c *Controller) Unblock(ctx context.Context, token string, hidden bool) bool {
	p, ok := c.posts[token]
	if !ok || p.State != Blocked {
		return false
	}
	if hidden {
		p.State = Hidden
		if err := c.agent.ApplyHidden(ctx, token); err != nil {
			c.logger.Warn("visibility: apply hidden", "token", token, "error", err)
		}
		return true
	}
	p.State = Normal
	if err := c.agent.ApplyNormal(ctx, token); err != nil {
		c.logger.Warn("visibility: apply normal", "token", token, "error", err)
	}
	if p.Media {
		if err := c.agent.Overlay(ctx, token); err != nil {
			c.logger.Warn("visibility: overlay", "token", token, "error", err)
		}
	}
	return true
}

// HandleHover adjusts hover affordances. Hidden posts show the unhide
// button; normal posts get the hover emphasis.
func (c *Controller) HandleHover(ctx context.Context, token string, inside bool) {
	p, ok := c.posts[token]
	if !ok || p.State == Blocked {
		return
	}
	var err error
	switch {
	case p.State == Hidden && inside:
		err = c.agent.ShowUnhide(ctx, token)
	case p.State == Hidden:
		err = c.agent.HideUnhide(ctx, token)
	case inside:
		err = c.agent.HoverOn(ctx, token)
	default:
		err = c.agent.HoverOff(ctx, token)
	}
	if err != nil {
		c.logger.Debug("visibility: hover", "token", token, "error", err)
	}
}

// Forget detaches one post and drops its record. Safe to call for
// unknown tokens.
func (c *Controller) Forget(ctx context.Context, token string) {
	if _, ok := c.posts[token]; !ok {
		return
	}
	delete(c.posts, token)
	if err := c.agent.Detach(ctx, token); err != nil {
		c.logger.Debug("visibility: detach", "token", token, "error", err)
	}
}

// DropDead removes records whose elements have left the document. The
// elements are gone, so no in-page cleanup is attempted.
func (c *Controller) DropDead(tokens []string) {
	for _, tok := range tokens {
		delete(c.posts, tok)
	}
}

// Reset detaches everything and clears the side-table, used on
// navigation to a new document.
func (c *Controller) Reset(ctx context.Context) {
	if err := c.agent.DetachAll(ctx); err != nil {
		c.logger.Debug("visibility: detach all", "error", err)
	}
	c.posts = make(map[string]*TrackedPost)
}

// Clear drops the side-table without touching the page, used after the
// document itself has been replaced.
func (c *Controller) Clear() {
	c.posts = make(map[string]*TrackedPost)
}
