// Package agent drives the in-page script over the Chrome DevTools Runtime
// binding. The script reports raw events and serialized candidate subtrees;
// all classification and policy lives on the Go side.
package agent

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/redveil/redveil/config"
	"github.com/redveil/redveil/idgen"
	"github.com/redveil/redveil/snapshot"
)

//go:embed agent.js
var agentJS string

// The discovery selectors handed to the in-page script. They are the CSS
// form of the attribute checks the snapshot package applies to serialized
// candidates, so both sides hunt for the same elements.
var (
	postSelectors = []string{
		`[data-testid="post-container"]`,
		`shreddit-post`,
		`.thing[data-fullname^="t3_"]`,
		`article[id^="t3_"]`,
		`[data-post-click-location]`,
		`[data-adclicklocation="background"]`,
		`div[id^="t3_"]`,
	}
	signalSelectors = []string{
		`[data-testid*="vote"], [aria-label*="vote" i], .arrow.up, button[aria-label*="upvote" i]`,
		`a[href*="/comments/"], [data-click-id="comments"]`,
		`h1, h2, h3, [slot="title"], a[data-click-id="body"]`,
		`a[href^="/user/"], a[href^="/u/"], [data-testid="post_author_link"]`,
	}
	voteAnchorSelector     = `[data-testid*="vote"], [aria-label*="vote" i], .arrow.up, button[aria-label*="upvote" i]`
	commentsAnchorSelector = `a[href*="/comments/"]`
	interactiveSelector    = `button, input, select, textarea, video, audio, iframe, embed, ` +
		`shreddit-player, shreddit-player-2, faceplate-partial, [controls], ` +
		`[role="button"], [role="slider"], [role="menu"], [role="menuitem"], ` +
		`[role="checkbox"], [role="textbox"], [data-testid*="vote"], ` +
		`[data-testid*="media"], [data-testid*="video"], .video-container`
)

const maxSnapshotBytes = 256 << 10

// Event is a decoded in-page report.
type Event struct {
	Type      string               `json:"type"`
	Token     string               `json:"token"`
	URL       string               `json:"url"`
	Inside    bool                 `json:"inside"`
	Combo     string               `json:"combo"`
	Prevented bool                 `json:"prevented"`
	Chain     []snapshot.ClickNode `json:"chain"`
}

// Candidate is one serialized post-candidate subtree.
type Candidate struct {
	Token string
	HTML  string
	Rect  snapshot.Rect
}

// Agent owns the binding channel to a single page.
type Agent struct {
	page    *rod.Page
	cfg     *config.Config
	logger  *slog.Logger
	binding string
	events  chan Event
	cancel  context.CancelFunc
}

func New(page *rod.Page, cfg *config.Config, logger *slog.Logger) *Agent {
	return &Agent{
		page:    page,
		cfg:     cfg,
		logger:  logger,
		binding: idgen.Prefixed("__rv_", idgen.NanoID(8))(),
		events:  make(chan Event, 256),
	}
}

// Events returns the stream of decoded in-page reports. The channel is
// buffered; if the consumer stalls, events are dropped with a warning
// rather than wedging the CDP session.
func (a *Agent) Events() <-chan Event {
	return a.events
}

// Inject installs the binding, starts the listener, and evaluates the
// in-page script with its configuration. Call once per document.
func (a *Agent) Inject(ctx context.Context) error {
	lctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := (proto.RuntimeAddBinding{Name: a.binding}).Call(a.page); err != nil {
		cancel()
		return fmt.Errorf("agent: add binding: %w", err)
	}

	go a.listen(lctx)

	setup, err := a.setupJSON()
	if err != nil {
		cancel()
		return err
	}
	if _, err := a.page.Context(ctx).Eval(
		fmt.Sprintf("() => { window.__rv_config = %s; }", setup),
	); err != nil {
		cancel()
		return fmt.Errorf("agent: install config: %w", err)
	}
	if _, err := a.page.Context(ctx).Eval("() => {" + agentJS + "}"); err != nil {
		cancel()
		return fmt.Errorf("agent: install script: %w", err)
	}
	return nil
}

// Reinject reruns the in-page installation after a document swap. The
// binding survives navigation; the script and its registry do not.
func (a *Agent) Reinject(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	return a.Inject(ctx)
}

func (a *Agent) setupJSON() (string, error) {
	setup := map[string]any{
		"binding":                a.binding,
		"postSelectors":          postSelectors,
		"signalSelectors":        signalSelectors,
		"voteAnchorSelector":     voteAnchorSelector,
		"commentsAnchorSelector": commentsAnchorSelector,
		"interactiveSelector":    interactiveSelector,
		"maxSnapshotBytes":       maxSnapshotBytes,
		"thresholds": map[string]any{
			"minPostHeight":     a.cfg.DOM.MinPostHeight,
			"minPostWidth":      a.cfg.DOM.MinPostWidth,
			"maxTraversalDepth": a.cfg.DOM.MaxTraversalDepth,
		},
		"visual": map[string]any{
			"hiddenOpacity": a.cfg.Visual.HiddenOpacity,
			"hoverOpacity":  a.cfg.Visual.HoverOpacity,
			"hoverScale":    a.cfg.Visual.HoverScale,
		},
	}
	raw, err := json.Marshal(setup)
	if err != nil {
		return "", fmt.Errorf("agent: marshal config: %w", err)
	}
	return string(raw), nil
}

func (a *Agent) listen(ctx context.Context) {
	wait := a.page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != a.binding {
			return
		}
		var ev Event
		if err := json.Unmarshal([]byte(e.Payload), &ev); err != nil {
			a.logger.Warn("agent: malformed event payload", "error", err)
			return
		}
		select {
		case a.events <- ev:
		default:
			a.logger.Warn("agent: event channel full, dropping", "type", ev.Type)
		}
	})
	wait()
}

type collectResult struct {
	Candidates []struct {
		Token string  `json:"token"`
		HTML  string  `json:"html"`
		W     float64 `json:"w"`
		H     float64 `json:"h"`
	} `json:"candidates"`
	Dead []string `json:"dead"`
}

// Collect runs the in-page discovery passes and returns the serialized
// candidates plus tokens whose elements have left the document.
func (a *Agent) Collect(ctx context.Context) ([]Candidate, []string, error) {
	res, err := a.page.Context(ctx).Eval("() => window.__redveil.collect()")
	if err != nil {
		return nil, nil, fmt.Errorf("agent: collect: %w", err)
	}
	var out collectResult
	if err := json.Unmarshal([]byte(res.Value.Str()), &out); err != nil {
		return nil, nil, fmt.Errorf("agent: decode collect result: %w", err)
	}
	cands := make([]Candidate, 0, len(out.Candidates))
	for _, c := range out.Candidates {
		cands = append(cands, Candidate{
			Token: c.Token,
			HTML:  c.HTML,
			Rect:  snapshot.Rect{Width: c.W, Height: c.H},
		})
	}
	return cands, out.Dead, nil
}

// PageURL reads the current document location.
func (a *Agent) PageURL(ctx context.Context) (string, error) {
	res, err := a.page.Context(ctx).Eval("() => location.href")
	if err != nil {
		return "", fmt.Errorf("agent: read location: %w", err)
	}
	return res.Value.Str(), nil
}

func (a *Agent) call(ctx context.Context, fn string, args ...any) error {
	_, err := a.page.Context(ctx).Eval(
		fmt.Sprintf("(...args) => window.__redveil.%s(...args)", fn), args...)
	if err != nil {
		return fmt.Errorf("agent: %s: %w", fn, err)
	}
	return nil
}

func (a *Agent) ApplyNormal(ctx context.Context, token string) error {
	return a.call(ctx, "applyNormal", token)
}

func (a *Agent) ApplyHidden(ctx context.Context, token string) error {
	return a.call(ctx, "applyHidden", token)
}

func (a *Agent) ApplyBlocked(ctx context.Context, token, channel string) error {
	return a.call(ctx, "applyBlocked", token, channel)
}

func (a *Agent) Overlay(ctx context.Context, token string) error {
	return a.call(ctx, "overlay", token)
}

func (a *Agent) HoverOn(ctx context.Context, token string) error {
	return a.call(ctx, "hoverOn", token)
}

func (a *Agent) HoverOff(ctx context.Context, token string) error {
	return a.call(ctx, "hoverOff", token)
}

func (a *Agent) ShowUnhide(ctx context.Context, token string) error {
	return a.call(ctx, "showUnhide", token)
}

func (a *Agent) HideUnhide(ctx context.Context, token string) error {
	return a.call(ctx, "hideUnhide", token)
}

func (a *Agent) Detach(ctx context.Context, token string) error {
	return a.call(ctx, "detach", token)
}

func (a *Agent) DetachAll(ctx context.Context) error {
	return a.call(ctx, "detachAll")
}

func (a *Agent) Toast(ctx context.Context, text string, isError bool) error {
	return a.call(ctx, "toast", text, isError, a.cfg.Timeouts.MessageDisplay.Milliseconds())
}
