// Package locator turns raw candidate subtrees reported by the in-page
// agent into identified posts. Discovery runs in three passes inside the
// page (direct selectors, then ascent from vote controls and comments
// links); this package deduplicates, validates, and resolves identity.
package locator

import (
	"log/slog"

	"github.com/redveil/redveil/agent"
	"github.com/redveil/redveil/config"
	"github.com/redveil/redveil/snapshot"
)

// Post is a discovered, validated, and identified post element.
type Post struct {
	Token   string
	ID      string
	Channel string
	Elem    *snapshot.Element
}

type Locator struct {
	th     snapshot.Thresholds
	logger *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *Locator {
	return &Locator{
		th: snapshot.Thresholds{
			MinPostHeight:       cfg.DOM.MinPostHeight,
			MinPostWidth:        cfg.DOM.MinPostWidth,
			ValidationMinHeight: cfg.DOM.ValidationMinHeight,
			ValidationMinWidth:  cfg.DOM.ValidationMinWidth,
			MaxTraversalDepth:   cfg.DOM.MaxTraversalDepth,
		},
		logger: logger,
	}
}

// Sift filters candidates down to identified posts. Candidates that fail
// parsing, validation, or identity resolution are skipped without error;
// unresolved elements stay unmarked in the page and are retried on the
// next scan. pagePath is the current document path, used as the channel
// fallback for layouts that omit a per-post subreddit link.
func (l *Locator) Sift(cands []agent.Candidate, pagePath string) []Post {
	seen := make(map[string]struct{}, len(cands))
	posts := make([]Post, 0, len(cands))
	for _, c := range cands {
		if _, dup := seen[c.Token]; dup {
			continue
		}
		seen[c.Token] = struct{}{}

		el, err := snapshot.Parse(c.HTML, c.Rect)
		if err != nil {
			l.logger.Debug("locator: unparseable candidate", "token", c.Token, "error", err)
			continue
		}
		if !snapshot.Valid(el, l.th) {
			continue
		}
		id, ok := snapshot.ResolveID(el)
		if !ok {
			l.logger.Debug("locator: unresolvable candidate", "token", c.Token)
			continue
		}
		channel, _ := snapshot.ResolveChannel(el, pagePath)
		posts = append(posts, Post{Token: c.Token, ID: id, Channel: channel, Elem: el})
	}
	return posts
}
