package locator

import (
	"io"
	"log/slog"
	"testing"

	"github.com/redveil/redveil/agent"
	"github.com/redveil/redveil/config"
	"github.com/redveil/redveil/snapshot"
)

func newLocator(t *testing.T) *Locator {
	t.Helper()
	return New(config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const postHTML = `<div data-testid="post-container" data-fullname="t3_abc123">
  <h3>A headline</h3>
  <a href="/r/golang/comments/abc123/a_headline/">120 comments</a>
  <button aria-label="upvote"></button>
</div>`

func TestSiftIdentifiesPost(t *testing.T) {
	l := newLocator(t)
	posts := l.Sift([]agent.Candidate{
		{Token: "1", HTML: postHTML, Rect: snapshot.Rect{Width: 640, Height: 220}},
	}, "/r/golang")
	if len(posts) != 1 {
		t.Fatalf("posts: got %d, want 1", len(posts))
	}
	if posts[0].ID != "t3_abc123" {
		t.Errorf("ID: got %q, want %q", posts[0].ID, "t3_abc123")
	}
	if posts[0].Channel != "golang" {
		t.Errorf("Channel: got %q, want %q", posts[0].Channel, "golang")
	}
}

func TestSiftDeduplicatesByToken(t *testing.T) {
	l := newLocator(t)
	c := agent.Candidate{Token: "1", HTML: postHTML, Rect: snapshot.Rect{Width: 640, Height: 220}}
	posts := l.Sift([]agent.Candidate{c, c, c}, "/r/golang")
	if len(posts) != 1 {
		t.Errorf("posts after dedup: got %d, want 1", len(posts))
	}
}

func TestSiftDropsTinyElements(t *testing.T) {
	l := newLocator(t)
	posts := l.Sift([]agent.Candidate{
		{Token: "1", HTML: postHTML, Rect: snapshot.Rect{Width: 40, Height: 5}},
	}, "/")
	if len(posts) != 0 {
		t.Errorf("posts: got %d, want 0 for sub-threshold rect", len(posts))
	}
}

func TestSiftDropsStructurelessElements(t *testing.T) {
	l := newLocator(t)
	posts := l.Sift([]agent.Candidate{
		{Token: "1", HTML: `<div><span>just text</span></div>`, Rect: snapshot.Rect{Width: 640, Height: 220}},
	}, "/")
	if len(posts) != 0 {
		t.Errorf("posts: got %d, want 0 for element with no post structure", len(posts))
	}
}

func TestSiftSkipsUnresolvable(t *testing.T) {
	// Valid structure (comments link) but no t3_ source and no title,
	// so no identity can be derived. It must be skipped, not reported.
	l := newLocator(t)
	posts := l.Sift([]agent.Candidate{
		{Token: "1", HTML: `<div><a href="/comments/">comments</a></div>`, Rect: snapshot.Rect{Width: 640, Height: 220}},
	}, "/")
	if len(posts) != 0 {
		t.Errorf("posts: got %d, want 0 for unresolvable element", len(posts))
	}
}

func TestSiftFallbackHashIdentity(t *testing.T) {
	l := newLocator(t)
	html := `<div data-testid="post-container">
	  <h3>No fullname anywhere</h3>
	  <a href="/user/someone">someone</a>
	  <button aria-label="upvote"></button>
	</div>`
	posts := l.Sift([]agent.Candidate{
		{Token: "1", HTML: html, Rect: snapshot.Rect{Width: 640, Height: 220}},
	}, "/")
	if len(posts) != 1 {
		t.Fatalf("posts: got %d, want 1", len(posts))
	}
	if posts[0].ID[:5] != "hash_" {
		t.Errorf("ID: got %q, want hash_ prefix", posts[0].ID)
	}
}
