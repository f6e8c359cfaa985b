package visibility

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/redveil/redveil/locator"
)

// fakeCommander records in-page commands instead of issuing them.
type fakeCommander struct {
	calls []string
}

func (f *fakeCommander) record(name, token string) error {
	f.calls = append(f.calls, name+":"+token)
	return nil
}

func (f *fakeCommander) ApplyNormal(_ context.Context, tok string) error {
	return f.record("normal", tok)
}
func (f *fakeCommander) ApplyHidden(_ context.Context, tok string) error {
	return f.record("hidden", tok)
}
func (f *fakeCommander) ApplyBlocked(_ context.Context, tok, ch string) error {
	return f.record("blocked", tok+":"+ch)
}
func (f *fakeCommander) Overlay(_ context.Context, tok string) error {
	return f.record("overlay", tok)
}
func (f *fakeCommander) HoverOn(_ context.Context, tok string) error {
	return f.record("hoverOn", tok)
}
func (f *fakeCommander) HoverOff(_ context.Context, tok string) error {
	return f.record("hoverOff", tok)
}
func (f *fakeCommander) ShowUnhide(_ context.Context, tok string) error {
	return f.record("showUnhide", tok)
}
func (f *fakeCommander) HideUnhide(_ context.Context, tok string) error {
	return f.record("hideUnhide", tok)
}
func (f *fakeCommander) Detach(_ context.Context, tok string) error {
	return f.record("detach", tok)
}
func (f *fakeCommander) DetachAll(_ context.Context) error {
	return f.record("detachAll", "")
}

func (f *fakeCommander) last() string {
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

func newController() (*Controller, *fakeCommander) {
	fake := &fakeCommander{}
	return New(fake, slog.New(slog.NewTextHandler(io.Discard, nil))), fake
}

func post(token, id, channel string) locator.Post {
	return locator.Post{Token: token, ID: id, Channel: channel}
}

func TestTrackNormal(t *testing.T) {
	c, fake := newController()
	c.TrackNormal(context.Background(), post("1", "t3_a", "golang"), false)

	p, ok := c.Get("1")
	if !ok || p.State != Normal {
		t.Fatalf("Get(1): got %+v, %v", p, ok)
	}
	if fake.last() != "normal:1" {
		t.Errorf("commands: got %v", fake.calls)
	}
}

func TestTrackNormalMediaGetsOverlay(t *testing.T) {
	c, fake := newController()
	c.TrackNormal(context.Background(), post("1", "t3_a", "golang"), true)
	if fake.last() != "overlay:1" {
		t.Errorf("commands: got %v, want overlay last", fake.calls)
	}
}

func TestToggleRoundTrip(t *testing.T) {
	c, fake := newController()
	ctx := context.Background()
	c.TrackNormal(ctx, post("1", "t3_a", "golang"), false)

	if !c.SetHidden(ctx, "1") {
		t.Fatal("SetHidden returned false for tracked post")
	}
	if p, _ := c.Get("1"); p.State != Hidden {
		t.Errorf("state after hide: got %v, want Hidden", p.State)
	}
	if !c.SetNormal(ctx, "1") {
		t.Fatal("SetNormal returned false for tracked post")
	}
	if p, _ := c.Get("1"); p.State != Normal {
		t.Errorf("state after unhide: got %v, want Normal", p.State)
	}
	if fake.last() != "normal:1" {
		t.Errorf("commands: got %v", fake.calls)
	}
}

func TestBlockedPostsIgnoreTransitions(t *testing.T) {
	c, _ := newController()
	ctx := context.Background()
	c.TrackBlocked(ctx, post("1", "t3_a", "spam"))

	if c.SetHidden(ctx, "1") {
		t.Error("SetHidden succeeded on blocked post")
	}
	if c.SetNormal(ctx, "1") {
		t.Error("SetNormal succeeded on blocked post")
	}
	if p, _ := c.Get("1"); p.State != Blocked {
		t.Errorf("state: got %v, want Blocked", p.State)
	}
}

func TestTransitionsOnUnknownToken(t *testing.T) {
	c, fake := newController()
	ctx := context.Background()
	if c.SetHidden(ctx, "nope") || c.SetNormal(ctx, "nope") {
		t.Error("transition succeeded on unknown token")
	}
	if len(fake.calls) != 0 {
		t.Errorf("commands issued for unknown token: %v", fake.calls)
	}
}

func TestHoverHiddenShowsUnhide(t *testing.T) {
	c, fake := newController()
	ctx := context.Background()
	c.TrackHidden(ctx, post("1", "t3_a", "golang"), false)

	c.HandleHover(ctx, "1", true)
	if fake.last() != "showUnhide:1" {
		t.Errorf("hover in: got %v", fake.calls)
	}
	c.HandleHover(ctx, "1", false)
	if fake.last() != "hideUnhide:1" {
		t.Errorf("hover out: got %v", fake.calls)
	}
}

func TestHoverNormalUsesEmphasis(t *testing.T) {
	c, fake := newController()
	ctx := context.Background()
	c.TrackNormal(ctx, post("1", "t3_a", "golang"), false)

	c.HandleHover(ctx, "1", true)
	if fake.last() != "hoverOn:1" {
		t.Errorf("hover in: got %v", fake.calls)
	}
	c.HandleHover(ctx, "1", false)
	if fake.last() != "hoverOff:1" {
		t.Errorf("hover out: got %v", fake.calls)
	}
}

func TestSetBlockedAndUnblock(t *testing.T) {
	c, fake := newController()
	ctx := context.Background()
	c.TrackNormal(ctx, post("1", "t3_a", "spam"), false)

	if !c.SetBlocked(ctx, "1") {
		t.Fatal("SetBlocked returned false for tracked post")
	}
	if fake.last() != "blocked:1:spam" {
		t.Errorf("commands: got %v", fake.calls)
	}
	if c.SetBlocked(ctx, "1") {
		t.Error("SetBlocked succeeded twice")
	}

	if !c.Unblock(ctx, "1", true) {
		t.Fatal("Unblock returned false for blocked post")
	}
	if p, _ := c.Get("1"); p.State != Hidden {
		t.Errorf("state after unblock with hidden=true: got %v, want Hidden", p.State)
	}
	if c.Unblock(ctx, "1", false) {
		t.Error("Unblock succeeded on non-blocked post")
	}
}

func TestForgetIsIdempotent(t *testing.T) {
	c, fake := newController()
	ctx := context.Background()
	c.TrackNormal(ctx, post("1", "t3_a", "golang"), false)

	c.Forget(ctx, "1")
	if _, ok := c.Get("1"); ok {
		t.Error("post still tracked after Forget")
	}
	n := len(fake.calls)
	c.Forget(ctx, "1")
	c.Forget(ctx, "never-seen")
	if len(fake.calls) != n {
		t.Errorf("repeat Forget issued commands: %v", fake.calls[n:])
	}
}

func TestDropDead(t *testing.T) {
	c, fake := newController()
	ctx := context.Background()
	c.TrackNormal(ctx, post("1", "t3_a", "golang"), false)
	c.TrackNormal(ctx, post("2", "t3_b", "golang"), false)

	n := len(fake.calls)
	c.DropDead([]string{"1", "ghost"})
	if c.Len() != 1 {
		t.Errorf("Len: got %d, want 1", c.Len())
	}
	if len(fake.calls) != n {
		t.Errorf("DropDead issued in-page commands: %v", fake.calls[n:])
	}
}

func TestReset(t *testing.T) {
	c, fake := newController()
	ctx := context.Background()
	c.TrackNormal(ctx, post("1", "t3_a", "golang"), false)
	c.TrackHidden(ctx, post("2", "t3_b", "golang"), false)

	c.Reset(ctx)
	if c.Len() != 0 {
		t.Errorf("Len after Reset: got %d, want 0", c.Len())
	}
	if fake.last() != "detachAll:" {
		t.Errorf("commands: got %v", fake.calls)
	}
}
