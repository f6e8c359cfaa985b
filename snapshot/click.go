package snapshot

import "strings"

// ClickNode is one element on the path from a click target up to (and
// including) the post container, as reported by the in-page agent.
type ClickNode struct {
	Tag   string            `json:"tag"`
	Attrs map[string]string `json:"attrs"`
}

// Decision classifies a click inside a tracked post.
type Decision int

const (
	// DecideToggle: the click lands on post background; toggle hidden state.
	DecideToggle Decision = iota
	// DecideInteractive: the target is an interactive control; leave it alone.
	DecideInteractive
	// DecideComments: the target is a navigate-to-comments affordance.
	DecideComments
	// DecideNavigation: the target is a link; default navigation proceeds.
	DecideNavigation
)

func (d Decision) String() string {
	switch d {
	case DecideToggle:
		return "toggle"
	case DecideInteractive:
		return "interactive"
	case DecideComments:
		return "comments"
	case DecideNavigation:
		return "navigation"
	}
	return "unknown"
}

// interactive custom elements shipped by the host page whose internal click
// handling must never be hijacked.
var interactiveCustomTags = map[string]bool{
	"shreddit-player":   true,
	"shreddit-player-2": true,
	"gallery-carousel":  true,
	"faceplate-dropdown-menu": true,
	"faceplate-tracker":       false, // wraps arbitrary content, not itself interactive
}

// DecideClick evaluates the click policy over the target chain
// (target-first). Precedence is fixed: interactive-element check, then
// comments-affordance check, then navigation-allow, otherwise toggle.
func DecideClick(chain []ClickNode) Decision {
	for _, n := range chain {
		if isInteractive(n) {
			return DecideInteractive
		}
	}
	for _, n := range chain {
		if isCommentsAffordance(n) {
			return DecideComments
		}
	}
	for _, n := range chain {
		if isNavigationAllowed(n) {
			return DecideNavigation
		}
	}
	return DecideToggle
}

func isInteractive(n ClickNode) bool {
	switch n.Tag {
	case "button", "input", "select", "textarea", "video", "audio", "iframe", "embed":
		return true
	}
	if interactiveCustomTags[n.Tag] {
		return true
	}
	if _, ok := n.Attrs["controls"]; ok {
		return true
	}
	switch n.Attrs["role"] {
	case "button", "slider", "menu", "menuitem", "checkbox", "textbox":
		return true
	}
	testid := n.Attrs["data-testid"]
	for _, marker := range []string{"vote", "media", "video", "play"} {
		if strings.Contains(testid, marker) {
			return true
		}
	}
	return hasClass(n.Attrs["class"], "video-container")
}

func isCommentsAffordance(n ClickNode) bool {
	if n.Attrs["data-click-id"] == "comments" {
		return true
	}
	if n.Tag == "a" && strings.Contains(n.Attrs["href"], "/comments/") {
		return true
	}
	if strings.Contains(strings.ToLower(n.Attrs["aria-label"]), "comment") {
		return true
	}
	if strings.Contains(n.Attrs["data-testid"], "comment") {
		return true
	}
	return strings.Contains(n.Attrs["icon-name"], "comment")
}

// isNavigationAllowed reports whether default navigation should proceed.
// Every anchor qualifies: links navigate, they never toggle. This mirrors
// the in-page capture predicate, which never prevents default on an <a>,
// so a single click can not both navigate and record a hide.
func isNavigationAllowed(n ClickNode) bool {
	return n.Tag == "a"
}
