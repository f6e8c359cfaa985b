package snapshot

import "strings"

// Thresholds are the rendered-size minimums and traversal bound used by the
// locator heuristics. Built once from configuration.
type Thresholds struct {
	MinPostHeight       float64
	MinPostWidth        float64
	ValidationMinHeight float64
	ValidationMinWidth  float64
	MaxTraversalDepth   int
}

// MatchesPostSelector reports whether the element itself matches one of the
// prioritised structural selectors known to represent a post container.
// The list covers both the current and the legacy markup generations, most
// specific first.
func MatchesPostSelector(e *Element) bool {
	switch {
	case e.Attr("data-testid") == "post-container":
		return true
	case e.Tag == "shreddit-post":
		return true
	case hasClass(e.Attr("class"), "thing") && strings.HasPrefix(e.Attr("data-fullname"), "t3_"):
		return true
	case e.Tag == "article" && strings.HasPrefix(e.Attr("id"), "t3_"):
		return true
	case e.Attr("data-post-click-location") != "":
		return true
	case e.Attr("data-adclicklocation") != "":
		return true
	case e.Tag == "div" && strings.HasPrefix(e.Attr("id"), "t3_"):
		return true
	case strings.Contains(e.Attr("data-testid"), "post"):
		return true
	}
	return false
}

// Score counts how many post signals the subtree carries: voting control,
// comments link, heading, author link.
func Score(e *Element) int {
	n := 0
	if e.hasVoteControl() {
		n++
	}
	if e.hasCommentsLink() {
		n++
	}
	if e.hasHeading() {
		n++
	}
	if e.hasAuthorLink() {
		n++
	}
	return n
}

// LooksLikePost reports whether an element that matches no structural
// selector still behaves like a post container: at least two signals and a
// rendered size above the post minimums (filters out tiny wrapper divs).
func LooksLikePost(e *Element, th Thresholds) bool {
	if e.Rect.Height < th.MinPostHeight || e.Rect.Width < th.MinPostWidth {
		return false
	}
	return Score(e) >= 2
}

// Valid is the final filter applied to the unioned candidate set: the
// element must exceed the validation size minimums and carry at least one
// content signal (comments link, vote control, heading, or a
// post-identifying attribute).
func Valid(e *Element, th Thresholds) bool {
	if e.Rect.Height < th.ValidationMinHeight || e.Rect.Width < th.ValidationMinWidth {
		return false
	}
	return e.hasCommentsLink() ||
		e.hasVoteControl() ||
		e.hasHeading() ||
		e.hasIdentifyingAttr()
}

func (e *Element) hasCommentsLink() bool {
	return e.findDescendant(func(tag string, attrs map[string]string) bool {
		return tag == "a" && strings.Contains(attrs["href"], "/comments/")
	}) != nil
}

func (e *Element) hasVoteControl() bool {
	return e.findDescendant(func(tag string, attrs map[string]string) bool {
		if strings.Contains(attrs["data-testid"], "vote") {
			return true
		}
		label := strings.ToLower(attrs["aria-label"])
		return strings.Contains(label, "vote")
	}) != nil
}

func (e *Element) hasHeading() bool {
	return e.headingNode() != nil
}

func (e *Element) hasAuthorLink() bool {
	return e.authorNode() != nil
}

func (e *Element) hasMedia() bool {
	return e.findDescendant(func(tag string, attrs map[string]string) bool {
		switch tag {
		case "video", "iframe", "embed":
			return true
		}
		return strings.Contains(attrs["data-testid"], "media")
	}) != nil
}

// HasMedia reports whether the subtree embeds video/iframe/third-party
// media, which needs a click-capturing overlay.
func HasMedia(e *Element) bool { return e.hasMedia() }

func (e *Element) hasIdentifyingAttr() bool {
	if strings.HasPrefix(e.Attr("data-fullname"), "t3_") ||
		strings.HasPrefix(e.Attr("id"), "t3_") {
		return true
	}
	if e.Attr("data-post-click-location") != "" || e.Attr("data-adclicklocation") != "" {
		return true
	}
	return strings.Contains(e.Attr("slot"), "post")
}

func hasClass(classAttr, name string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == name {
			return true
		}
	}
	return false
}
