package snapshot

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/net/html"
)

var (
	commentsIDRe = regexp.MustCompile(`/comments/([a-zA-Z0-9]+)`)
	plainIDRe    = regexp.MustCompile(`^[a-zA-Z0-9]{6,}$`)
)

// alternate attributes consulted after the canonical ones, in order.
var altIDAttrs = []string{"data-post-id", "data-id", "data-permalink"}

// ResolveID derives a stable identifier for a post snapshot. The fallback
// chain is ordered by reliability; the first success wins. The final
// fallback hashes title+author text, so two posts with identical title and
// author and no extractable id intentionally share the same hash_ id.
// Returns ("", false) only when no title text is present anywhere, in which
// case the post is skipped for this scan cycle and retried on the next.
func ResolveID(e *Element) (string, bool) {
	if v := e.Attr("data-fullname"); strings.HasPrefix(v, "t3_") {
		return v, true
	}

	if v := e.Attr("id"); strings.HasPrefix(v, "t3_") {
		return v, true
	}

	if n := e.findDescendant(func(tag string, attrs map[string]string) bool {
		return tag == "a" && strings.Contains(attrs["href"], "/comments/")
	}); n != nil {
		if m := commentsIDRe.FindStringSubmatch(nodeAttr(n, "href")); m != nil {
			return "t3_" + m[1], true
		}
	}

	for _, attr := range altIDAttrs {
		v := e.Attr(attr)
		if v == "" {
			continue
		}
		if strings.HasPrefix(v, "t3_") {
			return v, true
		}
		if plainIDRe.MatchString(v) {
			return "t3_" + v, true
		}
	}

	if n := e.findDescendant(func(tag string, attrs map[string]string) bool {
		return strings.HasPrefix(attrs["id"], "t3_") ||
			strings.HasPrefix(attrs["data-fullname"], "t3_")
	}); n != nil {
		if v := nodeAttr(n, "id"); strings.HasPrefix(v, "t3_") {
			return v, true
		}
		return nodeAttr(n, "data-fullname"), true
	}

	title := e.TitleText()
	if title == "" {
		return "", false
	}
	return "hash_" + fallbackHash(title+e.AuthorText()), true
}

// TitleText returns the post's visible title text, or "".
func (e *Element) TitleText() string {
	return text(e.headingNode())
}

// AuthorText returns the post's visible author text, or "".
func (e *Element) AuthorText() string {
	return text(e.authorNode())
}

func (e *Element) headingNode() *html.Node {
	return e.findDescendant(func(tag string, attrs map[string]string) bool {
		switch tag {
		case "h1", "h2", "h3":
			return true
		}
		return attrs["data-adclicklocation"] == "title" || attrs["role"] == "heading"
	})
}

func (e *Element) authorNode() *html.Node {
	return e.findDescendant(func(tag string, attrs map[string]string) bool {
		if attrs["data-testid"] == "post_author_link" {
			return true
		}
		href := attrs["href"]
		return strings.Contains(href, "/user/") || strings.Contains(href, "/u/")
	})
}

// fallbackHash is a deterministic non-cryptographic rolling hash over UTF-16
// code units, truncated to 32-bit signed, absolute value, stringified. The
// exact arithmetic is part of the persisted-id format and must not change.
func fallbackHash(s string) string {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = h<<5 - h + int32(u)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 10)
}
