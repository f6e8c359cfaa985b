package snapshot

import (
	"regexp"
	"strings"
)

var (
	channelPathRe = regexp.MustCompile(`/r/([^/?#]+)`)
	// What a channel name may look like after normalisation. Guards the
	// visible-text source: a comments permalink also matches the /r/ href
	// selector, and its text ("12 comments") must never become the name.
	channelNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_]*$`)
)

// ResolveChannel derives the normalised channel name for a post snapshot.
// In-element selectors are tried in priority order; the current page path is
// the final fallback (a post on /r/aww with no channel marker of its own
// belongs to aww). Returns ("", false) when nothing yields a name.
func ResolveChannel(e *Element, pagePath string) (string, bool) {
	type source struct {
		match func(tag string, attrs map[string]string) bool
	}
	sources := []source{
		{func(tag string, attrs map[string]string) bool {
			return tag == "a" && attrs["data-testid"] == "subreddit-name"
		}},
		{func(tag string, attrs map[string]string) bool {
			return tag == "a" && strings.Contains(attrs["href"], "/r/")
		}},
		{func(tag string, attrs map[string]string) bool {
			return attrs["data-subreddit-name"] != ""
		}},
		{func(tag string, attrs map[string]string) bool {
			return hasClass(attrs["class"], "subreddit")
		}},
	}

	for _, p := range sources {
		n := e.findDescendant(p.match)
		if n == nil {
			continue
		}

		var name string
		switch {
		case nodeAttr(n, "data-subreddit-name") != "":
			name = NormalizeChannel(nodeAttr(n, "data-subreddit-name"))
		case channelNameRe.MatchString(NormalizeChannel(text(n))):
			name = NormalizeChannel(text(n))
		default:
			if m := channelPathRe.FindStringSubmatch(nodeAttr(n, "href")); m != nil {
				name = NormalizeChannel(m[1])
			}
		}

		if name != "" {
			return name, true
		}
	}

	if m := channelPathRe.FindStringSubmatch(pagePath); m != nil {
		return strings.ToLower(m[1]), true
	}

	return "", false
}

// NormalizeChannel canonicalises a channel name: lowercase, strip the r/ or
// /r/ prefix and any trailing slash, trim whitespace. Idempotent. The
// management API must apply the identical normalisation so both writers of
// the blocked set stay consistent.
func NormalizeChannel(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.TrimPrefix(s, "/r/")
	s = strings.TrimPrefix(s, "r/")
	s = strings.TrimSuffix(s, "/")
	return strings.TrimSpace(s)
}
