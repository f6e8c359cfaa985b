package session

import (
	"net/url"
	"strings"
)

// The site-wide listing paths curated besides per-channel ones.
var feedPaths = map[string]bool{
	"/":       true,
	"/hot":    true,
	"/new":    true,
	"/rising": true,
	"/top":    true,
	"/best":   true,
}

// Curated reports whether posts on the given URL should be located and
// curated: the front page, the site-wide sort listings, and anything
// under a channel that is not a post detail page. Post detail pages,
// user pages, and everything off the site are left alone.
func Curated(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host != "reddit.com" && !strings.HasSuffix(host, ".reddit.com") {
		return false
	}

	p := u.Path
	if p == "" {
		p = "/"
	}
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}
	if strings.Contains(p, "/comments/") {
		return false
	}
	if feedPaths[p] {
		return true
	}
	return strings.HasPrefix(p, "/r/")
}
