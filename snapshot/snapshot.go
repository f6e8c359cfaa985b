// Package snapshot is the pure classification core of redveil. An Element is
// a point-in-time picture of a candidate DOM subtree: its serialised HTML
// parsed into a tree, plus the rendered rect reported by the in-page agent.
// Every heuristic — post-likeness, validity, identity, channel, click policy —
// is a pure function over snapshots so the test suite can feed synthetic
// trees without a live browser.
package snapshot

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Rect is the rendered size of an element.
type Rect struct {
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
}

// Element is an immutable snapshot of one candidate subtree.
type Element struct {
	Tag   string
	Attrs map[string]string
	Rect  Rect

	root *html.Node
}

// Parse builds an Element from serialised outer HTML and a rendered rect.
// The first element node of the fragment becomes the root; attribute keys
// are lowercased.
func Parse(outerHTML string, rect Rect) (*Element, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(outerHTML), ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: parse fragment: %w", err)
	}

	var root *html.Node
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			root = n
			break
		}
	}
	if root == nil {
		return nil, fmt.Errorf("snapshot: no element in fragment")
	}

	return &Element{
		Tag:   strings.ToLower(root.Data),
		Attrs: attrMap(root),
		Rect:  rect,
		root:  root,
	}, nil
}

// Attr returns the root element's attribute value, or "".
func (e *Element) Attr(name string) string {
	return e.Attrs[name]
}

func attrMap(n *html.Node) map[string]string {
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[strings.ToLower(a.Key)] = a.Val
	}
	return m
}

// walk visits every descendant of the root (the root itself is excluded,
// matching querySelector semantics) until visit returns true.
func (e *Element) walk(visit func(*html.Node) bool) *html.Node {
	if e.root == nil {
		return nil
	}
	var rec func(*html.Node) *html.Node
	rec = func(n *html.Node) *html.Node {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && visit(c) {
				return c
			}
			if found := rec(c); found != nil {
				return found
			}
		}
		return nil
	}
	return rec(e.root)
}

// findDescendant returns the first descendant element matching pred.
func (e *Element) findDescendant(pred func(tag string, attrs map[string]string) bool) *html.Node {
	return e.walk(func(n *html.Node) bool {
		return pred(strings.ToLower(n.Data), attrMap(n))
	})
}

// text returns the concatenated, space-normalised text content of a node.
func text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return strings.TrimSpace(strings.Join(strings.Fields(b.String()), " "))
}

func nodeAttr(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}
