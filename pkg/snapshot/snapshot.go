// Package snapshot holds an immutable, queryable capture of one rendered HTML document.
package snapshot

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/booking-scraper/models"
)

// Snapshot is the rendered document at one instant. It exposes read-only queries;
// nothing reachable from it mutates the underlying tree.
type Snapshot struct {
	url     string
	html    string
	takenAt time.Time
	doc     *goquery.Document
}

// New parses html into a snapshot.
func New(url, html string, takenAt time.Time) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Snapshot{url: url, html: html, takenAt: takenAt, doc: doc}, nil
}

// Load reads a snapshot artifact previously written to disk.
func Load(path, url string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	takenAt := time.Now()
	if info, statErr := os.Stat(path); statErr == nil {
		takenAt = info.ModTime()
	}
	return New(url, string(data), takenAt)
}

func (s *Snapshot) URL() string { return s.url }
func (s *Snapshot) HTML() string { return s.html }
func (s *Snapshot) TakenAt() time.Time { return s.takenAt }
func (s *Snapshot) Size() int { return len(s.html) }
func (s *Snapshot) Root() Node { return Node{sel: s.doc.Selection} }
func (s *Snapshot) Count(q models.Query) int { return s.doc.Find(q.Selector()).Length() }

// Hash is the hex sha256 of the markup.
func (s *Snapshot) Hash() string {
	sum := sha256.Sum256([]byte(s.html))
	return fmt.Sprintf("%x", sum)
}

// Text returns the normalized text content of the whole document.
func (s *Snapshot) Text() string {
	return NormalizeText(s.doc.Find("body").Text())
}

// Node is an optional handle on at most one element. The zero Node is absent and
// every query on it yields another absent node, so lookups compose without nil checks.
type Node struct {
	sel *goquery.Selection
}

// Exists reports whether the node refers to an element.
func (n Node) Exists() bool {
	return n.sel != nil && n.sel.Length() > 0
}

// Find returns the first descendant matching q.
func (n Node) Find(q models.Query) Node {
	if !n.Exists() {
		return Node{}
	}
	found := n.sel.Find(q.Selector()).First()
	if found.Length() == 0 {
		return Node{}
	}
	return Node{sel: found}
}

// FindAll returns every descendant matching q, in document order.
func (n Node) FindAll(q models.Query) []Node {
	if !n.Exists() {
		return nil
	}
	var nodes []Node
	n.sel.Find(q.Selector()).Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, Node{sel: s})
	})
	return nodes
}

// Attr returns the named attribute and whether it was present.
func (n Node) Attr(name string) (string, bool) {
	if !n.Exists() {
		return "", false
	}
	return n.sel.Attr(name)
}

// Text returns the node's whitespace-normalized text content.
func (n Node) Text() string {
	if !n.Exists() {
		return ""
	}
	return NormalizeText(n.sel.Text())
}

// Tag returns the element name, or "" for an absent node.
func (n Node) Tag() string {
	if !n.Exists() {
		return ""
	}
	return goquery.NodeName(n.sel)
}

// NormalizeText collapses every run of whitespace, including newlines, to one space.
func NormalizeText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
