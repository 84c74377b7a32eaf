package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dtnitsch/booking-scraper/models"
)

const fixture = `<html><body>
<h1 class="heading main">Paris: 1,204 properties found</h1>
<div data-testid="card" class="card featured">
  <a href="/hotel/a.html">  Hotel
     A </a>
  <span data-kind="x">one</span>
</div>
<div data-testid="card" class="card">
  <a>no href</a>
</div>
</body></html>`

func newFixture(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := New("https://example.com/search", fixture, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return snap
}

func TestNodeQueries(t *testing.T) {
	snap := newFixture(t)
	root := snap.Root()

	cards := root.FindAll(models.ByAttr("div", "data-testid", "card"))
	if len(cards) != 2 {
		t.Fatalf("FindAll(card) = %d nodes, want 2", len(cards))
	}

	featured := root.FindAll(models.ByClass("div", "card", "featured"))
	if len(featured) != 1 {
		t.Errorf("FindAll(class set) = %d nodes, want 1", len(featured))
	}

	link := cards[0].Find(models.Query{Tag: "a"})
	if got := link.Text(); got != "Hotel A" {
		t.Errorf("Text() = %q, want %q", got, "Hotel A")
	}
	if href, ok := link.Attr("href"); !ok || href != "/hotel/a.html" {
		t.Errorf("Attr(href) = %q, %v", href, ok)
	}

	if _, ok := cards[1].Find(models.Query{Tag: "a"}).Attr("href"); ok {
		t.Error("Attr(href) on anchor without href reported present")
	}

	heading := root.Find(models.ByClass("h1", "heading", "main"))
	if got := heading.Text(); got != "Paris: 1,204 properties found" {
		t.Errorf("heading Text() = %q", got)
	}
}

func TestAbsentNodeComposes(t *testing.T) {
	snap := newFixture(t)

	missing := snap.Root().Find(models.ByAttr("section", "id", "nope"))
	if missing.Exists() {
		t.Fatal("Find() on missing selector reported Exists")
	}

	inner := missing.Find(models.Query{Tag: "a"})
	if inner.Exists() || inner.Text() != "" || inner.Tag() != "" {
		t.Error("query on absent node should yield another absent node")
	}
	if v, ok := inner.Attr("href"); ok || v != "" {
		t.Errorf("Attr() on absent node = %q, %v", v, ok)
	}
	if nodes := missing.FindAll(models.Query{Tag: "a"}); nodes != nil {
		t.Errorf("FindAll() on absent node = %v, want nil", nodes)
	}

	var zero Node
	if zero.Exists() {
		t.Error("zero Node reported Exists")
	}
}

func TestQuerySelector(t *testing.T) {
	tests := []struct {
		name  string
		query models.Query
		want  string
	}{
		{"tag only", models.Query{Tag: "img"}, "img"},
		{"classes", models.ByClass("div", "a", "b"), "div.a.b"},
		{"attr", models.ByAttr("div", "data-testid", "title"), `div[data-testid="title"]`},
		{"attrs sorted", models.Query{Attrs: map[string]string{"b": "2", "a": "1"}}, `[a="1"][b="2"]`},
		{"quote escaped", models.ByAttr("a", "title", `say "hi"`), `a[title="say \"hi\""]`},
		{"empty", models.Query{}, "*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Selector(); got != tt.want {
				t.Errorf("Selector() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadAndHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.html")
	if err := os.WriteFile(path, []byte(fixture), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loaded, err := Load(path, "https://example.com/search")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	direct := newFixture(t)

	if loaded.Hash() != direct.Hash() {
		t.Errorf("Hash() mismatch: %s vs %s", loaded.Hash(), direct.Hash())
	}
	if loaded.Size() != len(fixture) {
		t.Errorf("Size() = %d, want %d", loaded.Size(), len(fixture))
	}
	if got := loaded.Count(models.ByAttr("div", "data-testid", "card")); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.html"), ""); err == nil {
		t.Error("Load() on missing file returned nil error")
	}
}

func TestNormalizeText(t *testing.T) {
	if got := NormalizeText("  a\n\n  b\tc  "); got != "a b c" {
		t.Errorf("NormalizeText() = %q, want %q", got, "a b c")
	}
}
