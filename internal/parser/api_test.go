package parser_test

import (
	"testing"

	"github.com/polygraphy/digest/internal/domain"
	"github.com/polygraphy/digest/internal/parser"
)

var apiSource = &domain.Source{ID: "src-2", Name: "Supplier API", Type: domain.SourceTypeAPI}

func TestAPIParser_TopLevelArray(t *testing.T) {
	t.Parallel()

	payload := `[
		{"id": 7, "title": "New ink series", "url": "https://example.com/inks", "summary": "Ink news."},
		{"title": "No url item"}
	]`

	p := &parser.APIParser{}
	articles := p.Parse([]byte(payload), apiSource)

	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	if articles[0].ExternalID != "7" {
		t.Errorf("numeric id should render as %q, got %q", "7", articles[0].ExternalID)
	}
	if articles[0].Summary != "Ink news." {
		t.Errorf("unexpected summary %q", articles[0].Summary)
	}
}

func TestAPIParser_DataEnvelope(t *testing.T) {
	t.Parallel()

	payload := `{"data": [{"title": "T", "url": "http://x", "description": "fallback"}]}`

	p := &parser.APIParser{}
	articles := p.Parse([]byte(payload), apiSource)

	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	if articles[0].ExternalID != "http://x" {
		t.Errorf("external id should fall back to url, got %q", articles[0].ExternalID)
	}
	if articles[0].Summary != "fallback" {
		t.Errorf("summary should fall back to description, got %q", articles[0].Summary)
	}
}

func TestAPIParser_ArticlesEnvelope(t *testing.T) {
	t.Parallel()

	payload := `{"articles": [{"id": "a-1", "title": "T", "url": "http://x", "content": "body"}]}`

	p := &parser.APIParser{}
	articles := p.Parse([]byte(payload), apiSource)

	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	if articles[0].Content != "body" {
		t.Errorf("unexpected content %q", articles[0].Content)
	}
}

func TestAPIParser_MalformedPayloads(t *testing.T) {
	t.Parallel()

	p := &parser.APIParser{}

	for _, payload := range []string{
		"not json",
		`{"unexpected": "shape"}`,
		`{"data": "not an array"}`,
		`[42, "strings are not items"]`,
	} {
		if articles := p.Parse([]byte(payload), apiSource); len(articles) != 0 {
			t.Errorf("payload %q should yield no articles, got %d", payload, len(articles))
		}
	}
}
