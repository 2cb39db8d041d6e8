package parser_test

import (
	"testing"

	"github.com/polygraphy/digest/internal/domain"
	"github.com/polygraphy/digest/internal/parser"
)

var rssSource = &domain.Source{ID: "src-1", Name: "Print News", Type: domain.SourceTypeRSS}

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Print News</title>
    <item>
      <title>Offset presses compared</title>
      <link>https://example.com/offset-presses</link>
      <guid>post-101</guid>
      <description>A comparison of offset presses.</description>
      <content:encoded><![CDATA[<p>Full comparison text.</p>]]></content:encoded>
      <pubDate>Mon, 24 Aug 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Broken date item</title>
      <link>https://example.com/broken-date</link>
      <pubDate>not a date</pubDate>
    </item>
    <item>
      <title>No link item</title>
    </item>
  </channel>
</rss>`

func TestRSSParser_Parse(t *testing.T) {
	t.Parallel()

	p := &parser.RSSParser{}
	articles := p.Parse([]byte(rssFeed), rssSource)

	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2 (item without link skipped)", len(articles))
	}

	first := articles[0]
	if first.ExternalID != "post-101" {
		t.Errorf("external id = %q, want guid %q", first.ExternalID, "post-101")
	}
	if first.URL != "https://example.com/offset-presses" {
		t.Errorf("unexpected url %q", first.URL)
	}
	if first.Content != "<p>Full comparison text.</p>" {
		t.Errorf("content should prefer content:encoded, got %q", first.Content)
	}
	if first.PublishedAt == nil {
		t.Error("expected parsed pubDate")
	}
	if first.SourceID != "src-1" {
		t.Errorf("source id = %q, want src-1", first.SourceID)
	}

	second := articles[1]
	if second.ExternalID != "https://example.com/broken-date" {
		t.Errorf("external id should fall back to link, got %q", second.ExternalID)
	}
	if second.PublishedAt != nil {
		t.Error("unparsable pubDate must leave PublishedAt nil")
	}
}

func TestRSSParser_MalformedPayload(t *testing.T) {
	t.Parallel()

	p := &parser.RSSParser{}
	if articles := p.Parse([]byte("this is not xml"), rssSource); len(articles) != 0 {
		t.Errorf("malformed payload should yield no articles, got %d", len(articles))
	}
}
