package parser

import (
	"bytes"

	"github.com/mmcdole/gofeed"

	"github.com/polygraphy/digest/internal/domain"
)

// RSSParser parses RSS and Atom feeds.
type RSSParser struct{}

// Parse extracts one candidate per feed item. The external id is the item
// guid, falling back to its link; content prefers content:encoded over the
// description. Items whose pubDate cannot be parsed keep a nil PublishedAt
// (gofeed leaves PublishedParsed nil in that case) and are still emitted.
func (p *RSSParser) Parse(content []byte, source *domain.Source) []*domain.Article {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(content))
	if err != nil || feed == nil {
		return nil
	}

	articles := make([]*domain.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}

		externalID := item.GUID
		if externalID == "" {
			externalID = item.Link
		}

		body := item.Content
		if body == "" {
			body = item.Description
		}

		articles = append(articles, &domain.Article{
			SourceID:    source.ID,
			ExternalID:  externalID,
			Title:       item.Title,
			URL:         item.Link,
			Summary:     item.Description,
			Content:     body,
			PublishedAt: item.PublishedParsed,
		})
	}

	return articles
}
