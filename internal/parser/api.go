package parser

import (
	"encoding/json"
	"fmt"

	"github.com/polygraphy/digest/internal/domain"
)

// APIParser handles sources exposing a JSON API. Items are located under the
// conventional "articles" or "data" keys, or at the top level when the
// payload itself is an array.
type APIParser struct{}

// Parse emits one candidate per item carrying at least a title and a URL.
// The external id falls back to the URL when the item has no id field.
func (p *APIParser) Parse(content []byte, source *domain.Source) []*domain.Article {
	var payload any
	if err := json.Unmarshal(content, &payload); err != nil {
		return nil
	}

	items := locateItems(payload)

	var articles []*domain.Article
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		title := stringField(item, "title")
		url := stringField(item, "url")
		if title == "" || url == "" {
			continue
		}

		externalID := stringField(item, "id")
		if externalID == "" {
			externalID = url
		}

		summary := stringField(item, "summary")
		if summary == "" {
			summary = stringField(item, "description")
		}

		articles = append(articles, &domain.Article{
			SourceID:   source.ID,
			ExternalID: externalID,
			Title:      title,
			URL:        url,
			Summary:    summary,
			Content:    stringField(item, "content"),
		})
	}

	return articles
}

// locateItems finds the item array in a decoded payload.
func locateItems(payload any) []any {
	switch v := payload.(type) {
	case []any:
		return v
	case map[string]any:
		if items, ok := v["articles"].([]any); ok {
			return items
		}
		if items, ok := v["data"].([]any); ok {
			return items
		}
	}
	return nil
}

// stringField reads a field as a string, rendering numeric ids as their
// literal representation.
func stringField(item map[string]any, key string) string {
	switch v := item[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return trimFloat(v)
	default:
		return ""
	}
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
