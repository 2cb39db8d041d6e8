package search

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/polygraphy/digest/internal/domain"
)

// ArticleDocument is the projection of an article in the search index.
type ArticleDocument struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	SourceName  string `json:"source_name"`
	Status      string `json:"status"`
}

// ProductDocument is the projection of a product in the search index.
// Price is carried as a numeric string so the scaled_float field receives the
// exact decimal value without a float64 round trip.
type ProductDocument struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Currency    string      `json:"currency"`
	ArticleID   string      `json:"article_id"`
}

// NewArticleDocument builds the projection for an article. PublishedAt falls
// back to the fetch timestamp so every document is sortable by date.
func NewArticleDocument(article *domain.Article) ArticleDocument {
	publishedAt := article.FetchedAt
	if article.PublishedAt != nil {
		publishedAt = *article.PublishedAt
	}

	sourceName := article.SourceName
	if sourceName == "" {
		sourceName = "Unknown"
	}

	return ArticleDocument{
		ID:          article.ID,
		Title:       article.Title,
		Summary:     article.Summary,
		Content:     stripTags(article.Content),
		URL:         article.URL,
		PublishedAt: publishedAt.UTC().Format(time.RFC3339),
		SourceName:  sourceName,
		Status:      string(article.Status),
	}
}

// NewProductDocument builds the projection for a product.
func NewProductDocument(product *domain.Product) ProductDocument {
	price := json.Number("0")
	if product.Price != nil && *product.Price != "" {
		price = json.Number(*product.Price)
	}

	currency := "CZK"
	if product.Currency != nil && *product.Currency != "" {
		currency = *product.Currency
	}

	articleID := ""
	if product.ArticleID != nil {
		articleID = *product.ArticleID
	}

	description := ""
	if v, ok := product.Attributes["description"].(string); ok {
		description = v
	}

	return ProductDocument{
		ID:          product.ID,
		Name:        product.Name,
		Description: description,
		Price:       price,
		Currency:    currency,
		ArticleID:   articleID,
	}
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// stripTags reduces HTML content to plain text for full-text indexing.
func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, " "))
}
