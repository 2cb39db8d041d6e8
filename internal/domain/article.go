package domain

import "time"

// ArticleStatus represents the processing state of an article.
type ArticleStatus string

const (
	// ArticleStatusNew marks a freshly ingested article.
	ArticleStatusNew ArticleStatus = "new"
	// ArticleStatusProcessed marks an article that passed downstream processing.
	ArticleStatusProcessed ArticleStatus = "processed"
	// ArticleStatusHidden marks an archived article excluded from listings.
	ArticleStatusHidden ArticleStatus = "hidden"
	// ArticleStatusError marks an article whose processing failed.
	ArticleStatusError ArticleStatus = "error"
)

// Valid reports whether the status is one of the known article statuses.
func (s ArticleStatus) Valid() bool {
	switch s {
	case ArticleStatusNew, ArticleStatusProcessed, ArticleStatusHidden, ArticleStatusError:
		return true
	default:
		return false
	}
}

// Article represents a single ingested content item.
//
// The (SourceID, ExternalID) pair is the dedup key: parsers fill ExternalID
// from the item's native identifier and fall back to the item URL, so it is
// always set for ingested articles. URL is globally unique.
type Article struct {
	ID         string `json:"id" db:"id"`
	SourceID   string `json:"source_id" db:"source_id"`
	ExternalID string `json:"external_id" db:"external_id"`
	Title      string `json:"title" db:"title"`
	URL        string `json:"url" db:"url"`
	Summary    string `json:"summary,omitempty" db:"summary"`
	Content    string `json:"content,omitempty" db:"content"`
	// PublishedAt stays nil when the source did not provide a parsable date.
	PublishedAt *time.Time    `json:"published_at,omitempty" db:"published_at"`
	FetchedAt   time.Time     `json:"fetched_at" db:"fetched_at"`
	Status      ArticleStatus `json:"status" db:"status"`

	// SourceName is populated by queries that join the sources table.
	// It is not a column of the articles table itself.
	SourceName string `json:"source_name,omitempty" db:"source_name"`
}
