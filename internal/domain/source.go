// Package domain provides the domain models shared across the application.
package domain

import (
	"fmt"
	"time"
)

// SourceType identifies the parsing strategy for a source.
type SourceType string

const (
	// SourceTypeRSS marks sources whose content is an RSS/Atom feed.
	SourceTypeRSS SourceType = "rss"
	// SourceTypeHTML marks sources scraped from plain HTML pages.
	SourceTypeHTML SourceType = "html"
	// SourceTypeAPI marks sources exposing a JSON API.
	SourceTypeAPI SourceType = "api"
)

// Valid reports whether the type is one of the known source types.
func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeRSS, SourceTypeHTML, SourceTypeAPI:
		return true
	default:
		return false
	}
}

// ParseSourceType converts a string into a SourceType.
func ParseSourceType(s string) (SourceType, error) {
	t := SourceType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown source type: %q", s)
	}
	return t, nil
}

// Source represents a configured external feed, site or API to crawl.
type Source struct {
	ID     string     `json:"id" db:"id"`
	Name   string     `json:"name" db:"name"`
	URL    string     `json:"url" db:"url"`
	Type   SourceType `json:"type" db:"type"`
	Active bool       `json:"active" db:"active"`
	// Schedule is a standard 5-field cron expression. Sources without a
	// schedule are never triggered automatically.
	Schedule      *string    `json:"schedule,omitempty" db:"schedule"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty" db:"last_scraped_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// HasSchedule reports whether the source carries a non-empty cron expression.
func (s *Source) HasSchedule() bool {
	return s.Schedule != nil && *s.Schedule != ""
}
