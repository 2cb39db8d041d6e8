// Package parser turns raw fetched content into article candidates. One
// strategy exists per source type; the set is closed, so an unknown type is a
// configuration error rather than a fallback case.
package parser

import (
	"fmt"

	"github.com/polygraphy/digest/internal/domain"
)

// Parser converts raw content into article candidates for a source.
//
// Implementations are lenient: a malformed single item never aborts its
// siblings, and a completely malformed payload yields an empty slice rather
// than an error.
type Parser interface {
	Parse(content []byte, source *domain.Source) []*domain.Article
}

// ForType returns the parser for a source type.
func ForType(t domain.SourceType) (Parser, error) {
	switch t {
	case domain.SourceTypeRSS:
		return &RSSParser{}, nil
	case domain.SourceTypeHTML:
		return &HTMLParser{}, nil
	case domain.SourceTypeAPI:
		return &APIParser{}, nil
	default:
		return nil, fmt.Errorf("no parser for source type %q", t)
	}
}
