// Package search projects persisted records into Elasticsearch and manages
// the projection indices.
package search

import (
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/polygraphy/digest/internal/config"
)

// NewClient creates an Elasticsearch client from configuration.
func NewClient(cfg config.ElasticsearchConfig) (*es.Client, error) {
	client, err := es.NewClient(es.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return client, nil
}
