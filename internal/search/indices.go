package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/polygraphy/digest/internal/config"
	"github.com/polygraphy/digest/internal/logger"
)

// IndexManager creates and resets the projection indices.
type IndexManager struct {
	client       *es.Client
	articleIndex string
	productIndex string
	logger       logger.Logger
}

// NewIndexManager creates an index manager.
func NewIndexManager(client *es.Client, cfg config.ElasticsearchConfig, log logger.Logger) *IndexManager {
	return &IndexManager{
		client:       client,
		articleIndex: cfg.ArticleIndex,
		productIndex: cfg.ProductIndex,
		logger:       log,
	}
}

// EnsureIndices creates both projection indices when they do not exist yet.
func (m *IndexManager) EnsureIndices(ctx context.Context) error {
	if err := m.ensureIndex(ctx, m.articleIndex, ArticleIndexMapping()); err != nil {
		return err
	}
	return m.ensureIndex(ctx, m.productIndex, ProductIndexMapping())
}

// ResetIndices drops and recreates both projection indices. All projected
// documents are lost; a reindex is required afterwards.
func (m *IndexManager) ResetIndices(ctx context.Context) error {
	for _, index := range []string{m.articleIndex, m.productIndex} {
		if err := m.deleteIndex(ctx, index); err != nil {
			return err
		}
	}
	return m.EnsureIndices(ctx)
}

func (m *IndexManager) ensureIndex(ctx context.Context, index string, mapping *IndexMapping) error {
	exists, err := m.indexExists(ctx, index)
	if err != nil {
		return err
	}
	if exists {
		m.logger.Debug("index already exists", logger.String("index", index))
		return nil
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshal mapping for %s: %w", index, err)
	}

	res, err := m.client.Indices.Create(
		index,
		m.client.Indices.Create.WithContext(ctx),
		m.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error creating index %s: %s", index, res.String())
	}

	m.logger.Info("index created", logger.String("index", index))
	return nil
}

func (m *IndexManager) indexExists(ctx context.Context, index string) (bool, error) {
	res, err := m.client.Indices.Exists(
		[]string{index},
		m.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", index, err)
	}
	defer res.Body.Close()

	return res.StatusCode == http.StatusOK, nil
}

func (m *IndexManager) deleteIndex(ctx context.Context, index string) error {
	res, err := m.client.Indices.Delete(
		[]string{index},
		m.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete index %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("elasticsearch error deleting index %s: %s", index, res.String())
	}

	m.logger.Info("index deleted", logger.String("index", index))
	return nil
}
