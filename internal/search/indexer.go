package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/polygraphy/digest/internal/config"
	"github.com/polygraphy/digest/internal/domain"
	"github.com/polygraphy/digest/internal/logger"
)

// Indexer projects articles and products into Elasticsearch. Upserts are
// keyed by record id, so re-indexing is idempotent, and deleting a missing
// document is not an error.
type Indexer struct {
	client       *es.Client
	articleIndex string
	productIndex string
	logger       logger.Logger
}

// NewIndexer creates a search projector.
func NewIndexer(client *es.Client, cfg config.ElasticsearchConfig, log logger.Logger) *Indexer {
	return &Indexer{
		client:       client,
		articleIndex: cfg.ArticleIndex,
		productIndex: cfg.ProductIndex,
		logger:       log,
	}
}

// IndexArticle upserts the projection document for an article.
func (i *Indexer) IndexArticle(ctx context.Context, article *domain.Article) error {
	if article.ID == "" {
		return fmt.Errorf("article id is required for indexing")
	}

	doc := NewArticleDocument(article)
	return i.indexDocument(ctx, i.articleIndex, doc.ID, doc)
}

// RemoveArticle deletes the projection document of an article by id.
func (i *Indexer) RemoveArticle(ctx context.Context, id string) error {
	return i.deleteDocument(ctx, i.articleIndex, id)
}

// IndexProduct upserts the projection document for a product.
func (i *Indexer) IndexProduct(ctx context.Context, product *domain.Product) error {
	if product.ID == "" {
		return fmt.Errorf("product id is required for indexing")
	}

	doc := NewProductDocument(product)
	return i.indexDocument(ctx, i.productIndex, doc.ID, doc)
}

// RemoveProduct deletes the projection document of a product by id.
func (i *Indexer) RemoveProduct(ctx context.Context, id string) error {
	return i.deleteDocument(ctx, i.productIndex, id)
}

func (i *Indexer) indexDocument(ctx context.Context, index, id string, document any) error {
	body, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("marshal document for indexing: %w", err)
	}

	res, err := i.client.Index(
		index,
		bytes.NewReader(body),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(id),
	)
	if err != nil {
		return fmt.Errorf("index document %s/%s: %w", index, id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error indexing %s/%s: %s", index, id, res.String())
	}

	i.logger.Debug("document indexed",
		logger.String("index", index),
		logger.String("doc_id", id),
	)
	return nil
}

func (i *Indexer) deleteDocument(ctx context.Context, index, id string) error {
	res, err := i.client.Delete(
		index,
		id,
		i.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete document %s/%s: %w", index, id, err)
	}
	defer res.Body.Close()

	// Deleting a document that is already gone is a success.
	if res.StatusCode == http.StatusNotFound {
		return nil
	}

	if res.IsError() {
		return fmt.Errorf("elasticsearch error deleting %s/%s: %s", index, id, res.String())
	}

	i.logger.Debug("document deleted",
		logger.String("index", index),
		logger.String("doc_id", id),
	)
	return nil
}
