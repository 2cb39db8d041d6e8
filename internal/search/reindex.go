package search

import (
	"context"

	"github.com/polygraphy/digest/internal/domain"
	"github.com/polygraphy/digest/internal/logger"
)

// reindexPageSize is the number of articles pulled from the store per page.
const reindexPageSize = 100

// ArticleLister pages through all persisted articles.
type ArticleLister interface {
	List(ctx context.Context, limit, offset int) ([]*domain.Article, error)
}

// ProductLister returns the products owned by an article.
type ProductLister interface {
	ListByArticle(ctx context.Context, articleID string) ([]*domain.Product, error)
}

// Reindexer rebuilds the projection indices from the relational store. It is
// the repair path after an index reset or after projection failures logged
// during normal operation.
type Reindexer struct {
	articles ArticleLister
	products ProductLister
	indexer  *Indexer
	logger   logger.Logger
}

// NewReindexer creates a reindexer.
func NewReindexer(articles ArticleLister, products ProductLister, indexer *Indexer, log logger.Logger) *Reindexer {
	return &Reindexer{
		articles: articles,
		products: products,
		indexer:  indexer,
		logger:   log,
	}
}

// Reindex projects every article and its products, returning the number of
// articles indexed. Per-record failures are logged and skipped so one bad
// record cannot abort the rebuild.
func (r *Reindexer) Reindex(ctx context.Context) (int, error) {
	indexed := 0
	offset := 0

	for {
		page, err := r.articles.List(ctx, reindexPageSize, offset)
		if err != nil {
			return indexed, err
		}
		if len(page) == 0 {
			break
		}

		for _, article := range page {
			if err := r.indexer.IndexArticle(ctx, article); err != nil {
				r.logger.Error("failed to reindex article",
					logger.String("article_id", article.ID),
					logger.Error(err),
				)
				continue
			}
			indexed++

			if err := r.reindexProducts(ctx, article.ID); err != nil {
				r.logger.Error("failed to reindex products",
					logger.String("article_id", article.ID),
					logger.Error(err),
				)
			}
		}

		offset += len(page)
	}

	r.logger.Info("reindex complete", logger.Int("articles", indexed))
	return indexed, nil
}

func (r *Reindexer) reindexProducts(ctx context.Context, articleID string) error {
	products, err := r.products.ListByArticle(ctx, articleID)
	if err != nil {
		return err
	}

	for _, product := range products {
		if err := r.indexer.IndexProduct(ctx, product); err != nil {
			r.logger.Error("failed to reindex product",
				logger.String("product_id", product.ID),
				logger.Error(err),
			)
		}
	}

	return nil
}
