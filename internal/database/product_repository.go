package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/polygraphy/digest/internal/domain"
)

const productColumns = `id, article_id, name, price, currency, attributes, raw_payload, created_at, updated_at`

// ProductRepository handles database operations for products.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	query := `
		INSERT INTO products (id, article_id, name, price, currency, attributes, raw_payload,
		                      created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.ArticleID,
		product.Name,
		product.Price,
		product.Currency,
		product.Attributes,
		product.RawPayload,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// ListByArticle retrieves all products owned by an article.
func (r *ProductRepository) ListByArticle(ctx context.Context, articleID string) ([]*domain.Product, error) {
	var products []*domain.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE article_id = $1 ORDER BY created_at`

	if err := r.db.SelectContext(ctx, &products, query, articleID); err != nil {
		return nil, fmt.Errorf("failed to list products for article: %w", err)
	}

	if products == nil {
		products = []*domain.Product{}
	}

	return products, nil
}
