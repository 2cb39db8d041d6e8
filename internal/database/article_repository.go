package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/polygraphy/digest/internal/domain"
)

// articleColumns selects articles joined with the owning source's name.
const articleColumns = `
	a.id, a.source_id, a.external_id, a.title, a.url, a.summary, a.content,
	a.published_at, a.fetched_at, a.status, s.name AS source_name
`

// ArticleRepository handles database operations for articles.
type ArticleRepository struct {
	db *sqlx.DB
}

// NewArticleRepository creates a new article repository.
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// FindBySourceAndExternalID looks up an article by its dedup key.
// Returns (nil, nil) when no article matches.
func (r *ArticleRepository) FindBySourceAndExternalID(
	ctx context.Context, sourceID, externalID string,
) (*domain.Article, error) {
	var article domain.Article
	query := `
		SELECT ` + articleColumns + `
		FROM articles a
		JOIN sources s ON s.id = a.source_id
		WHERE a.source_id = $1 AND a.external_id = $2
	`

	err := r.db.GetContext(ctx, &article, query, sourceID, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find article by external id: %w", err)
	}

	return &article, nil
}

// FindByURL looks up an article by its canonical URL, which is unique across
// all sources. Returns (nil, nil) when no article matches.
func (r *ArticleRepository) FindByURL(ctx context.Context, url string) (*domain.Article, error) {
	var article domain.Article
	query := `
		SELECT ` + articleColumns + `
		FROM articles a
		JOIN sources s ON s.id = a.source_id
		WHERE a.url = $1
	`

	err := r.db.GetContext(ctx, &article, query, url)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find article by url: %w", err)
	}

	return &article, nil
}

// GetByID retrieves an article by its ID.
func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	var article domain.Article
	query := `
		SELECT ` + articleColumns + `
		FROM articles a
		JOIN sources s ON s.id = a.source_id
		WHERE a.id = $1
	`

	err := r.db.GetContext(ctx, &article, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("article not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return &article, nil
}

// InsertBatch persists new articles in a single transaction. IDs and fetch
// timestamps are assigned here when the caller left them empty.
func (r *ArticleRepository) InsertBatch(ctx context.Context, articles []*domain.Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	query := `
		INSERT INTO articles (id, source_id, external_id, title, url, summary, content,
		                      published_at, fetched_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	now := time.Now().UTC()
	for _, article := range articles {
		if article.ID == "" {
			article.ID = uuid.New().String()
		}
		if article.FetchedAt.IsZero() {
			article.FetchedAt = now
		}
		if article.Status == "" {
			article.Status = domain.ArticleStatusNew
		}

		if _, execErr := tx.ExecContext(ctx, query,
			article.ID,
			article.SourceID,
			article.ExternalID,
			article.Title,
			article.URL,
			article.Summary,
			article.Content,
			article.PublishedAt,
			article.FetchedAt,
			article.Status,
		); execErr != nil {
			return fmt.Errorf("failed to insert article %s: %w", article.URL, execErr)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("failed to commit article batch: %w", commitErr)
	}

	return nil
}

// FindToArchive returns articles published before the cutoff that are not yet
// hidden.
func (r *ArticleRepository) FindToArchive(ctx context.Context, olderThan time.Time) ([]*domain.Article, error) {
	var articles []*domain.Article
	query := `
		SELECT ` + articleColumns + `
		FROM articles a
		JOIN sources s ON s.id = a.source_id
		WHERE a.published_at < $1 AND a.status != $2
		ORDER BY a.published_at
	`

	err := r.db.SelectContext(ctx, &articles, query, olderThan.UTC(), domain.ArticleStatusHidden)
	if err != nil {
		return nil, fmt.Errorf("failed to find articles to archive: %w", err)
	}

	return articles, nil
}

// FindToDelete returns articles published before the cutoff regardless of
// status.
func (r *ArticleRepository) FindToDelete(ctx context.Context, olderThan time.Time) ([]*domain.Article, error) {
	var articles []*domain.Article
	query := `
		SELECT ` + articleColumns + `
		FROM articles a
		JOIN sources s ON s.id = a.source_id
		WHERE a.published_at < $1
		ORDER BY a.published_at
	`

	err := r.db.SelectContext(ctx, &articles, query, olderThan.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to find articles to delete: %w", err)
	}

	return articles, nil
}

// UpdateStatusBatch flips the status of the given articles in one statement.
func (r *ArticleRepository) UpdateStatusBatch(ctx context.Context, ids []string, status domain.ArticleStatus) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE articles SET status = $1 WHERE id = ANY($2)`

	if _, err := r.db.ExecContext(ctx, query, status, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to update article statuses: %w", err)
	}

	return nil
}

// DeleteBatch removes the given articles. Owned products go with them via the
// foreign key cascade.
func (r *ArticleRepository) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `DELETE FROM articles WHERE id = ANY($1)`

	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete articles: %w", err)
	}

	return nil
}

// List retrieves articles page by page, newest fetch first. Used by the
// reindex command.
func (r *ArticleRepository) List(ctx context.Context, limit, offset int) ([]*domain.Article, error) {
	var articles []*domain.Article
	query := `
		SELECT ` + articleColumns + `
		FROM articles a
		JOIN sources s ON s.id = a.source_id
		ORDER BY a.fetched_at DESC
		LIMIT $1 OFFSET $2
	`

	err := r.db.SelectContext(ctx, &articles, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	if articles == nil {
		articles = []*domain.Article{}
	}

	return articles, nil
}
