package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/polygraphy/digest/internal/domain"
)

// ErrSourceNotFound is returned when a source id does not exist.
var ErrSourceNotFound = errors.New("source not found")

const sourceColumns = `id, name, url, type, active, schedule, last_scraped_at, created_at, updated_at`

// SourceRepository handles database operations for sources.
type SourceRepository struct {
	db *sqlx.DB
}

// NewSourceRepository creates a new source repository.
func NewSourceRepository(db *sqlx.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Create inserts a new source.
func (r *SourceRepository) Create(ctx context.Context, source *domain.Source) error {
	if source.ID == "" {
		source.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	source.CreatedAt = now
	source.UpdatedAt = now

	query := `
		INSERT INTO sources (id, name, url, type, active, schedule, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		source.ID,
		source.Name,
		source.URL,
		source.Type,
		source.Active,
		source.Schedule,
		source.CreatedAt,
		source.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}

	return nil
}

// GetByID retrieves a source by its ID.
func (r *SourceRepository) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	var source domain.Source
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`

	err := r.db.GetContext(ctx, &source, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, id)
		}
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return &source, nil
}

// List retrieves all sources ordered by name.
func (r *SourceRepository) List(ctx context.Context) ([]*domain.Source, error) {
	var sources []*domain.Source
	query := `SELECT ` + sourceColumns + ` FROM sources ORDER BY name`

	if err := r.db.SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	if sources == nil {
		sources = []*domain.Source{}
	}

	return sources, nil
}

// ListActive retrieves all active sources.
func (r *SourceRepository) ListActive(ctx context.Context) ([]*domain.Source, error) {
	var sources []*domain.Source
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE active ORDER BY name`

	if err := r.db.SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("failed to list active sources: %w", err)
	}

	if sources == nil {
		sources = []*domain.Source{}
	}

	return sources, nil
}

// UpdateLastScrapedAt records the completion time of a crawl. The guard keeps
// the timestamp monotonically non-decreasing.
func (r *SourceRepository) UpdateLastScrapedAt(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE sources
		SET last_scraped_at = $2, updated_at = $2
		WHERE id = $1 AND (last_scraped_at IS NULL OR last_scraped_at <= $2)
	`

	if _, err := r.db.ExecContext(ctx, query, id, at.UTC()); err != nil {
		return fmt.Errorf("failed to update last_scraped_at: %w", err)
	}

	return nil
}
