package lifecycle

import (
	"context"
	"time"

	"github.com/polygraphy/digest/internal/config"
	"github.com/polygraphy/digest/internal/domain"
	"github.com/polygraphy/digest/internal/logger"
	"github.com/polygraphy/digest/internal/metrics"
)

// ArticleStore is the persistence surface the lifecycle sweep needs.
type ArticleStore interface {
	FindToArchive(ctx context.Context, olderThan time.Time) ([]*domain.Article, error)
	FindToDelete(ctx context.Context, olderThan time.Time) ([]*domain.Article, error)
	UpdateStatusBatch(ctx context.Context, ids []string, status domain.ArticleStatus) error
	DeleteBatch(ctx context.Context, ids []string) error
}

// Projector mirrors article transitions into the search index.
type Projector interface {
	IndexArticle(ctx context.Context, article *domain.Article) error
	RemoveArticle(ctx context.Context, id string) error
}

// Manager runs the daily archive and delete sweep.
//
// The status machine it drives is monotonic: new|processed --archive-->
// hidden --delete--> gone. The error status is set elsewhere and is advanced
// only by deletion, never by archival in reverse.
type Manager struct {
	articles  ArticleStore
	projector Projector
	marker    Marker
	cfg       config.LifecycleConfig
	logger    logger.Logger
	now       func() time.Time
}

// NewManager creates a lifecycle manager.
func NewManager(
	articles ArticleStore,
	projector Projector,
	marker Marker,
	cfg config.LifecycleConfig,
	log logger.Logger,
) *Manager {
	return &Manager{
		articles:  articles,
		projector: projector,
		marker:    marker,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
}

// RunMaintenance runs the sweep at most once per day. It never propagates an
// error: a failed maintenance run must not take down the invoking process,
// so every failure is logged and retried on the next opportunity.
func (m *Manager) RunMaintenance(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("maintenance run panicked", logger.Any("panic", r))
		}
	}()

	shouldRun, err := m.marker.ShouldRun(ctx)
	if err != nil {
		m.logger.Error("failed to check maintenance marker", logger.Error(err))
		return
	}
	if !shouldRun {
		return
	}

	m.logger.Info("starting article lifecycle maintenance")

	m.archiveOldArticles(ctx)
	m.deleteExpiredArticles(ctx)

	if markErr := m.marker.MarkRun(ctx); markErr != nil {
		m.logger.Error("failed to record maintenance run", logger.Error(markErr))
	}

	m.logger.Info("article lifecycle maintenance complete")
}

// archiveOldArticles hides articles past the archive threshold. Each article
// is re-projected with the hidden status first; when the projection fails the
// status flip is rolled back in memory and the article is left for the next
// run, so store and index never diverge. Successful flips are persisted in
// one batch at the end.
func (m *Manager) archiveOldArticles(ctx context.Context) {
	cutoff := m.now().Add(-m.cfg.ArchiveAfter)

	articles, err := m.articles.FindToArchive(ctx, cutoff)
	if err != nil {
		m.logger.Error("failed to find articles to archive", logger.Error(err))
		return
	}
	if len(articles) == 0 {
		return
	}

	archived := make([]string, 0, len(articles))
	for _, article := range articles {
		previous := article.Status
		article.Status = domain.ArticleStatusHidden

		if indexErr := m.projector.IndexArticle(ctx, article); indexErr != nil {
			article.Status = previous
			m.logger.Error("failed to archive article, keeping previous status",
				logger.String("article_id", article.ID),
				logger.Error(indexErr),
			)
			continue
		}

		archived = append(archived, article.ID)
	}

	if len(archived) == 0 {
		return
	}

	if updateErr := m.articles.UpdateStatusBatch(ctx, archived, domain.ArticleStatusHidden); updateErr != nil {
		m.logger.Error("failed to persist archived statuses", logger.Error(updateErr))
		return
	}

	metrics.ArticlesArchived.Add(float64(len(archived)))
	m.logger.Info("archived articles", logger.Int("count", len(archived)))
}

// deleteExpiredArticles removes articles past the delete threshold. The
// search document goes first; when that fails the record is kept so the pair
// is retried next run. Relational deletes are flushed in batches to bound
// transaction size.
func (m *Manager) deleteExpiredArticles(ctx context.Context) {
	cutoff := m.now().Add(-m.cfg.DeleteAfter)

	articles, err := m.articles.FindToDelete(ctx, cutoff)
	if err != nil {
		m.logger.Error("failed to find articles to delete", logger.Error(err))
		return
	}
	if len(articles) == 0 {
		return
	}

	deleted := 0
	pending := make([]string, 0, m.cfg.DeleteBatchSize)
	for _, article := range articles {
		if removeErr := m.projector.RemoveArticle(ctx, article.ID); removeErr != nil {
			// Not removed from the index, so keep the record for the next run.
			m.logger.Error("failed to remove article from search index",
				logger.String("article_id", article.ID),
				logger.Error(removeErr),
			)
			continue
		}

		pending = append(pending, article.ID)
		if len(pending) >= m.cfg.DeleteBatchSize {
			deleted += m.flushDeletes(ctx, pending)
			pending = pending[:0]
		}
	}

	deleted += m.flushDeletes(ctx, pending)

	if deleted > 0 {
		metrics.ArticlesDeleted.Add(float64(deleted))
		m.logger.Info("deleted expired articles", logger.Int("count", deleted))
	}
}

func (m *Manager) flushDeletes(ctx context.Context, ids []string) int {
	if len(ids) == 0 {
		return 0
	}

	if err := m.articles.DeleteBatch(ctx, ids); err != nil {
		m.logger.Error("failed to delete article batch", logger.Error(err))
		return 0
	}

	return len(ids)
}
