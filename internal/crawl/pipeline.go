// Package crawl orchestrates one fetch-parse-dedup-persist cycle per source.
package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/polygraphy/digest/internal/domain"
	"github.com/polygraphy/digest/internal/logger"
	"github.com/polygraphy/digest/internal/metrics"
	"github.com/polygraphy/digest/internal/parser"
)

// Fetcher downloads raw content from a source URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ArticleStore is the persistence surface the pipeline needs.
type ArticleStore interface {
	FindBySourceAndExternalID(ctx context.Context, sourceID, externalID string) (*domain.Article, error)
	FindByURL(ctx context.Context, url string) (*domain.Article, error)
	InsertBatch(ctx context.Context, articles []*domain.Article) error
}

// SourceStore looks up sources and records crawl completions.
type SourceStore interface {
	GetByID(ctx context.Context, id string) (*domain.Source, error)
	List(ctx context.Context) ([]*domain.Source, error)
	UpdateLastScrapedAt(ctx context.Context, id string, at time.Time) error
}

// Projector mirrors persisted articles into the search index.
type Projector interface {
	IndexArticle(ctx context.Context, article *domain.Article) error
}

// Pipeline runs crawls. Fetch and persistence failures propagate to the task
// layer, which owns retries; the pipeline itself never retries.
type Pipeline struct {
	fetcher   Fetcher
	articles  ArticleStore
	sources   SourceStore
	projector Projector
	logger    logger.Logger
	now       func() time.Time
}

// NewPipeline creates a crawl pipeline.
func NewPipeline(
	fetcher Fetcher,
	articles ArticleStore,
	sources SourceStore,
	projector Projector,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		articles:  articles,
		sources:   sources,
		projector: projector,
		logger:    log,
		now:       time.Now,
	}
}

// ProcessSourceByID resolves a source and crawls it. Called by the task
// handler; a vanished source is logged and dropped rather than retried.
func (p *Pipeline) ProcessSourceByID(ctx context.Context, sourceID string) error {
	source, err := p.sources.GetByID(ctx, sourceID)
	if err != nil {
		p.logger.Error("source not found for processing",
			logger.String("source_id", sourceID),
			logger.Error(err),
		)
		return nil
	}

	_, err = p.ProcessSource(ctx, source)
	return err
}

// ProcessSource crawls one source and returns the number of newly persisted
// articles.
//
// A missing URL or unknown source type is a configuration error: logged,
// crawl skipped, no error returned. Fetch and persistence failures are
// returned so the attempt counts as failed and may be retried. On success
// the source's last_scraped_at is advanced.
func (p *Pipeline) ProcessSource(ctx context.Context, source *domain.Source) (int, error) {
	if source.URL == "" {
		p.logger.Error("source has no URL", logger.String("source_id", source.ID))
		return 0, nil
	}

	start := p.now()
	newCount, err := p.crawl(ctx, source)
	metrics.CrawlDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.CrawlsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		p.logger.Error("error during crawling",
			logger.String("source", source.Name),
			logger.Error(err),
		)
		return 0, err
	}

	metrics.CrawlsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()

	if updateErr := p.sources.UpdateLastScrapedAt(ctx, source.ID, p.now()); updateErr != nil {
		return newCount, fmt.Errorf("update last_scraped_at for %s: %w", source.ID, updateErr)
	}

	return newCount, nil
}

func (p *Pipeline) crawl(ctx context.Context, source *domain.Source) (int, error) {
	p.logger.Info("fetching content",
		logger.String("url", source.URL),
		logger.String("source", source.Name),
	)

	content, err := p.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		return 0, fmt.Errorf("fetch content: %w", err)
	}

	contentParser, err := parser.ForType(source.Type)
	if err != nil {
		// Unknown type is a configuration problem, not a retryable failure.
		p.logger.Error("no parser for source",
			logger.String("source", source.Name),
			logger.Error(err),
		)
		return 0, nil
	}

	candidates := contentParser.Parse(content, source)
	p.logger.Info("parsed articles from source",
		logger.Int("count", len(candidates)),
		logger.String("source", source.Name),
	)

	fetchedAt := p.now().UTC()
	var newArticles []*domain.Article
	seenURLs := make(map[string]bool)
	for _, candidate := range candidates {
		existing, findErr := p.articles.FindBySourceAndExternalID(ctx, source.ID, candidate.ExternalID)
		if findErr != nil {
			return 0, fmt.Errorf("dedup lookup for %s: %w", candidate.ExternalID, findErr)
		}
		if existing != nil {
			continue
		}

		// URLs are unique across all sources. A candidate another source
		// already published is a duplicate, not new content.
		byURL, findErr := p.articles.FindByURL(ctx, candidate.URL)
		if findErr != nil {
			return 0, fmt.Errorf("dedup lookup for %s: %w", candidate.URL, findErr)
		}
		if byURL != nil || seenURLs[candidate.URL] {
			p.logger.Info("skipping candidate with known URL",
				logger.String("url", candidate.URL),
				logger.String("source", source.Name),
			)
			continue
		}
		seenURLs[candidate.URL] = true

		candidate.FetchedAt = fetchedAt
		candidate.Status = domain.ArticleStatusNew
		candidate.SourceName = source.Name
		newArticles = append(newArticles, candidate)
	}

	if len(newArticles) == 0 {
		return 0, nil
	}

	if insertErr := p.articles.InsertBatch(ctx, newArticles); insertErr != nil {
		return 0, fmt.Errorf("persist new articles: %w", insertErr)
	}

	for _, article := range newArticles {
		if indexErr := p.projector.IndexArticle(ctx, article); indexErr != nil {
			// The article is persisted; a failed projection is logged and
			// repaired by the next reindex rather than failing the crawl.
			p.logger.Error("failed to index article",
				logger.String("article_id", article.ID),
				logger.Error(indexErr),
			)
		}
	}

	metrics.NewArticles.Add(float64(len(newArticles)))
	p.logger.Info("saved and indexed new articles",
		logger.Int("count", len(newArticles)),
		logger.String("source", source.Name),
	)

	return len(newArticles), nil
}

// SourceError records a failed source in an all-sources run.
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// Stats summarizes a manual all-sources run.
type Stats struct {
	Processed   int           `json:"processed"`
	NewArticles int           `json:"new_articles"`
	Errors      []SourceError `json:"errors"`
}

// ProcessAll crawls every registered source sequentially, collecting
// per-source failures instead of aborting. Used by the manual triggers.
func (p *Pipeline) ProcessAll(ctx context.Context) (*Stats, error) {
	sources, err := p.sources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	stats := &Stats{Errors: []SourceError{}}
	for _, source := range sources {
		newCount, processErr := p.ProcessSource(ctx, source)
		if processErr != nil {
			stats.Errors = append(stats.Errors, SourceError{
				Source:  source.Name,
				Message: processErr.Error(),
			})
			continue
		}
		stats.Processed++
		stats.NewArticles += newCount
	}

	p.logger.Info("manual crawl executed",
		logger.Int("processed", stats.Processed),
		logger.Int("new_articles", stats.NewArticles),
		logger.Int("errors", len(stats.Errors)),
	)

	return stats, nil
}
