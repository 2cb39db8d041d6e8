package crawl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/polygraphy/digest/internal/crawl"
	"github.com/polygraphy/digest/internal/domain"
	"github.com/polygraphy/digest/internal/logger"
)

const testFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <item><title>One</title><link>https://example.com/one</link><guid>one</guid></item>
  <item><title>Two</title><link>https://example.com/two</link><guid>two</guid></item>
</channel></rss>`

type fakeFetcher struct {
	content []byte
	err     error
	calls   int
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.calls++
	return f.content, f.err
}

type fakeArticleStore struct {
	existing   map[string]*domain.Article
	byURL      map[string]*domain.Article
	inserted   []*domain.Article
	findErr    error
	insertErr  error
	findCalled int
}

func (f *fakeArticleStore) FindBySourceAndExternalID(_ context.Context, _, externalID string) (*domain.Article, error) {
	f.findCalled++
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.existing[externalID], nil
}

func (f *fakeArticleStore) FindByURL(_ context.Context, url string) (*domain.Article, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.byURL[url], nil
}

func (f *fakeArticleStore) InsertBatch(_ context.Context, articles []*domain.Article) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, articles...)
	return nil
}

type fakeSourceStore struct {
	source        *domain.Source
	getErr        error
	lastScrapedAt []time.Time
}

func (f *fakeSourceStore) GetByID(context.Context, string) (*domain.Source, error) {
	return f.source, f.getErr
}

func (f *fakeSourceStore) List(context.Context) ([]*domain.Source, error) {
	if f.source == nil {
		return nil, nil
	}
	return []*domain.Source{f.source}, nil
}

func (f *fakeSourceStore) UpdateLastScrapedAt(_ context.Context, _ string, at time.Time) error {
	f.lastScrapedAt = append(f.lastScrapedAt, at)
	return nil
}

type fakeProjector struct {
	indexed []string
	err     error
}

func (f *fakeProjector) IndexArticle(_ context.Context, article *domain.Article) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, article.ExternalID)
	return nil
}

func rssSource() *domain.Source {
	return &domain.Source{
		ID:   "src-1",
		Name: "Print News",
		URL:  "https://example.com/feed",
		Type: domain.SourceTypeRSS,
	}
}

func newTestPipeline(
	fetcher *fakeFetcher,
	articles *fakeArticleStore,
	sources *fakeSourceStore,
	projector *fakeProjector,
) *crawl.Pipeline {
	return crawl.NewPipeline(fetcher, articles, sources, projector, logger.NewNop())
}

func TestProcessSource_PersistsAndIndexesNewArticles(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{content: []byte(testFeed)}
	articles := &fakeArticleStore{}
	sources := &fakeSourceStore{}
	projector := &fakeProjector{}

	p := newTestPipeline(fetcher, articles, sources, projector)

	newCount, err := p.ProcessSource(context.Background(), rssSource())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newCount != 2 {
		t.Errorf("newCount = %d, want 2", newCount)
	}
	if len(articles.inserted) != 2 {
		t.Fatalf("inserted %d articles, want 2", len(articles.inserted))
	}
	if articles.inserted[0].Status != domain.ArticleStatusNew {
		t.Errorf("status = %q, want %q", articles.inserted[0].Status, domain.ArticleStatusNew)
	}
	if len(projector.indexed) != 2 {
		t.Errorf("indexed %d articles, want 2", len(projector.indexed))
	}
	if len(sources.lastScrapedAt) != 1 {
		t.Errorf("last_scraped_at updated %d times, want 1", len(sources.lastScrapedAt))
	}
}

func TestProcessSource_SecondRunIsIdempotent(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{content: []byte(testFeed)}
	articles := &fakeArticleStore{existing: map[string]*domain.Article{
		"one": {ID: "a-1", ExternalID: "one"},
		"two": {ID: "a-2", ExternalID: "two"},
	}}
	sources := &fakeSourceStore{}

	p := newTestPipeline(fetcher, articles, sources, &fakeProjector{})

	newCount, err := p.ProcessSource(context.Background(), rssSource())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newCount != 0 {
		t.Errorf("newCount = %d, want 0 when everything is already known", newCount)
	}
	if len(articles.inserted) != 0 {
		t.Errorf("inserted %d articles, want 0", len(articles.inserted))
	}
	// A crawl that found nothing new still completed.
	if len(sources.lastScrapedAt) != 1 {
		t.Errorf("last_scraped_at updated %d times, want 1", len(sources.lastScrapedAt))
	}
}

func TestProcessSource_SkipsURLKnownFromAnotherSource(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{content: []byte(testFeed)}
	// "one" was already ingested through a different source, so only "two"
	// is new even though the external id lookup finds nothing.
	articles := &fakeArticleStore{byURL: map[string]*domain.Article{
		"https://example.com/one": {ID: "a-other", SourceID: "src-2", URL: "https://example.com/one"},
	}}
	sources := &fakeSourceStore{}

	p := newTestPipeline(fetcher, articles, sources, &fakeProjector{})

	newCount, err := p.ProcessSource(context.Background(), rssSource())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newCount != 1 {
		t.Errorf("newCount = %d, want 1", newCount)
	}
	if len(articles.inserted) != 1 || articles.inserted[0].URL != "https://example.com/two" {
		t.Errorf("inserted = %+v, want only the unseen URL", articles.inserted)
	}
}

func TestProcessSource_FetchFailurePropagates(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	sources := &fakeSourceStore{}

	p := newTestPipeline(fetcher, &fakeArticleStore{}, sources, &fakeProjector{})

	if _, err := p.ProcessSource(context.Background(), rssSource()); err == nil {
		t.Fatal("expected fetch failure to propagate")
	}
	if len(sources.lastScrapedAt) != 0 {
		t.Error("last_scraped_at must not advance after a failed crawl")
	}
}

func TestProcessSource_PersistFailurePropagates(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{content: []byte(testFeed)}
	articles := &fakeArticleStore{insertErr: errors.New("deadlock detected")}
	sources := &fakeSourceStore{}

	p := newTestPipeline(fetcher, articles, sources, &fakeProjector{})

	if _, err := p.ProcessSource(context.Background(), rssSource()); err == nil {
		t.Fatal("expected persistence failure to propagate")
	}
	if len(sources.lastScrapedAt) != 0 {
		t.Error("last_scraped_at must not advance after a failed crawl")
	}
}

func TestProcessSource_IndexFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{content: []byte(testFeed)}
	articles := &fakeArticleStore{}
	sources := &fakeSourceStore{}
	projector := &fakeProjector{err: errors.New("cluster red")}

	p := newTestPipeline(fetcher, articles, sources, projector)

	newCount, err := p.ProcessSource(context.Background(), rssSource())
	if err != nil {
		t.Fatalf("projection failure must not fail the crawl: %v", err)
	}
	if newCount != 2 {
		t.Errorf("newCount = %d, want 2", newCount)
	}
	if len(sources.lastScrapedAt) != 1 {
		t.Error("crawl with projection failures still completed; last_scraped_at should advance")
	}
}

func TestProcessSource_EmptyURLIsConfigError(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{content: []byte(testFeed)}
	sources := &fakeSourceStore{}

	p := newTestPipeline(fetcher, &fakeArticleStore{}, sources, &fakeProjector{})

	source := rssSource()
	source.URL = ""

	newCount, err := p.ProcessSource(context.Background(), source)
	if err != nil {
		t.Fatalf("missing URL must not be a retryable failure: %v", err)
	}
	if newCount != 0 {
		t.Errorf("newCount = %d, want 0", newCount)
	}
	if fetcher.calls != 0 {
		t.Error("fetch must not be attempted without a URL")
	}
}

func TestProcessSource_UnknownTypeIsConfigError(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{content: []byte(testFeed)}
	sources := &fakeSourceStore{}

	p := newTestPipeline(fetcher, &fakeArticleStore{}, sources, &fakeProjector{})

	source := rssSource()
	source.Type = domain.SourceType("podcast")

	if _, err := p.ProcessSource(context.Background(), source); err != nil {
		t.Fatalf("unknown type must not be a retryable failure: %v", err)
	}
}

func TestProcessSourceByID_MissingSourceIsDropped(t *testing.T) {
	t.Parallel()

	sources := &fakeSourceStore{getErr: errors.New("source not found")}

	p := newTestPipeline(&fakeFetcher{}, &fakeArticleStore{}, sources, &fakeProjector{})

	if err := p.ProcessSourceByID(context.Background(), "gone"); err != nil {
		t.Fatalf("a vanished source must be dropped, not retried: %v", err)
	}
}

func TestProcessAll_CollectsPerSourceErrors(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: errors.New("timeout")}
	sources := &fakeSourceStore{source: rssSource()}

	p := newTestPipeline(fetcher, &fakeArticleStore{}, sources, &fakeProjector{})

	stats, err := p.ProcessAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Processed != 0 {
		t.Errorf("processed = %d, want 0", stats.Processed)
	}
	if len(stats.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(stats.Errors))
	}
	if stats.Errors[0].Source != "Print News" {
		t.Errorf("error attributed to %q, want %q", stats.Errors[0].Source, "Print News")
	}
}
