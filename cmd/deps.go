package cmd

import (
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/jmoiron/sqlx"

	"github.com/polygraphy/digest/internal/config"
	"github.com/polygraphy/digest/internal/crawl"
	"github.com/polygraphy/digest/internal/database"
	"github.com/polygraphy/digest/internal/fetcher"
	"github.com/polygraphy/digest/internal/lifecycle"
	"github.com/polygraphy/digest/internal/logger"
	"github.com/polygraphy/digest/internal/queue"
	"github.com/polygraphy/digest/internal/search"
)

// deps wires the shared object graph used by the long-running commands. Each
// command builds only what it needs on top of it.
type deps struct {
	Config   *config.Config
	Logger   logger.Logger
	DB       *sqlx.DB
	Streams  *queue.StreamsClient
	ESClient *es.Client

	Sources  *database.SourceRepository
	Articles *database.ArticleRepository
	Products *database.ProductRepository

	Indexer  *search.Indexer
	Pipeline *crawl.Pipeline
	Producer *queue.Producer
}

// newDeps loads configuration and connects to Postgres, Redis, and
// Elasticsearch. Callers must Close.
func newDeps() (*deps, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	streams, err := queue.NewStreamsClient(queue.StreamsConfig{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Stream:   cfg.Queue.Stream,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	esClient, err := search.NewClient(cfg.Elasticsearch)
	if err != nil {
		db.Close()
		streams.Close()
		return nil, fmt.Errorf("connect to elasticsearch: %w", err)
	}

	sources := database.NewSourceRepository(db)
	articles := database.NewArticleRepository(db)
	products := database.NewProductRepository(db)
	indexer := search.NewIndexer(esClient, cfg.Elasticsearch, log)

	pipeline := crawl.NewPipeline(
		fetcher.New(cfg.Crawler),
		articles,
		sources,
		indexer,
		log,
	)

	return &deps{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Streams:  streams,
		ESClient: esClient,
		Sources:  sources,
		Articles: articles,
		Products: products,
		Indexer:  indexer,
		Pipeline: pipeline,
		Producer: queue.NewProducer(streams),
	}, nil
}

// newMaintainer builds the lifecycle manager on top of the shared deps.
func (d *deps) newMaintainer() *lifecycle.Manager {
	marker := lifecycle.NewRedisMarker(
		d.Streams.Client(),
		d.Config.Lifecycle.MarkerKey,
		d.Config.Lifecycle.MarkerTTL,
	)
	return lifecycle.NewManager(d.Articles, d.Indexer, marker, d.Config.Lifecycle, d.Logger)
}

// Close releases all connections.
func (d *deps) Close() {
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("failed to close database", logger.Error(err))
	}
	if err := d.Streams.Close(); err != nil {
		d.Logger.Error("failed to close redis", logger.Error(err))
	}
	_ = d.Logger.Sync()
}
