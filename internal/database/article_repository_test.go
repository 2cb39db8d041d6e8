package database_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/polygraphy/digest/internal/database"
	"github.com/polygraphy/digest/internal/domain"
)

var articleRows = []string{
	"id", "source_id", "external_id", "title", "url", "summary", "content",
	"published_at", "fetched_at", "status", "source_name",
}

func TestArticleRepository_FindBySourceAndExternalID_NilWhenMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewArticleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("a.source_id = $1 AND a.external_id = $2")).
		WithArgs("src-1", "guid-1").
		WillReturnRows(sqlmock.NewRows(articleRows))

	article, err := repo.FindBySourceAndExternalID(context.Background(), "src-1", "guid-1")
	require.NoError(t, err, "a missing article is not an error")
	require.Nil(t, article)
}

func TestArticleRepository_FindBySourceAndExternalID_PopulatesSourceName(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewArticleRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("JOIN sources s ON s.id = a.source_id")).
		WithArgs("src-1", "guid-1").
		WillReturnRows(sqlmock.NewRows(articleRows).
			AddRow("a-1", "src-1", "guid-1", "T", "https://x", "", "", nil, now, "new", "Print News"))

	article, err := repo.FindBySourceAndExternalID(context.Background(), "src-1", "guid-1")
	require.NoError(t, err)
	require.Equal(t, "Print News", article.SourceName)
	require.Equal(t, domain.ArticleStatusNew, article.Status)
}

func TestArticleRepository_FindByURL_NilWhenMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewArticleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("a.url = $1")).
		WithArgs("https://x/new").
		WillReturnRows(sqlmock.NewRows(articleRows))

	article, err := repo.FindByURL(context.Background(), "https://x/new")
	require.NoError(t, err)
	require.Nil(t, article)
}

func TestArticleRepository_FindByURL_MatchesAcrossSources(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewArticleRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("a.url = $1")).
		WithArgs("https://x/shared").
		WillReturnRows(sqlmock.NewRows(articleRows).
			AddRow("a-1", "src-2", "guid-9", "T", "https://x/shared", "", "", nil, now, "new", "Other Feed"))

	article, err := repo.FindByURL(context.Background(), "https://x/shared")
	require.NoError(t, err)
	require.Equal(t, "src-2", article.SourceID)
}

func TestArticleRepository_InsertBatch_AssignsDefaultsInOneTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewArticleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO articles")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO articles")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	articles := []*domain.Article{
		{SourceID: "src-1", ExternalID: "one", Title: "One", URL: "https://x/one"},
		{SourceID: "src-1", ExternalID: "two", Title: "Two", URL: "https://x/two"},
	}

	require.NoError(t, repo.InsertBatch(context.Background(), articles))
	require.NoError(t, mock.ExpectationsWereMet())

	for _, article := range articles {
		require.NotEmpty(t, article.ID)
		require.False(t, article.FetchedAt.IsZero())
		require.Equal(t, domain.ArticleStatusNew, article.Status)
	}
}

func TestArticleRepository_InsertBatch_RollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewArticleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO articles")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	articles := []*domain.Article{{SourceID: "src-1", ExternalID: "one", Title: "One", URL: "https://x"}}
	require.Error(t, repo.InsertBatch(context.Background(), articles))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepository_InsertBatch_DuplicateURLViolatesConstraint(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewArticleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO articles")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_articles_url"})
	mock.ExpectRollback()

	articles := []*domain.Article{{SourceID: "src-1", ExternalID: "one", Title: "One", URL: "https://x/taken"}}
	err := repo.InsertBatch(context.Background(), articles)
	require.Error(t, err)
	require.Contains(t, err.Error(), "https://x/taken")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepository_InsertBatch_EmptyIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewArticleRepository(db)

	require.NoError(t, repo.InsertBatch(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepository_FindToArchive_ExcludesHidden(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewArticleRepository(db)

	cutoff := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("a.published_at < $1 AND a.status != $2")).
		WithArgs(cutoff, domain.ArticleStatusHidden).
		WillReturnRows(sqlmock.NewRows(articleRows))

	_, err := repo.FindToArchive(context.Background(), cutoff)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepository_UpdateStatusBatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewArticleRepository(db)

	ids := []string{"a-1", "a-2"}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE articles SET status = $1 WHERE id = ANY($2)")).
		WithArgs(domain.ArticleStatusHidden, pq.Array(ids)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.UpdateStatusBatch(context.Background(), ids, domain.ArticleStatusHidden))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepository_DeleteBatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewArticleRepository(db)

	ids := []string{"a-1"}
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM articles WHERE id = ANY($1)")).
		WithArgs(pq.Array(ids)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteBatch(context.Background(), ids))
	require.NoError(t, mock.ExpectationsWereMet())
}
