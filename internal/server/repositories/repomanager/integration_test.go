//go:build integration

package repomanager

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/dbx"
	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:18-alpine",
		postgres.WithDatabase("gophblog_test"),
		postgres.WithUsername("gophblog"),
		postgres.WithPassword("gophblog"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgres_MigrateAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	dsn := startPostgres(t)

	db, err := Open(ctx, dsn, 30*time.Second, logging.Nop())
	require.NoError(t, err)
	defer db.Close()

	m := NewPostgresRepositoryManager()
	require.NoError(t, m.RunMigrations(ctx, db))

	u, err := m.Users(db).Create(ctx, &models.User{
		Email: "alex@example.com", FirstName: "Alex", LastName: "Johnson", PasswordHash: "x", IsActive: true,
	})
	require.NoError(t, err)

	_, err = m.Users(db).Create(ctx, &models.User{Email: "alex@example.com", PasswordHash: "y", IsActive: true})
	require.ErrorIs(t, err, common.ErrorConflict)

	for i := 0; i < 25; i++ {
		_, err := m.Posts(db).Create(ctx, &models.Post{
			Title: "Post title", Content: "Some content here", IsPublished: true, AuthorID: u.ID,
		})
		require.NoError(t, err)
	}

	var page []*models.Post
	var total int
	err = dbx.WithTx(ctx, db, dbx.ReadOnlySnapshot, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if page, err = m.Posts(tx).ListPublished(ctx, 10, 20); err != nil {
			return err
		}
		total, err = m.Posts(tx).CountPublished(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Len(t, page, 5)
	assert.Equal(t, 25, total)
	assert.Equal(t, "alex@example.com", page[0].Author.Email)

	require.NoError(t, m.Users(db).Delete(ctx, u.ID))
	n, err := m.Posts(db).CountByAuthor(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
