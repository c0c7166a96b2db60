//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap/zaptest"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"user-crud-service/internal/adapter/db/migrations"
	domain "user-crud-service/internal/domain/user"
	apperrors "user-crud-service/pkg/errors"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:17.2-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("password"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrations.Up(sqlDB, zaptest.NewLogger(t)))
	// Second run is a no-op
	require.NoError(t, migrations.Up(sqlDB, zaptest.NewLogger(t)))

	return db
}

func TestUserRepoPG_Postgres(t *testing.T) {
	db := setupPostgres(t)
	repo := NewUserRepoPG(db, zaptest.NewLogger(t))
	ctx := context.Background()

	city := "New York"
	birth := time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC)
	john, err := domain.New("John Doe", "john@example.com", &city, &birth)
	require.NoError(t, err)

	_, err = repo.Create(ctx, john)
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, john.ID())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, john.Snapshot(), stored.Snapshot())

	dup, err := domain.New("Other", "john@example.com", nil, nil)
	require.NoError(t, err)
	_, err = repo.Create(ctx, dup)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateKey)

	john.UpdateCity("Boston")
	_, err = repo.Update(ctx, john)
	require.NoError(t, err)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	gotCity, _ := users[0].City()
	assert.Equal(t, "Boston", gotCity)

	require.NoError(t, repo.Delete(ctx, john.ID()))
	err = repo.Delete(ctx, john.ID())
	var nfErr *apperrors.NotFoundError
	assert.True(t, errors.As(err, &nfErr))
}
