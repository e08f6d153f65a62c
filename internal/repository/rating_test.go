package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"termguess/internal/config"
	"termguess/internal/database"
	"termguess/internal/db"
	"termguess/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "test.db")}
	sqlDB, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}

func TestRatingRepositoryDefaultsToZero(t *testing.T) {
	sqlDB := openTestDB(t)
	repo := NewRatingRepository(sqlDB, db.New(sqlDB), zerolog.Nop())

	rating, err := repo.GetRating(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, 0, rating)
}

func TestRatingRepositorySetAndGet(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestDB(t)
	repo := NewRatingRepository(sqlDB, db.New(sqlDB), zerolog.Nop())

	require.NoError(t, repo.SetRating(ctx, "p1", 120))
	require.NoError(t, repo.SetRating(ctx, "p1", 150))

	rating, err := repo.GetRating(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 150, rating)
}

func TestRatingRepositoryLeaderboard(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestDB(t)
	repo := NewRatingRepository(sqlDB, db.New(sqlDB), zerolog.Nop())

	require.NoError(t, repo.RegisterUsername(ctx, "a", "alice"))
	require.NoError(t, repo.RegisterUsername(ctx, "b", "bob"))
	require.NoError(t, repo.RegisterUsername(ctx, "c", "carol"))
	require.NoError(t, repo.SetRating(ctx, "a", 300))
	require.NoError(t, repo.SetRating(ctx, "b", 500))
	require.NoError(t, repo.SetRating(ctx, "c", 300))

	top, err := repo.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, domain.RankedPlayer{PlayerID: "b", Username: "bob", Rating: 500, Rank: 1}, top[0])
	assert.Equal(t, 2, top[1].Rank)
	assert.Equal(t, 2, top[2].Rank)
	assert.Equal(t, "a", top[1].PlayerID)

	rank, err := repo.Rank(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 2, rank)

	// unrated players rank below everyone with a positive rating
	rank, err = repo.Rank(ctx, "newcomer")
	require.NoError(t, err)
	assert.Equal(t, 4, rank)
}

func TestRatingRepositoryRegisterUsernameKeepsRating(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestDB(t)
	repo := NewRatingRepository(sqlDB, db.New(sqlDB), zerolog.Nop())

	require.NoError(t, repo.SetRating(ctx, "a", 42))
	require.NoError(t, repo.RegisterUsername(ctx, "a", "alice"))

	rating, err := repo.GetRating(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 42, rating)
}

func TestRatingHistoryRepository(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestDB(t)
	repo := NewRatingHistoryRepository(sqlDB, db.New(sqlDB), zerolog.Nop())

	require.NoError(t, repo.Record(ctx, domain.RatingChange{
		PlayerID:     "p1",
		RoomCode:     "ROOM01",
		RatingBefore: 0,
		RatingAfter:  100,
		Delta:        100,
		Reason:       "win",
	}))

	history, err := repo.GetByPlayer(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotEmpty(t, history[0].ID)
	assert.Equal(t, 100, history[0].Delta)
	assert.Equal(t, "win", history[0].Reason)
	assert.False(t, history[0].CreatedAt.IsZero())
}
