package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"termguess/internal/db"
	"termguess/internal/domain"

	"github.com/rs/zerolog"
)

// RatingRepository persists player ratings. Players without a stored
// rating are rated 0.
type RatingRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewRatingRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *RatingRepository {
	return &RatingRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *RatingRepository) GetRating(ctx context.Context, playerID string) (int, error) {
	rating, err := r.queries.GetRating(ctx, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Debug().Str("player_id", playerID).Msg("no stored rating, defaulting to 0")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get rating: %w", err)
	}
	return int(rating.Rating), nil
}

func (r *RatingRepository) SetRating(ctx context.Context, playerID string, rating int) error {
	err := r.queries.UpsertRating(ctx, db.UpsertRatingParams{
		PlayerID:  playerID,
		Rating:    int64(rating),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to set rating: %w", err)
	}
	return nil
}

// RegisterUsername keeps the display name used by the leaderboard current.
func (r *RatingRepository) RegisterUsername(ctx context.Context, playerID, username string) error {
	return r.queries.UpsertUsername(ctx, db.UpsertUsernameParams{
		PlayerID:  playerID,
		Username:  username,
		UpdatedAt: time.Now(),
	})
}

func (r *RatingRepository) Top(ctx context.Context, limit int) ([]domain.RankedPlayer, error) {
	rows, err := r.queries.ListTopRatings(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}

	result := make([]domain.RankedPlayer, len(rows))
	for i, row := range rows {
		result[i] = domain.RankedPlayer{
			PlayerID: row.PlayerID,
			Username: row.Username,
			Rating:   int(row.Rating),
		}
		// players sharing a rating share a rank
		if i > 0 && row.Rating == rows[i-1].Rating {
			result[i].Rank = result[i-1].Rank
		} else {
			result[i].Rank = i + 1
		}
	}
	return result, nil
}

// Rank is one more than the number of players rated strictly higher.
func (r *RatingRepository) Rank(ctx context.Context, playerID string) (int, error) {
	rating, err := r.GetRating(ctx, playerID)
	if err != nil {
		return 0, err
	}
	higher, err := r.queries.CountHigherRatings(ctx, int64(rating))
	if err != nil {
		return 0, fmt.Errorf("failed to count ratings: %w", err)
	}
	return int(higher) + 1, nil
}
