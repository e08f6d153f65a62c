package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"termguess/internal/db"
	"termguess/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type RatingHistoryRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewRatingHistoryRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *RatingHistoryRepository {
	return &RatingHistoryRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *RatingHistoryRepository) Record(ctx context.Context, change domain.RatingChange) error {
	id := change.ID
	if id == "" {
		var err error
		id, err = gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
	}
	createdAt := change.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err := r.queries.InsertRatingHistory(ctx, db.InsertRatingHistoryParams{
		ID:           id,
		PlayerID:     change.PlayerID,
		RoomCode:     change.RoomCode,
		RatingBefore: int64(change.RatingBefore),
		RatingAfter:  int64(change.RatingAfter),
		Delta:        int64(change.Delta),
		Reason:       change.Reason,
		CreatedAt:    createdAt,
	})
	if err != nil {
		return fmt.Errorf("failed to insert rating history: %w", err)
	}
	return nil
}

func (r *RatingHistoryRepository) GetByPlayer(ctx context.Context, playerID string, limit int) ([]domain.RatingChange, error) {
	records, err := r.queries.GetRatingHistoryByPlayer(ctx, db.GetRatingHistoryByPlayerParams{
		PlayerID: playerID,
		Limit:    int64(limit),
	})
	if err != nil {
		return nil, err
	}

	result := make([]domain.RatingChange, len(records))
	for i, rec := range records {
		result[i] = domain.RatingChange{
			ID:           rec.ID,
			PlayerID:     rec.PlayerID,
			RoomCode:     rec.RoomCode,
			RatingBefore: int(rec.RatingBefore),
			RatingAfter:  int(rec.RatingAfter),
			Delta:        int(rec.Delta),
			Reason:       rec.Reason,
			CreatedAt:    rec.CreatedAt,
		}
	}
	return result, nil
}
