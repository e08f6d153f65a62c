package db

import (
	"context"
	"time"
)

const insertRatingHistory = `INSERT INTO rating_history
    (id, player_id, room_code, rating_before, rating_after, delta, reason, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

type InsertRatingHistoryParams struct {
	ID           string
	PlayerID     string
	RoomCode     string
	RatingBefore int64
	RatingAfter  int64
	Delta        int64
	Reason       string
	CreatedAt    time.Time
}

func (q *Queries) InsertRatingHistory(ctx context.Context, arg InsertRatingHistoryParams) error {
	_, err := q.db.ExecContext(ctx, insertRatingHistory,
		arg.ID,
		arg.PlayerID,
		arg.RoomCode,
		arg.RatingBefore,
		arg.RatingAfter,
		arg.Delta,
		arg.Reason,
		arg.CreatedAt,
	)
	return err
}

const getRatingHistoryByPlayer = `SELECT id, player_id, room_code, rating_before, rating_after, delta, reason, created_at
FROM rating_history
WHERE player_id = ?
ORDER BY created_at DESC
LIMIT ?`

type GetRatingHistoryByPlayerParams struct {
	PlayerID string
	Limit    int64
}

func (q *Queries) GetRatingHistoryByPlayer(ctx context.Context, arg GetRatingHistoryByPlayerParams) ([]RatingHistory, error) {
	rows, err := q.db.QueryContext(ctx, getRatingHistoryByPlayer, arg.PlayerID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RatingHistory
	for rows.Next() {
		var r RatingHistory
		if err := rows.Scan(&r.ID, &r.PlayerID, &r.RoomCode, &r.RatingBefore, &r.RatingAfter, &r.Delta, &r.Reason, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
