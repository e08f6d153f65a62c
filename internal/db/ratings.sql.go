package db

import (
	"context"
	"time"
)

const getRating = `SELECT player_id, username, rating, games_played, created_at, updated_at
FROM ratings WHERE player_id = ?`

func (q *Queries) GetRating(ctx context.Context, playerID string) (Rating, error) {
	row := q.db.QueryRowContext(ctx, getRating, playerID)
	var r Rating
	err := row.Scan(&r.PlayerID, &r.Username, &r.Rating, &r.GamesPlayed, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

const upsertRating = `INSERT INTO ratings (player_id, rating, games_played, created_at, updated_at)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT (player_id) DO UPDATE SET
    rating = excluded.rating,
    games_played = ratings.games_played + 1,
    updated_at = excluded.updated_at`

type UpsertRatingParams struct {
	PlayerID  string
	Rating    int64
	UpdatedAt time.Time
}

func (q *Queries) UpsertRating(ctx context.Context, arg UpsertRatingParams) error {
	_, err := q.db.ExecContext(ctx, upsertRating, arg.PlayerID, arg.Rating, arg.UpdatedAt, arg.UpdatedAt)
	return err
}

const upsertUsername = `INSERT INTO ratings (player_id, username, rating, games_played, created_at, updated_at)
VALUES (?, ?, 0, 0, ?, ?)
ON CONFLICT (player_id) DO UPDATE SET
    username = excluded.username,
    updated_at = excluded.updated_at`

type UpsertUsernameParams struct {
	PlayerID  string
	Username  string
	UpdatedAt time.Time
}

func (q *Queries) UpsertUsername(ctx context.Context, arg UpsertUsernameParams) error {
	_, err := q.db.ExecContext(ctx, upsertUsername, arg.PlayerID, arg.Username, arg.UpdatedAt, arg.UpdatedAt)
	return err
}

const listTopRatings = `SELECT player_id, username, rating, games_played, created_at, updated_at
FROM ratings
ORDER BY rating DESC, player_id ASC
LIMIT ?`

func (q *Queries) ListTopRatings(ctx context.Context, limit int64) ([]Rating, error) {
	rows, err := q.db.QueryContext(ctx, listTopRatings, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Rating
	for rows.Next() {
		var r Rating
		if err := rows.Scan(&r.PlayerID, &r.Username, &r.Rating, &r.GamesPlayed, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countHigherRatings = `SELECT COUNT(*) FROM ratings WHERE rating > ?`

func (q *Queries) CountHigherRatings(ctx context.Context, rating int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countHigherRatings, rating)
	var count int64
	err := row.Scan(&count)
	return count, err
}
