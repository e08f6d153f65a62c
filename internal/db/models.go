package db

import "time"

type Rating struct {
	PlayerID    string
	Username    string
	Rating      int64
	GamesPlayed int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type RatingHistory struct {
	ID           string
	PlayerID     string
	RoomCode     string
	RatingBefore int64
	RatingAfter  int64
	Delta        int64
	Reason       string
	CreatedAt    time.Time
}
