package service

import (
	"context"

	"termguess/internal/domain"
)

// TermGenerator picks a secret term for a category. An empty result means
// the generator had nothing to offer.
type TermGenerator interface {
	GenerateSecretTerm(ctx context.Context, category string) (string, error)
}

// QuestionAnswerer answers a player's question about the secret term.
type QuestionAnswerer interface {
	AnswerQuestion(ctx context.Context, secretTerm, category, question string) (string, error)
}

// RatingStore is the persistent home of player ratings.
type RatingStore interface {
	GetRating(ctx context.Context, playerID string) (int, error)
	SetRating(ctx context.Context, playerID string, rating int) error
	RegisterUsername(ctx context.Context, playerID, username string) error
	Top(ctx context.Context, limit int) ([]domain.RankedPlayer, error)
	Rank(ctx context.Context, playerID string) (int, error)
}

type RatingRecorder interface {
	Record(ctx context.Context, change domain.RatingChange) error
}

// Connections is the push side of the system: live client connections and
// the rooms they listen to.
type Connections interface {
	Owner(connID string) (string, bool)
	Attach(code, connID string) error
	PlayerAttached(code, playerID string) bool
	DetachPlayer(code, playerID string)
	CloseRoom(code string)
	Broadcast(code string, event domain.Event)
}
