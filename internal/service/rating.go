package service

import (
	"context"
	"fmt"

	"termguess/internal/constants"
	"termguess/internal/domain"
	"termguess/pkg/scoring"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	reasonWin   = "win"
	reasonLoss  = "loss"
	reasonLeave = "leave"
)

type RatingService struct {
	store   RatingStore
	history RatingRecorder
	logger  zerolog.Logger
}

func NewRatingService(store RatingStore, history RatingRecorder, logger zerolog.Logger) *RatingService {
	return &RatingService{store: store, history: history, logger: logger}
}

// Snapshot reads the current rating of every player. Players whose rating
// cannot be read are left out.
func (s *RatingService) Snapshot(ctx context.Context, playerIDs ...string) map[string]int {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	ratings := make([]int, len(playerIDs))
	ok := make([]bool, len(playerIDs))

	g := new(errgroup.Group)
	for i, id := range playerIDs {
		i, id := i, id
		g.Go(func() error {
			rating, err := s.store.GetRating(ctx, id)
			if err != nil {
				s.logger.Warn().Err(err).Str("player_id", id).Msg("failed to read rating")
				return err
			}
			ratings[i], ok[i] = rating, true
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]int, len(playerIDs))
	for i, id := range playerIDs {
		if ok[i] {
			out[id] = ratings[i]
		}
	}
	return out
}

// ApplyResult raises the winner's rating and lowers every loser's. Each
// player is updated independently; one failed update does not stop the
// others and the first failure is returned after all have run.
func (s *RatingService) ApplyResult(ctx context.Context, roomCode, winnerID string, loserIDs []string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	g := new(errgroup.Group)
	g.Go(func() error {
		return s.update(ctx, roomCode, winnerID, reasonWin, scoring.ApplyWin)
	})
	for _, id := range loserIDs {
		id := id
		g.Go(func() error {
			return s.update(ctx, roomCode, id, reasonLoss, scoring.ApplyLoss)
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("room_code", roomCode).Msg("rating update incomplete")
		return err
	}

	s.logger.Info().
		Str("room_code", roomCode).
		Str("winner", winnerID).
		Int("losers", len(loserIDs)).
		Msg("ratings updated")
	return nil
}

// Penalize applies the loss formula to a player who abandoned a ranked game.
func (s *RatingService) Penalize(ctx context.Context, roomCode, playerID string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := s.update(ctx, roomCode, playerID, reasonLeave, scoring.ApplyLoss); err != nil {
		s.logger.Error().Err(err).Str("room_code", roomCode).Str("player_id", playerID).Msg("leave penalty failed")
		return err
	}
	return nil
}

func (s *RatingService) update(ctx context.Context, roomCode, playerID, reason string, apply func(int) int) error {
	before, err := s.store.GetRating(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to read rating for %s: %w", playerID, err)
	}

	after := apply(before)
	if err := s.store.SetRating(ctx, playerID, after); err != nil {
		return fmt.Errorf("failed to write rating for %s: %w", playerID, err)
	}

	change := domain.RatingChange{
		PlayerID:     playerID,
		RoomCode:     roomCode,
		RatingBefore: before,
		RatingAfter:  after,
		Delta:        after - before,
		Reason:       reason,
	}
	if err := s.history.Record(ctx, change); err != nil {
		s.logger.Warn().Err(err).Str("player_id", playerID).Msg("failed to record rating history")
	}

	s.logger.Debug().
		Str("player_id", playerID).
		Str("reason", reason).
		Int("before", before).
		Int("after", after).
		Msg("rating changed")
	return nil
}

func (s *RatingService) RegisterUsername(ctx context.Context, playerID, username string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.store.RegisterUsername(ctx, playerID, username)
}

// Leaderboard returns the top players. limit is clamped to a sane range.
func (s *RatingService) Leaderboard(ctx context.Context, limit int) ([]domain.RankedPlayer, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if limit <= 0 {
		limit = constants.LeaderboardLimit
	}
	limit = min(limit, constants.MaxLeaderboardLimit)

	players, err := s.store.Top(ctx, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load leaderboard")
		return nil, err
	}
	return players, nil
}

func (s *RatingService) Rank(ctx context.Context, playerID string) (domain.RankedPlayer, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	rating, err := s.store.GetRating(ctx, playerID)
	if err != nil {
		return domain.RankedPlayer{}, err
	}
	rank, err := s.store.Rank(ctx, playerID)
	if err != nil {
		return domain.RankedPlayer{}, err
	}
	return domain.RankedPlayer{PlayerID: playerID, Rating: rating, Rank: rank}, nil
}
