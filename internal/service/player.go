package service

import (
	"context"
	"errors"
	"strings"

	"termguess/internal/domain"
	"termguess/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type PlayerService struct {
	repo        *repository.PlayerRepository
	rooms       *RoomService
	matchmaking *MatchmakingService
	ratings     *RatingService
	logger      zerolog.Logger
}

func NewPlayerService(
	repo *repository.PlayerRepository,
	rooms *RoomService,
	matchmaking *MatchmakingService,
	ratings *RatingService,
	logger zerolog.Logger,
) *PlayerService {
	return &PlayerService{
		repo:        repo,
		rooms:       rooms,
		matchmaking: matchmaking,
		ratings:     ratings,
		logger:      logger,
	}
}

// SignIn creates or renames a player. An empty id signs in a new player
// under a fresh id.
func (s *PlayerService) SignIn(ctx context.Context, id, username string) (domain.Player, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Player{}, domain.ErrInvalidArgument
	}
	if id == "" {
		id = uuid.New().String()
	}

	player := s.repo.Upsert(id, username)

	if err := s.ratings.RegisterUsername(ctx, id, username); err != nil {
		s.logger.Warn().Err(err).Str("player_id", id).Msg("failed to register username with rating store")
	}

	s.logger.Info().Str("player_id", id).Str("username", username).Msg("player signed in")
	return player, nil
}

// SignOut takes the player out of their room and the matchmaking queue and
// forgets them.
func (s *PlayerService) SignOut(ctx context.Context, id string) error {
	player, err := s.repo.Get(id)
	if err != nil {
		return err
	}

	if player.CurrentRoom != "" {
		err := s.rooms.LeaveRoom(ctx, player.CurrentRoom, id)
		if err != nil && !errors.Is(err, domain.ErrNotInRoom) && !errors.Is(err, domain.ErrRoomNotFound) {
			return err
		}
	}
	if err := s.matchmaking.Leave(id); err != nil {
		s.logger.Warn().Err(err).Str("player_id", id).Msg("failed to leave matchmaking on sign out")
	}

	s.repo.Delete(id)
	s.logger.Info().Str("player_id", id).Msg("player signed out")
	return nil
}

func (s *PlayerService) Get(ctx context.Context, id string) (domain.Player, error) {
	return s.repo.Get(id)
}

// CurrentRoom returns the code of the player's room, empty when in none.
func (s *PlayerService) CurrentRoom(ctx context.Context, id string) (string, error) {
	player, err := s.repo.Get(id)
	if err != nil {
		return "", err
	}
	return player.CurrentRoom, nil
}
