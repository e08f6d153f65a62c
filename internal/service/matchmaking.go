package service

import (
	"context"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"termguess/internal/config"
	"termguess/internal/constants"
	"termguess/internal/domain"
	"termguess/internal/repository"

	"github.com/rs/zerolog"
)

// MatchmakingService pairs waiting players into ranked rooms. Requests only
// record intents; all queue changes happen in Tick, which runs serially.
type MatchmakingService struct {
	intentsMu sync.Mutex
	intents   []domain.MatchmakingIntent

	tickMu  sync.Mutex
	waiting *waitingSet

	players *repository.PlayerRepository
	conns   Connections
	rooms   *RoomService
	terms   TermGenerator
	ratings *RatingService
	cfg     *config.Config
	logger  zerolog.Logger
}

func NewMatchmakingService(
	players *repository.PlayerRepository,
	conns Connections,
	rooms *RoomService,
	terms TermGenerator,
	ratings *RatingService,
	cfg *config.Config,
	logger zerolog.Logger,
) *MatchmakingService {
	return &MatchmakingService{
		waiting: newWaitingSet(),
		players: players,
		conns:   conns,
		rooms:   rooms,
		terms:   terms,
		ratings: ratings,
		cfg:     cfg,
		logger:  logger,
	}
}

// Enter asks for playerID to be queued from connID on the next tick.
func (s *MatchmakingService) Enter(playerID, connID string) error {
	if connID == "" {
		return domain.ErrInvalidArgument
	}
	player, err := s.players.Get(playerID)
	if err != nil {
		return err
	}
	if player.CurrentRoom != "" {
		return domain.ErrAlreadyInRoom
	}
	if owner, ok := s.conns.Owner(connID); !ok || owner != playerID {
		return domain.ErrConnectionNotFound
	}

	s.enqueue(domain.MatchmakingIntent{
		Kind:         domain.IntentJoin,
		Timestamp:    time.Now(),
		PlayerID:     playerID,
		ConnectionID: connID,
	})
	s.logger.Debug().Str("player_id", playerID).Msg("matchmaking join requested")
	return nil
}

// Leave asks for playerID to be dropped from the queue on the next tick.
func (s *MatchmakingService) Leave(playerID string) error {
	if !s.players.Exists(playerID) {
		return domain.ErrPlayerNotFound
	}

	s.enqueue(domain.MatchmakingIntent{
		Kind:      domain.IntentLeave,
		Timestamp: time.Now(),
		PlayerID:  playerID,
	})
	s.logger.Debug().Str("player_id", playerID).Msg("matchmaking leave requested")
	return nil
}

func (s *MatchmakingService) enqueue(intent domain.MatchmakingIntent) {
	s.intentsMu.Lock()
	defer s.intentsMu.Unlock()

	s.intents = append(s.intents, intent)
}

// Waiting reports the player's queue entry, if any.
func (s *MatchmakingService) Waiting(playerID string) (domain.MatchmakingEntry, bool) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	return s.waiting.Get(playerID)
}

func (s *MatchmakingService) QueueLen() int {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	return s.waiting.Len()
}

// Run ticks until ctx is cancelled.
func (s *MatchmakingService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.MatchmakingInterval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.cfg.MatchmakingInterval).Msg("matchmaking scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("matchmaking scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick applies pending intents, pairs as many waiting players as it can
// and then moves the player at the back of the queue up one priority.
func (s *MatchmakingService) Tick(ctx context.Context) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.drainIntents()
	paired := s.pair(ctx)
	s.age()

	if paired > 0 {
		s.logger.Info().Int("rooms", paired).Int("waiting", s.waiting.Len()).Msg("matchmaking tick")
	}
}

func (s *MatchmakingService) drainIntents() {
	s.intentsMu.Lock()
	intents := s.intents
	s.intents = nil
	s.intentsMu.Unlock()

	slices.SortStableFunc(intents, func(a, b domain.MatchmakingIntent) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	for _, intent := range intents {
		switch intent.Kind {
		case domain.IntentJoin:
			if !s.valid(intent.PlayerID, intent.ConnectionID) {
				continue
			}
			s.waiting.Join(intent.PlayerID, intent.ConnectionID)
		case domain.IntentLeave:
			s.waiting.Remove(intent.PlayerID)
		}
	}
}

// valid reports whether a waiting player can still be matched: signed in,
// not in a room and holding a live connection.
func (s *MatchmakingService) valid(playerID, connID string) bool {
	player, err := s.players.Get(playerID)
	if err != nil || player.CurrentRoom != "" {
		return false
	}
	owner, ok := s.conns.Owner(connID)
	return ok && owner == playerID
}

// popValid pops entries until it finds a valid one. Invalid entries are
// dropped for good.
func (s *MatchmakingService) popValid() (*waitingEntry, bool) {
	for {
		e, ok := s.waiting.Pop()
		if !ok {
			return nil, false
		}
		if s.valid(e.PlayerID, e.ConnectionID) {
			return e, true
		}
		s.logger.Debug().Str("player_id", e.PlayerID).Msg("dropping stale matchmaking entry")
	}
}

func (s *MatchmakingService) pair(ctx context.Context) int {
	paired := 0
	for s.waiting.Len() >= 2 {
		first, ok := s.popValid()
		if !ok {
			break
		}
		second, ok := s.popValid()
		if !ok {
			s.waiting.Restore(first)
			break
		}

		category := s.randomCategory()
		genCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
		term, err := s.terms.GenerateSecretTerm(genCtx, category)
		cancel()
		term = strings.TrimSpace(term)
		if err != nil || term == "" {
			s.logger.Warn().Err(err).Str("category", category).Msg("term generation failed, requeueing pair")
			s.waiting.Restore(first)
			s.waiting.Restore(second)
			break
		}

		ratings := s.ratings.Snapshot(ctx, first.PlayerID, second.PlayerID)
		pair := RankedPair{First: first.MatchmakingEntry, Second: second.MatchmakingEntry}
		if _, err := s.rooms.CreateRankedRoom(ctx, pair, category, term, ratings); err != nil {
			s.logger.Warn().Err(err).Msg("could not place matched pair, requeueing live players")
			for _, e := range []*waitingEntry{first, second} {
				if s.valid(e.PlayerID, e.ConnectionID) {
					s.waiting.Restore(e)
				}
			}
			break
		}
		paired++
	}
	return paired
}

// age promotes exactly one entry: the valid one at the back of the queue.
func (s *MatchmakingService) age() {
	for {
		back, ok := s.waiting.Back()
		if !ok {
			return
		}
		if s.valid(back.PlayerID, back.ConnectionID) {
			s.waiting.Promote(back)
			return
		}
		s.waiting.Remove(back.PlayerID)
	}
}

func (s *MatchmakingService) randomCategory() string {
	categories := s.cfg.Categories
	if len(categories) == 0 {
		categories = constants.DefaultCategories
	}
	return categories[rand.Intn(len(categories))]
}
