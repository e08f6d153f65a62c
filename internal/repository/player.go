package repository

import (
	"sort"
	"sync"
	"time"

	"termguess/internal/domain"

	"github.com/rs/zerolog"
)

// PlayerRepository is the in-memory directory of signed-in players and the
// room each one occupies.
type PlayerRepository struct {
	mu      sync.RWMutex
	players map[string]*domain.Player
	logger  zerolog.Logger
}

func NewPlayerRepository(logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		players: make(map[string]*domain.Player),
		logger:  logger,
	}
}

// Upsert creates the player or renames an existing one. The room a player
// occupies survives a repeated sign-in.
func (r *PlayerRepository) Upsert(id, username string) domain.Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if p, ok := r.players[id]; ok {
		p.Username = username
		p.UpdatedAt = now
		return *p
	}

	p := &domain.Player{
		ID:        id,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.players[id] = p
	r.logger.Debug().Str("player_id", id).Str("username", username).Msg("player created")
	return *p
}

func (r *PlayerRepository) Get(id string) (domain.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[id]
	if !ok {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return *p, nil
}

func (r *PlayerRepository) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.players[id]
	return ok
}

func (r *PlayerRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.players, id)
}

// GetMany returns the players found among ids, sorted by id.
func (r *PlayerRepository) GetMany(ids []string) []domain.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.players[id]; ok {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ClaimRoom records that the player entered code. It fails when the player
// is already recorded in any room, so a player can never be in two rooms.
// Callers hold the target room's lock while claiming.
func (r *PlayerRepository) ClaimRoom(id, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if p.CurrentRoom != "" {
		return domain.ErrAlreadyInRoom
	}
	p.CurrentRoom = code
	p.UpdatedAt = time.Now()
	return nil
}

// ReleaseRoom clears the player's room if it is still code.
func (r *PlayerRepository) ReleaseRoom(id, code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok || p.CurrentRoom != code {
		return false
	}
	p.CurrentRoom = ""
	p.UpdatedAt = time.Now()
	return true
}
