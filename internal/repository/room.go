package repository

import (
	"fmt"
	"sync"
	"time"

	"termguess/internal/constants"
	"termguess/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type RoomRepository struct {
	mu     sync.RWMutex
	rooms  map[string]*domain.Room
	logger zerolog.Logger
}

func NewRoomRepository(logger zerolog.Logger) *RoomRepository {
	return &RoomRepository{
		rooms:  make(map[string]*domain.Room),
		logger: logger,
	}
}

// Create allocates a room under a fresh code and stores it. The returned
// room is locked; the caller finishes initialising it and then unlocks it.
func (r *RoomRepository) Create(kind domain.RoomKind, maxPlayers int, timeLimit time.Duration) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var code string
	for {
		var err error
		code, err = gonanoid.Generate(constants.RoomCodeAlphabet, constants.RoomCodeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate room code: %w", err)
		}
		if _, taken := r.rooms[code]; !taken {
			break
		}
		r.logger.Debug().Str("room_code", code).Msg("room code collision, retrying")
	}

	room := domain.NewRoom(code, kind, maxPlayers, timeLimit)
	room.Lock()
	r.rooms[code] = room

	r.logger.Debug().Str("room_code", code).Str("kind", string(kind)).Msg("room created")
	return room, nil
}

func (r *RoomRepository) Get(code string) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// Delete removes the room from the index. The caller holds the room's lock
// and marks it closed.
func (r *RoomRepository) Delete(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rooms, code)
	r.logger.Debug().Str("room_code", code).Msg("room deleted")
}

func (r *RoomRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}
