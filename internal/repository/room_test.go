package repository

import (
	"testing"
	"time"

	"termguess/internal/constants"
	"termguess/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomRepositoryCreate(t *testing.T) {
	repo := NewRoomRepository(zerolog.Nop())

	room, err := repo.Create(domain.RoomKindCustom, 4, time.Minute)
	require.NoError(t, err)
	room.Unlock()

	assert.Len(t, room.Code, constants.RoomCodeLength)
	assert.Equal(t, domain.GameStateIdle, room.Game.State)

	got, err := repo.Get(room.Code)
	require.NoError(t, err)
	assert.Same(t, room, got)
}

func TestRoomRepositoryCodesAreUnique(t *testing.T) {
	repo := NewRoomRepository(zerolog.Nop())

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		room, err := repo.Create(domain.RoomKindCustom, 2, time.Minute)
		require.NoError(t, err)
		room.Unlock()
		require.False(t, seen[room.Code], "duplicate code %s", room.Code)
		seen[room.Code] = true
	}
	assert.Equal(t, 500, repo.Count())
}

func TestRoomRepositoryDelete(t *testing.T) {
	repo := NewRoomRepository(zerolog.Nop())

	room, err := repo.Create(domain.RoomKindRanked, 2, time.Minute)
	require.NoError(t, err)
	repo.Delete(room.Code)
	room.Unlock()

	_, err = repo.Get(room.Code)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}
