package repository

import (
	"sync"
	"testing"

	"termguess/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerRepositoryUpsertKeepsRoom(t *testing.T) {
	repo := NewPlayerRepository(zerolog.Nop())

	repo.Upsert("p1", "alice")
	require.NoError(t, repo.ClaimRoom("p1", "ROOM01"))

	p := repo.Upsert("p1", "alicia")
	assert.Equal(t, "alicia", p.Username)
	assert.Equal(t, "ROOM01", p.CurrentRoom)
}

func TestPlayerRepositoryGetMissing(t *testing.T) {
	repo := NewPlayerRepository(zerolog.Nop())

	_, err := repo.Get("nobody")
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
	assert.ErrorIs(t, repo.ClaimRoom("nobody", "ROOM01"), domain.ErrPlayerNotFound)
}

func TestPlayerRepositoryClaimRoomIsExclusive(t *testing.T) {
	repo := NewPlayerRepository(zerolog.Nop())
	repo.Upsert("p1", "alice")

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- repo.ClaimRoom("p1", string(rune('A'+i)))
		}(i)
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, domain.ErrAlreadyInRoom)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestPlayerRepositoryReleaseRoom(t *testing.T) {
	repo := NewPlayerRepository(zerolog.Nop())
	repo.Upsert("p1", "alice")
	require.NoError(t, repo.ClaimRoom("p1", "ROOM01"))

	assert.False(t, repo.ReleaseRoom("p1", "OTHER1"))
	assert.True(t, repo.ReleaseRoom("p1", "ROOM01"))

	p, err := repo.Get("p1")
	require.NoError(t, err)
	assert.Empty(t, p.CurrentRoom)
	assert.NoError(t, repo.ClaimRoom("p1", "ROOM02"))
}

func TestPlayerRepositoryGetManySorted(t *testing.T) {
	repo := NewPlayerRepository(zerolog.Nop())
	repo.Upsert("b", "bob")
	repo.Upsert("a", "alice")

	players := repo.GetMany([]string{"b", "missing", "a"})
	require.Len(t, players, 2)
	assert.Equal(t, "a", players[0].ID)
	assert.Equal(t, "b", players[1].ID)
}
