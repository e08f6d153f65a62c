package service

import (
	"context"
	"testing"

	"termguess/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	player, err := env.playerSvc.SignIn(ctx, "", "  alice ")
	require.NoError(t, err)
	assert.NotEmpty(t, player.ID)
	assert.Equal(t, "alice", player.Username)
	assert.Equal(t, "alice", env.store.usernames[player.ID])

	_, err = env.playerSvc.SignIn(ctx, "", " ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSignInAgainKeepsRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signIn(t, "a")

	code, err := env.rooms.CreateRoom(ctx, "a", 4, "")
	require.NoError(t, err)

	player, err := env.playerSvc.SignIn(ctx, "a", "renamed")
	require.NoError(t, err)
	assert.Equal(t, "renamed", player.Username)

	current, err := env.playerSvc.CurrentRoom(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, code, current)
}

func TestSignOutLeavesRoomAndQueue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signIn(t, "host")
	env.signIn(t, "guest")
	conn, _ := env.signIn(t, "queued")

	code, err := env.rooms.CreateRoom(ctx, "host", 4, "")
	require.NoError(t, err)
	require.NoError(t, env.rooms.JoinRoom(ctx, code, "guest", ""))
	require.NoError(t, env.matchmaking.Enter("queued", conn))
	env.matchmaking.Tick(ctx)

	require.NoError(t, env.playerSvc.SignOut(ctx, "host"))
	require.NoError(t, env.playerSvc.SignOut(ctx, "queued"))
	env.matchmaking.Tick(ctx)

	_, err = env.playerSvc.Get(ctx, "host")
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
	host, err := env.rooms.GetHost(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "guest", host)
	assert.Equal(t, 0, env.matchmaking.QueueLen())

	assert.ErrorIs(t, env.playerSvc.SignOut(ctx, "host"), domain.ErrPlayerNotFound)
}
