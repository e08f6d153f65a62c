package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"termguess/internal/config"
	"termguess/internal/domain"
	"termguess/internal/repository"
	"termguess/internal/ws"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store unavailable")

type fakeTerms struct {
	mu    sync.Mutex
	term  string
	err   error
	calls int
}

func (f *fakeTerms) GenerateSecretTerm(ctx context.Context, category string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.term, f.err
}

func (f *fakeTerms) set(term string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.term, f.err = term, err
}

type fakeAnswers struct {
	answer string
	err    error
}

func (f *fakeAnswers) AnswerQuestion(ctx context.Context, secretTerm, category, question string) (string, error) {
	return f.answer, f.err
}

type fakeRatingStore struct {
	mu        sync.Mutex
	ratings   map[string]int
	usernames map[string]string
	failSet   map[string]bool
}

func newFakeRatingStore() *fakeRatingStore {
	return &fakeRatingStore{
		ratings:   make(map[string]int),
		usernames: make(map[string]string),
		failSet:   make(map[string]bool),
	}
}

func (f *fakeRatingStore) GetRating(ctx context.Context, playerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ratings[playerID], nil
}

func (f *fakeRatingStore) SetRating(ctx context.Context, playerID string, rating int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet[playerID] {
		return errStoreDown
	}
	f.ratings[playerID] = rating
	return nil
}

func (f *fakeRatingStore) RegisterUsername(ctx context.Context, playerID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usernames[playerID] = username
	return nil
}

func (f *fakeRatingStore) Top(ctx context.Context, limit int) ([]domain.RankedPlayer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.RankedPlayer, 0, len(f.ratings))
	for id, r := range f.ratings {
		out = append(out, domain.RankedPlayer{PlayerID: id, Username: f.usernames[id], Rating: r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	for i := range out {
		out[i].Rank = i + 1
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRatingStore) Rank(ctx context.Context, playerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rank := 1
	for _, r := range f.ratings {
		if r > f.ratings[playerID] {
			rank++
		}
	}
	return rank, nil
}

func (f *fakeRatingStore) rating(playerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ratings[playerID]
}

func (f *fakeRatingStore) setRating(playerID string, rating int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratings[playerID] = rating
}

type fakeHistory struct {
	mu      sync.Mutex
	changes []domain.RatingChange
}

func (f *fakeHistory) Record(ctx context.Context, change domain.RatingChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, change)
	return nil
}

func (f *fakeHistory) all() []domain.RatingChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.RatingChange{}, f.changes...)
}

// recordingConn collects every message the hub writes to it.
type recordingConn struct {
	mu       sync.Mutex
	messages []any
}

func (c *recordingConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, v)
	return nil
}

func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) sawEvent(t domain.EventType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.messages {
		if e, ok := m.(domain.Event); ok && e.Type == t {
			return true
		}
	}
	return false
}

type testEnv struct {
	cfg         *config.Config
	players     *repository.PlayerRepository
	roomRepo    *repository.RoomRepository
	hub         *ws.Hub
	terms       *fakeTerms
	answers     *fakeAnswers
	store       *fakeRatingStore
	history     *fakeHistory
	ratings     *RatingService
	rooms       *RoomService
	matchmaking *MatchmakingService
	playerSvc   *PlayerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	env := &testEnv{
		cfg: &config.Config{
			MatchmakingInterval: 10 * time.Millisecond,
			CustomTimeLimit:     time.Minute,
			RankedTimeLimit:     time.Minute,
			Categories:          []string{"Animals"},
		},
		players:  repository.NewPlayerRepository(logger),
		roomRepo: repository.NewRoomRepository(logger),
		hub:      ws.NewHub(logger),
		terms:    &fakeTerms{term: "Skibidi Rizz"},
		answers:  &fakeAnswers{answer: "Yes."},
		store:    newFakeRatingStore(),
		history:  &fakeHistory{},
	}
	env.ratings = NewRatingService(env.store, env.history, logger)
	env.rooms = NewRoomService(env.roomRepo, env.players, env.hub, env.terms, env.answers, env.ratings, env.cfg, logger)
	env.matchmaking = NewMatchmakingService(env.players, env.hub, env.rooms, env.terms, env.ratings, env.cfg, logger)
	env.playerSvc = NewPlayerService(env.players, env.rooms, env.matchmaking, env.ratings, logger)
	return env
}

// signIn creates a player with a live connection and returns the
// connection id.
func (e *testEnv) signIn(t *testing.T, id string) (string, *recordingConn) {
	t.Helper()
	_, err := e.playerSvc.SignIn(context.Background(), id, "user-"+id)
	require.NoError(t, err)
	conn := &recordingConn{}
	return e.hub.Register(id, conn), conn
}

func (e *testEnv) currentRoom(t *testing.T, id string) string {
	t.Helper()
	p, err := e.players.Get(id)
	require.NoError(t, err)
	return p.CurrentRoom
}
