package domain

import (
	"slices"
	"sync"
	"time"
)

// Game is the round-scoped state nested inside a Room. It is only touched
// while the owning Room is locked.
type Game struct {
	State       GameState
	Category    string
	SecretTerm  string
	PlayerStats map[string]*PlayerStats
	TimeLimit   time.Duration
	StartedAt   time.Time
	Winner      string // empty when nobody won

	// Round increases every time a game starts so that a stale end timer
	// can recognise it belongs to an earlier game.
	Round uint64

	starting bool
	endTimer *time.Timer
}

func (g *Game) InProgress() bool {
	return g.State == GameStateInProgress
}

// Starting reports whether a start request is waiting on term generation.
func (g *Game) Starting() bool {
	return g.starting
}

func (g *Game) SetStarting(v bool) {
	g.starting = v
}

// ScheduleEnd arms the end timer. Any previously armed timer is cancelled.
func (g *Game) ScheduleEnd(d time.Duration, fn func()) {
	g.CancelEnd()
	g.endTimer = time.AfterFunc(d, fn)
}

// CancelEnd stops the end timer if one is armed.
func (g *Game) CancelEnd() {
	if g.endTimer != nil {
		g.endTimer.Stop()
		g.endTimer = nil
	}
}

func (g *Game) TimeLeft(now time.Time) time.Duration {
	left := g.TimeLimit - now.Sub(g.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

type Room struct {
	Code       string
	Kind       RoomKind
	MaxPlayers int
	Members    map[string]struct{}
	HostID     string // empty for ranked rooms
	Game       Game
	CreatedAt  time.Time

	closed bool
	mu     sync.Mutex
}

func NewRoom(code string, kind RoomKind, maxPlayers int, timeLimit time.Duration) *Room {
	return &Room{
		Code:       code,
		Kind:       kind,
		MaxPlayers: maxPlayers,
		Members:    make(map[string]struct{}),
		Game: Game{
			State:       GameStateIdle,
			PlayerStats: make(map[string]*PlayerStats),
			TimeLimit:   timeLimit,
		},
		CreatedAt: time.Now(),
	}
}

func (r *Room) Lock()   { r.mu.Lock() }
func (r *Room) Unlock() { r.mu.Unlock() }

// Closed reports whether the room was culled after its last member left.
// Callers holding a stale pointer must treat a closed room as missing.
func (r *Room) Closed() bool {
	return r.closed
}

func (r *Room) Close() {
	r.closed = true
	r.Game.CancelEnd()
}

func (r *Room) HasMember(playerID string) bool {
	_, ok := r.Members[playerID]
	return ok
}

func (r *Room) AddMember(playerID string) {
	r.Members[playerID] = struct{}{}
}

func (r *Room) RemoveMember(playerID string) {
	delete(r.Members, playerID)
}

// MemberIDs returns the members sorted by id.
func (r *Room) MemberIDs() []string {
	ids := make([]string, 0, len(r.Members))
	for id := range r.Members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ReassignHost hands the host role to the lexicographically smallest
// remaining member.
func (r *Room) ReassignHost() {
	ids := r.MemberIDs()
	if len(ids) == 0 {
		r.HostID = ""
		return
	}
	r.HostID = ids[0]
}

// Full reports whether admitting one more player would exceed capacity.
func (r *Room) Full() bool {
	return len(r.Members)+1 > r.MaxPlayers
}
