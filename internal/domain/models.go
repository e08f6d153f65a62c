package domain

import (
	"time"
)

type RoomKind string

const (
	RoomKindCustom RoomKind = "custom"
	RoomKindRanked RoomKind = "ranked"
)

type GameState string

const (
	GameStateIdle       GameState = "idle"
	GameStateInProgress GameState = "in progress"
)

type Player struct {
	ID          string
	Username    string
	CurrentRoom string // empty when not in a room
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PlayerSanitized is the view of a player that is safe to hand to other players.
type PlayerSanitized struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (p Player) Sanitized() PlayerSanitized {
	return PlayerSanitized{ID: p.ID, Username: p.Username}
}

type Interaction struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type PlayerStats struct {
	Username          string        `json:"username"`
	Interactions      []Interaction `json:"interactions"`
	Guesses           []string      `json:"guesses"`
	RatingAtGameStart *int          `json:"ratingAtGameStart,omitempty"`
}

func NewPlayerStats(username string, rating *int) *PlayerStats {
	return &PlayerStats{
		Username:          username,
		Interactions:      []Interaction{},
		Guesses:           []string{},
		RatingAtGameStart: rating,
	}
}

func (s *PlayerStats) Clone() PlayerStats {
	out := PlayerStats{
		Username:     s.Username,
		Interactions: append([]Interaction{}, s.Interactions...),
		Guesses:      append([]string{}, s.Guesses...),
	}
	if s.RatingAtGameStart != nil {
		r := *s.RatingAtGameStart
		out.RatingAtGameStart = &r
	}
	return out
}

type MatchmakingIntentKind string

const (
	IntentJoin  MatchmakingIntentKind = "join"
	IntentLeave MatchmakingIntentKind = "leave"
)

type MatchmakingIntent struct {
	Kind         MatchmakingIntentKind
	Timestamp    time.Time
	PlayerID     string
	ConnectionID string // empty for leave intents
}

type MatchmakingEntry struct {
	PlayerID     string
	ConnectionID string
	Priority     int
}

type RatingChange struct {
	ID           string // nanoid
	PlayerID     string
	RoomCode     string
	RatingBefore int
	RatingAfter  int
	Delta        int
	Reason       string // "win", "loss", "leave"
	CreatedAt    time.Time
}

type RankedPlayer struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Rank     int    `json:"rank"`
}
