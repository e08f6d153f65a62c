package domain

type EventType string

const (
	EventPlayerJoined EventType = "room-player-joined"
	EventPlayerLeft   EventType = "room-player-left"
	EventGameStart    EventType = "room-game-start"
	EventGameEnd      EventType = "room-game-end"
)

type Event struct {
	Type     EventType `json:"type"`
	RoomCode string    `json:"roomCode"`
	PlayerID string    `json:"playerId,omitempty"`
}
