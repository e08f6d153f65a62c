package constants

import "time"

const (
	MatchmakingTickInterval = 1 * time.Second
	CustomGameTimeLimit     = 15 * time.Minute
	RankedGameTimeLimit     = 2 * time.Minute
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	RoomCodeAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	RoomCodeLength     = 6
	DefaultMaxPlayers  = 8
	RankedRoomCapacity = 2
)

const (
	LeaderboardLimit    = 50
	MaxLeaderboardLimit = 200
)

const (
	WSSendBuffer   = 16
	WSWriteTimeout = 10 * time.Second
	QRCodeSize     = 256
)

// DefaultCategories seed ranked rooms when no categories are configured.
var DefaultCategories = []string{
	"Animals",
	"Fruits",
	"Countries",
	"Famous Landmarks",
	"Musical Instruments",
	"Video Games",
	"Board Games",
	"Sports",
	"Kitchen Utensils",
	"Movies",
	"Internet Slang",
	"Occupations",
	"Vehicles",
	"Desserts",
	"Superheroes",
}

const (
	ReleaseVersion  = "0.4.0"
	MaxRequestBytes = 1 << 20
)
