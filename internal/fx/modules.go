package fx

import (
	"database/sql"

	"termguess/internal/api"
	"termguess/internal/config"
	"termguess/internal/database"
	"termguess/internal/db"
	"termguess/internal/logger"
	"termguess/internal/repository"
	"termguess/internal/server"
	"termguess/internal/service"
	"termguess/internal/ws"

	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvideTermGenerator(c *api.GeminiClient) service.TermGenerator { return c }

func ProvideQuestionAnswerer(c *api.GeminiClient) service.QuestionAnswerer { return c }

func ProvideRatingStore(r *repository.RatingRepository) service.RatingStore { return r }

func ProvideRatingRecorder(r *repository.RatingHistoryRepository) service.RatingRecorder { return r }

func ProvideConnections(h *ws.Hub) service.Connections { return h }

// Module expects a *viper.Viper to be supplied by the caller.
var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewRoomRepository),
	fx.Provide(repository.NewRatingRepository),
	fx.Provide(repository.NewRatingHistoryRepository),
	fx.Provide(ProvideRatingStore, ProvideRatingRecorder),
	// push
	fx.Provide(ws.NewHub),
	fx.Provide(ProvideConnections),
	// api client
	fx.Provide(api.NewGeminiClient),
	fx.Provide(ProvideTermGenerator, ProvideQuestionAnswerer),
	// svc
	fx.Provide(service.NewRatingService),
	fx.Provide(service.NewRoomService),
	fx.Provide(service.NewMatchmakingService),
	fx.Provide(service.NewPlayerService),
	// server
	fx.Provide(server.NewGameServer),
)
