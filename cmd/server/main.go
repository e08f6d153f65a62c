package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"termguess/internal/config"
	"termguess/internal/constants"
	fxmodules "termguess/internal/fx"
	"termguess/internal/middleware"
	"termguess/internal/server"
	"termguess/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
)

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:           "termguess",
		Short:         "Multiplayer secret-term guessing game server with ranked matchmaking.",
		Args:          cobra.ExactArgs(0),
		Version:       constants.ReleaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				fx.Supply(v),
				fxmodules.Module,
				fx.Invoke(runServer, runMatchmaking),
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringP("port", "p", "8080", "port to listen on (env: TERMGUESS_PORT)")
	fs.String("db-path", "termguess.db", "path to the sqlite database (env: TERMGUESS_DB_PATH)")
	fs.String("log-level", "info", "log level: trace, debug, info, warn, error (env: TERMGUESS_LOG_LEVEL)")
	fs.String("env-file", ".env", "dotenv file to load before reading the environment (env: TERMGUESS_ENV_FILE)")
	fs.String("public-url", "http://localhost:8080", "externally reachable base url used in invite links (env: TERMGUESS_PUBLIC_URL)")
	fs.Duration("matchmaking-interval", constants.MatchmakingTickInterval, "time between matchmaking ticks (env: TERMGUESS_MATCHMAKING_INTERVAL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate("termguess v{{.Version}}\n")

	return cmd
}

func runServer(
	lc fx.Lifecycle,
	gameServer *server.GameServer,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := middleware.RequestID(logger)(c.Handler(middleware.Identity(gameServer.Routes())))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           handler,
		ReadHeaderTimeout: constants.RequestTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

func runMatchmaking(lc fx.Lifecycle, matchmaking *service.MatchmakingService) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				matchmaking.Run(ctx)
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			wg.Wait()
			return nil
		},
	})
}
