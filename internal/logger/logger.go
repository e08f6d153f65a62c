package logger

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// New builds the process logger. The level comes from the log-level setting
// and falls back to debug when unset or unparsable.
func New(v *viper.Viper) zerolog.Logger {
	level, err := zerolog.ParseLevel(v.GetString("log-level"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.DebugLevel
	}
	return SetLevel(level)
}

func SetLevel(level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Caller().
		Logger()

	logger = logger.Level(level)

	return logger
}
