package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger builds the process logger. Console output for interactive runs,
// raw JSON when the output is not a terminal anyway (piped into analysis).
func InitLogger(app string, level zerolog.Level, json bool) zerolog.Logger {
	var logger zerolog.Logger
	if json {
		logger = zerolog.New(os.Stdout)
	} else {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		logger = zerolog.New(output)
	}
	logger = logger.Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
