package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger derives an app-scoped logger from the configured global one.
// internal/logging must have run first.
func InitLogger(app string) zerolog.Logger {
	return log.Logger.With().Str("app", app).Logger()
}
