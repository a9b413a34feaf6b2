package testlog

import (
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/osclink/internal/logging"
)

// Start configures test logging once and marks the start of t in the log.
func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("test start")
}
