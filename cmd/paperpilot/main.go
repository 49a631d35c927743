package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/paperpilot/internal/app"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(exitCode(err))
	}
}

// errIssuesFound is returned by scan --fail-on-issues when the document has
// issues, so CI jobs can gate on it.
var errIssuesFound = errors.New("issues found")

// exitCode maps errors to process exit codes: 2 for an empty document or
// reported issues, 1 otherwise.
func exitCode(err error) int {
	if errors.Is(err, app.ErrNoParagraphs) || errors.Is(err, errIssuesFound) {
		return 2
	}
	return 1
}
