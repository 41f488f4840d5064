// Package main is the entry point for tattletale.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/dejisec/tattletale/internal/ingest"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Execute(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ingest.ErrMissingMandatoryInput), errors.Is(err, ingest.ErrNoAccountFiles):
		return 2
	default:
		return 1
	}
}
