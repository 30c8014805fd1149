// Command stackapi-examples serves the example pages on localhost:7000.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/fivetwenty-io/stackapi/internal/constants"
	"github.com/fivetwenty-io/stackapi/internal/demo"
	"github.com/fivetwenty-io/stackapi/pkg/stackapi"
	"github.com/fivetwenty-io/stackapi/pkg/stackexchange"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	config, err := stackapi.ConfigFromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	config.Logger = stackapi.NewZerologLogger(logger)

	api, err := stackexchange.New(ctx, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create API client")
	}

	defer func() { _ = api.Client().Close() }()

	server := demo.New(demo.Options{
		API:     api,
		Site:    os.Getenv("STACKAPI_EXAMPLES_SITE"),
		BaseURL: os.Getenv("STACKAPI_EXAMPLES_BASE_URL"),
		Scope:   os.Getenv("STACKAPI_EXAMPLES_SCOPE"),
		Logger:  logger,
	})

	httpServer := &http.Server{
		Addr:              demo.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: constants.ExamplesReadHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShortHTTPTimeout)
		defer cancel()

		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", "http://"+httpServer.Addr).Msg("serving examples")

	err = httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server failed")
	}
}
