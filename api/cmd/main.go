package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/bootstrap"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/config"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/logger"
)

// shutdownGrace bounds how long in-flight sign-ins get to finish. Open user
// streams are cancelled as soon as shutdown starts.
const shutdownGrace = 15 * time.Second

// server is what Run drives; *http.Server satisfies it through httpServer.
type server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
	Addr() string
}

type httpServer struct{ *http.Server }

func (s httpServer) Addr() string { return s.Server.Addr }

type buildFunc func() (server, func(), error)

// Run builds the server, serves until a signal or a listener failure and
// returns the process exit code.
func Run(build buildFunc, sigCh <-chan os.Signal, grace time.Duration, lg zerolog.Logger) int {
	srv, cleanup, err := build()
	if err != nil {
		lg.Error().Err(err).Msg("identity-bridge bootstrap failed")
		return 1
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", srv.Addr()).Msg("identity-bridge listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		lg.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		lg.Error().Err(err).Msg("listener failed")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		lg.Error().Err(err).Dur("grace", grace).Msg("graceful shutdown failed, closing")
		_ = srv.Close()
	}

	lg.Info().Msg("shutdown complete")
	return 0
}

func build() (server, func(), error) {
	srv, cleanup, err := bootstrap.NewServer()
	if err != nil {
		return nil, nil, err
	}
	return httpServer{srv}, cleanup, nil
}

func main() {
	// .env has to be applied before the logger reads LOG_LEVEL and LOG_FORMAT.
	dotEnvErr := config.LoadDotEnv()
	logger.Init()
	if dotEnvErr != nil {
		logger.Logger.Warn().Err(dotEnvErr).Msg("ignoring unreadable .env")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	os.Exit(Run(build, sigCh, shutdownGrace, logger.Logger))
}
