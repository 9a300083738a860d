package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	httpapix "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/httpapi"
	configx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/pkg/config"
	"golang.org/x/sync/errgroup"
)

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			conf, err := configx.New[AppConfig]("APP")
			if err != nil {
				return configError("app", err)
			}

			a, err := buildApp(ctx, *conf)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Warn().Err(err).Msg("close collaborators")
				}
			}()

			api, err := httpapix.NewServer(a.engine, log.Logger)
			if err != nil {
				return configError("http api", err)
			}

			srv := &http.Server{
				Addr:              conf.HTTPAddr,
				Handler:           api.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return runServer(ctx, srv, conf.ShutdownTimeout)
		},
	}
}

// runServer serves until ctx is done, then drains in-flight turns for at
// most shutdownTimeout.
func runServer(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("http api shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
