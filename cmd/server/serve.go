package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"mentorhub/internal/app"
	"mentorhub/internal/transport/rest"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		addr := fmt.Sprintf(":%d", cfg.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: rest.NewRouter(a),
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", addr).Msg("mentorhub server started")
			log.Info().Msg("Endpoints:")
			log.Info().Msg("  GET  /health")
			log.Info().Msg("  WS   /v1/ws")
			log.Info().Msg("  POST /v1/bookings/{bookingId}/decision")
			log.Info().Msg("  GET  /v1/rooms/{roomId}[/messages|/whiteboard]")
			log.Info().Msg("  GET  /v1/presence/{userId}")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				return err
			}
		}

		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited gracefully")
		return nil
	},
}
