package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OSPRERA-Gerencia/SGPD/internal/api"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
)

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the SGPD REST API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.Cfg.HTTPAddr
			}

			var cadence *services.SprintCadence
			if app.Cfg.SprintCadence != nil {
				cadence = &services.SprintCadence{
					RRule:          app.Cfg.SprintCadence.RRule,
					CapacityPoints: app.Cfg.SprintCadence.CapacityPoints,
					LengthDays:     app.Cfg.SprintCadence.LengthDays,
					NamePrefix:     app.Cfg.SprintCadence.NamePrefix,
				}
			}

			mux := http.NewServeMux()
			handler := api.NewHandler(app.Store, app.Tickets, cadence, app.Logger)
			handler.RegisterRoutes(mux)

			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				app.Logger.Info("API server listening", zap.String("addr", addr))
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
			case <-ctx.Done():
				app.Logger.Info("Shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown failed: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to the configured httpAddr)")
	return cmd
}
