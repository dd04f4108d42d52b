package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/folio/internal/db"
	"github.com/evcraddock/folio/internal/logging"
	"github.com/evcraddock/folio/internal/realtime"
	"github.com/evcraddock/folio/internal/web"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the comment server",
		Long:  "Start the HTTP server for the comment API and its live change feed. Settings come from FOLIO_* environment variables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := web.ConfigFromEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return runServe(cmd, cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on (overrides FOLIO_PORT)")

	return cmd
}

func runServe(cmd *cobra.Command, cfg web.Config) error {
	logging.Setup(cfg.DevMode)

	database, err := openDB(cfg.DBPath, db.WithBusyTimeout(cfg.DBBusy))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer closeDB(database)

	hub := realtime.NewHub(cfg.HubBuffer)
	srv := web.NewServer(database, hub, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx)
}
