package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OSPRERA-Gerencia/SGPD/cmd/cli/commands"
	"github.com/OSPRERA-Gerencia/SGPD/internal/config"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/clients/jiraclient"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/memstore"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/postgres"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/utils/logging"
)

var (
	env     string
	quiet   bool
	app     = &commands.AppContext{}
	closeDB func()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sgpd",
		Short: "SGPD CLI - Manage development requests and sprint planning",
		Long:  `A CLI tool for registering development requests, scoring and prioritizing them, and planning sprint allocations.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil && app.Logger != nil {
				app.Logger.Sync()
			}
			if closeDB != nil {
				closeDB()
			}
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors to the console")
	rootCmd.MarkPersistentFlagRequired("env")

	// Add all commands
	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.CreateProjectCmd(app))
	rootCmd.AddCommand(commands.ListProjectsCmd(app))
	rootCmd.AddCommand(commands.SetProjectStatusCmd(app))
	rootCmd.AddCommand(commands.ShowWeightsCmd(app))
	rootCmd.AddCommand(commands.UpdateWeightsCmd(app))
	rootCmd.AddCommand(commands.CreateSprintCmd(app))
	rootCmd.AddCommand(commands.ListSprintsCmd(app))
	rootCmd.AddCommand(commands.SprintDetailCmd(app))
	rootCmd.AddCommand(commands.DeleteSprintCmd(app))
	rootCmd.AddCommand(commands.AllocatePointsCmd(app))
	rootCmd.AddCommand(commands.UpdateAllocationCmd(app))
	rootCmd.AddCommand(commands.GenerateSprintsCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up the logger, config, store and ticketing client
func initApp() error {
	ctx := context.Background()

	// Environment variables may come from a .env file in development
	_ = godotenv.Load()

	logger, err := logging.InitLogger(env, quiet)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Starting application", zap.String("environment", env))

	logger.Info("Loading configuration")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Debug("Configuration loaded successfully")

	store, err := initStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	app.Cfg = cfg
	app.Store = store
	app.Tickets = initTickets(cfg, logger)
	app.Logger = logger
	app.Ctx = ctx
	return nil
}

// initStore connects to postgres when a database URL is configured and runs
// pending migrations; otherwise it falls back to the in-memory store. Either
// way the default weights are seeded when no active configuration exists.
func initStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (db.Store, error) {
	var store db.Store
	if cfg.DatabaseURL != "" {
		logger.Info("Connecting to database")
		pg, err := postgres.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pg.RunMigrations(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		closeDB = pg.Close
		store = pg
		logger.Info("Database initialized successfully")
	} else {
		logger.Warn("No database configured, using in-memory store; data will not survive the process")
		store = memstore.New()
	}

	if _, err := store.GetActiveWeights(ctx); errors.Is(err, db.ErrNotConfigured) {
		logger.Info("Seeding default priority weights",
			zap.Float64("impact", cfg.DefaultWeights.Impact),
			zap.Float64("frequency", cfg.DefaultWeights.Frequency),
			zap.Float64("urgency", cfg.DefaultWeights.Urgency))
		if _, err := store.SeedWeights(ctx, db.PriorityWeights{
			ImpactWeight:    cfg.DefaultWeights.Impact,
			FrequencyWeight: cfg.DefaultWeights.Frequency,
			UrgencyWeight:   cfg.DefaultWeights.Urgency,
		}); err != nil {
			return nil, fmt.Errorf("failed to seed priority weights: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to check priority weights: %w", err)
	}

	return store, nil
}

// initTickets builds the Jira client when the integration is configured.
// Without credentials project intake still works, it just skips the ticket.
func initTickets(cfg *config.Config, logger *zap.Logger) services.TicketCreator {
	jiraCfg := jiraclient.Config{
		Email:      cfg.JiraEmail,
		APIToken:   cfg.JiraAPIToken,
		Domain:     cfg.JiraDomain,
		ProjectKey: cfg.JiraProjectKey,
		IssueType:  cfg.JiraIssueType,
	}
	if !jiraCfg.Configured() {
		logger.Debug("Jira integration not configured, tickets disabled")
		return nil
	}
	return jiraclient.NewClient(jiraCfg, "")
}
