package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/SammyTourani/Pulse-sub001/internal/core/config"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/storage/postgres"
)

var statusWindow time.Duration

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-brick execution totals from the execution log",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().DurationVar(&statusWindow, "window", 24*time.Hour, "aggregation window")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		slog.Error("status requires a configured database")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	repo := postgres.NewExecutionRepo(db)
	summaries, err := repo.Summary(ctx, time.Now().Add(-statusWindow))
	if err != nil {
		slog.Error("Failed to query executions", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "BRICK\tTOTAL\tFAILED\tLAST SEEN")

	for _, s := range summaries {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", s.Brick, s.Total, s.Failed, s.LastSeen.Format(time.RFC3339))
	}
	_ = w.Flush()
}
