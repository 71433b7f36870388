package cmd

import (
	"context"
	"os/signal"
	"syscall"

	coreconfig "github.com/AzielCF/az-remind/core/config"
	coreDB "github.com/AzielCF/az-remind/core/database"
	"github.com/AzielCF/az-remind/reminder/application"
	"github.com/AzielCF/az-remind/reminder/repository"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reminder dispatch worker",
	Long:  `Opens the reminder store and runs the background worker that feeds due reminders to the configured dispatcher until interrupted.`,
	Run:   runWorker,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runWorker(_ *cobra.Command, _ []string) {
	cfg := coreconfig.Global

	db, err := coreDB.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := repository.NewSQLiteRepository(db.SQL())
	repo.MaxRetries = cfg.Scheduler.MaxRetries
	repo.RetryBaseDelay = cfg.Scheduler.RetryBaseDelay
	if err := repo.Init(ctx); err != nil {
		logrus.Fatalf("failed to init reminder schema: %v", err)
	}

	history := repository.NewHistoryGormRepository(db.Gorm)
	if err := history.Init(ctx); err != nil {
		logrus.Fatalf("failed to init history schema: %v", err)
	}

	reconciler := application.NewStatusReconciler(repo, history)
	worker := application.NewDispatchWorker(repo, reconciler, application.LogDispatcher{})
	worker.PollInterval = cfg.Scheduler.PollInterval

	logrus.Infof("az-remind %s started (db: %s)", cfg.App.Version, cfg.Database.Name)
	worker.Run(ctx)
}
