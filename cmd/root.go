package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"notion-lite/common"
	"notion-lite/database"
	"notion-lite/store"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:          "notion-lite",
	Short:        "Pages and blocks REST backend",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to an optional .env file")
}

// loadConfig reads and validates the configuration and sets up logging.
func loadConfig() (common.Config, error) {
	cfg, err := common.LoadConfig(envFile)
	if err != nil {
		return common.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return common.Config{}, err
	}
	common.SetupLogger(cfg)
	return cfg, nil
}

// openStore connects to the configured backend and brings its schema or indexes up
// to date.
func openStore(ctx context.Context, cfg common.Config) (store.Store, error) {
	if cfg.DBDriver == common.DriverMongo {
		client, err := common.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s := store.NewMongoStore(client, cfg.MongoDatabase, cfg.MongoTransactions)
		if err := database.EnsureMongoIndexes(ctx, s.Database()); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	}

	db, err := common.ConnectDb(cfg)
	if err != nil {
		return nil, err
	}
	s := store.NewGormStore(db)
	if err := database.RunMigrations(db); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return s, nil
}
