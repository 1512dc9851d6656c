package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobtracker-engine/internal/config"
	"jobtracker-engine/internal/store"
)

var (
	dataDir    string
	configPath string
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jobtracker-migrate",
	Short: "Manage the job tracker database schema",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		db := openDB()
		defer db.Close()

		ctx := context.Background()
		if err := store.Migrate(ctx, db.Pool, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		v, err := store.SchemaVersion(ctx, db.Pool)
		if err != nil {
			logger.Fatal("Failed to read schema version", zap.Error(err))
		}
		logger.Info("Migrations completed successfully", zap.Int("version", v))
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		db := openDB()
		defer db.Close()

		v, err := store.SchemaVersion(context.Background(), db.Pool)
		if err != nil {
			logger.Fatal("Failed to read schema version", zap.Error(err))
		}
		fmt.Printf("schema version: %d\n", v)
		for _, m := range store.Migrations() {
			state := "pending"
			if m.Version <= v {
				state = "applied"
			}
			fmt.Printf("  %3d  %-8s %s\n", m.Version, state, m.Description)
		}
	},
}

func openDB() *store.DB {
	cfg, path, vr, err := config.LoadUserConfig(dataDir, configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.String("path", path), zap.Error(err))
	}
	if !vr.OK() {
		logger.Fatal("Invalid config", zap.String("path", path), zap.Strings("errors", vr.Errors))
	}

	dbPath := cfg.DatabasePath(dataDir)
	logger.Info("Opening database", zap.String("path", dbPath))
	db, err := store.Open(dbPath, store.Options{})
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	return db
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", config.DataDir(), "directory holding config.yml and the database")
	rootCmd.PersistentFlags().StringVar(&configPath, "default-config", filepath.Join("config", "config.yml"), "template copied when the data dir has no config")
	rootCmd.AddCommand(upCmd, statusCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
