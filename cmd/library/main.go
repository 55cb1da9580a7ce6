package main

import (
	"fmt"
	"os"
	"strings"

	"go_library/internal/config"
	"go_library/internal/db"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "library",
		Short:         "Library circulation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "INI config file (environment variables override it)")

	root.AddCommand(serveCmd(), migrateCmd(), createAdminCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the INI file when --config is set, otherwise the environment
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromINI(configPath)
	}
	return config.Load()
}

func newLogger(cfg config.LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)
	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

// setup loads configuration and opens the database
func setup() (*config.Config, *logrus.Logger, *gorm.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info("✓ Configuration loaded")

	gormDB, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, logger.WithField("component", "db"))
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, gormDB, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, gormDB, err := setup()
			if err != nil {
				return err
			}
			defer db.Close(gormDB)
			return db.Migrate(gormDB, logger.WithField("component", "db"))
		},
	}
}
