package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yuxiji/scenetalk/internal/config"
	"github.com/yuxiji/scenetalk/internal/logging"
	"github.com/yuxiji/scenetalk/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "scenetalk",
	Short: "Scene-based spoken English practice",
	Long: "SceneTalk walks a learner through real-life scenes: practice the lines, " +
		"hold the conversation with an AI partner, then review what to improve.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd, "")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (default ./"+config.DefaultFile+")")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides SCENETALK_DB and database.dsn)")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(audioCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// env is what every command starts from.
type env struct {
	cfg   config.Config
	log   *logrus.Logger
	store *store.Store
}

func (e *env) Close() error {
	return e.store.Close()
}

// setup loads configuration, builds the logger and opens the store.
// logOut receives log lines; the TUI passes a file so logs do not draw over
// the screen.
func setup(cmd *cobra.Command, logOut io.Writer) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel, logOut)

	driver, dsn, err := resolveDB(cmd, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("resolve database: %w", err)
	}
	st, err := store.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	log.WithField("driver", driver).Debug("store opened")
	return &env{cfg: cfg, log: log, store: st}, nil
}

// resolveDB picks the database in priority order: --db flag (sqlite),
// configured DSN, then the default data path.
func resolveDB(cmd *cobra.Command, db config.DatabaseConfig) (string, string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return store.DriverSQLite, p, nil
	}
	if db.Driver == store.DriverPostgres || db.DSN != "" {
		return db.Driver, db.DSN, nil
	}
	p, err := store.DefaultDBPath()
	if err != nil {
		return "", "", err
	}
	return store.DriverSQLite, p, nil
}
