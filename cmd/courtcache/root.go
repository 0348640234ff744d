package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/courtcache/internal/config"
	"github.com/kimhsiao/courtcache/internal/db"
	apperrors "github.com/kimhsiao/courtcache/internal/errors"
	"github.com/kimhsiao/courtcache/internal/fetcher"
	"github.com/kimhsiao/courtcache/internal/logging"
	"github.com/kimhsiao/courtcache/internal/lookup"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "courtcache",
		Short: "courtcache - court case lookup with a local cache",
		Long: `courtcache looks up court cases by case number or party name. Answers
come from a local SQLite cache when possible and from the court site
otherwise; fetched records are stored for next time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newSearchCmd(opts),
		newCaseCmd(opts),
		newListCmd(opts),
		newStatsCmd(opts),
		newProbeCmd(opts),
		newMigrateCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", apperrors.PublicMessage(err))
		os.Exit(1)
	}
}

// outputJSON prints v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// app is the wiring every data command needs.
type app struct {
	cfg  *config.Config
	conn *db.DB
	repo *db.Repository
	svc  *lookup.Service
}

// loadConfig reads configuration and initializes logging. Logs go to
// stderr so stdout carries only command output.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	logging.Init(os.Stderr, cfg.LogLevel())
	return cfg, nil
}

// openDB opens the configured database, creating its directory.
func openDB(cfg *config.Config) (*db.DB, error) {
	path := cfg.Database.Path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to create data directory", err)
			}
		}
	}
	conn, err := db.OpenPath(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to open database", err)
	}
	return conn, nil
}

// openApp loads config, opens and migrates the database and builds the
// lookup service.
func (o *options) openApp() (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	conn, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn.DB); err != nil {
		conn.Close()
		return nil, apperrors.Wrap(apperrors.ErrMigration, "failed to migrate database", err)
	}
	f, err := fetcher.New(cfg.Fetcher)
	if err != nil {
		conn.Close()
		return nil, err
	}

	repo := db.NewRepository(conn.DB)
	svc := lookup.NewService(repo, f, lookup.Config{
		Limit:        cfg.Search.Limit,
		FetchTimeout: cfg.Fetcher.Timeout,
	})
	logging.Debug("courtcache ready", map[string]interface{}{
		"database": cfg.Database.Path,
		"fetcher":  f.Name(),
	})
	return &app{cfg: cfg, conn: conn, repo: repo, svc: svc}, nil
}

// Close releases cached statements and the connection.
func (a *app) Close() error {
	a.repo.Close()
	return a.conn.Close()
}
