package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/futuresdesk/newsradar/internal/config"
	"github.com/futuresdesk/newsradar/internal/pipeline"
	"github.com/futuresdesk/newsradar/internal/server"
	"github.com/futuresdesk/newsradar/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "newsradar",
	Short:   "Economic calendar feed for ES/NQ futures",
	Long:    "newsradar scrapes the economic calendar, resolves event times to UTC, annotates releases with a market-impact assessment, and serves the result as a JSON feed.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// API keys commonly live in a local .env during development.
		_ = godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsradar", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newsradar/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the calendar source and API key.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache and archive status",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe := pipeline.New(cfg, nil)

		fmt.Printf("Cache: %s\n", pipe.Cache().Path())
		if age, err := pipe.Cache().Age(); err != nil {
			fmt.Println("  No usable snapshot")
		} else {
			state := "stale"
			if age < cfg.CacheTTL() {
				state = "fresh"
			}
			fmt.Printf("  Snapshot is %s old (%s, TTL %s)\n", age.Round(time.Second), state, cfg.CacheTTL())
		}

		archive, err := openArchive()
		if err != nil {
			return err
		}
		defer archive.Close()

		stats, err := archive.Stats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		fmt.Printf("\nArchive: %s\n", archive.Path())
		fmt.Printf("  Runs: %d\n", stats.Runs)
		fmt.Printf("  Events: %d\n", stats.Events)

		if last, err := archive.LastRun(); err == nil && last != nil {
			fmt.Printf("  Last run: %s (%s, %d events)\n", last.StartedAt, last.Source, last.EventCount)
		}
		return nil
	},
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one refresh: fetch -> normalize -> enrich -> cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive()
		if err != nil {
			return err
		}
		defer archive.Close()

		pipe := pipeline.New(cfg, archive)
		result, err := pipe.Run(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("\nRefresh complete (origin: %s)\n", result.Origin)
		fmt.Printf("  Fetched: %d\n", result.Fetched)
		fmt.Printf("  Cohorts: %d\n", result.Cohorts)
		if result.Unscheduled > 0 {
			fmt.Printf("  Unscheduled: %d\n", result.Unscheduled)
		}
		fmt.Println()

		for _, ev := range result.Events {
			fmt.Printf("  %-22s %-6s %-8s %-7s %s\n",
				ev.EventTimeUTC, ev.Impact, ev.AIBias, ev.AIVolatility, ev.Title)
		}

		fmt.Printf("\nSnapshot written to %s\n", pipe.Cache().Path())
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON feed server",
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive()
		if err != nil {
			return err
		}
		defer archive.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		pipe := pipeline.New(cfg, archive)
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(pipe, port, cfg.CacheTTL())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openArchive() (*store.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return store.Open(cfg.ArchivePath())
}
