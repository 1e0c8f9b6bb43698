package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fmuoria/apply-portal/internal/api"
	"github.com/fmuoria/apply-portal/internal/config"
	"github.com/fmuoria/apply-portal/internal/gui"
	"github.com/fmuoria/apply-portal/internal/logger"
	"github.com/fmuoria/apply-portal/internal/portal"
	"github.com/fmuoria/apply-portal/internal/web"
)

var (
	flagBaseURL    string
	flagConfigPath string
	flagJSONLogs   bool
	flagAddr       string
)

var rootCmd = &cobra.Command{
	Use:   "apply-portal",
	Short: "Look up a candidate by email and submit a repository to open positions",
	Long: `apply-portal opens a desktop window where a candidate looks up their
profile by email, browses the open positions and submits a repository URL
for each one.

Examples:
  apply-portal --base-url https://api.example.com
  apply-portal serve --addr :8080`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		p := portal.New(api.NewClient(cfg.APIBaseURL, nil))
		gui.NewApp(cfg, p).Run()
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the portal as a web page",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		log := logger.Named("main")

		p := portal.New(api.NewClient(cfg.APIBaseURL, nil))
		p.LoadJobs(context.Background())

		server := web.NewServer(p, cfg)
		log.Infow("starting web portal", logger.FieldAddress, cfg.ListenAddr, "base_url", cfg.APIBaseURL)

		if err := http.ListenAndServe(cfg.ListenAddr, server.Router()); err != nil {
			return errors.Wrap(err, "server failed")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "API base URL (overrides config and environment)")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to a JSON config file")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "write logs as JSON")

	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default :8080)")

	rootCmd.AddCommand(serveCmd)
}

// loadConfig merges the config file, environment and flags, then sets up logging
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagConfigPath != "" {
		cfg, err = config.LoadFrom(flagConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	if cmd.Flags().Changed("base-url") {
		cfg.APIBaseURL = flagBaseURL
	}
	if cmd.Flags().Changed("json-logs") {
		cfg.JSONLogs = flagJSONLogs
	}
	if cmd.Flags().Changed("addr") {
		cfg.ListenAddr = flagAddr
	}

	if err := logger.Initialize(cfg.JSONLogs); err != nil {
		return nil, errors.Wrap(err, "failed to initialize logger")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	// A missing .env file is fine
	_ = godotenv.Load()

	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}
