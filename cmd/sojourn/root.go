package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hylla/sojourn/internal/adapters/jira"
	"github.com/hylla/sojourn/internal/adapters/storage/sqlite"
	"github.com/hylla/sojourn/internal/app"
	"github.com/hylla/sojourn/internal/config"
	"github.com/hylla/sojourn/internal/platform"
	"github.com/spf13/cobra"
)

// tokenEnv overrides the configured API token so it can stay out of the
// config file.
const tokenEnv = "SOJOURN_API_TOKEN"

// rootFlags holds the persistent flag values shared by all subcommands.
type rootFlags struct {
	configPath string
	dbPath     string
	devMode    bool
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "sojourn",
		Short:         "Status-transition timeline analytics for issue trackers",
		Long:          "sojourn fetches issue change histories from a Jira-compatible tracker and derives time-in-status, business-hours accounting, and transition-sequence metrics.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config TOML")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "path to sqlite database")
	root.PersistentFlags().BoolVar(&flags.devMode, "dev", false, "use dev mode paths (sojourn-dev)")

	root.AddCommand(
		newAnalyzeCmd(flags),
		newSprintCmd(flags),
		newQueryCmd(flags),
		newPingCmd(flags),
		newPathsCmd(flags),
	)
	return root
}

// runtime bundles everything a subcommand needs once configuration is
// resolved. Close releases the store.
type runtime struct {
	cfg     config.Config
	logger  *charmLog.Logger
	service *app.Service
	store   *sqlite.Store
}

func (r *runtime) Close() {
	if r.store != nil {
		_ = r.store.Close()
	}
}

// setup loads configuration, opens the store, and wires the service. The
// data source stays unconfigured (nil) when no base URL is set; commands
// that need it call requireSource.
func setup(flags *rootFlags) (*runtime, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{DevMode: flags.devMode})
	if err != nil {
		return nil, err
	}

	configPath := flags.configPath
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("SOJOURN_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(flags.dbPath)
	if dbPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("SOJOURN_DB_PATH")); envPath != "" {
			dbPath = envPath
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if strings.TrimSpace(flags.dbPath) != "" {
		cfg.Database.Path = flags.dbPath
	}
	if token := strings.TrimSpace(os.Getenv(tokenEnv)); token != "" {
		cfg.Datasource.APIToken = token
	}

	logger := charmLog.NewWithOptions(os.Stderr, charmLog.Options{
		Level:           parseLevel(cfg.Logging.Level),
		Prefix:          "sojourn",
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.TextFormatter,
	})

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", cfg.Database.Path, err)
	}

	var source app.DataSource
	if strings.TrimSpace(cfg.Datasource.BaseURL) != "" {
		client, err := jira.NewClient(jira.Config{
			BaseURL:  cfg.Datasource.BaseURL,
			Email:    cfg.Datasource.Email,
			APIToken: cfg.Datasource.APIToken,
			PageSize: cfg.Datasource.PageSize,
		})
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		source = client
	}

	service := app.NewService(source, store, uuid.NewString, time.Now)
	return &runtime{cfg: cfg, logger: logger, service: service, store: store}, nil
}

// requireSource rejects commands that need the tracker when none is
// configured.
func requireSource(rt *runtime) error {
	if strings.TrimSpace(rt.cfg.Datasource.BaseURL) == "" {
		return fmt.Errorf("no datasource configured: set datasource.base_url in the config file")
	}
	return nil
}

// parseLevel maps the config value onto a log level, defaulting to info.
func parseLevel(s string) charmLog.Level {
	level, err := charmLog.ParseLevel(s)
	if err != nil {
		return charmLog.InfoLevel
	}
	return level
}

// newPingCmd verifies tracker connectivity and credentials.
func newPingCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Verify tracker connectivity and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(flags)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := requireSource(rt); err != nil {
				return err
			}
			if err := rt.service.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

// newPathsCmd prints the resolved config and data locations.
func newPathsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{DevMode: flags.devMode})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dev_mode: %t\n", flags.devMode)
			fmt.Fprintf(out, "config: %s\n", paths.ConfigPath)
			fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			fmt.Fprintf(out, "db: %s\n", paths.DBPath)
			return nil
		},
	}
}
