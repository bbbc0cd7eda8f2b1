// Package cli implements the patentsearch command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/whoiskiwi/PatentSearch/internal/bootstrap"
	"github.com/whoiskiwi/PatentSearch/internal/config"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats.
const (
	OutputText  = "text"
	OutputJSON  = "json"
	OutputTable = "table"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	NoColor      bool
}

// CLIContext carries the loaded configuration and the lazily built
// application through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string

	once   sync.Once
	app    *bootstrap.App
	appErr error
}

// App builds the application on first use. Commands that never search do not
// pay for metrics, MinIO or Redis setup.
func (c *CLIContext) App(ctx context.Context) (*bootstrap.App, error) {
	c.once.Do(func() {
		c.app, c.appErr = bootstrap.New(ctx, c.Config, c.Logger)
	})
	return c.app, c.appErr
}

func (c *CLIContext) close() {
	if c.app != nil {
		c.app.Close()
	}
	_ = c.Logger.Sync()
}

// NewRootCommand creates the root command with global flags and every
// subcommand attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	var cliCtx *CLIContext

	cmd := &cobra.Command{
		Use:   "patentsearch",
		Short: "Semantic patent search over a local corpus",
		Long: "patentsearch ranks patents in a cleaned JSON corpus by embedding similarity\n" +
			"for invalidity, infringement and patentability analysis.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newCLIContext(cmd, opts)
			if err != nil {
				return err
			}
			cliCtx = c
			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, c))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if cliCtx != nil {
				cliCtx.close()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./patentsearch.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputText, "output format (text, json, table)")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		NewSearchCmd(),
		NewIndexCmd(),
		NewStatsCmd(),
		NewPatentCmd(),
		NewServeCmd(),
	)
	return cmd
}

func newCLIContext(cmd *cobra.Command, opts *RootOptions) (*CLIContext, error) {
	switch opts.OutputFormat {
	case OutputText, OutputJSON, OutputTable:
	default:
		return nil, apperrors.Newf(apperrors.CodeInvalidParam, "unknown output format %q", opts.OutputFormat)
	}
	if opts.NoColor {
		color.NoColor = true
	}

	cfg, err := initConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("config initialization failed: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = opts.LogLevel
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger initialization failed: %w", err)
	}
	return &CLIContext{Config: cfg, Logger: logger, OutputFormat: opts.OutputFormat}, nil
}

// initConfig loads --config when given, otherwise the first config file found
// in the default locations, otherwise PATENTSEARCH_* variables and defaults.
func initConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}

	searchPaths := []string{"./patentsearch.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".patentsearch", "config.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/patentsearch/config.yaml")

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return config.Load(p)
		}
	}
	return config.LoadFromEnv()
}

// initLogger keeps stdout free for command output.
func initLogger(cfg *config.Config) (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts the CLIContext installed by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "CLI context not initialized")
	}
	return cliCtx, nil
}

// Execute runs the root command and reports any error on stderr.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}
