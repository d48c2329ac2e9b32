// Package cli implements the salpanel command line: headless panels that
// navigate, compare and report the way the file manager core does.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justyntemme/salpanel/internal/config"
	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/logging"
	"github.com/justyntemme/salpanel/internal/metrics"
)

var (
	// Global flags
	debugFlag   bool
	configPath  string
	envFile     string
	metricsAddr string
	noColor     bool

	titleColor = color.New(color.FgCyan, color.Bold)
	dirColor   = color.New(color.FgBlue, color.Bold)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed, color.Bold)
	dimColor   = color.New(color.Faint)
)

// session is what a command run shares with its subcommand.
type session struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	server  *http.Server
}

var current session

var rootCmd = &cobra.Command{
	Use:     "salpanel",
	Version: "dev",
	Short:   "Headless file panel navigation",
	Long: `salpanel drives the file panel core without a window.

It navigates disk directories, archives and plugin filesystems exactly as the
panels do, shortening unusable paths and falling back to a rescue path or a
fixed drive, and prints what the panel ends up showing.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Log at debug level and enable trace categories from SALPANEL_DEBUG")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/salpanel/config.json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Environment override file")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9310")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddGroup(&cobra.Group{ID: "navigation", Title: "Navigation:"})
	rootCmd.AddGroup(&cobra.Group{ID: "inspection", Title: "Inspection:"})

	rootCmd.AddCommand(lsCmd, cmpCmd, historyCmd, drivesCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	if noColor {
		color.NoColor = true
	}

	mgr := config.NewManager()
	if configPath != "" {
		mgr = config.NewManagerAt(configPath)
	}
	if err := mgr.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := mgr.ApplyEnv(envFile); err != nil {
		return fmt.Errorf("read %s: %w", envFile, err)
	}
	cfg := mgr.Get()
	if perr := mgr.ParseError(); perr != nil {
		warnColor.Fprintf(cmd.ErrOrStderr(), "config %s is invalid, using defaults: %v\n", mgr.Path(), perr)
	}

	level := cfg.Logging.Level
	if debugFlag {
		level = "debug"
		debug.Parse(os.Getenv("SALPANEL_DEBUG"))
	}
	if err := logging.Init(logging.Config{Level: level, Format: cfg.Logging.Format, OutputPath: cfg.Logging.Output}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	current = session{cfg: &cfg, metrics: metrics.New()}
	if metricsAddr != "" {
		if err := serveMetrics(metricsAddr); err != nil {
			return err
		}
	}
	return nil
}

func serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", current.metrics.Handler())
	current.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := current.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.L().Error("metrics server", zap.Error(err))
		}
	}()
	logging.L().Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if current.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		current.server.Shutdown(ctx)
	}
	// stderr cannot always be synced; that is not worth failing the command over
	_ = logging.Sync()
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
