package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/felixgeelhaar/pacewatch/internal/config"
	"github.com/felixgeelhaar/pacewatch/internal/monitor"
	"github.com/felixgeelhaar/pacewatch/internal/ui"
	"github.com/felixgeelhaar/pacewatch/internal/ui/tui"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	dbPath      string
	verbose     bool
	jsonLogs    bool
	targetURL   string
	delay       int
	window      int
	timeout     int
	metricsAddr string
	class       string
	userAgent   string
	interactive bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "pacewatch",
	Short: "Migration progress monitor",
	Long: `Pacewatch polls a status page for a migration's completion percentage,
records every reading in a local ledger and estimates when the migration
will finish.`,
	SilenceUsage: true,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the status page until the migration completes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return watch(cmd, cfg)
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(watchCmd)

	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (.yaml or .json)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Sample ledger path (default ~/.pacewatch/progress.db)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	RootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "Write logs as JSON")

	watchCmd.Flags().StringVarP(&targetURL, "url", "u", config.DefaultURL, "Status page URL")
	watchCmd.Flags().IntVarP(&delay, "delay", "d", config.DefaultDelaySeconds, "Seconds between polls")
	watchCmd.Flags().IntVarP(&window, "window", "w", config.DefaultWindowMinutes, "Trailing window in minutes for recent pace")
	watchCmd.Flags().IntVar(&timeout, "timeout", config.DefaultTimeout, "Per-request timeout in seconds (0 disables)")
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	watchCmd.Flags().StringVar(&class, "class", config.DefaultProgressClass, "CSS class of the element holding the percentage")
	watchCmd.Flags().StringVar(&userAgent, "user-agent", "", "User-Agent header for requests")
	watchCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Start interactive TUI")
}

// loadConfig layers defaults, the config file and explicitly set flags.
// Without --config it reads ~/.pacewatch/config.yaml when that file exists.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	path := configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigPath()); err == nil {
			path = defaultConfigPath()
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database = dbPath
	}
	if flags.Changed("url") {
		cfg.URL = targetURL
	}
	if flags.Changed("delay") {
		cfg.DelaySeconds = delay
	}
	if flags.Changed("window") {
		cfg.WindowMinutes = window
	}
	if flags.Changed("timeout") {
		cfg.TimeoutSeconds = timeout
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	if flags.Changed("class") {
		cfg.ProgressClass = class
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = userAgent
	}
	return cfg, nil
}

func watch(cmd *cobra.Command, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var logOut io.Writer = cmd.ErrOrStderr()
	if interactive && !verbose {
		logOut = io.Discard
	}
	obs := newObserver(logOut)
	defer obs.Close()

	storeLayer, err := openStore(cfg.Database)
	if err != nil {
		obs.Log().Error().Str("path", cfg.Database).Err(err).Msg("Failed to init store")
		return err
	}
	defer storeLayer.Close()

	var (
		outcome monitor.Outcome
		runErr  error
	)

	if interactive {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		model := tui.NewModel("Pacewatch", cfg.URL)
		program := tea.NewProgram(model, tea.WithContext(ctx))
		u := tui.NewTUI(program)

		done := make(chan struct{})
		go func() {
			defer close(done)
			runner := NewRunner(obs, storeLayer, cfg, u)
			outcome, runErr = runner.Run(ctx)
			if runErr != nil {
				u.Log(fmt.Sprintf("Error: %v (press q to quit)", runErr))
				return
			}
			if outcome == monitor.OutcomeCancelled {
				program.Quit()
			}
		}()

		if _, err := program.Run(); err != nil && ctx.Err() == nil {
			cancel()
			<-done
			return fmt.Errorf("interactive view failed: %w", err)
		}
		// Quitting the view stops the monitor.
		cancel()
		<-done
	} else {
		runner := NewRunner(obs, storeLayer, cfg, ui.NewConsole(cmd.OutOrStdout()))
		outcome, runErr = runner.Run(ctx)
	}

	if runErr != nil {
		return runErr
	}
	if outcome == monitor.OutcomeCancelled {
		fmt.Fprintln(cmd.OutOrStdout(), "Exiting...")
	}
	return nil
}
