package cli

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/pacewatch/internal/monitor"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report progress and pace from recorded samples without polling",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		obs := newObserver(cmd.ErrOrStderr())
		defer obs.Close()

		s, err := openStore(cfg.Database)
		if err != nil {
			obs.Log().Error().Str("path", cfg.Database).Err(err).Msg("Failed to init store")
			return err
		}
		defer s.Close()

		mon := monitor.New(s, nil, obs, monitor.WithWindow(cfg.Window()))
		report, err := mon.Snapshot(time.Now())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if report == nil {
			fmt.Fprintln(out, "No samples recorded yet.")
			return nil
		}

		lines := report.Lines()
		if report.Progress == 1.0 {
			summary, err := mon.Summarize()
			if err != nil {
				return err
			}
			lines = summary.Lines()
		}
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(statusCmd)
}
