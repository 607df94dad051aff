package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var since time.Duration

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded samples, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		s, err := openStore(cfg.Database)
		if err != nil {
			return err
		}
		defer s.Close()

		var from time.Time
		if since > 0 {
			from = time.Now().Add(-since)
		}
		samples, err := s.Range(from, time.Time{})
		if err != nil {
			return fmt.Errorf("failed to read samples: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(samples) == 0 {
			fmt.Fprintln(out, "No samples recorded.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIME\tPROGRESS")
		for _, sample := range samples {
			fmt.Fprintf(w, "%d\t%s\t%.2f%%\n", sample.ID, sample.Timestamp.Local().Format(time.DateTime), sample.Progress*100)
		}
		return w.Flush()
	},
}

func init() {
	RootCmd.AddCommand(historyCmd)
	historyCmd.Flags().DurationVar(&since, "since", 0, "Only show samples newer than this (e.g. 1h)")
}
