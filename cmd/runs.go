package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/resident-scheduler/config"
	"github.com/kilianp07/resident-scheduler/core/runlog"
)

var runsOpts struct {
	block  int
	status string
	since  time.Duration
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded scheduling runs",
	RunE:  listRuns,
}

func init() {
	f := runsCmd.Flags()
	f.IntVar(&runsOpts.block, "block", 0, "only runs for this block")
	f.StringVar(&runsOpts.status, "status", "", "only runs with this final status")
	f.DurationVar(&runsOpts.since, "since", 0, "only runs newer than this")
	rootCmd.AddCommand(runsCmd)
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := runlog.NewStore(cfg.RunLog)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("no run log configured")
	}
	defer store.Close()

	q := runlog.Query{Block: runsOpts.block, Status: runsOpts.status}
	if runsOpts.since > 0 {
		q.Start = time.Now().Add(-runsOpts.since)
	}
	recs, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTIME\tBLOCK\tSTATUS\tOBJECTIVE\tASSIGNMENTS\tDURATION")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%s\n", r.RunID, r.Timestamp.Format(time.RFC3339), r.Block, r.Status,
			r.Objective, r.Assignments, time.Duration(r.DurationMS)*time.Millisecond)
	}
	return tw.Flush()
}
