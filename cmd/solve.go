package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/resident-scheduler/core/model"
	"github.com/kilianp07/resident-scheduler/infra/roster"
	"github.com/kilianp07/resident-scheduler/pkg/export"
)

var solveOpts struct {
	roster     string
	out        string
	format     string
	report     string
	shortBlock bool
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Build a schedule for one block",
	RunE:  runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.StringVarP(&solveOpts.roster, "roster", "r", "", "block input file (yaml or json)")
	f.StringVarP(&solveOpts.out, "out", "o", "-", "schedule output file, - for stdout")
	f.StringVar(&solveOpts.format, "format", "json", "schedule format: json, csv or grid")
	f.StringVar(&solveOpts.report, "report", "", "write the run report to this file")
	f.BoolVar(&solveOpts.shortBlock, "allow-short-block", false, "accept blocks shorter than 28 days")
	_ = solveCmd.MarkFlagRequired("roster")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := roster.Load(solveOpts.roster, roster.Options{AllowShortBlocks: solveOpts.shortBlock})
	if err != nil {
		return err
	}
	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	res, solveErr := svc.Solve(ctx, p)
	if solveOpts.report != "" {
		if err := writeFile(solveOpts.report, func(w io.Writer) error {
			return export.WriteReport(w, export.NewReport(res, solveErr))
		}); err != nil {
			return err
		}
	}
	if res != nil && res.Schedule != nil {
		if err := writeFile(solveOpts.out, func(w io.Writer) error {
			return writeSchedule(w, res.Schedule, p.Roster)
		}); err != nil {
			return err
		}
	}
	return solveErr
}

func writeSchedule(w io.Writer, s *model.Schedule, r *model.Roster) error {
	switch solveOpts.format {
	case "json":
		return export.WriteJSON(w, s)
	case "csv":
		return export.WriteCSV(w, s)
	case "grid":
		return export.WriteGridCSV(w, s, r)
	default:
		return fmt.Errorf("unknown format %q", solveOpts.format)
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	if path == "-" || path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
