package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/resident-scheduler/config"
	"github.com/kilianp07/resident-scheduler/core/constraints"
	"github.com/kilianp07/resident-scheduler/core/model"
	"github.com/kilianp07/resident-scheduler/core/validate"
	"github.com/kilianp07/resident-scheduler/infra/roster"
	"github.com/kilianp07/resident-scheduler/pkg/export"
)

var validateOpts struct {
	roster     string
	schedule   string
	shortBlock bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a schedule file against every hard rule",
	RunE:  runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVarP(&validateOpts.roster, "roster", "r", "", "block input file (yaml or json)")
	f.StringVarP(&validateOpts.schedule, "schedule", "s", "", "schedule JSON written by solve")
	f.BoolVar(&validateOpts.shortBlock, "allow-short-block", false, "accept blocks shorter than 28 days")
	_ = validateCmd.MarkFlagRequired("roster")
	_ = validateCmd.MarkFlagRequired("schedule")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	p, err := roster.Load(validateOpts.roster, roster.Options{AllowShortBlocks: validateOpts.shortBlock})
	if err != nil {
		return err
	}
	f, err := os.Open(validateOpts.schedule)
	if err != nil {
		return err
	}
	defer f.Close()
	doc, err := export.ReadJSON(f)
	if err != nil {
		return err
	}
	rep := check(p, cfg.Scheduler.Constraints, doc)
	if err := export.WriteReport(cmd.OutOrStdout(), rep); err != nil {
		return err
	}
	if !rep.Valid {
		return fmt.Errorf("%d violations", len(rep.Violations))
	}
	return nil
}

func check(p *constraints.Problem, o constraints.Options, doc export.ScheduleDoc) export.ValidationReport {
	b := p.Block()
	rep := export.ValidationReport{Block: b.Number, Checked: time.Now().UTC()}
	if doc.Block != b.Number {
		rep.Violations = append(rep.Violations, model.Violation{
			Rule:   validate.RuleOutsideBlock,
			Detail: fmt.Sprintf("schedule is for block %d, roster for block %d", doc.Block, b.Number),
		})
	}
	s, malformed := validate.FromEntries(b, p.Roster, doc.Assignments)
	rep.Violations = append(rep.Violations, malformed...)
	rep.Violations = append(rep.Violations, validate.Validate(p, o, s)...)
	if rep.Violations == nil {
		rep.Violations = []model.Violation{}
	}
	rep.Valid = len(rep.Violations) == 0
	return rep
}
