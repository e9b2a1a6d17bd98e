package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/resident-scheduler/pkg/export"
)

const rosterYAML = `block:
  number: 2
  start_date: "2024-07-31"
  length_days: 4
shifts:
  - {kind: day, min_staff: 1}
  - {kind: night, min_staff: 1}
residents:
  - {id: a, level: pgy2, pod: purple, required_shifts: 4}
  - {id: b, level: pgy3, pod: purple, required_shifts: 4}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSolveThenValidate(t *testing.T) {
	dir := t.TempDir()
	rosterPath := filepath.Join(dir, "block2.yaml")
	require.NoError(t, os.WriteFile(rosterPath, []byte(rosterYAML), 0o600))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("scheduler:\n  time_budget_seconds: 10\nlogging:\n  level: error\n"), 0o600))
	schedPath := filepath.Join(dir, "schedule.json")
	reportPath := filepath.Join(dir, "report.json")

	_, err := execute(t, "solve", "-c", cfgPath, "-r", rosterPath, "--allow-short-block", "-o", schedPath, "--report", reportPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var rep export.Report
	require.NoError(t, json.Unmarshal(raw, &rep))
	assert.Equal(t, "optimal", rep.Status)
	assert.Equal(t, 8, rep.Assignments)

	out, err := execute(t, "validate", "-c", cfgPath, "-r", rosterPath, "--allow-short-block", "-s", schedPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)

	// drop one assignment: the resident falls short and a slot goes uncovered
	f, err := os.Open(schedPath)
	require.NoError(t, err)
	doc, err := export.ReadJSON(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	doc.Assignments = doc.Assignments[1:]
	raw, err = json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(schedPath, raw, 0o600))

	out, err = execute(t, "validate", "-c", cfgPath, "-r", rosterPath, "--allow-short-block", "-s", schedPath)
	require.Error(t, err)
	assert.Contains(t, out, `"rule": "required-shifts"`)
	assert.Contains(t, out, `"rule": "minimum-staffing"`)
}

func TestSolveRequiresRoster(t *testing.T) {
	_, err := execute(t, "solve")
	assert.Error(t, err)
}
