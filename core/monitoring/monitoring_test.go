package monitoring

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/resident-scheduler/core/model"
)

func TestReportable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"invalid input", model.NewInvalidInput("block.number", "out of range"), false},
		{"infeasible", fmt.Errorf("wrapped: %w", &model.InfeasibleModelError{Block: 1}), false},
		{"timeout", &model.SolverTimeoutError{}, false},
		{"canceled", fmt.Errorf("solve block 1: %w", context.Canceled), false},
		{"validation", &model.ValidationError{Reason: "solved schedule breaks hard rules"}, true},
		{"backend", errors.New("backend exploded"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Reportable(tc.err))
		})
	}
}
