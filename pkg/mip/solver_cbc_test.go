package mip

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseCbcSolution(t *testing.T) {
	model := twoVariableModel()

	t.Run("Optimal", func(t *testing.T) {
		output := `Optimal - objective value 11.00000000
      0 c1                         4                       0
      1 c2                         2                       0
      0 x                          3                      -3
      1 y                          1                      -2
`
		solution, err := parseCbcSolution(output, model)

		assert.Nil(t, err)
		assert.Equal(t, Optimal, solution.Status)
		assert.Equal(t, []int64{3, 1}, solution.Values)
		assert.Equal(t, int64(11), solution.Objective)
	})

	t.Run("Omitted variables are zero", func(t *testing.T) {
		output := "Optimal - objective value 6.00000000\n      0 x          2        -3\n"

		solution, err := parseCbcSolution(output, model)

		assert.Nil(t, err)
		assert.Equal(t, []int64{2, 0}, solution.Values)
	})

	t.Run("Verdicts", func(t *testing.T) {
		cases := map[string]Status{
			"Infeasible - objective value 0.00000000":         Infeasible,
			"Integer infeasible - objective value 0.00000000": Infeasible,
			"Unbounded - objective value 0.00000000":          Unbounded,
			"Stopped on time - objective value 9.00000000":    Unknown,
		}
		for statusLine, expected := range cases {
			solution, err := parseCbcSolution(statusLine+"\n", model)

			assert.Nil(t, err)
			assert.Equal(t, expected, solution.Status, statusLine)
			assert.Nil(t, solution.Values)
		}
	})

	t.Run("Malformed output", func(t *testing.T) {
		_, err := parseCbcSolution("", model)
		assert.NotNil(t, err)

		_, err = parseCbcSolution("Optimal - objective value 1\n 0 x\n", model)
		assert.NotNil(t, err)
	})
}

func TestCbcArguments(t *testing.T) {
	config := DefaultConfig()
	config.TimeLimit = 1500 * time.Millisecond
	solver := &cbcSolver{config: config}

	arguments := solver.arguments("in.lp", "out.txt")

	assert.Equal(t, []string{"in.lp", "sec", "2", "log", "0", "solve", "printingOptions", "all", "solu", "out.txt"}, arguments)
}

func TestCbc(t *testing.T) {
	config := DefaultConfig()
	if _, err := exec.LookPath(config.CbcPath); err != nil {
		t.Skipf("cbc executable not available: %v", err)
	}
	solver := NewCbcSolver(config)

	t.Run("Bounded integer model", func(t *testing.T) {
		solution, err := Submit(context.Background(), solver, twoVariableModel())

		assert.Nil(t, err)
		assert.Equal(t, Optimal, solution.Status)
		assert.Equal(t, int64(11), solution.Objective)
	})

	t.Run("Infeasible model", func(t *testing.T) {
		model := twoVariableModel()
		model.Constraints[0].Bound = -1

		solution, err := Submit(context.Background(), solver, model)

		assert.Nil(t, err)
		assert.Equal(t, Infeasible, solution.Status)
	})
}
