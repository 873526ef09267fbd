package model

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/limaJavier/intopt/pkg/mip"
	"github.com/stretchr/testify/assert"
)

// enumerate returns the best objective over the integer grid [0, limit]^2
func enumerate(generic GenericModel, limit int64) (best int64, x int64, y int64, feasible bool) {
	for i := int64(0); i <= limit; i++ {
		for j := int64(0); j <= limit; j++ {
			values := []int64{i, j}
			if !generic.Model.Satisfied(values) {
				continue
			}
			objective := generic.Model.Evaluate(values)
			if !feasible || (generic.Direction == mip.Maximize && objective > best) || (generic.Direction == mip.Minimize && objective < best) {
				best, x, y, feasible = objective, i, j, true
			}
		}
	}
	return best, x, y, feasible
}

func TestBuildGenericModel(t *testing.T) {
	generic, err := BuildGenericModel(mip.Maximize, 3, 2, 1, 1, 4, 1, 1, 2)

	assert.Nil(t, err)
	assert.Equal(t, mip.Maximize, generic.Model.Direction)
	assert.Equal(t, []mip.Variable{{Name: "x", Domain: mip.NonNegativeInteger}, {Name: "y", Domain: mip.NonNegativeInteger}}, generic.Model.Variables)
	assert.Equal(t, []mip.Term{{Variable: 0, Coefficient: 3}, {Variable: 1, Coefficient: 2}}, generic.Model.Objective.Terms)
	assert.Len(t, generic.Model.Constraints, 2)

	// The second constraint subtracts its y coefficient
	assert.Equal(t, []mip.Term{{Variable: 0, Coefficient: 1}, {Variable: 1, Coefficient: 1}}, generic.Model.Constraints[0].Terms)
	assert.Equal(t, []mip.Term{{Variable: 0, Coefficient: 1}, {Variable: 1, Coefficient: -1}}, generic.Model.Constraints[1].Terms)
	for _, constraint := range generic.Model.Constraints {
		assert.Equal(t, mip.LessEqual, constraint.Sense)
	}
	assert.Equal(t, int64(4), generic.Model.Constraints[0].Bound)
	assert.Equal(t, int64(2), generic.Model.Constraints[1].Bound)
}

func TestBuildGenericModelRejectsUnknownDirection(t *testing.T) {
	_, err := BuildGenericModel(mip.Direction(3), 1, 1, 1, 1, 1, 1, 1, 1)

	var invalidInputError *InvalidInputError
	assert.True(t, errors.As(err, &invalidInputError))
}

func TestGenericModelIsPure(t *testing.T) {
	first, _ := BuildGenericModel(mip.Minimize, -2, 5, 3, -1, 7, 2, 4, 9)
	second, _ := BuildGenericModel(mip.Minimize, -2, 5, 3, -1, 7, 2, 4, 9)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("building the same generic model twice differs (-first +second):\n%s", diff)
	}
}

func TestSolveGeneric(t *testing.T) {
	solver := newTestSolver()

	t.Run("Maximization", func(t *testing.T) {
		//** Arrange
		input := GenericInput{Direction: mip.Maximize, ObjectiveX: 3, ObjectiveY: 2, A1: 1, B1: 1, C1: 4, A2: 1, B2: 1, C2: 2}

		//** Act
		generic, report, err := SolveGeneric(context.Background(), solver, input)

		//** Assert
		assert.Nil(t, err)
		best, x, y, feasible := enumerate(generic, 10)
		assert.True(t, feasible)
		assert.Equal(t, mip.Optimal, report.Status)
		assert.Equal(t, best, report.Objective)
		assert.Equal(t, int64(11), report.Objective)
		assert.Equal(t, [2]int64{x, y}, [2]int64{report.X, report.Y})
		assert.Equal(t, [2]int64{3, 1}, [2]int64{report.X, report.Y})
	})

	t.Run("Minimization", func(t *testing.T) {
		// x - 3y <= -6 forces y >= 2
		input := GenericInput{Direction: mip.Minimize, ObjectiveX: 1, ObjectiveY: 4, A1: 1, B1: 1, C1: 10, A2: 1, B2: 3, C2: -6}

		generic, report, err := SolveGeneric(context.Background(), solver, input)

		assert.Nil(t, err)
		best, _, _, _ := enumerate(generic, 10)
		assert.Equal(t, int64(8), best)
		assert.Equal(t, best, report.Objective)
	})

	t.Run("Contradictory constraints", func(t *testing.T) {
		input := GenericInput{Direction: mip.Maximize, ObjectiveX: 3, ObjectiveY: 2, A1: 1, B1: 1, C1: -1, A2: 1, B2: 1, C2: 2}

		_, report, err := SolveGeneric(context.Background(), solver, input)

		assert.True(t, errors.Is(err, ErrSolverInfeasible))
		assert.Equal(t, mip.Infeasible, report.Status)
		assert.Equal(t, GenericReport{Status: mip.Infeasible}, report)
	})

	t.Run("Unbounded objective", func(t *testing.T) {
		// y grows freely and x follows it
		input := GenericInput{Direction: mip.Maximize, ObjectiveX: 1, ObjectiveY: 1, A1: 1, B1: -1, C1: 3, A2: 1, B2: 1, C2: 3}

		_, report, err := SolveGeneric(context.Background(), solver, input)

		assert.True(t, errors.Is(err, ErrSolverUnbounded))
		assert.Equal(t, mip.Unbounded, report.Status)
	})

	t.Run("Optimum beyond 24 bits", func(t *testing.T) {
		input := GenericInput{Direction: mip.Maximize, ObjectiveX: 1, ObjectiveY: 0, A1: 1, B1: 0, C1: 20_000_000, A2: 1, B2: 0, C2: 20_000_000}

		_, report, err := SolveGeneric(context.Background(), solver, input)

		// y is absent from the model, so any value of it is optimal
		assert.Nil(t, err)
		assert.Equal(t, mip.Optimal, report.Status)
		assert.Equal(t, int64(20_000_000), report.X)
		assert.Equal(t, int64(20_000_000), report.Objective)
	})

	t.Run("Large objective coefficient", func(t *testing.T) {
		input := GenericInput{Direction: mip.Maximize, ObjectiveX: 2_000_000_000_000, ObjectiveY: 1, A1: 1, B1: 1, C1: 4, A2: 1, B2: 0, C2: 4}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		_, report, err := SolveGeneric(ctx, solver, input)

		assert.Nil(t, err)
		assert.Equal(t, GenericReport{Status: mip.Optimal, X: 4, Y: 0, Objective: 8_000_000_000_000}, report)
	})

	t.Run("Coefficients beyond the encoding", func(t *testing.T) {
		input := GenericInput{Direction: mip.Maximize, ObjectiveX: math.MaxInt64 / 2, ObjectiveY: 1, A1: 1, B1: -1, C1: 3, A2: 1, B2: 1, C2: 3}

		_, _, err := SolveGeneric(context.Background(), solver, input)

		assert.True(t, errors.Is(err, mip.ErrEncodingOverflow), "unexpected error: %v", err)
	})
}

func TestParseDirection(t *testing.T) {
	for _, value := range []string{"max", "Maximize", "-1", " maximise "} {
		direction, err := ParseDirection(value)
		assert.Nil(t, err)
		assert.Equal(t, mip.Maximize, direction, value)
	}
	for _, value := range []string{"min", "MINIMIZE", "1"} {
		direction, err := ParseDirection(value)
		assert.Nil(t, err)
		assert.Equal(t, mip.Minimize, direction, value)
	}

	_, err := ParseDirection("sideways")
	var invalidInputError *InvalidInputError
	assert.True(t, errors.As(err, &invalidInputError))
}
