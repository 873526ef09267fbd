package mip

import (
	"context"
	"fmt"
)

type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
	Unknown // The solver stopped (time limit, cancellation, ...) without a definitive verdict
)

func (status Status) String() string {
	switch status {
	case Optimal:
		return "Optimal"
	case Infeasible:
		return "Infeasible"
	case Unbounded:
		return "Unbounded"
	case Unknown:
		return "Unknown"
	}
	return fmt.Sprintf("Status(%d)", int(status))
}

// Solution is what a MIPSolver reports for a model. Values and Objective are only meaningful when Status is Optimal
type Solution struct {
	Status    Status
	Values    []int64
	Objective int64
}

type MIPSolver interface {
	// Solve returns the solver's verdict for the model. A non-nil error means the solver could not run at all;
	// infeasible, unbounded and undecided models are valid outputs reported through Solution.Status with a nil error
	Solve(ctx context.Context, model LinearModel) (Solution, error)
}

// Submit validates the model, hands it to the solver and checks that an optimal solution is consistent with the model
func Submit(ctx context.Context, solver MIPSolver, model LinearModel) (Solution, error) {
	if err := model.Validate(); err != nil {
		return Solution{}, fmt.Errorf("invalid model %q: %w", model.Name, err)
	}

	solution, err := solver.Solve(ctx, model)
	if err != nil {
		return Solution{}, fmt.Errorf("cannot solve model %q: %w", model.Name, err)
	}

	if solution.Status != Optimal {
		return Solution{Status: solution.Status}, nil
	}

	if len(solution.Values) != len(model.Variables) {
		return Solution{}, fmt.Errorf("solver returned %d values for %d variables", len(solution.Values), len(model.Variables))
	} else if !model.Satisfied(solution.Values) {
		return Solution{}, fmt.Errorf("solver returned an assignment that violates model %q: %v", model.Name, solution.Values)
	}
	// Objective is always derived from the assignment so every backend reports it the same way
	solution.Objective = model.Evaluate(solution.Values)

	return solution, nil
}
