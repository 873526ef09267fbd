package model

import (
	"context"

	"github.com/limaJavier/intopt/pkg/mip"
)

// SolveCoverage builds the covering model, submits it and interprets the solver's answer.
// Build errors abort before the solver is called
func SolveCoverage(ctx context.Context, solver mip.MIPSolver, matrix DistanceMatrix, threshold float64) (CoverageModel, CoverageReport, error) {
	coverage, err := BuildCoverageModel(matrix, threshold)
	if err != nil {
		return CoverageModel{}, CoverageReport{}, err
	}

	solution, err := mip.Submit(ctx, solver, coverage.Model)
	if err != nil {
		return coverage, CoverageReport{}, err
	}

	report, err := InterpretCoverage(coverage, solution)
	return coverage, report, err
}

func SolveGeneric(ctx context.Context, solver mip.MIPSolver, input GenericInput) (GenericModel, GenericReport, error) {
	generic, err := input.Build()
	if err != nil {
		return GenericModel{}, GenericReport{}, err
	}

	solution, err := mip.Submit(ctx, solver, generic.Model)
	if err != nil {
		return generic, GenericReport{}, err
	}

	report, err := InterpretGeneric(generic, solution)
	return generic, report, err
}
