package model

import (
	"fmt"
	"strings"

	"github.com/limaJavier/intopt/pkg/mip"
	"github.com/samber/lo"
)

type CoverageReport struct {
	Status   mip.Status
	Stations []bool // Stations[i] is true if a station is built at city i
	Count    int
	ServedBy []int // ServedBy[i] is the closest station covering city i
}

type GenericReport struct {
	Status    mip.Status
	X         int64
	Y         int64
	Objective int64
}

// InterpretCoverage translates a solver's output back into stations. When the solution is not optimal
// no value is read: the report only carries the status and a *StatusError is returned
func InterpretCoverage(coverage CoverageModel, solution mip.Solution) (CoverageReport, error) {
	if solution.Status != mip.Optimal {
		return CoverageReport{Status: solution.Status}, &StatusError{Status: solution.Status}
	} else if len(solution.Values) != coverage.Sites {
		return CoverageReport{}, fmt.Errorf("solution holds %d values for %d sites", len(solution.Values), coverage.Sites)
	}

	stations := lo.Map(solution.Values, func(value int64, _ int) bool { return value == 1 })

	servedBy, err := closestStations(coverage, stations)
	if err != nil {
		return CoverageReport{}, fmt.Errorf("solution is not a cover: %w", err)
	}

	return CoverageReport{
		Status:   solution.Status,
		Stations: stations,
		Count:    lo.Count(stations, true),
		ServedBy: servedBy,
	}, nil
}

func (report CoverageReport) String() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Solution status: %v\n", report.Status)
	if report.Status != mip.Optimal {
		return builder.String()
	}

	for i, station := range report.Stations {
		fmt.Fprintf(&builder, "City %d: %v\n", i+1, lo.Ternary(station, "Station", "No station"))
	}
	fmt.Fprintf(&builder, "Minimum number of stations: %d\n", report.Count)
	return builder.String()
}

// InterpretGeneric reads x, y and the objective from an optimal solution; any other status yields a *StatusError
func InterpretGeneric(generic GenericModel, solution mip.Solution) (GenericReport, error) {
	if solution.Status != mip.Optimal {
		return GenericReport{Status: solution.Status}, &StatusError{Status: solution.Status}
	} else if len(solution.Values) != len(generic.Model.Variables) {
		return GenericReport{}, fmt.Errorf("solution holds %d values for %d variables", len(solution.Values), len(generic.Model.Variables))
	}

	return GenericReport{
		Status:    solution.Status,
		X:         solution.Values[variableX],
		Y:         solution.Values[variableY],
		Objective: generic.Model.Evaluate(solution.Values),
	}, nil
}

func (report GenericReport) String() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Solution status: %v\n", report.Status)
	if report.Status != mip.Optimal {
		return builder.String()
	}

	fmt.Fprintf(&builder, "x = %d\n", report.X)
	fmt.Fprintf(&builder, "y = %d\n", report.Y)
	fmt.Fprintf(&builder, "Optimal value of Z = %d\n", report.Objective)
	return builder.String()
}
