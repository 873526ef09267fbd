package model

import (
	"fmt"
	"math"

	"github.com/limaJavier/intopt/pkg/mip"
	"github.com/samber/lo"
)

// DefaultThreshold is the coverage distance used when the caller does not provide one
const DefaultThreshold = 40.0

// CoverageModel is the set-covering program that places the fewest stations such that every city
// lies within Threshold of at least one of them
type CoverageModel struct {
	Sites        int
	Threshold    float64
	Distances    DistanceMatrix
	Variables    []mip.Variable // Variables[i] = 1 if and only if a station is built at city i
	CoverageSets [][]int        // CoverageSets[i] holds every city j with Distances[i][j] <= Threshold, in increasing order
	Model        mip.LinearModel
}

func BuildCoverageModel(matrix DistanceMatrix, threshold float64) (CoverageModel, error) {
	//** Validate input
	if err := matrix.Validate(); err != nil {
		return CoverageModel{}, err
	} else if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return CoverageModel{}, invalidInput("threshold is not a finite number: %v", threshold)
	}

	//** Compute coverage sets
	sites := matrix.Size()
	coverageSets := make([][]int, sites)
	for i := range sites {
		coverageSets[i] = lo.Filter(lo.Range(sites), func(j int, _ int) bool { return matrix[i][j] <= threshold })

		// Only reachable with a negative threshold, since the diagonal is zero
		if len(coverageSets[i]) == 0 {
			return CoverageModel{}, &InfeasibleByConstructionError{Site: i, Threshold: threshold}
		}
	}

	//** Build the linear model
	variables := lo.Map(lo.Range(sites), func(i int, _ int) mip.Variable {
		return mip.Variable{Name: fmt.Sprintf("x%d", i+1), Domain: mip.Binary}
	})

	// Minimize the number of stations
	objective := mip.Objective{
		Name:  "stations",
		Terms: lo.Map(lo.Range(sites), func(i int, _ int) mip.Term { return mip.Term{Variable: i, Coefficient: 1} }),
	}

	// Every city needs at least one station within the threshold
	constraints := lo.Map(coverageSets, func(coverageSet []int, i int) mip.Constraint {
		return mip.Constraint{
			Name:  fmt.Sprintf("city_%d", i+1),
			Terms: lo.Map(coverageSet, func(j int, _ int) mip.Term { return mip.Term{Variable: j, Coefficient: 1} }),
			Sense: mip.GreaterEqual,
			Bound: 1,
		}
	})

	return CoverageModel{
		Sites:        sites,
		Threshold:    threshold,
		Distances:    matrix,
		Variables:    variables,
		CoverageSets: coverageSets,
		Model: mip.LinearModel{
			Name:        "minimize_stations",
			Direction:   mip.Minimize,
			Variables:   variables,
			Objective:   objective,
			Constraints: constraints,
		},
	}, nil
}

// Covers checks whether a station at city station is within the threshold of city
func (coverage CoverageModel) Covers(station, city int) bool {
	return coverage.Distances[city][station] <= coverage.Threshold
}

// VerifyCover checks that every city has a selected station within the threshold
func VerifyCover(matrix DistanceMatrix, threshold float64, stations []bool) bool {
	if len(stations) != matrix.Size() {
		return false
	}
	return lo.EveryBy(lo.Range(matrix.Size()), func(city int) bool {
		return lo.SomeBy(lo.Range(matrix.Size()), func(station int) bool {
			return stations[station] && matrix[city][station] <= threshold
		})
	})
}
