package model

import (
	"context"
	"errors"
	"math"
	"math/bits"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/limaJavier/intopt/pkg/mip"
	"github.com/stretchr/testify/assert"
)

type countingSolver struct {
	solver mip.MIPSolver
	calls  int
}

func (counting *countingSolver) Solve(ctx context.Context, model mip.LinearModel) (mip.Solution, error) {
	counting.calls++
	return counting.solver.Solve(ctx, model)
}

func newTestSolver() *countingSolver {
	return &countingSolver{solver: mip.NewGophersatSolver(mip.DefaultConfig())}
}

// minimumCover enumerates every subset of cities and returns the size of the smallest cover
func minimumCover(matrix DistanceMatrix, threshold float64) int {
	n := matrix.Size()
	best := n
	for subset := range 1 << n {
		stations := make([]bool, n)
		for i := range n {
			stations[i] = subset&(1<<i) != 0
		}
		if size := bits.OnesCount(uint(subset)); size < best && VerifyCover(matrix, threshold, stations) {
			best = size
		}
	}
	return best
}

func TestBuildCoverageModel(t *testing.T) {
	//** Arrange
	matrix := DistanceMatrix{
		{0, 30, 50},
		{30, 0, 45},
		{50, 60, 0},
	}

	//** Act
	coverage, err := BuildCoverageModel(matrix, DefaultThreshold)

	//** Assert
	assert.Nil(t, err)
	assert.Equal(t, 3, coverage.Sites)
	assert.Equal(t, [][]int{{0, 1}, {0, 1}, {2}}, coverage.CoverageSets)
	assert.Equal(t, []string{"x1", "x2", "x3"}, []string{coverage.Variables[0].Name, coverage.Variables[1].Name, coverage.Variables[2].Name})
	assert.Equal(t, mip.Minimize, coverage.Model.Direction)
	assert.Len(t, coverage.Model.Objective.Terms, 3)
	assert.Len(t, coverage.Model.Constraints, 3)
	assert.Equal(t, mip.Constraint{
		Name:  "city_3",
		Terms: []mip.Term{{Variable: 2, Coefficient: 1}},
		Sense: mip.GreaterEqual,
		Bound: 1,
	}, coverage.Model.Constraints[2])
	for _, variable := range coverage.Variables {
		assert.Equal(t, mip.Binary, variable.Domain)
	}
}

func TestBuildCoverageModelInvalidInput(t *testing.T) {
	cases := map[string]struct {
		matrix    DistanceMatrix
		threshold float64
	}{
		"Empty matrix":       {DistanceMatrix{}, 40},
		"Non-square matrix":  {DistanceMatrix{{0, 1}, {1}}, 40},
		"Negative distance":  {DistanceMatrix{{0, -1}, {1, 0}}, 40},
		"Non-zero diagonal":  {DistanceMatrix{{3, 1}, {1, 0}}, 40},
		"Infinite distance":  {DistanceMatrix{{0, math.Inf(1)}, {1, 0}}, 40},
		"Not-a-number bound": {DistanceMatrix{{0, 1}, {1, 0}}, math.NaN()},
		"Infinite threshold": {DistanceMatrix{{0, 1}, {1, 0}}, math.Inf(1)},
	}

	for name, testCase := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := BuildCoverageModel(testCase.matrix, testCase.threshold)

			var invalidInputError *InvalidInputError
			assert.True(t, errors.As(err, &invalidInputError), "unexpected error: %v", err)
		})
	}
}

func TestNegativeThresholdIsInfeasibleByConstruction(t *testing.T) {
	solver := newTestSolver()

	_, _, err := SolveCoverage(context.Background(), solver, DistanceMatrix{{0, 10}, {10, 0}}, -1)

	var infeasibleError *InfeasibleByConstructionError
	assert.True(t, errors.As(err, &infeasibleError))
	assert.Equal(t, 0, infeasibleError.Site)
	assert.Equal(t, 0, solver.calls)
}

func TestCoverageModelIsPure(t *testing.T) {
	matrix := GenerateDistanceMatrix(7, 80, rand.New(rand.NewPCG(1, 2)))

	first, err1 := BuildCoverageModel(matrix, DefaultThreshold)
	second, err2 := BuildCoverageModel(matrix, DefaultThreshold)

	assert.Nil(t, err1)
	assert.Nil(t, err2)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("building the same coverage model twice differs (-first +second):\n%s", diff)
	}
}

func TestCoverageIsMinimal(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))

	for range 30 {
		//** Arrange
		n := 1 + rng.IntN(6)
		matrix := GenerateDistanceMatrix(n, 100, rng)
		threshold := float64(rng.IntN(101))

		//** Act
		_, report, err := SolveCoverage(context.Background(), newTestSolver(), matrix, threshold)

		//** Assert
		assert.Nil(t, err)
		assert.Equal(t, mip.Optimal, report.Status)
		assert.True(t, VerifyCover(matrix, threshold, report.Stations), "matrix: %v, threshold: %v", matrix, threshold)
		assert.Equal(t, minimumCover(matrix, threshold), report.Count, "matrix: %v, threshold: %v", matrix, threshold)
	}
}

func TestIsolatedCitiesNeedOneStationEach(t *testing.T) {
	const n = 6
	matrix := make(DistanceMatrix, n)
	for i := range n {
		matrix[i] = make([]float64, n)
		for j := range n {
			if i != j {
				matrix[i][j] = 100
			}
		}
	}

	_, report, err := SolveCoverage(context.Background(), newTestSolver(), matrix, DefaultThreshold)

	assert.Nil(t, err)
	assert.Equal(t, n, report.Count)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, report.ServedBy)
}

func TestCloseCitiesNeedOneStation(t *testing.T) {
	matrix := GenerateDistanceMatrix(8, 40, rand.New(rand.NewPCG(3, 4)))

	_, report, err := SolveCoverage(context.Background(), newTestSolver(), matrix, DefaultThreshold)

	assert.Nil(t, err)
	assert.Equal(t, 1, report.Count)
	for i := range matrix.Size() {
		// Any single city is a valid cover
		stations := make([]bool, matrix.Size())
		stations[i] = true
		assert.True(t, VerifyCover(matrix, DefaultThreshold, stations))
	}
}
