package model

import (
	"math"
	"math/rand/v2"
)

// DistanceMatrix holds the travel cost from city i (row) to city j (column)
type DistanceMatrix [][]float64

func (matrix DistanceMatrix) Size() int {
	return len(matrix)
}

// Validate checks that the matrix is non-empty, square, finite, non-negative and has a zero diagonal
func (matrix DistanceMatrix) Validate() error {
	if len(matrix) == 0 {
		return invalidInput("distance matrix must contain at least one city")
	}

	for i, row := range matrix {
		if len(row) != len(matrix) {
			return invalidInput("distance matrix must be square: row %d has %d entries, expected %d", i+1, len(row), len(matrix))
		}
		for j, distance := range row {
			if math.IsNaN(distance) || math.IsInf(distance, 0) {
				return invalidInput("distance from city %d to city %d is not a finite number", i+1, j+1)
			} else if distance < 0 {
				return invalidInput("distance from city %d to city %d is negative: %v", i+1, j+1, distance)
			} else if i == j && distance != 0 {
				return invalidInput("distance from city %d to itself must be 0: %v", i+1, distance)
			}
		}
	}
	return nil
}

// GenerateDistanceMatrix returns a symmetric matrix of n cities whose off-diagonal distances are integers in [1, maxDistance]
func GenerateDistanceMatrix(n int, maxDistance int, rng *rand.Rand) DistanceMatrix {
	matrix := make(DistanceMatrix, n)
	for i := range n {
		matrix[i] = make([]float64, n)
	}

	for i := range n - 1 {
		for j := i + 1; j < n; j++ {
			distance := float64(1 + rng.IntN(maxDistance))
			matrix[i][j] = distance
			matrix[j][i] = distance
		}
	}
	return matrix
}
