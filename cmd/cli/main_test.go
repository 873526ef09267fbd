package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/limaJavier/intopt/pkg/mip"
	"github.com/limaJavier/intopt/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestPromptCoverage(t *testing.T) {
	//** Arrange
	in := strings.NewReader("3\n10\n50\n10\n45\n50\n60\n")
	var out bytes.Buffer

	//** Act
	input, err := promptCoverage(in, &out)

	//** Assert
	assert.Nil(t, err)
	assert.Equal(t, model.DistanceMatrix{
		{0, 10, 50},
		{10, 0, 45},
		{50, 60, 0},
	}, input.Distances)
	assert.Equal(t, model.DefaultThreshold, input.Threshold)
	assert.Contains(t, out.String(), "Distance from city 3 to city 2: ")
	assert.NotContains(t, out.String(), "Distance from city 2 to city 2: ")
}

func TestPromptCoverageInvalid(t *testing.T) {
	var invalidInputError *model.InvalidInputError

	_, err := promptCoverage(strings.NewReader("2\nfar\n"), &bytes.Buffer{})
	assert.True(t, errors.As(err, &invalidInputError))

	_, err = promptCoverage(strings.NewReader("0\n"), &bytes.Buffer{})
	assert.True(t, errors.As(err, &invalidInputError))

	_, err = promptCoverage(strings.NewReader("2\n10\n"), &bytes.Buffer{})
	assert.NotNil(t, err)
}

func TestPromptGeneric(t *testing.T) {
	in := strings.NewReader("max\n3\n2\n1\n1\n4\n1\n1\n2\n")

	input, err := promptGeneric(in, &bytes.Buffer{})

	assert.Nil(t, err)
	assert.Equal(t, model.GenericInput{Direction: mip.Maximize, ObjectiveX: 3, ObjectiveY: 2, A1: 1, B1: 1, C1: 4, A2: 1, B2: 1, C2: 2}, input)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOptimal, exitCode(nil))
	assert.Equal(t, exitInfeasible, exitCode(&model.StatusError{Status: mip.Infeasible}))
	assert.Equal(t, exitUnbounded, exitCode(&model.StatusError{Status: mip.Unbounded}))
	assert.Equal(t, exitUnknown, exitCode(&model.StatusError{Status: mip.Unknown}))
}
