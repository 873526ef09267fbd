package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/limaJavier/intopt/pkg/mip"
	"github.com/mitchellh/mapstructure"
)

type RawCoverageInput struct {
	Distances [][]float64
	Threshold *float64
	Capacity  float64
}

type CoverageInput struct {
	Distances DistanceMatrix
	Threshold float64
	Capacity  int // Maximum cities per station; zero means unlimited
}

type RawGenericInput struct {
	Direction   any // Either a string ("max", "min", ...) or the numbers -1 (maximize) and 1 (minimize)
	Objective   []float64
	Constraints [][]float64
}

type GenericInput struct {
	Direction  mip.Direction
	ObjectiveX int64
	ObjectiveY int64
	A1, B1, C1 int64
	A2, B2, C2 int64
}

func CoverageInputFromJson(file string) (CoverageInput, error) {
	var rawInput RawCoverageInput
	if err := decodeJsonFile(file, &rawInput); err != nil {
		return CoverageInput{}, err
	}
	return ProcessRawCoverageInput(rawInput)
}

func ProcessRawCoverageInput(rawInput RawCoverageInput) (CoverageInput, error) {
	input := CoverageInput{
		Distances: rawInput.Distances,
		Threshold: DefaultThreshold,
	}
	if rawInput.Threshold != nil {
		input.Threshold = *rawInput.Threshold
	}

	capacity, err := toInteger(rawInput.Capacity, "capacity")
	if err != nil {
		return CoverageInput{}, err
	} else if capacity < 0 {
		return CoverageInput{}, invalidInput("capacity must not be negative: %v", capacity)
	}
	input.Capacity = int(capacity)

	return input, input.Distances.Validate()
}

func GenericInputFromJson(file string) (GenericInput, error) {
	var rawInput RawGenericInput
	if err := decodeJsonFile(file, &rawInput); err != nil {
		return GenericInput{}, err
	}
	return ProcessRawGenericInput(rawInput)
}

func ProcessRawGenericInput(rawInput RawGenericInput) (GenericInput, error) {
	var input GenericInput

	//** Manage direction
	var err error
	switch direction := rawInput.Direction.(type) {
	case string:
		input.Direction, err = ParseDirection(direction)
	case float64:
		input.Direction, err = ParseDirection(fmt.Sprint(direction))
	default:
		err = invalidInput("direction must be a string or a number: %v", rawInput.Direction)
	}
	if err != nil {
		return GenericInput{}, err
	}

	//** Manage coefficients
	if len(rawInput.Objective) != 2 {
		return GenericInput{}, invalidInput("objective must hold 2 coefficients, got %d", len(rawInput.Objective))
	} else if len(rawInput.Constraints) != 2 {
		return GenericInput{}, invalidInput("exactly 2 constraints are expected, got %d", len(rawInput.Constraints))
	}

	targets := []*int64{&input.ObjectiveX, &input.ObjectiveY}
	values := []float64{rawInput.Objective[0], rawInput.Objective[1]}
	names := []string{"objective coefficient of x", "objective coefficient of y"}
	for i, row := range rawInput.Constraints {
		if len(row) != 3 {
			return GenericInput{}, invalidInput("constraint %d must hold 3 values (x coefficient, y coefficient, bound), got %d", i+1, len(row))
		}
		values = append(values, row...)
		names = append(names, fmt.Sprintf("x coefficient of constraint %d", i+1), fmt.Sprintf("y coefficient of constraint %d", i+1), fmt.Sprintf("bound of constraint %d", i+1))
	}
	targets = append(targets, &input.A1, &input.B1, &input.C1, &input.A2, &input.B2, &input.C2)

	for i, value := range values {
		integer, err := toInteger(value, names[i])
		if err != nil {
			return GenericInput{}, err
		}
		*targets[i] = integer
	}

	return input, nil
}

func (input GenericInput) Build() (GenericModel, error) {
	return BuildGenericModel(input.Direction, input.ObjectiveX, input.ObjectiveY, input.A1, input.B1, input.C1, input.A2, input.B2, input.C2)
}

func decodeJsonFile(file string, result any) error {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("cannot read input file: %w", err)
	}

	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return invalidInput("cannot parse input file: %v", err)
	}

	if err := mapstructure.Decode(inputJson, result); err != nil {
		return invalidInput("unexpected input format: %v", err)
	}
	return nil
}

func toInteger(value float64, name string) (int64, error) {
	if value != math.Trunc(value) || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, invalidInput("%v must be an integer: %v", name, value)
	} else if value < math.MinInt64 || value >= math.MaxInt64 {
		return 0, invalidInput("%v is out of range: %v", name, value)
	}
	return int64(value), nil
}
