package model

import (
	"strings"

	"github.com/limaJavier/intopt/pkg/mip"
)

// Indices of the decision variables inside GenericModel.Model
const (
	variableX = 0
	variableY = 1
)

// GenericModel is a two-variable integer program:
//
//	optimize   objectiveX*x + objectiveY*y
//	subject to a1*x + b1*y <= c1
//	           a2*x - b2*y <= c2
//	           x, y >= 0 and integer
type GenericModel struct {
	Direction  mip.Direction
	ObjectiveX int64
	ObjectiveY int64
	// Rows hold (a, b, c) for each constraint. The second row's b is subtracted
	Rows  [2][3]int64
	Model mip.LinearModel
}

func BuildGenericModel(direction mip.Direction, coefX, coefY, a1, b1, c1, a2, b2, c2 int64) (GenericModel, error) {
	if direction != mip.Maximize && direction != mip.Minimize {
		return GenericModel{}, invalidInput("unknown optimization direction: %v", direction)
	}

	model := mip.LinearModel{
		Name:      "integer_program",
		Direction: direction,
		Variables: []mip.Variable{
			{Name: "x", Domain: mip.NonNegativeInteger},
			{Name: "y", Domain: mip.NonNegativeInteger},
		},
		Objective: mip.Objective{
			Name:  "z",
			Terms: []mip.Term{{Variable: variableX, Coefficient: coefX}, {Variable: variableY, Coefficient: coefY}},
		},
		Constraints: []mip.Constraint{
			{
				Name:  "constraint_1",
				Terms: []mip.Term{{Variable: variableX, Coefficient: a1}, {Variable: variableY, Coefficient: b1}},
				Sense: mip.LessEqual,
				Bound: c1,
			},
			{
				Name:  "constraint_2",
				Terms: []mip.Term{{Variable: variableX, Coefficient: a2}, {Variable: variableY, Coefficient: -b2}},
				Sense: mip.LessEqual,
				Bound: c2,
			},
		},
	}

	return GenericModel{
		Direction:  direction,
		ObjectiveX: coefX,
		ObjectiveY: coefY,
		Rows:       [2][3]int64{{a1, b1, c1}, {a2, b2, c2}},
		Model:      model,
	}, nil
}

// ParseDirection accepts "max"/"maximize"/"-1" and "min"/"minimize"/"1"
func ParseDirection(value string) (mip.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "max", "maximize", "maximise", "-1":
		return mip.Maximize, nil
	case "min", "minimize", "minimise", "1":
		return mip.Minimize, nil
	}
	return 0, invalidInput("unknown optimization direction %q: expected \"max\" (-1) or \"min\" (1)", value)
}
