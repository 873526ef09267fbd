package mip

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

type Direction int

const (
	Minimize Direction = iota
	Maximize
)

func (direction Direction) String() string {
	switch direction {
	case Minimize:
		return "Minimize"
	case Maximize:
		return "Maximize"
	}
	return fmt.Sprintf("Direction(%d)", int(direction))
}

type Domain int

const (
	Binary             Domain = iota // 0 or 1
	NonNegativeInteger               // 0, 1, 2, ... with no upper bound
)

type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
)

func (sense Sense) String() string {
	if sense == GreaterEqual {
		return ">="
	}
	return "<="
}

type Variable struct {
	Name   string
	Domain Domain
}

// Term is a coefficient applied to the variable at index Variable of the model
type Term struct {
	Variable    int
	Coefficient int64
}

type Objective struct {
	Name  string
	Terms []Term
}

type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	Bound int64
}

// LinearModel is a solver-agnostic integer program: a direction, an ordered list of
// decision variables, one linear objective and a list of linear inequalities over them
type LinearModel struct {
	Name        string
	Direction   Direction
	Variables   []Variable
	Objective   Objective
	Constraints []Constraint
}

// Validate checks that every term references an existing variable and that names are usable by file-based solvers
func (model LinearModel) Validate() error {
	if model.Direction != Minimize && model.Direction != Maximize {
		return fmt.Errorf("invalid optimization direction: %v", model.Direction)
	}

	names := make(map[string]bool, len(model.Variables))
	for i, variable := range model.Variables {
		if variable.Name == "" || strings.ContainsAny(variable.Name, " \t\n:") {
			return fmt.Errorf("variable %d has an invalid name %q", i, variable.Name)
		} else if names[variable.Name] {
			return fmt.Errorf("variable name %q is used more than once", variable.Name)
		} else if variable.Domain != Binary && variable.Domain != NonNegativeInteger {
			return fmt.Errorf("variable %q has an invalid domain: %v", variable.Name, variable.Domain)
		}
		names[variable.Name] = true
	}

	checkTerms := func(owner string, terms []Term) error {
		for _, term := range terms {
			if term.Variable < 0 || term.Variable >= len(model.Variables) {
				return fmt.Errorf("%v references unknown variable %d", owner, term.Variable)
			}
		}
		return nil
	}

	if err := checkTerms("objective", model.Objective.Terms); err != nil {
		return err
	}
	for i, constraint := range model.Constraints {
		if constraint.Sense != LessEqual && constraint.Sense != GreaterEqual {
			return fmt.Errorf("constraint %d has an invalid sense: %v", i, constraint.Sense)
		}
		if err := checkTerms(fmt.Sprintf("constraint %d", i), constraint.Terms); err != nil {
			return err
		}
	}
	return nil
}

func (model LinearModel) HasIntegerVariables() bool {
	return lo.SomeBy(model.Variables, func(variable Variable) bool { return variable.Domain == NonNegativeInteger })
}

// Evaluate returns the objective's value for the given assignment
func (model LinearModel) Evaluate(values []int64) int64 {
	return evaluateTerms(model.Objective.Terms, values)
}

// Satisfied checks whether the assignment respects every variable domain and every constraint
func (model LinearModel) Satisfied(values []int64) bool {
	if len(values) != len(model.Variables) {
		return false
	}

	for i, variable := range model.Variables {
		if values[i] < 0 || (variable.Domain == Binary && values[i] > 1) {
			return false
		}
	}

	return lo.EveryBy(model.Constraints, func(constraint Constraint) bool {
		activity := evaluateTerms(constraint.Terms, values)
		if constraint.Sense == GreaterEqual {
			return activity >= constraint.Bound
		}
		return activity <= constraint.Bound
	})
}

// ToLP renders the model in CPLEX LP format, which is understood by CBC, GLPK, HiGHS and most other MIP solvers
func (model LinearModel) ToLP() string {
	var builder strings.Builder

	name := model.Name
	if name == "" {
		name = "model"
	}
	fmt.Fprintf(&builder, "\\* %v *\\\n", name)
	builder.WriteString(model.Direction.String() + "\n")

	objectiveName := model.Objective.Name
	if objectiveName == "" {
		objectiveName = "obj"
	}
	fmt.Fprintf(&builder, " %v: %v\n", objectiveName, model.lpExpression(model.Objective.Terms))

	builder.WriteString("Subject To\n")
	for i, constraint := range model.Constraints {
		constraintName := constraint.Name
		if constraintName == "" {
			constraintName = fmt.Sprintf("c%d", i+1)
		}
		fmt.Fprintf(&builder, " %v: %v %v %d\n", constraintName, model.lpExpression(constraint.Terms), constraint.Sense, constraint.Bound)
	}

	// Non-negative lower bounds are the LP-format default, so only the domains are declared
	integers := lo.Filter(model.Variables, func(variable Variable, _ int) bool { return variable.Domain == NonNegativeInteger })
	binaries := lo.Filter(model.Variables, func(variable Variable, _ int) bool { return variable.Domain == Binary })
	if len(integers) > 0 {
		builder.WriteString("General\n")
		fmt.Fprintf(&builder, " %v\n", strings.Join(lo.Map(integers, func(variable Variable, _ int) string { return variable.Name }), " "))
	}
	if len(binaries) > 0 {
		builder.WriteString("Binary\n")
		fmt.Fprintf(&builder, " %v\n", strings.Join(lo.Map(binaries, func(variable Variable, _ int) string { return variable.Name }), " "))
	}
	builder.WriteString("End\n")

	return builder.String()
}

func (model LinearModel) lpExpression(terms []Term) string {
	terms = lo.Filter(terms, func(term Term, _ int) bool { return term.Coefficient != 0 })
	// An LP row needs at least one term
	if len(terms) == 0 {
		if len(model.Variables) == 0 {
			return "0"
		}
		return "0 " + model.Variables[0].Name
	}

	var builder strings.Builder
	for i, term := range terms {
		coefficient := term.Coefficient
		switch {
		case coefficient < 0:
			builder.WriteString("- ")
			coefficient = -coefficient
		case i > 0:
			builder.WriteString("+ ")
		}
		if coefficient != 1 {
			fmt.Fprintf(&builder, "%d ", coefficient)
		}
		builder.WriteString(model.Variables[term.Variable].Name)
		if i < len(terms)-1 {
			builder.WriteString(" ")
		}
	}
	return builder.String()
}

func evaluateTerms(terms []Term, values []int64) int64 {
	return lo.SumBy(terms, func(term Term) int64 {
		if term.Variable >= len(values) {
			return 0
		}
		return term.Coefficient * values[term.Variable]
	})
}
