package mip

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"slices"
	"sync/atomic"

	"github.com/crillab/gophersat/solver"
	"github.com/golang/glog"
	"github.com/samber/lo"
)

// ErrEncodingOverflow reports coefficients whose binary expansion does not fit the pseudo-boolean encoding
var ErrEncodingOverflow = errors.New("coefficients are too large for the pseudo-boolean encoding")

// Upper bound on the sum of absolute weights of any encoded constraint, objective included
const maxWeightSum = int64(1) << 48

type gophersatSolver struct {
	config  Config
	running atomic.Int32 // Searches still in progress, including those abandoned after their context ended
}

// NewGophersatSolver returns an in-process solver that encodes the model as pseudo-boolean constraints.
// Integer variables are binary-expanded. Those bounded by the constraints get an exact width; the others
// are widened up to MaxIntegerBits, and a model whose optimum sits on that cap is only reported unbounded
// when an improving integer ray exists
func NewGophersatSolver(config Config) MIPSolver {
	return &gophersatSolver{config: config}
}

func (gs *gophersatSolver) Solve(ctx context.Context, model LinearModel) (Solution, error) {
	if err := model.Validate(); err != nil {
		return Solution{}, err
	} else if err := gs.config.Validate(); err != nil {
		return Solution{}, err
	}

	if gs.config.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, gs.config.TimeLimit)
		defer cancel()
	}

	if gs.config.Verbose {
		glog.Infof("gophersat: solving model %q\n%v", model.Name, model.ToLP())
	}

	bounds, feasible := impliedBounds(model)
	if !feasible {
		return Solution{Status: Infeasible}, nil
	}
	open := lo.Map(model.Variables, func(variable Variable, i int) bool {
		return variable.Domain == NonNegativeInteger && bounds[i] < 0
	})

	// Every variable has a known range, so a single pass is exact
	if !lo.Contains(open, true) {
		encoding, err := newPBEncoding(model, variableWidths(model, bounds, 0), open)
		if err != nil {
			return Solution{}, err
		}
		return gs.optimize(ctx, encoding)
	}

	width := gs.config.IntegerBits
	for {
		widest := width >= gs.config.MaxIntegerBits
		encoding, err := newPBEncoding(model, variableWidths(model, bounds, width), open)
		if err != nil {
			return Solution{}, err
		}
		solution, err := gs.optimize(ctx, encoding)
		if err != nil || solution.Status == Unknown {
			return solution, err
		}
		if gs.config.Verbose {
			glog.Infof("gophersat: %d-bit integers: %v (objective %d)", width, solution.Status, solution.Objective)
		}

		if solution.Status == Infeasible {
			if widest {
				return gs.proveInfeasible(ctx, model, bounds, open)
			}
			width = min(width*2, gs.config.MaxIntegerBits)
			continue
		}

		interior, status := gs.interior(ctx, encoding, solution)
		switch {
		case status == solver.Indet:
			return Solution{Status: Unknown}, nil
		case status == solver.Sat && widest:
			return interior, nil
		case status == solver.Sat:
			// Confirm on the widest domain before trusting a narrow optimum
			improved, status, err := gs.improvesAt(ctx, model, bounds, open, interior)
			if err != nil {
				return Solution{}, err
			} else if status == solver.Indet {
				return Solution{Status: Unknown}, nil
			} else if !improved {
				return interior, nil
			}
			width = gs.config.MaxIntegerBits
		case widest:
			return gs.unboundedOrUnknown(ctx, model)
		default:
			width = min(width*2, gs.config.MaxIntegerBits)
		}
	}
}

// optimize finds a minimum-cost assignment by bisection over the cost, one decision problem per step
func (gs *gophersatSolver) optimize(ctx context.Context, encoding pbEncoding) (Solution, error) {
	if !encoding.feasible {
		return Solution{Status: Infeasible}, nil
	}

	assignment, status := gs.decide(ctx, encoding.nbVars, encoding.rows)
	switch status {
	case solver.Unsat:
		return Solution{Status: Infeasible}, nil
	case solver.Indet:
		return Solution{Status: Unknown}, nil
	}

	best := encoding.decode(assignment)
	low, high := encoding.lowestCost(), encoding.cost(best)-1
	for low <= high {
		middle := low + (high-low)/2

		assignment, status := gs.decide(ctx, encoding.nbVars, append(slices.Clone(encoding.rows), encoding.costBound(middle)))
		switch status {
		case solver.Sat:
			best = encoding.decode(assignment)
			high = min(middle, encoding.cost(best)) - 1
		case solver.Unsat:
			low = middle + 1
		default:
			return Solution{Status: Unknown}, nil
		}
	}

	return Solution{
		Status:    Optimal,
		Values:    best,
		Objective: encoding.model.Evaluate(best),
	}, nil
}

// interior looks for an assignment as good as solution where no open variable sits on its cap
func (gs *gophersatSolver) interior(ctx context.Context, encoding pbEncoding, solution Solution) (Solution, solver.Status) {
	if !encoding.saturated(solution.Values) {
		return solution, solver.Sat
	}

	constraints := append(slices.Clone(encoding.rows), encoding.costBound(encoding.cost(solution.Values)))
	for i, open := range encoding.open {
		if open {
			constraints = append(constraints, encoding.belowCap(i))
		}
	}

	assignment, status := gs.decide(ctx, encoding.nbVars, constraints)
	if status != solver.Sat {
		return Solution{}, status
	}
	values := encoding.decode(assignment)
	return Solution{Status: Optimal, Values: values, Objective: encoding.model.Evaluate(values)}, solver.Sat
}

// improvesAt checks whether the widest domain holds an assignment cheaper than solution
func (gs *gophersatSolver) improvesAt(ctx context.Context, model LinearModel, bounds []int64, open []bool, solution Solution) (bool, solver.Status, error) {
	encoding, err := newPBEncoding(model, variableWidths(model, bounds, gs.config.MaxIntegerBits), open)
	if err != nil {
		return false, solver.Indet, err
	}

	_, status := gs.decide(ctx, encoding.nbVars, append(slices.Clone(encoding.rows), encoding.costBound(encoding.cost(solution.Values)-1)))
	return status == solver.Sat, status, nil
}

// proveInfeasible settles a model that is infeasible on the widest domain. If the model had any solution,
// it would have one whose entries fit in feasibilityBits, so only a wider check may remain
func (gs *gophersatSolver) proveInfeasible(ctx context.Context, model LinearModel, bounds []int64, open []bool) (Solution, error) {
	needed := feasibilityBits(model)
	if needed <= gs.config.MaxIntegerBits {
		return Solution{Status: Infeasible}, nil
	} else if needed > maxSupportedBits {
		return Solution{Status: Unknown}, nil
	}

	encoding, err := newPBEncoding(model, variableWidths(model, bounds, needed), open)
	if err != nil {
		return Solution{}, err
	} else if !encoding.feasible {
		return Solution{Status: Infeasible}, nil
	}

	if _, status := gs.decide(ctx, encoding.nbVars, encoding.rows); status == solver.Unsat {
		return Solution{Status: Infeasible}, nil
	}
	// A solution beyond the widest domain exists, or the check did not finish
	return Solution{Status: Unknown}, nil
}

// unboundedOrUnknown is called once every optimum of the widest domain sits on a cap. The model is unbounded
// exactly when an integer direction d >= 0 keeps every constraint satisfied and improves the objective;
// directions are searched within IntegerBits
func (gs *gophersatSolver) unboundedOrUnknown(ctx context.Context, model LinearModel) (Solution, error) {
	ray := LinearModel{
		Name:      model.Name + "_ray",
		Direction: model.Direction,
		Variables: model.Variables,
		Objective: model.Objective,
		Constraints: lo.Map(model.Constraints, func(constraint Constraint, _ int) Constraint {
			return Constraint{Name: constraint.Name, Terms: constraint.Terms, Sense: constraint.Sense}
		}),
	}
	for i, variable := range model.Variables {
		if variable.Domain == Binary {
			ray.Constraints = append(ray.Constraints, Constraint{Terms: []Term{{Variable: i, Coefficient: 1}}, Sense: LessEqual})
		}
	}
	improvement := Constraint{Terms: model.Objective.Terms, Sense: GreaterEqual, Bound: 1}
	if model.Direction == Minimize {
		improvement.Sense, improvement.Bound = LessEqual, -1
	}
	ray.Constraints = append(ray.Constraints, improvement)

	widths := lo.Map(model.Variables, func(variable Variable, _ int) int {
		return lo.Ternary(variable.Domain == Binary, 1, gs.config.IntegerBits)
	})
	encoding, err := newPBEncoding(ray, widths, make([]bool, len(model.Variables)))
	if err != nil {
		return Solution{}, err
	} else if !encoding.feasible {
		return Solution{Status: Unknown}, nil
	}

	if _, status := gs.decide(ctx, encoding.nbVars, encoding.rows); status == solver.Sat {
		return Solution{Status: Unbounded}, nil
	}
	return Solution{Status: Unknown}, nil
}

// decide solves a single pseudo-boolean decision problem. gophersat cannot interrupt a search, so if ctx
// ends first the search is abandoned and keeps running in the background until it finishes
func (gs *gophersatSolver) decide(ctx context.Context, variables int, constraints []pbConstraint) ([]bool, solver.Status) {
	if err := ctx.Err(); err != nil {
		return nil, solver.Indet
	}
	// Without constraints every assignment is a model
	if len(constraints) == 0 {
		return make([]bool, variables), solver.Sat
	}

	problem := solver.ParsePBConstrs(lo.Map(constraints, func(constraint pbConstraint, _ int) solver.PBConstr {
		// GtEq normalizes negative weights in place, hence the copies
		return solver.GtEq(slices.Clone(constraint.lits), slices.Clone(constraint.weights), constraint.atLeast)
	}))
	if problem.Status == solver.Unsat {
		return nil, solver.Unsat
	}

	pbSolver := solver.New(problem)
	done := make(chan solver.Status, 1)
	gs.running.Add(1)
	go func() {
		defer gs.running.Add(-1)
		done <- pbSolver.Solve()
	}()

	select {
	case <-ctx.Done():
		if gs.config.Verbose {
			glog.Warningf("gophersat: abandoning search over %d variables, %d searches still running", variables, gs.running.Load())
		}
		return nil, solver.Indet
	case status := <-done:
		if status != solver.Sat {
			return nil, status
		}
		return pbSolver.Model(), solver.Sat
	}
}

// impliedBounds derives an upper bound for every integer variable that the constraints cap, by propagating
// known bounds through the rows in "<=" form. Unbounded integers get -1, binaries 1. feasible is false when
// some row can never hold
func impliedBounds(model LinearModel) (bounds []int64, feasible bool) {
	bounds = lo.Map(model.Variables, func(variable Variable, _ int) int64 {
		return lo.Ternary[int64](variable.Domain == Binary, 1, -1)
	})

	type row struct {
		variables    []int
		coefficients []int64
		bound        int64
	}
	rows := make([]row, 0, len(model.Constraints))
	for _, constraint := range model.Constraints {
		scale := lo.Ternary[int64](constraint.Sense == LessEqual, 1, -1)
		variables, coefficients, err := mergeTerms(constraint.Terms, scale)
		bound, ok := checkedMul(constraint.Bound, scale)
		if err != nil || !ok {
			continue
		}
		rows = append(rows, row{variables: variables, coefficients: coefficients, bound: bound})
	}

	for range len(model.Variables) + 1 {
		changed := false
		for _, row := range rows {
			// Room left once every negative term takes its most negative value
			rest, ok := row.bound, true
			for k, variable := range row.variables {
				if row.coefficients[k] >= 0 {
					continue
				} else if bounds[variable] < 0 || row.coefficients[k] == math.MinInt64 {
					ok = false
					break
				}
				var gain int64
				if gain, ok = checkedMul(-row.coefficients[k], bounds[variable]); ok {
					rest, ok = checkedAdd(rest, gain)
				}
				if !ok {
					break
				}
			}
			if !ok {
				continue
			} else if rest < 0 {
				return nil, false
			}

			for k, variable := range row.variables {
				if row.coefficients[k] <= 0 || model.Variables[variable].Domain == Binary {
					continue
				}
				if bound := rest / row.coefficients[k]; bounds[variable] < 0 || bound < bounds[variable] {
					bounds[variable] = bound
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	// Ranges the encoding cannot hold are treated as unbounded
	for i, variable := range model.Variables {
		if variable.Domain == NonNegativeInteger && bounds[i] >= int64(1)<<maxSupportedBits {
			bounds[i] = -1
		}
	}
	return bounds, true
}

// variableWidths gives binaries one literal, bounded integers the literals their bound needs and
// unbounded integers openBits literals
func variableWidths(model LinearModel, bounds []int64, openBits int) []int {
	return lo.Map(model.Variables, func(variable Variable, i int) int {
		switch {
		case variable.Domain == Binary:
			return 1
		case bounds[i] >= 0:
			return max(1, bits.Len64(uint64(bounds[i])))
		}
		return openBits
	})
}

// feasibilityBits is the width that holds some solution of a feasible integer program: with rows turned into
// equalities by slack variables, a feasible system has a solution with entries at most n(ma)^(2m+1),
// where a bounds every coefficient and right-hand side
func feasibilityBits(model LinearModel) int {
	binaries := lo.CountBy(model.Variables, func(variable Variable) bool { return variable.Domain == Binary })
	m := float64(len(model.Constraints) + binaries)
	n := float64(len(model.Variables)) + m

	a := 1.0
	for _, constraint := range model.Constraints {
		a = max(a, math.Abs(float64(constraint.Bound)))
		for _, term := range constraint.Terms {
			a = max(a, math.Abs(float64(term.Coefficient)))
		}
	}

	logBound := math.Log2(n) + (2*m+1)*math.Log2(max(m, 1)*a)
	if logBound >= maxSupportedBits {
		return maxSupportedBits + 1
	}
	return int(math.Floor(logBound+1e-9)) + 1
}

// pbConstraint stands for: sum(weights[i] * lits[i]) >= atLeast, where lits are 1-based literals
// (negative for a negated variable)
type pbConstraint struct {
	lits    []int
	weights []int
	atLeast int
}

// pbEncoding maps every model variable onto consecutive boolean literals, least significant first
type pbEncoding struct {
	model       LinearModel
	sign        int64 // Cost is sign * objective, so that the encoding always minimizes
	offsets     []int
	widths      []int
	open        []bool // Integer variables whose range is capped by the width only
	nbVars      int
	rows        []pbConstraint
	feasible    bool // False when a constraint without variables can never hold
	costLits    []int
	costWeights []int // cost = sum(costWeights[i] * costLits[i])
}

func newPBEncoding(model LinearModel, widths []int, open []bool) (pbEncoding, error) {
	encoding := pbEncoding{
		model:    model,
		sign:     lo.Ternary[int64](model.Direction == Maximize, -1, 1),
		offsets:  make([]int, len(model.Variables)),
		widths:   widths,
		open:     open,
		feasible: true,
	}

	next := 1
	for i := range model.Variables {
		encoding.offsets[i] = next
		next += widths[i]
	}
	encoding.nbVars = next - 1

	var err error
	if encoding.costLits, encoding.costWeights, err = encoding.expand(model.Objective.Terms, encoding.sign, 0); err != nil {
		return pbEncoding{}, fmt.Errorf("objective of model %q: %w", model.Name, err)
	}

	encoding.rows = make([]pbConstraint, 0, len(model.Constraints))
	for _, constraint := range model.Constraints {
		scale := lo.Ternary[int64](constraint.Sense == LessEqual, -1, 1)
		bound, ok := checkedMul(constraint.Bound, scale)
		if !ok {
			return pbEncoding{}, fmt.Errorf("constraint %q: %w", constraint.Name, ErrEncodingOverflow)
		}

		lits, weights, err := encoding.expand(constraint.Terms, scale, bound)
		if err != nil {
			return pbEncoding{}, fmt.Errorf("constraint %q: %w", constraint.Name, err)
		}
		if len(lits) == 0 {
			if bound > 0 {
				encoding.feasible = false
			}
			continue
		}
		encoding.rows = append(encoding.rows, pbConstraint{lits: lits, weights: weights, atLeast: int(bound)})
	}
	return encoding, nil
}

// expand turns scale * terms into weighted literals. Together with atLeast, the absolute weights must stay
// within maxWeightSum
func (encoding pbEncoding) expand(terms []Term, scale int64, atLeast int64) (lits []int, weights []int, err error) {
	variables, coefficients, err := mergeTerms(terms, scale)
	if err != nil {
		return nil, nil, err
	}

	total := absolute(atLeast)
	for k, variable := range variables {
		for bit := range encoding.widths[variable] {
			weight, ok := checkedMul(coefficients[k], int64(1)<<bit)
			if ok {
				total, ok = checkedAdd(total, absolute(weight))
			}
			if !ok || total > maxWeightSum {
				return nil, nil, ErrEncodingOverflow
			}
			lits = append(lits, encoding.offsets[variable]+bit)
			weights = append(weights, int(weight))
		}
	}
	return lits, weights, nil
}

// costBound states cost <= bound
func (encoding pbEncoding) costBound(bound int64) pbConstraint {
	return pbConstraint{
		lits:    encoding.costLits,
		weights: lo.Map(encoding.costWeights, func(weight int, _ int) int { return -weight }),
		atLeast: int(-bound),
	}
}

// belowCap states that variable i is not on the largest value its width can hold
func (encoding pbEncoding) belowCap(i int) pbConstraint {
	lits := lo.Map(lo.Range(encoding.widths[i]), func(bit int, _ int) int { return -(encoding.offsets[i] + bit) })
	return pbConstraint{lits: lits, weights: lo.Map(lits, func(int, int) int { return 1 }), atLeast: 1}
}

func (encoding pbEncoding) lowestCost() int64 {
	return lo.SumBy(encoding.costWeights, func(weight int) int64 { return int64(min(weight, 0)) })
}

func (encoding pbEncoding) cost(values []int64) int64 {
	return encoding.sign * encoding.model.Evaluate(values)
}

func (encoding pbEncoding) decode(assignment []bool) []int64 {
	values := make([]int64, len(encoding.model.Variables))
	for i := range encoding.model.Variables {
		for bit := range encoding.widths[i] {
			// Literals that appear in no constraint are not part of the solver's model and stay false
			index := encoding.offsets[i] + bit - 1
			if index < len(assignment) && assignment[index] {
				values[i] |= int64(1) << bit
			}
		}
	}
	return values
}

// saturated checks whether some open variable sits at the largest value its width can hold
func (encoding pbEncoding) saturated(values []int64) bool {
	return lo.SomeBy(lo.Range(len(values)), func(i int) bool {
		return encoding.open[i] && values[i] == int64(1)<<encoding.widths[i]-1
	})
}

// mergeTerms multiplies every coefficient by scale and sums those of repeated variables, keeping first-seen
// order and dropping zero sums
func mergeTerms(terms []Term, scale int64) (variables []int, coefficients []int64, err error) {
	merged := make(map[int]int64)
	order := make([]int, 0, len(terms))
	for _, term := range terms {
		coefficient, ok := checkedMul(term.Coefficient, scale)
		if _, seen := merged[term.Variable]; !seen {
			order = append(order, term.Variable)
		}
		if ok {
			merged[term.Variable], ok = checkedAdd(merged[term.Variable], coefficient)
		}
		if !ok {
			return nil, nil, ErrEncodingOverflow
		}
	}

	for _, variable := range order {
		if coefficient := merged[variable]; coefficient != 0 {
			variables = append(variables, variable)
			coefficients = append(coefficients, coefficient)
		}
	}
	return variables, coefficients, nil
}

func checkedMul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	product := a * b
	if product/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return product, true
}

func checkedAdd(a, b int64) (int64, bool) {
	sum := a + b
	if (sum > a) != (b > 0) {
		return 0, false
	}
	return sum, true
}

func absolute(value int64) int64 {
	if value == math.MinInt64 {
		return math.MaxInt64
	}
	return max(value, -value)
}
