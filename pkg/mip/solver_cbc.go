package mip

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/samber/lo"
)

type cbcSolver struct {
	config Config
}

// NewCbcSolver returns a solver backed by the COIN-OR CBC executable found at config.CbcPath
func NewCbcSolver(config Config) MIPSolver {
	return &cbcSolver{config: config}
}

func (cs *cbcSolver) Solve(ctx context.Context, model LinearModel) (Solution, error) {
	lp := model.ToLP() // Transform the model into CPLEX-LP string format

	// Create a temporary file to hold the LP content
	inputTempFile, err := os.CreateTemp("", "model-*.lp")
	if err != nil {
		return Solution{}, fmt.Errorf("failed to create temporary file: %v", err)
	}
	defer os.Remove(inputTempFile.Name()) // Ensure the file is removed after execution

	outputTempFile, err := os.CreateTemp("", "cbc_solution-*.txt")
	if err != nil {
		return Solution{}, fmt.Errorf("failed to create temporary file: %v", err)
	}
	defer os.Remove(outputTempFile.Name())
	outputTempFile.Close() // CBC writes the solution file itself

	// Write the LP content to the temporary file
	if _, err := inputTempFile.WriteString(lp); err != nil {
		return Solution{}, fmt.Errorf("failed to write LP to temporary file: %v", err)
	}
	if err := inputTempFile.Close(); err != nil {
		return Solution{}, fmt.Errorf("failed to close temporary file: %v", err)
	}

	cmd := exec.CommandContext(ctx, cs.config.CbcPath, cs.arguments(inputTempFile.Name(), outputTempFile.Name())...)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if cs.config.Verbose {
		glog.Infof("cbc: %v", strings.Join(cmd.Args, " "))
		glog.Infof("cbc: model %q\n%v", model.Name, lp)
	}

	err = cmd.Run()
	if cs.config.Verbose {
		glog.Infof("cbc: output\n%v", stdOut.String())
	}
	if ctx.Err() != nil {
		return Solution{Status: Unknown}, nil
	} else if err != nil {
		return Solution{}, fmt.Errorf("an error occurred during cbc execution: %v : %v", err.Error(), stderr.String())
	}

	output, err := os.ReadFile(outputTempFile.Name())
	if err != nil {
		return Solution{}, fmt.Errorf("failed to read output file: %v", err)
	}
	return parseCbcSolution(string(output), model)
}

func (cs *cbcSolver) arguments(lpFile, solutionFile string) []string {
	arguments := []string{lpFile}
	if cs.config.TimeLimit > 0 {
		arguments = append(arguments, "sec", strconv.FormatFloat(math.Ceil(cs.config.TimeLimit.Seconds()), 'f', 0, 64))
	}
	if !cs.config.Verbose {
		arguments = append(arguments, "log", "0")
	}
	return append(arguments, "solve", "printingOptions", "all", "solu", solutionFile)
}

// parseCbcSolution reads a CBC solution file: a status line followed by "index name value reduced-cost" lines
func parseCbcSolution(solverOutput string, model LinearModel) (Solution, error) {
	lines := lo.Filter(strings.Split(solverOutput, "\n"), func(line string, _ int) bool { return strings.TrimSpace(line) != "" })
	if len(lines) == 0 {
		return Solution{}, fmt.Errorf("empty cbc solution file")
	}

	status := cbcStatus(lines[0])
	if status != Optimal {
		return Solution{Status: status}, nil
	}

	indexes := make(map[string]int, len(model.Variables))
	for i, variable := range model.Variables {
		indexes[variable.Name] = i
	}

	values := make([]int64, len(model.Variables)) // Variables that CBC omits are zero
	for _, line := range lines[1:] {
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "**"))
		if len(fields) < 3 {
			return Solution{}, fmt.Errorf("invalid line in cbc solution: %q", line)
		}

		index, ok := indexes[fields[1]]
		if !ok {
			continue // Constraint rows or variables unknown to the model
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return Solution{}, fmt.Errorf("invalid value in cbc solution: %q: %v", line, err)
		}
		values[index] = int64(math.Round(value))
	}

	return Solution{
		Status:    Optimal,
		Values:    values,
		Objective: model.Evaluate(values),
	}, nil
}

func cbcStatus(statusLine string) Status {
	statusLine = strings.ToLower(strings.TrimSpace(statusLine))
	switch {
	case strings.HasPrefix(statusLine, "optimal"):
		return Optimal
	case strings.HasPrefix(statusLine, "infeasible"), strings.HasPrefix(statusLine, "integer infeasible"):
		return Infeasible
	case strings.HasPrefix(statusLine, "unbounded"):
		return Unbounded
	}
	// "Stopped on time", "Stopped on iterations", ...
	return Unknown
}
