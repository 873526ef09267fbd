package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/limaJavier/intopt/pkg/mip"
	"github.com/limaJavier/intopt/pkg/model"
	"github.com/samber/lo"
)

const (
	exitOptimal    = 10
	exitInfeasible = 20
	exitUnbounded  = 25
	exitUnknown    = 30
)

var (
	validProblems = []string{"coverage", "generic"}
	validSolvers  = []string{"gophersat", "cbc"}
	solvers       = map[string]func(mip.Config) mip.MIPSolver{
		"gophersat": mip.NewGophersatSolver,
		"cbc":       mip.NewCbcSolver,
	}
)

func main() {
	// Define arguments
	problemPtr := flag.String("problem", "coverage", `Problem to solve. Allowed values are:
- "coverage" (place the fewest stations such that every city lies within the threshold of one) and
- "generic" (two-variable integer program), where "coverage" is the default`)
	solverPtr := flag.String("solver", "gophersat", "MIP-Solver to use. Allowed values are: \"gophersat\" and \"cbc\", where \"gophersat\" is the default")
	filePathPtr := flag.String("file", "", "Path to the input file")
	interactivePtr := flag.Bool("interactive", false, "Read the input from the Standard Input instead of a file")
	thresholdPtr := flag.Float64("threshold", model.DefaultThreshold, "Coverage distance; overrides the input file's threshold when given")
	capacityPtr := flag.Int("capacity", 0, "Maximum number of cities served by a station; 0 means unlimited")
	timeoutPtr := flag.Duration("timeout", 0, "Time limit for the solver (e.g. 30s); overrides config.json when given")
	verbosePtr := flag.Bool("verbose", false, "Log models and solver output to the Standard Error")
	configPathPtr := flag.String("config", "", "Path to the config file; if empty, config.json beside the executable is used when present")
	outFilePathPtr := flag.String("out", "", "Path to the file where the output will be written; if empty, it'll be written into the Standard Output")
	flag.Parse()
	problem := strings.ToLower(*problemPtr)
	solverStr := strings.ToLower(*solverPtr)
	filePath := *filePathPtr
	interactive := *interactivePtr
	capacity := *capacityPtr
	outFile := *outFilePathPtr

	given := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { given[f.Name] = true })

	// Validate arguments
	if !slices.Contains(validProblems, problem) {
		log.Fatalf("%v is not a valid problem", problem)
	} else if !slices.Contains(validSolvers, solverStr) {
		log.Fatalf("%v is not a valid solver", solverStr)
	} else if filePath == "" && !interactive {
		log.Fatal("an input file must be specified, or -interactive used")
	} else if filePath != "" && interactive {
		log.Fatal("-file and -interactive cannot be used together")
	} else if capacity < 0 {
		log.Fatalf("capacity must not be negative: %v", capacity)
	}

	// Load configuration
	config := loadConfig(*configPathPtr)
	if given["timeout"] {
		config.TimeLimit = *timeoutPtr
	}
	if *verbosePtr {
		config.Verbose = true
		// glog registers its flags on the default set
		if err := flag.Set("logtostderr", "true"); err != nil {
			log.Fatalf("cannot route solver logs to the Standard Error: %v", err)
		}
	}
	if err := config.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	solver := solvers[solverStr](config)
	ctx := context.Background()
	if config.TimeLimit > 0 {
		var cancel context.CancelFunc
		// Grace period so the backend can report its own time limit first
		ctx, cancel = context.WithTimeout(ctx, config.TimeLimit+5*time.Second)
		defer cancel()
	}

	var (
		output string
		err    error
	)
	switch problem {
	case "coverage":
		output, err = runCoverage(ctx, solver, filePath, interactive, given["threshold"], *thresholdPtr, given["capacity"], capacity)
	case "generic":
		output, err = runGeneric(ctx, solver, filePath, interactive)
	}

	var invalidInputError *model.InvalidInputError
	var infeasibleError *model.InfeasibleByConstructionError
	if errors.As(err, &invalidInputError) {
		log.Fatalf("cannot build model: %v", err)
	} else if errors.As(err, &infeasibleError) {
		log.Printf("model was not submitted: %v", err)
		os.Exit(exitInfeasible)
	} else if err != nil && output == "" {
		log.Fatalf("an error occurred while solving: %v", err)
	}

	// Verify outfile is empty, if so then write the results to the Standard Output
	if outFile == "" {
		fmt.Print(output)
	} else if err := os.WriteFile(outFile, []byte(output), 0666); err != nil {
		log.Fatalf("an error occurred while writing to the output file: %v", err)
	}

	os.Exit(exitCode(err))
}

func runCoverage(ctx context.Context, solver mip.MIPSolver, filePath string, interactive, thresholdGiven bool, threshold float64, capacityGiven bool, capacity int) (string, error) {
	var input model.CoverageInput
	var err error
	if interactive {
		input, err = promptCoverage(os.Stdin, os.Stdout)
	} else {
		input, err = model.CoverageInputFromJson(filePath)
	}
	if err != nil {
		return "", err
	}
	if thresholdGiven || interactive {
		input.Threshold = threshold
	}
	if capacityGiven || interactive {
		input.Capacity = capacity
	}

	coverage, report, err := model.SolveCoverage(ctx, solver, input.Distances, input.Threshold)
	if err != nil {
		return lo.Ternary(report.Status != mip.Optimal && isStatusError(err), report.String(), ""), err
	}

	output := report.String()
	if input.Capacity > 0 {
		assignment, err := model.AssignCities(coverage, report.Stations, input.Capacity)
		if err != nil {
			return output, fmt.Errorf("cannot assign cities with capacity %d: %w", input.Capacity, err)
		}
		for city, station := range assignment {
			output += fmt.Sprintf("City %d served by station at city %d\n", city+1, station+1)
		}
	}
	return output, nil
}

func runGeneric(ctx context.Context, solver mip.MIPSolver, filePath string, interactive bool) (string, error) {
	var input model.GenericInput
	var err error
	if interactive {
		input, err = promptGeneric(os.Stdin, os.Stdout)
	} else {
		input, err = model.GenericInputFromJson(filePath)
	}
	if err != nil {
		return "", err
	}

	_, report, err := model.SolveGeneric(ctx, solver, input)
	if err != nil && !isStatusError(err) {
		return "", err
	}
	return report.String(), err
}

func isStatusError(err error) bool {
	var statusError *model.StatusError
	return errors.As(err, &statusError)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOptimal
	case errors.Is(err, model.ErrSolverInfeasible):
		return exitInfeasible
	case errors.Is(err, model.ErrSolverUnbounded):
		return exitUnbounded
	case errors.Is(err, model.ErrSolverTimeoutOrUnknown):
		return exitUnknown
	}
	log.Fatalf("an error occurred after solving: %v", err)
	return 1
}

// promptCoverage asks for the number of cities and every off-diagonal distance
func promptCoverage(in io.Reader, out io.Writer) (model.CoverageInput, error) {
	scanner := bufio.NewScanner(in)

	n, err := promptInteger(scanner, out, "Number of cities: ")
	if err != nil {
		return model.CoverageInput{}, err
	} else if n < 1 {
		return model.CoverageInput{}, &model.InvalidInputError{Reason: fmt.Sprintf("number of cities must be positive: %v", n)}
	}

	matrix := make(model.DistanceMatrix, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		for j := range matrix[i] {
			if i == j {
				continue
			}
			matrix[i][j], err = promptFloat(scanner, out, fmt.Sprintf("Distance from city %d to city %d: ", i+1, j+1))
			if err != nil {
				return model.CoverageInput{}, err
			}
		}
	}

	return model.ProcessRawCoverageInput(model.RawCoverageInput{Distances: matrix})
}

// promptGeneric asks for the direction, the objective and both constraints of a two-variable program
func promptGeneric(in io.Reader, out io.Writer) (model.GenericInput, error) {
	scanner := bufio.NewScanner(in)

	direction, err := promptLine(scanner, out, "Direction (max or min): ")
	if err != nil {
		return model.GenericInput{}, err
	}

	prompts := []string{
		"Objective coefficient of x: ",
		"Objective coefficient of y: ",
		"Constraint 1 (a1*x + b1*y <= c1), a1: ",
		"Constraint 1 (a1*x + b1*y <= c1), b1: ",
		"Constraint 1 (a1*x + b1*y <= c1), c1: ",
		"Constraint 2 (a2*x - b2*y <= c2), a2: ",
		"Constraint 2 (a2*x - b2*y <= c2), b2: ",
		"Constraint 2 (a2*x - b2*y <= c2), c2: ",
	}
	values := make([]float64, len(prompts))
	for i, prompt := range prompts {
		if values[i], err = promptFloat(scanner, out, prompt); err != nil {
			return model.GenericInput{}, err
		}
	}

	return model.ProcessRawGenericInput(model.RawGenericInput{
		Direction:   direction,
		Objective:   values[:2],
		Constraints: [][]float64{values[2:5], values[5:8]},
	})
}

func promptLine(scanner *bufio.Scanner, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func promptFloat(scanner *bufio.Scanner, out io.Writer, prompt string) (float64, error) {
	line, err := promptLine(scanner, out, prompt)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, &model.InvalidInputError{Reason: fmt.Sprintf("%q is not a number", line)}
	}
	return value, nil
}

func promptInteger(scanner *bufio.Scanner, out io.Writer, prompt string) (int, error) {
	line, err := promptLine(scanner, out, prompt)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(line)
	if err != nil {
		return 0, &model.InvalidInputError{Reason: fmt.Sprintf("%q is not an integer", line)}
	}
	return value, nil
}

// loadConfig reads the given config file or, when none is given, config.json beside the executable.
// Without any file the defaults are used
func loadConfig(configPath string) mip.Config {
	if configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			log.Fatalf("cannot determine executable path: %v", err)
		}
		execPath = path.Dir(execPath)

		files, err := os.ReadDir(execPath)
		if err != nil {
			log.Fatalf("cannot read executable's directory: %v", err)
		}
		fileNames := lo.Map(files, func(file os.DirEntry, _ int) string { return file.Name() })
		if !slices.Contains(fileNames, "config.json") {
			return mip.DefaultConfig()
		}
		configPath = execPath + "/config.json"
	}
	mip.ConfigPath = configPath

	config, err := mip.LoadConfig(mip.ConfigPath)
	if err != nil {
		log.Fatalf("cannot load %v: %v", mip.ConfigPath, err)
	}
	return config
}
