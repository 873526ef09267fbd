package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/exec"
	"time"

	"github.com/limaJavier/intopt/pkg/mip"
	"github.com/limaJavier/intopt/pkg/model"
	"github.com/samber/lo"
)

type SolverType int

const (
	gophersat SolverType = iota
	cbc
)

type ResultType int

const (
	solved ResultType = iota
	infeasible
	timeout
)

var (
	solverTypes = map[SolverType]string{
		gophersat: "gophersat",
		cbc:       "cbc",
	}
	solverFactories = map[SolverType]func(mip.Config) mip.MIPSolver{
		gophersat: mip.NewGophersatSolver,
		cbc:       mip.NewCbcSolver,
	}
	resultTypes = map[ResultType]string{
		solved:     "solved",
		infeasible: "infeasible",
		timeout:    "timeout",
	}
)

type TestMetadata struct {
	Name        string
	Cities      int
	MaxDistance int
	Threshold   float64
	Distances   model.DistanceMatrix
}

type BenchmarkResult struct {
	Solver   SolverType
	Test     TestMetadata
	Duration int64
	Stations int
	Result   ResultType
}

func main() {
	seedPtr := flag.Uint64("seed", 1, "Seed for the generated instances")
	timeoutPtr := flag.Duration("timeout", time.Minute, "Time limit per solve")
	outPtr := flag.String("out", "benchmark_results.csv", "Path to the CSV file")
	flag.Parse()

	config := mip.DefaultConfig()
	config.TimeLimit = *timeoutPtr

	tests := getTests(*seedPtr)
	solvers := getSolvers(config)
	results := make([]BenchmarkResult, 0, len(tests)*len(solvers))

	for _, test := range tests {
		for _, solver := range solvers {
			fmt.Printf("Benchmarking test \"%v\" with solver \"%v\"\n", test.Name, solverTypes[solver])

			duration, stations, result := measure(solverFactories[solver](config), config.TimeLimit, test)

			results = append(results, BenchmarkResult{
				Solver:   solver,
				Test:     test,
				Duration: duration,
				Stations: stations,
				Result:   result,
			})
		}
	}

	if err := toCsv(*outPtr, results); err != nil {
		log.Fatalf("cannot write benchmark results: %v", err)
	}
}

// getTests generates one coverage instance per size and distance scale
func getTests(seed uint64) []TestMetadata {
	rng := rand.New(rand.NewPCG(seed, seed))
	tests := make([]TestMetadata, 0)
	for _, cities := range []int{5, 10, 20, 40} {
		for _, maxDistance := range []int{50, 100, 200} {
			tests = append(tests, TestMetadata{
				Name:        fmt.Sprintf("coverage_%d_%d", cities, maxDistance),
				Cities:      cities,
				MaxDistance: maxDistance,
				Threshold:   model.DefaultThreshold,
				Distances:   model.GenerateDistanceMatrix(cities, maxDistance, rng),
			})
		}
	}
	return tests
}

// getSolvers returns every backend that can run on this machine
func getSolvers(config mip.Config) []SolverType {
	solvers := []SolverType{gophersat}
	if _, err := exec.LookPath(config.CbcPath); err == nil {
		solvers = append(solvers, cbc)
	} else {
		log.Printf("cbc is not available, skipping it: %v", err)
	}
	return solvers
}

func measure(solver mip.MIPSolver, timeLimit time.Duration, test TestMetadata) (duration int64, stations int, result ResultType) {
	ctx, cancel := context.WithTimeout(context.Background(), timeLimit)
	defer cancel()

	start := time.Now()
	_, report, err := model.SolveCoverage(ctx, solver, test.Distances, test.Threshold)
	duration = time.Since(start).Milliseconds()

	switch {
	case err == nil:
		result = solved
	case errors.Is(err, model.ErrSolverInfeasible):
		result = infeasible
	case errors.Is(err, model.ErrSolverTimeoutOrUnknown):
		result = timeout
	default:
		log.Fatalf("an error occurred at test \"%v\": %v", test.Name, err)
	}
	return duration, report.Count, result
}

func toCsv(file string, results []BenchmarkResult) error {
	csvFile, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("cannot create CSV file: %w", err)
	}
	defer csvFile.Close()

	writer := csv.NewWriter(csvFile)
	header := []string{"Solver", "Test", "Cities", "Max-Distance", "Threshold", "Duration(ms)", "Stations", "Result"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("cannot write CSV header: %w", err)
	}
	if err := writer.WriteAll(lo.Map(results, func(result BenchmarkResult, _ int) []string { return toRecord(result) })); err != nil {
		return fmt.Errorf("cannot write CSV records: %w", err)
	}
	return nil
}

func toRecord(result BenchmarkResult) []string {
	return []string{
		solverTypes[result.Solver],
		result.Test.Name,
		fmt.Sprintf("%d", result.Test.Cities),
		fmt.Sprintf("%d", result.Test.MaxDistance),
		fmt.Sprintf("%.1f", result.Test.Threshold),
		fmt.Sprintf("%d", result.Duration),
		fmt.Sprintf("%d", result.Stations),
		resultTypes[result.Result],
	}
}
