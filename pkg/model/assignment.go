package model

import (
	"fmt"
	"slices"

	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

type unassignableError struct {
	assigned int
	cities   int
}

func (err unassignableError) Error() string {
	return fmt.Sprintf("only %d out of %d cities can be assigned a station", err.assigned, err.cities)
}

// AssignCities assigns every city to one selected station within the threshold, such that no station serves
// more than capacity cities. A non-positive capacity means unlimited, in which case each city gets its closest station
func AssignCities(coverage CoverageModel, stations []bool, capacity int) ([]int, error) {
	if len(stations) != coverage.Sites {
		return nil, invalidInput("expected %d station flags, got %d", coverage.Sites, len(stations))
	}

	if capacity <= 0 {
		return closestStations(coverage, stations)
	}

	// Each station is split into capacity slots, so that a matching between cities and slots is a valid assignment
	cities := lo.Range(coverage.Sites)
	slots := make([][2]int, 0)
	for station, built := range stations {
		if built {
			for slot := range capacity {
				slots = append(slots, [2]int{station, slot})
			}
		}
	}

	neighbors := func(cityAny any, slotAny any) (bool, error) {
		city, slot := cityAny.(int), slotAny.([2]int)
		return coverage.Covers(slot[0], city), nil
	}

	// Transform cities and slots to slices of any
	citiesAny, slotsAny := lo.Map(cities, func(city int, _ int) any { return city }), lo.Map(slots, func(slot [2]int, _ int) any { return slot })

	graph, err := bipartitegraph.NewBipartiteGraph(citiesAny, slotsAny, neighbors)
	if err != nil {
		return nil, err
	}

	matching := graph.LargestMatching()

	// Check the matching is a maximum one
	if len(matching) < len(cities) {
		return nil, unassignableError{assigned: len(matching), cities: len(cities)}
	}

	assignment := make([]int, len(cities))
	for _, edge := range matching {
		cityIndex, slotIndex := edge.Node1, edge.Node2-len(cities)
		assignment[cities[cityIndex]] = slots[slotIndex][0]
	}

	return assignment, nil
}

func closestStations(coverage CoverageModel, stations []bool) ([]int, error) {
	assignment := make([]int, coverage.Sites)
	for city, coverageSet := range coverage.CoverageSets {
		candidates := slices.DeleteFunc(slices.Clone(coverageSet), func(station int) bool { return !stations[station] })
		if len(candidates) == 0 {
			return nil, fmt.Errorf("city %d: %w", city+1, unassignableError{assigned: city, cities: coverage.Sites})
		}
		assignment[city] = lo.MinBy(candidates, func(a, b int) bool {
			return coverage.Distances[city][a] < coverage.Distances[city][b]
		})
	}
	return assignment, nil
}
