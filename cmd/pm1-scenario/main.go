// Package main - pm1-scenario
// Runs the offline opening-day scenario checks against the engine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ziv044/PM1/test"
)

func main() {
	fmt.Println("PM1 - OFFLINE SCENARIO SUITE")
	fmt.Println("============================")

	ctx := context.Background()

	scenario := test.NewOpeningDayScenario()
	scenario.Run(ctx)

	passed := 0
	failed := 0
	for _, r := range scenario.Results() {
		if r.Passed {
			passed++
		} else {
			failed++
		}
	}

	fmt.Println("\n============================")
	fmt.Printf("Passed: %d\n", passed)
	fmt.Printf("Failed: %d\n", failed)

	if failed > 0 {
		os.Exit(1)
	}
}
