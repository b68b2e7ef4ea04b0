package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vanshika/muletrace/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		accounts     = flag.Int("accounts", cfg.Accounts, "size of the background account population")
		transactions = flag.Int("transactions", cfg.BackgroundTransactions, "number of background transactions")
		rings        = flag.Int("rings", cfg.Rings, "number of circular fund-flow rings to plant")
		minRing      = flag.Int("min-ring", cfg.MinRingLength, "minimum ring length (at least 3)")
		maxRing      = flag.Int("max-ring", cfg.MaxRingLength, "maximum ring length")
		fanIn        = flag.Int("fan-in-hubs", cfg.FanInHubs, "number of fan-in collection hubs")
		fanOut       = flag.Int("fan-out-hubs", cfg.FanOutHubs, "number of fan-out dispersal hubs")
		fanWidth     = flag.Int("fan-width", cfg.FanWidth, "counterparties per smurfing hub")
		velocity     = flag.Int("velocity-actors", cfg.VelocityActors, "number of high-velocity accounts")
		burst        = flag.Int("velocity-count", cfg.VelocityCount, "transfers made by each high-velocity account")
		seed         = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir    = flag.String("output-dir", "data", "directory to write transactions.csv")
		writeStdout  = flag.Bool("stdout", false, "write the CSV to stdout instead of a file")
	)
	flag.Parse()

	genCfg := generator.Config{
		Accounts:               *accounts,
		BackgroundTransactions: *transactions,
		Rings:                  *rings,
		MinRingLength:          *minRing,
		MaxRingLength:          *maxRing,
		FanInHubs:              *fanIn,
		FanOutHubs:             *fanOut,
		FanWidth:               *fanWidth,
		VelocityActors:         *velocity,
		VelocityCount:          *burst,
		Start:                  cfg.Start,
		Seed:                   *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dataset, err := generator.New(genCfg).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := generator.WriteCSV(os.Stdout, dataset.Transactions); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	path, err := generator.WriteDataset(dataset, *outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d transactions into %s\n", len(dataset.Transactions), path)
	for i, ring := range dataset.Planted.Rings {
		fmt.Fprintf(os.Stdout, "  ring %d: %s\n", i+1, strings.Join(ring, " -> "))
	}
	fmt.Fprintf(os.Stdout, "  fan-in hubs: %s\n", strings.Join(dataset.Planted.FanInHubs, ", "))
	fmt.Fprintf(os.Stdout, "  fan-out hubs: %s\n", strings.Join(dataset.Planted.FanOutHubs, ", "))
	fmt.Fprintf(os.Stdout, "  high-velocity: %s\n", strings.Join(dataset.Planted.VelocityActors, ", "))
}
