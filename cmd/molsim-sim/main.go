package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/daniacca/molsim/internal/logging"
	"github.com/daniacca/molsim/internal/molsim"
)

type options struct {
	configFile  string
	steps       int64
	seed        int64
	snapshotIn  string
	snapshotOut string
	logLevel    string
}

func parseOptions(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.configFile, "config", "", "path to simulation config file, .toml or .json (required)")
	fs.Int64Var(&o.steps, "steps", -1, "number of steps to run; overrides the config when >= 0")
	fs.Int64Var(&o.seed, "seed", -1, "random seed; overrides the config when >= 0")
	fs.StringVar(&o.snapshotIn, "snapshot-in", "", "optional snapshot JSON to start from")
	fs.StringVar(&o.snapshotOut, "snapshot-out", "", "optional path to write the final snapshot JSON")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.configFile == "" {
		return o, fmt.Errorf("-config is required")
	}
	return o, nil
}

func main() {
	opts, err := parseOptions(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}
	logger := logging.New(opts.logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *logging.Logger, out io.Writer) error {
	cfg, err := molsim.LoadSimulationConfig(opts.configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.steps >= 0 {
		cfg.Steps = opts.steps
	}
	if opts.seed >= 0 {
		cfg.Seed = opts.seed
	}

	sim, err := molsim.BuildSimulation(cfg, logger.Named(cfg.Name))
	if err != nil {
		return fmt.Errorf("building simulation: %w", err)
	}

	if opts.snapshotIn != "" {
		data, err := os.ReadFile(opts.snapshotIn)
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}
		snap, err := molsim.DecodeSnapshotJSON(data)
		if err != nil {
			return err
		}
		if err := sim.Integrator.Restore(snap); err != nil {
			return fmt.Errorf("restoring snapshot: %w", err)
		}
	}

	runErr := sim.Integrator.Run(ctx, cfg.Steps)
	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("running simulation: %w", runErr)
	}

	if opts.snapshotOut != "" {
		data, err := molsim.EncodeSnapshotJSON(sim.Integrator.Snapshot())
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.snapshotOut, data, 0o644); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		logger.Infof("snapshot written to %s", opts.snapshotOut)
	}

	printSummary(out, sim)
	return nil
}

func printSummary(out io.Writer, sim *molsim.Simulation) {
	in := sim.Integrator
	fmt.Fprintf(out, "Simulation finished (id=%s, steps=%d, temperature=%g)\n", in.ID(), in.Time(), in.Temperature())
	fmt.Fprintf(out, "Energy: %g\n", in.Energy())

	counts := make(map[string]int)
	for _, c := range sim.System.Chains() {
		counts[c.Species]++
	}
	species := make([]string, 0, len(counts))
	for name := range counts {
		species = append(species, name)
	}
	sort.Strings(species)

	fmt.Fprintln(out, "Chains:")
	for _, name := range species {
		fmt.Fprintf(out, "  %s: %d\n", name, counts[name])
	}
	fmt.Fprintln(out, "Moves:")
	for _, s := range in.Stats() {
		fmt.Fprintf(out, "  %s: attempts=%d accepted=%d rate=%.4f zero_new=%d zero_old=%d\n",
			s.Move, s.Attempts, s.Accepted, s.AcceptanceRate, s.ZeroNewWeight, s.ZeroOldWeight)
	}
}
