package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/rawblock/surveillance-engine/internal/aggregator"
	"github.com/rawblock/surveillance-engine/internal/config"
	"github.com/rawblock/surveillance-engine/internal/coordinator"
	"github.com/rawblock/surveillance-engine/internal/detectors"
	"github.com/rawblock/surveillance-engine/internal/worker"
)

func main() {
	root := &cobra.Command{
		Use:           "engine",
		Short:         "RawBlock market surveillance engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), runCmd(), listAlgorithmsCmd())

	if err := root.Execute(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "serve {coordinator|worker|aggregator}",
		Short:     "Run one service role",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"coordinator", "worker", "aggregator"},
	}
	var algorithm string
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "algorithm hosted by a worker (required for worker)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		registry, err := detectors.Default()
		if err != nil {
			return err
		}

		role := args[0]
		log.Printf("Starting RawBlock Market Surveillance Engine (role: %s)...", role)

		switch role {
		case "coordinator":
			co := coordinator.New(cfg, registry)
			log.Printf("Coordinator listening on :%s, fanning out to %d workers", cfg.Port, len(cfg.WorkerURLs))
			return co.Router(cfg).Run(":" + cfg.Port)

		case "worker":
			if algorithm == "" {
				return fmt.Errorf("--algorithm is required for the worker role")
			}
			det, err := registry.Get(algorithm)
			if err != nil {
				return err
			}
			svc, err := worker.New(det, cfg.CacheSize, cfg.ValidationStrict)
			if err != nil {
				return err
			}
			log.Printf("Worker %s listening on :%s (cache size %d, strict=%v)",
				det.Name(), cfg.Port, cfg.CacheSize, cfg.ValidationStrict)
			return svc.Router(cfg).Run(":" + cfg.Port)

		case "aggregator":
			svc, err := aggregator.New(cfg)
			if err != nil {
				return err
			}
			log.Printf("Aggregator listening on :%s (output=%s, logs=%s)", cfg.Port, cfg.OutputDir, cfg.LogsDir)
			return svc.Router(cfg).Run(":" + cfg.Port)

		default:
			return fmt.Errorf("unknown role %q", role)
		}
	}
	return cmd
}

func runCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full detection pipeline locally on one input file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			registry, err := detectors.Default()
			if err != nil {
				return err
			}
			result, err := coordinator.LocalRun(cfg, registry, input)
			if err != nil {
				return err
			}
			log.Printf("Run %s completed: %d events, %d sequences", result.RequestID, result.EventsRead, result.SequenceCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "input file name inside INPUT_DIR")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func listAlgorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-algorithms",
		Short: "List the registered detection algorithms",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := detectors.Default()
			if err != nil {
				return err
			}
			for _, name := range registry.List() {
				det, err := registry.Get(name)
				if err != nil {
					return err
				}
				fmt.Printf("%-16s %s\n", det.Name(), det.Description())
			}
			return nil
		},
	}
}
