// leanverify verifies batches of machine-generated Lean 4 proofs.
//
// It reads proof attempts from a JSONL file, reconstructs a checkable
// source unit per entry, checks the units concurrently against a Lake
// workspace, and writes one result record per entry plus a console
// summary.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"leanverify/internal/checker"
	"leanverify/internal/config"
	"leanverify/internal/dataset"
	"leanverify/internal/extract"
	"leanverify/internal/logging"
	"leanverify/internal/report"
	"leanverify/internal/store"
	"leanverify/internal/verify"
)

var (
	verbose    bool
	configPath string
	maxEntries int
	workspace  string
	outputPath string
	archiveDB  string
)

// debugUnits is how many reconstructed units get logged at debug level so
// a bad extraction is visible without rerunning the whole batch.
const debugUnits = 3

var rootCmd = &cobra.Command{
	Use:   "leanverify <input.jsonl>",
	Short: "Batch verification of machine-generated Lean 4 proofs",
	Long: `leanverify grades batches of model-generated Lean 4 proof attempts.

For every input entry it extracts the proof from the model response,
splices it into the formal statement, checks the result against a Lake
workspace (e.g. a mathlib4 checkout), and records a status:

  COMPLETE          proof verified with no remaining sorry
  PASS_WITH_ISSUES  compiles, but the proof is not closed
  FAIL              does not compile
  SYSTEM_ERROR      checker infrastructure failure (timeout, crash)
  NO_CODE_FOUND     no Lean code in the model response

Results are written next to the process as <input>_verification_results.jsonl
unless --output says otherwise.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := logging.Init(verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: run,
}

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.Flags().IntVar(&maxEntries, "max-entries", 0, "cap on entries processed (0 = all)")
	rootCmd.Flags().StringVar(&workspace, "workspace", "", "Lean workspace path override")
	rootCmd.Flags().StringVar(&outputPath, "output", "", "output JSONL path (default: derived from input)")
	rootCmd.Flags().StringVar(&archiveDB, "archive-db", "", "SQLite database to archive this batch into")
}

func run(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if workspace != "" {
		cfg.Checker.LeanWorkspace = workspace
	}
	if outputPath != "" {
		cfg.Output.Path = outputPath
	}
	if archiveDB != "" {
		cfg.Output.ArchiveDB = archiveDB
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Startup precondition: a missing workspace is reported and the run
	// exits early without processing anything.
	if _, err := os.Stat(cfg.Checker.LeanWorkspace); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Lean workspace not found at %s\n", cfg.Checker.LeanWorkspace)
		return fmt.Errorf("lean workspace not found at %s", cfg.Checker.LeanWorkspace)
	}
	fmt.Printf("Using Lean workspace: %s\n", cfg.Checker.LeanWorkspace)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := runBatch(ctx, cfg, inputPath)
	if err != nil {
		return err
	}

	sum := report.Summarize(records)
	fmt.Println()
	fmt.Println(sum.Render())

	outPath := cfg.Output.Path
	if outPath == "" {
		outPath = defaultOutputPath(inputPath)
	}
	if err := report.WriteRecords(outPath, records); err != nil {
		return err
	}
	fmt.Printf("Results saved to %s\n", outPath)

	if cfg.Output.ArchiveDB != "" {
		if err := archiveBatch(cfg.Output.ArchiveDB, inputPath, records, sum); err != nil {
			return err
		}
	}
	return nil
}

// runBatch runs the extract -> verify -> record pipeline over one input
// file. The checking scheduler lives exactly as long as the batch and is
// released on every exit path.
func runBatch(ctx context.Context, cfg *config.Config, inputPath string) ([]report.ResultRecord, error) {
	log := logging.Named("pipeline")

	entries, err := dataset.ReadEntries(inputPath, maxEntries)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Processing %d entries...\n", len(entries))

	units := make([]verify.Unit, len(entries))
	for i, entry := range entries {
		code, err := extract.Extract(entry.Response.Text(), entry.Skeleton)
		if err != nil {
			log.Warnw("extraction failed", "idx", entry.Idx, "error", err)
			units[i] = verify.Unit{ExtractErr: err}
			continue
		}
		units[i] = verify.Unit{Code: code}
		if i < debugUnits {
			log.Debugw("reconstructed unit", "idx", entry.Idx, "code", code)
		}
	}

	sched := checker.NewScheduler(checker.Config{
		MaxConcurrent: cfg.Checker.MaxConcurrent,
		Timeout:       cfg.Checker.TimeoutDuration(),
		MemoryLimitGB: cfg.Checker.MemoryLimitGB,
		Name:          cfg.Checker.Name,
		LeanWorkspace: cfg.Checker.LeanWorkspace,
	})
	defer sched.Release()

	results := verify.Run(ctx, sched, units)
	if err := ctx.Err(); err != nil && errors.Is(err, context.Canceled) {
		log.Warnw("batch interrupted", "error", err)
	}

	records := make([]report.ResultRecord, len(entries))
	for i, entry := range entries {
		records[i] = report.Build(entry, units[i].Code, results[i])
	}
	return records, nil
}

func archiveBatch(dbPath, inputPath string, records []report.ResultRecord, sum report.Summary) error {
	archive, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer archive.Close()
	return archive.SaveBatch(inputPath, records, sum)
}

// defaultOutputPath derives the results file name from the input file:
// foo.jsonl becomes foo_verification_results.jsonl in the working
// directory.
func defaultOutputPath(inputPath string) string {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, ".jsonl")
	return base + "_verification_results.jsonl"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
