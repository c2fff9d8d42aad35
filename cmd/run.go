package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/letterfit/internal/opt"
	"github.com/spf13/cobra"
)

var (
	runCfg        = envConfig
	progressEvery int
	jsonOutput    bool
	showNumbers   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single optimization",
	Long: `Runs the genetic search over the configured range and prints the best
letter assignment. Defaults come from LETTERFIT_* environment variables and
are overridden by flags. Ctrl-C stops the run and prints the best result so far.`,
	RunE: runOptimization,
}

func init() {
	addConfigFlags(runCmd, &runCfg)
	runCmd.Flags().IntVar(&progressEvery, "progress-every", 10, "Print progress every N generations (0 disables)")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	runCmd.Flags().BoolVar(&showNumbers, "numbers", false, "Print the per-number breakdown")
	rootCmd.AddCommand(runCmd)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	if envConfigErr != nil {
		return envConfigErr
	}

	engine, err := opt.NewEngine(runCfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	reports := make(chan opt.Report, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for rep := range reports {
			if jsonOutput || progressEvery <= 0 || rep.Final || rep.Generation%progressEvery != 0 {
				continue
			}
			printProgress(out, rep)
		}
	}()

	result, err := engine.Run(ctx, reports)
	close(reports)
	<-done
	if err != nil {
		return err
	}

	if result.Cancelled {
		slog.Warn("Run interrupted, showing best result so far", "generations", result.Generations)
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(out, result, showNumbers)
	return nil
}

func printProgress(w io.Writer, rep opt.Report) {
	fmt.Fprintf(w, "gen %5d  fitness %14.6f  solved %d/%d  max error %.4f  mutation %.3f  stale %d\n",
		rep.Generation, rep.BestFitness, rep.SolvedCount, rep.TotalCount, rep.MaxError, rep.MutationRate, rep.Stale)
}

func printResult(w io.Writer, res *opt.Result, numbers bool) {
	fmt.Fprintf(w, "\nStopped: %s after %d generations (%s)\n", res.Stopped, res.Generations, res.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Fitness: %.6f\n", res.Fitness)
	fmt.Fprintf(w, "Solved:  %d/%d\n\n", res.SolvedCount, res.TotalCount)

	fmt.Fprintln(w, "Letter values:")
	for i, v := range res.Best {
		fmt.Fprintf(w, "  %c = %9.4f", 'A'+i, v)
		if i%4 == 3 {
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w)

	if !numbers || res.Diagnostics == nil {
		return
	}
	fmt.Fprintln(w, "\nNumbers:")
	fmt.Fprintf(w, "  %-8s %-40s %14s %14s\n", "NUMBER", "SPELLING", "VALUE", "SQ ERROR")
	for _, n := range res.Diagnostics.Numbers {
		mark := ""
		if n.Solved {
			mark = " ✓"
		}
		fmt.Fprintf(w, "  %-8d %-40s %14.4f %14.6f%s\n", n.Number, n.Spelling, n.Value, n.Error, mark)
	}
}
