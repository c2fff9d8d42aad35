package main

import (
	"fmt"
	"strconv"

	"github.com/cwbudde/letterfit/internal/fit"
	"github.com/cwbudde/letterfit/internal/formula"
	"github.com/cwbudde/letterfit/internal/opt"
	"github.com/cwbudde/letterfit/internal/words"
	"github.com/spf13/cobra"
)

var (
	spellRules    = envConfig.Rules
	spellLetters  string
	spellDefault  float64
	spellExplains bool
)

var spellCmd = &cobra.Command{
	Use:   "spell N [N...]",
	Short: "Show the spelling and formula of integers",
	Long: `Prints the English spelling of each integer and the formula it compiles to.
With --letters, the formula is also evaluated and every step is shown.`,
	Example: `  letterfit spell 23
  letterfit spell -- -7
  letterfit spell 23 --letters "T=2,W=1.5,E=1,N=1,Y=1,H=1,R=1"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSpell,
}

func init() {
	f := spellCmd.Flags()
	f.StringVar((*string)(&spellRules.SpaceOperator), "space-op", string(spellRules.SpaceOperator), "Space operator: auto, add, subtract, multiply, divide")
	f.StringVar((*string)(&spellRules.HyphenOperator), "hyphen-op", string(spellRules.HyphenOperator), "Hyphen operator: minus, add, multiply, divide")
	f.IntVar(&spellRules.DecimalPrecision, "precision", spellRules.DecimalPrecision, "Decimal places in printed values")
	f.StringVar(&spellLetters, "letters", "", `Letter values, e.g. "A=1.5,B=-2"`)
	f.Float64Var(&spellDefault, "default", 1, "Value of letters not given in --letters")
	f.BoolVar(&spellExplains, "steps", false, "Print every evaluation step")
	rootCmd.AddCommand(spellCmd)
}

func runSpell(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	check := opt.DefaultConfig()
	check.Rules = spellRules
	if err := check.Validate(); err != nil {
		return err
	}

	var letters *fit.Assignment
	if cmd.Flags().Changed("letters") || cmd.Flags().Changed("default") {
		a, err := fit.ParseAssignment(spellLetters, spellDefault)
		if err != nil {
			return err
		}
		letters = &a
	}

	for _, arg := range args {
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", arg, err)
		}

		spelling := words.Spell(n)
		tree, err := formula.Compile(spelling, spellRules)
		if err != nil {
			return fmt.Errorf("failed to compile %d: %w", n, err)
		}

		fmt.Fprintf(out, "%d\n", n)
		fmt.Fprintf(out, "  spelling: %s\n", spelling)
		fmt.Fprintf(out, "  formula:  %s\n", tree)

		if letters == nil {
			continue
		}
		_, trace := formula.Evaluate(tree, letters.Values())
		fmt.Fprintf(out, "  value:    %s\n", trace.Format(spellRules.DecimalPrecision))
		if trace.Guarded() {
			fmt.Fprintln(out, "  warning:  division guard triggered")
		}
		if spellExplains {
			printSteps(cmd, trace, spellRules.DecimalPrecision)
		}
	}
	return nil
}

func printSteps(cmd *cobra.Command, trace *formula.Trace, precision int) {
	out := cmd.OutOrStdout()
	for i, s := range trace.Steps {
		if s.Kind == formula.StepLeaf {
			fmt.Fprintf(out, "    %2d. %-12s = %.*f\n", i+1, s.Word, precision, s.Value)
			continue
		}
		guard := ""
		if s.Guarded {
			guard = "  (guarded)"
		}
		fmt.Fprintf(out, "    %2d. %.*f %s %.*f = %.*f%s\n",
			i+1, precision, s.Left, s.Op.Symbol(), precision, s.Right, precision, s.Value, guard)
	}
}
