// Command flowvet verifies information-flow policies against a graph
// snapshot from the command line.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowvet/flowvet/internal/app"
	"github.com/flowvet/flowvet/internal/policy"
	"github.com/flowvet/flowvet/internal/policy/cache"
	"github.com/flowvet/flowvet/internal/policyfile"
)

type checkFlags struct {
	graphPath  string
	policyPath string
	failFast   bool
	parallel   int
	jsonOut    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flowvet",
		Short:         "quantified information-flow policy verifier",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCheckCmd())
	return root
}

func newCheckCmd() *cobra.Command {
	flags := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "verify a policy set against a graph snapshot",
		Long: `Verify every statement of a YAML policy set against a DOT graph
snapshot. All statements are evaluated and all violations reported,
unless --fail-fast stops at the first failing statement.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.graphPath, "graph", "g", "", "path to the DOT graph snapshot")
	cmd.Flags().StringVarP(&flags.policyPath, "policy", "p", "", "path to the YAML policy set")
	cmd.Flags().BoolVar(&flags.failFast, "fail-fast", false, "stop at the first failing statement")
	cmd.Flags().IntVar(&flags.parallel, "parallel", 1, "number of statements to evaluate concurrently")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "emit the full report as JSON")
	_ = cmd.MarkFlagRequired("graph")
	_ = cmd.MarkFlagRequired("policy")

	return cmd
}

func runCheck(cmd *cobra.Command, flags *checkFlags) error {
	graphDOT, err := os.ReadFile(flags.graphPath)
	if err != nil {
		return fmt.Errorf("read graph: %w", err)
	}
	policyYAML, err := os.ReadFile(flags.policyPath)
	if err != nil {
		return fmt.Errorf("read policy: %w", err)
	}

	var opts []policy.RunnerOption
	if flags.failFast {
		opts = append(opts, policy.WithFailFast())
	}
	if flags.parallel > 1 {
		opts = append(opts, policy.WithParallelism(flags.parallel))
	}

	svc := app.NewService(policyfile.NewLoader(), policy.NewRunner(opts...), cache.NewInMemory(1))

	report, err := svc.Verify(string(graphDOT), string(policyYAML))
	if err != nil {
		if _, ok := app.IsViolation(err); !ok {
			return err
		}
	}

	if flags.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(cmd, report)
	}

	if !report.Passed() {
		failed := 0
		for _, res := range report.Results {
			if !res.Passed {
				failed++
			}
		}
		return fmt.Errorf("%d of %d statements failed", failed, len(report.Results))
	}
	return nil
}

func printReport(cmd *cobra.Command, report *policy.Report) {
	out := cmd.OutOrStdout()
	for _, res := range report.Results {
		verdict := "PASS"
		if !res.Passed {
			verdict = "FAIL"
		}
		fmt.Fprintf(out, "%s  %s: %s\n", verdict, res.Statement, res.Sentence)
		for _, v := range res.Violations {
			fmt.Fprintf(out, "      %s\n", v.Detail)
		}
	}
}
