package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ctxlab/internal/accounting"
	"ctxlab/internal/events"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Reconcile token math across all recorded sessions",
	Long: `Checks every recorded session: each round's breakdown items must sum
exactly to the verified total, round sums must match session totals,
and conversation grouping invariants must hold. Exits nonzero on any
mismatch.`,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	store, err := events.NewStore(cfg.LogDir, logger)
	if err != nil {
		return err
	}
	sessions, err := store.LoadAll()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions to verify.")
		return nil
	}

	rule := strings.Repeat("=", 70)
	allPass := true

	for _, session := range sessions {
		report := accounting.VerifySession(session)

		fmt.Printf("\n%s\nQUERY: %s\nSession totals: %d in + %d out = %d\n%s\n",
			rule, report.QueryText,
			report.TotalInput, report.TotalOutput, report.TotalInput+report.TotalOutput,
			rule)

		for _, round := range report.Rounds {
			fmt.Printf("\n  Round %d: %d in + %d out\n", round.RoundNumber, round.InputTokens, round.OutputTokens)
			if round.VerifiedTotal == 0 {
				continue
			}
			status := "PASS"
			if !round.Pass {
				status = fmt.Sprintf("FAIL (off by %+d)", round.Diff())
				allPass = false
			}
			fmt.Printf("  Math check: items sum = %d, verified total = %d -> %s\n",
				round.ItemsSum, round.VerifiedTotal, status)
		}

		fmt.Println("\n  Aggregate check:")
		fmt.Printf("    Sum of round inputs: %d vs session total_input_tokens: %d -> %s\n",
			report.SumInput, report.TotalInput, passFail(report.InputMatch))
		fmt.Printf("    Sum of round outputs: %d vs session total_output_tokens: %d -> %s\n",
			report.SumOutput, report.TotalOutput, passFail(report.OutputMatch))
		if !report.InputMatch || !report.OutputMatch {
			allPass = false
		}
	}

	groups, err := store.LoadConversations()
	if err != nil {
		return err
	}
	fmt.Printf("\n%s\nCONVERSATION GROUPING CHECK\n%s\n", rule, rule)
	fmt.Printf("Total sessions: %d\nTotal conversations: %d\n", len(sessions), len(groups))
	issues := accounting.VerifyConversations(groups)
	for _, issue := range issues {
		fmt.Printf("  [FAIL] %s\n", issue)
		allPass = false
	}
	if len(issues) == 0 {
		fmt.Println("  [PASS] grouping and history invariants hold")
	}

	if !allPass {
		return fmt.Errorf("verification failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}
