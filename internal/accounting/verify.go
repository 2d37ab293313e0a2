package accounting

import (
	"fmt"

	"ctxlab/internal/types"
)

// RoundCheck is the reconciliation result for one api_call round.
type RoundCheck struct {
	RoundNumber   int
	InputTokens   int
	OutputTokens  int
	ItemsSum      int // sum of non-real, non-metadata breakdown items
	VerifiedTotal int // the is_real TOTAL entry
	Pass          bool
}

// Diff returns how far the items sum is from the verified total.
func (c RoundCheck) Diff() int { return c.ItemsSum - c.VerifiedTotal }

// SessionReport is the full reconciliation result for one session.
type SessionReport struct {
	QueryID   string
	QueryText string

	Rounds []RoundCheck

	// Aggregate check: per-round sums vs the session's derived totals.
	SumInput    int
	SumOutput   int
	TotalInput  int
	TotalOutput int
	InputMatch  bool
	OutputMatch bool
}

// Pass reports whether every round and both aggregates reconcile.
func (r SessionReport) Pass() bool {
	for _, round := range r.Rounds {
		if !round.Pass {
			return false
		}
	}
	return r.InputMatch && r.OutputMatch
}

// VerifySession reconciles one persisted session: each round's breakdown
// items (excluding the verified TOTAL and metadata entries) must sum to
// the round's verified total exactly, and round inputs/outputs must sum
// to the session's totals. Zero tolerance; any mismatch is a defect in
// the derivation, not noise.
func VerifySession(session *types.QuerySession) SessionReport {
	report := SessionReport{
		QueryID:     session.QueryID,
		QueryText:   session.QueryText,
		TotalInput:  session.TotalInputTokens,
		TotalOutput: session.TotalOutputTokens,
	}

	for _, call := range session.APICallEvents() {
		report.SumInput += call.InputTokens
		report.SumOutput += call.OutputTokens

		check := RoundCheck{
			RoundNumber:  call.RoundNumber,
			InputTokens:  call.InputTokens,
			OutputTokens: call.OutputTokens,
		}
		for _, item := range call.InputBreakdown {
			switch {
			case item.IsReal:
				check.VerifiedTotal = item.Tokens
			case item.IsMetadata:
				// Verification reference only, outside the sum.
			default:
				check.ItemsSum += item.Tokens
			}
		}
		check.Pass = check.VerifiedTotal == 0 || check.ItemsSum == check.VerifiedTotal
		report.Rounds = append(report.Rounds, check)
	}

	report.InputMatch = report.SumInput == report.TotalInput
	report.OutputMatch = report.SumOutput == report.TotalOutput
	return report
}

// ConversationIssue describes one violated conversation invariant.
type ConversationIssue struct {
	ConversationID string
	QueryID        string
	Sequence       int
	Problem        string
}

func (i ConversationIssue) String() string {
	return fmt.Sprintf("conversation %s query %s seq=%d: %s",
		i.ConversationID, i.QueryID, i.Sequence, i.Problem)
}

// VerifyConversations checks grouping invariants across sessions grouped
// by conversation id: multi-query conversations must not reuse a query id
// as their conversation id, the first query carries no history cost, and
// every later query carries some.
func VerifyConversations(groups map[string][]*types.QuerySession) []ConversationIssue {
	var issues []ConversationIssue
	for convID, queries := range groups {
		for _, q := range queries {
			if convID == q.QueryID && len(queries) > 1 {
				issues = append(issues, ConversationIssue{
					ConversationID: convID,
					QueryID:        q.QueryID,
					Sequence:       q.Sequence,
					Problem:        "conversation_id equals query_id in a multi-query conversation",
				})
			}
			if q.Sequence == 1 && q.ConversationHistoryTokens > 0 {
				issues = append(issues, ConversationIssue{
					ConversationID: convID,
					QueryID:        q.QueryID,
					Sequence:       q.Sequence,
					Problem:        fmt.Sprintf("first query carries %d history tokens", q.ConversationHistoryTokens),
				})
			}
			if q.Sequence > 1 && q.ConversationHistoryTokens == 0 {
				issues = append(issues, ConversationIssue{
					ConversationID: convID,
					QueryID:        q.QueryID,
					Sequence:       q.Sequence,
					Problem:        "follow-up query carries zero history tokens",
				})
			}
		}
	}
	return issues
}
