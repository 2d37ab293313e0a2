// Package accounting derives per-round input-token breakdowns from a
// small set of verified measurements, and reconciles persisted sessions
// against them. Every figure traces to a real measurement or an exact
// subtraction between measurements; nothing is ever estimated from text
// length.
package accounting

import (
	"fmt"

	"ctxlab/internal/types"
)

// StaticCosts are the per-engine measurements taken once at startup via
// the countTokens probe. They do not change between queries.
type StaticCosts struct {
	PromptTokens int // system prompt cost
	ToolTokens   int // tool definitions cost
	BaseTokens   int // provider overhead of an empty request
	SkillCount   int // skills baked into the prompt, for the label
	ToolCount    int // registered tools, for the label
}

// RoundLedger tracks one query's token arithmetic across rounds. Round 1
// pins down the dynamic split (history, user message); later rounds
// attribute all growth over round 1 to tool exchanges.
type RoundLedger struct {
	static StaticCosts

	cleanCallTokens   *int // per-query probe: prompt + tools + this message; nil when the probe failed
	historySent       bool
	userMessageTokens *int
	historyTokens     int
	firstRoundInput   int
	roundOneSeen      bool
}

// NewRoundLedger starts the ledger for one query. cleanCall is the
// per-query probe result, nil if the probe failed; historySent reports
// whether prior conversation turns were included in the request.
func NewRoundLedger(static StaticCosts, cleanCall *int, historySent bool) *RoundLedger {
	l := &RoundLedger{
		static:          static,
		cleanCallTokens: cleanCall,
		historySent:     historySent,
	}
	if cleanCall != nil {
		msg := *cleanCall - static.PromptTokens - static.ToolTokens
		l.userMessageTokens = &msg
	}
	return l
}

// ObserveRound records a round's verified input total. Round 1 fixes the
// history cost: with both the clean-call probe and the verified total in
// hand, history is their exact difference.
func (l *RoundLedger) ObserveRound(round, verifiedInput int) {
	if round != 1 || l.roundOneSeen {
		return
	}
	l.roundOneSeen = true
	l.firstRoundInput = verifiedInput
	if l.cleanCallTokens != nil && l.historySent {
		l.historyTokens = verifiedInput - *l.cleanCallTokens
	}
}

// HistoryTokens returns the exact conversation-history cost derived at
// round 1, zero when no history was sent or the probe failed.
func (l *RoundLedger) HistoryTokens() int {
	return l.historyTokens
}

// Breakdown builds the provenance-tagged component list for one round.
// The sum of the non-real, non-metadata items equals verifiedInput
// exactly; the TOTAL entry is always last.
func (l *RoundLedger) Breakdown(round, verifiedInput int) []types.BreakdownItem {
	items := []types.BreakdownItem{
		{
			Label:      fmt.Sprintf("System prompt (%d skills)", l.static.SkillCount),
			Tokens:     l.static.PromptTokens,
			IsMeasured: true,
			Source:     "countTokens API at startup",
		},
		{
			Label:      fmt.Sprintf("Tool definitions (%d tools)", l.static.ToolCount),
			Tokens:     l.static.ToolTokens,
			IsMeasured: true,
			Source:     "countTokens API at startup",
		},
	}

	if round == 1 {
		items = append(items, l.roundOneItems(verifiedInput)...)
	} else {
		items = append(items, l.laterRoundItems(round, verifiedInput)...)
	}

	items = append(items, types.BreakdownItem{
		Label:  "TOTAL",
		Tokens: verifiedInput,
		IsReal: true,
		Source: "API usage_metadata input tokens",
	})
	return items
}

func (l *RoundLedger) roundOneItems(verifiedInput int) []types.BreakdownItem {
	var items []types.BreakdownItem

	if l.historyTokens > 0 {
		items = append(items, types.BreakdownItem{
			Label:      "Conversation history",
			Tokens:     l.historyTokens,
			IsComputed: true,
			Source:     "round1_verified - clean_call",
			Note:       "All prior messages, tool calls, and results re-sent",
		})
	}

	if l.userMessageTokens != nil {
		items = append(items, types.BreakdownItem{
			Label:      "Your question",
			Tokens:     *l.userMessageTokens,
			IsComputed: true,
			Source:     "clean_call - prompt - tools",
			Note:       "Includes message framing",
		})
	} else {
		// Probe failed. Attribute the remainder by subtraction from the
		// verified total; clamp at zero, never estimate from text length.
		known := l.static.PromptTokens + l.static.ToolTokens + l.historyTokens
		items = append(items, types.BreakdownItem{
			Label:      "Your question + framing",
			Tokens:     max(verifiedInput-known, 0),
			IsComputed: true,
			Source:     "total - known components",
		})
	}

	if l.cleanCallTokens != nil {
		items = append(items, types.BreakdownItem{
			Label:      "Clean call (verification)",
			Tokens:     *l.cleanCallTokens,
			IsMetadata: true,
			Source:     "countTokens(prompt + tools + this_message)",
		})
	}
	return items
}

func (l *RoundLedger) laterRoundItems(round, verifiedInput int) []types.BreakdownItem {
	if !l.roundOneSeen {
		// Should not happen on the live path; keep the sum exact anyway.
		known := l.static.PromptTokens + l.static.ToolTokens
		return []types.BreakdownItem{{
			Label:      "Your question + history + tool exchanges",
			Tokens:     max(verifiedInput-known, 0),
			IsComputed: true,
			Source:     "total - static components",
		}}
	}

	var items []types.BreakdownItem
	if l.historyTokens > 0 {
		items = append(items, types.BreakdownItem{
			Label:      "Conversation history",
			Tokens:     l.historyTokens,
			IsComputed: true,
			Source:     "round1_verified - clean_call",
		})
	}
	if l.userMessageTokens != nil {
		items = append(items, types.BreakdownItem{
			Label:      "Your question",
			Tokens:     *l.userMessageTokens,
			IsComputed: true,
			Source:     "clean_call - prompt - tools",
		})
	} else {
		known := l.static.PromptTokens + l.static.ToolTokens + l.historyTokens
		items = append(items, types.BreakdownItem{
			Label:      "Your question + framing",
			Tokens:     max(l.firstRoundInput-known, 0),
			IsComputed: true,
			Source:     "total - known components",
		})
	}
	items = append(items, types.BreakdownItem{
		Label:      fmt.Sprintf("Tool exchanges (rounds 1-%d)", round-1),
		Tokens:     verifiedInput - l.firstRoundInput,
		IsComputed: true,
		Source:     fmt.Sprintf("round%d_verified - round1_verified", round),
		Note:       "Tool calls sent + results received",
	})
	return items
}
