package accounting

import (
	"testing"

	"ctxlab/internal/types"
)

func apiCallEvent(round, input, output int, breakdown []types.BreakdownItem) types.Event {
	return types.Event{
		EventType: types.EventAPICall,
		TokenRole: types.RoleActual,
		Data: &types.APICallData{
			RoundNumber:    round,
			InputTokens:    input,
			OutputTokens:   output,
			InputBreakdown: breakdown,
		},
	}
}

func TestVerifySessionPass(t *testing.T) {
	session := &types.QuerySession{
		QueryID:           "q1",
		TotalInputTokens:  830,
		TotalOutputTokens: 40,
		Events: []types.Event{
			apiCallEvent(1, 830, 40, []types.BreakdownItem{
				{Label: "System prompt (6 skills)", Tokens: 400, IsMeasured: true},
				{Label: "Tool definitions (3 tools)", Tokens: 80, IsMeasured: true},
				{Label: "Conversation history", Tokens: 270, IsComputed: true},
				{Label: "Your question", Tokens: 80, IsComputed: true},
				{Label: "Clean call (verification)", Tokens: 560, IsMetadata: true},
				{Label: "TOTAL", Tokens: 830, IsReal: true},
			}),
		},
	}
	report := VerifySession(session)
	if !report.Pass() {
		t.Fatalf("report should pass: %+v", report)
	}
	if report.Rounds[0].ItemsSum != 830 {
		t.Fatalf("ItemsSum=%d, want 830 (metadata excluded)", report.Rounds[0].ItemsSum)
	}
}

func TestVerifySessionCatchesDrift(t *testing.T) {
	session := &types.QuerySession{
		QueryID:           "q1",
		TotalInputTokens:  600,
		TotalOutputTokens: 20,
		Events: []types.Event{
			apiCallEvent(1, 600, 20, []types.BreakdownItem{
				{Label: "System prompt (6 skills)", Tokens: 400, IsMeasured: true},
				{Label: "Your question", Tokens: 150, IsComputed: true},
				{Label: "TOTAL", Tokens: 600, IsReal: true},
			}),
		},
	}
	report := VerifySession(session)
	if report.Pass() {
		t.Fatal("a 50-token shortfall must fail, not round away")
	}
	if diff := report.Rounds[0].Diff(); diff != -50 {
		t.Fatalf("Diff=%d, want -50", diff)
	}
}

func TestVerifySessionAggregateMismatch(t *testing.T) {
	session := &types.QuerySession{
		QueryID:           "q1",
		TotalInputTokens:  999, // wrong on purpose
		TotalOutputTokens: 35,
		Events: []types.Event{
			apiCallEvent(1, 550, 35, nil),
		},
	}
	report := VerifySession(session)
	if report.InputMatch {
		t.Fatal("input aggregate must not match")
	}
	if !report.OutputMatch {
		t.Fatal("output aggregate should match")
	}
}

func TestVerifyConversations(t *testing.T) {
	groups := map[string][]*types.QuerySession{
		"conv-a": {
			{QueryID: "q1", ConversationID: "conv-a", Sequence: 1, ConversationHistoryTokens: 0},
			{QueryID: "q2", ConversationID: "conv-a", Sequence: 2, ConversationHistoryTokens: 270},
		},
	}
	if issues := VerifyConversations(groups); len(issues) != 0 {
		t.Fatalf("clean conversation reported issues: %v", issues)
	}

	groups = map[string][]*types.QuerySession{
		"conv-b": {
			{QueryID: "q1", ConversationID: "conv-b", Sequence: 1, ConversationHistoryTokens: 120},
			{QueryID: "q2", ConversationID: "conv-b", Sequence: 2, ConversationHistoryTokens: 0},
		},
	}
	issues := VerifyConversations(groups)
	if len(issues) != 2 {
		t.Fatalf("want 2 issues (first has history, follow-up has none), got %v", issues)
	}
}

func TestVerifyConversationsRejectsReusedQueryID(t *testing.T) {
	// A multi-query group keyed by one member's query id means the
	// grouping was never allocated a real conversation id.
	groups := map[string][]*types.QuerySession{
		"q1": {
			{QueryID: "q1", ConversationID: "q1", Sequence: 1, ConversationHistoryTokens: 0},
			{QueryID: "q2", ConversationID: "q1", Sequence: 2, ConversationHistoryTokens: 270},
		},
	}
	issues := VerifyConversations(groups)
	if len(issues) != 1 {
		t.Fatalf("want exactly the reused-id issue, got %v", issues)
	}
	if issues[0].QueryID != "q1" {
		t.Fatalf("issue should name the reusing query: %+v", issues[0])
	}
}

func TestVerifyConversationsSoloIsFine(t *testing.T) {
	groups := map[string][]*types.QuerySession{
		"q-solo": {
			{QueryID: "q-solo", ConversationID: "q-solo", Sequence: 1},
		},
	}
	if issues := VerifyConversations(groups); len(issues) != 0 {
		t.Fatalf("singleton conversation may reuse its query id: %v", issues)
	}
}
