package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventRoundTripTypedPayload(t *testing.T) {
	event := Event{
		QueryID:    "q1",
		Level:      1,
		Timestamp:  time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		EventType:  EventAPICall,
		DecisionBy: DecisionCode,
		TokenRole:  RoleActual,
		Data: &APICallData{
			RoundNumber:  2,
			TotalRounds:  3,
			Model:        "gemini-3-flash-preview",
			InputTokens:  900,
			OutputTokens: 45,
			ResponseType: "tool_call",
			ToolCalls:    []string{"mock_api_fetch"},
			InputBreakdown: []BreakdownItem{
				{Label: "TOTAL", Tokens: 900, IsReal: true},
			},
		},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	call := decoded.APICall()
	if call == nil {
		t.Fatal("api_call payload must decode to APICallData")
	}
	if call.InputTokens != 900 || call.TotalRounds != 3 || call.ToolCalls[0] != "mock_api_fetch" {
		t.Fatalf("decoded payload=%+v", call)
	}
}

func TestLegacyEventTypesDecodeGeneric(t *testing.T) {
	raw := `{
		"query_id": "old",
		"level": 1,
		"timestamp": "2025-01-01T00:00:00Z",
		"event_type": "llm_response",
		"decision_by": "code",
		"data": {"response_preview": "hi", "some_old_field": 7},
		"token_count": 123,
		"token_role": "actual"
	}`
	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatalf("unmarshal legacy event: %v", err)
	}
	generic, ok := event.Data.(GenericData)
	if !ok {
		t.Fatalf("legacy payload decoded as %T, want GenericData", event.Data)
	}
	if generic["response_preview"] != "hi" {
		t.Fatalf("payload content lost: %v", generic)
	}
	if event.APICall() != nil {
		t.Fatal("legacy event must not masquerade as api_call")
	}
}

func TestComputeTotalTokensPrefersAPICalls(t *testing.T) {
	legacy := 999
	session := QuerySession{
		Events: []Event{
			{EventType: EventLLMResponse, TokenRole: RoleActual, TokenCount: &legacy, Data: GenericData{}},
			{EventType: EventAPICall, TokenRole: RoleActual, Data: &APICallData{InputTokens: 550, OutputTokens: 35}},
		},
	}
	if got := session.ComputeTotalTokens(); got != 585 {
		t.Fatalf("ComputeTotalTokens=%d, want 585 (api_call wins over legacy sum)", got)
	}
}

func TestComputeTokenBreakdownWithoutAPICalls(t *testing.T) {
	n := 300
	session := QuerySession{
		Events: []Event{
			{EventType: EventLLMResponse, TokenRole: RoleActual, TokenCount: &n, Data: GenericData{}},
		},
	}
	calls, in, out := session.ComputeTokenBreakdown()
	if calls != 0 || in != 0 || out != 0 {
		t.Fatalf("breakdown=(%d,%d,%d), want zeros — never synthesize round data", calls, in, out)
	}
	if got := session.ComputeTotalTokens(); got != 300 {
		t.Fatalf("legacy total=%d, want 300", got)
	}
}

func TestUnknownEventTypeDecodes(t *testing.T) {
	raw := `{
		"query_id": "q",
		"level": 1,
		"timestamp": "2026-01-01T00:00:00Z",
		"event_type": "something_new",
		"decision_by": "code",
		"data": {"k": "v"},
		"token_count": null,
		"token_role": "info"
	}`
	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatalf("unknown event type must not fail decode: %v", err)
	}
	if _, ok := event.Data.(GenericData); !ok {
		t.Fatalf("unknown payload decoded as %T", event.Data)
	}
}
