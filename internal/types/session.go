package types

import "time"

// QuerySession is one user query from start to finish with every event
// recorded along the way. Sessions in the same chat share a
// conversation_id; ungrouped sessions use their own query_id as the
// conversation id, making each one a singleton conversation.
type QuerySession struct {
	QueryID   string     `json:"query_id"`
	Level     int        `json:"level"`
	QueryText string     `json:"query_text"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	Events    []Event    `json:"events"`

	// Derived at finalization.
	TotalTokens       int `json:"total_tokens"`
	TotalAPICalls     int `json:"total_api_calls"`
	TotalInputTokens  int `json:"total_input_tokens"`
	TotalOutputTokens int `json:"total_output_tokens"`

	// Conversation grouping.
	ConversationID            string `json:"conversation_id"`
	Sequence                  int    `json:"sequence"`
	ConversationHistoryTokens int    `json:"conversation_history_tokens"`
}

// APICallEvents returns the api_call payloads in event order.
func (s *QuerySession) APICallEvents() []*APICallData {
	var calls []*APICallData
	for i := range s.Events {
		if call := s.Events[i].APICall(); call != nil {
			calls = append(calls, call)
		}
	}
	return calls
}

// ComputeTotalTokens sums the session's real token cost. When api_call
// events exist their verified input+output counts are authoritative.
// Older sessions without them fall back to summing token_count over
// events with token_role=actual. Never errors; missing data yields zero.
func (s *QuerySession) ComputeTotalTokens() int {
	if calls := s.APICallEvents(); len(calls) > 0 {
		total := 0
		for _, call := range calls {
			total += call.InputTokens + call.OutputTokens
		}
		return total
	}
	total := 0
	for i := range s.Events {
		e := &s.Events[i]
		if e.TokenRole == RoleActual && e.TokenCount != nil {
			total += *e.TokenCount
		}
	}
	return total
}

// ComputeTokenBreakdown aggregates round-level figures strictly from
// api_call events: (rounds, total input, total output). Legacy sessions
// report (0, 0, 0) — callers must not synthesize substitutes.
func (s *QuerySession) ComputeTokenBreakdown() (apiCalls, input, output int) {
	calls := s.APICallEvents()
	if len(calls) == 0 {
		return 0, 0, 0
	}
	for _, call := range calls {
		input += call.InputTokens
		output += call.OutputTokens
	}
	return len(calls), input, output
}

// Finalized reports whether the session has been ended.
func (s *QuerySession) Finalized() bool {
	return s.EndedAt != nil
}
