// Package types defines the event and session data model for ctxlab.
// Every engine level emits the same event types; the dashboard, the
// teaching layer, and the offline verifier all consume these records.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies what happened at one step of query processing.
type EventType string

const (
	EventPromptComposed     EventType = "prompt_composed"     // System prompt was built
	EventClassifierDecision EventType = "classifier_decision" // Query was classified (L3+)
	EventSkillLoaded        EventType = "skill_loaded"        // Skill instructions loaded into context
	EventToolRegistered     EventType = "tool_registered"     // Tool made available to the LLM
	EventProactiveFetch     EventType = "proactive_fetch"     // Data fetched before the LLM runs (L4+)
	EventToolCalled         EventType = "tool_called"         // Tool invoked during generation
	EventAPICall            EventType = "api_call"            // One complete API round-trip with real token counts
	EventError              EventType = "error"               // Something went wrong

	// Deprecated: retained only so old session files still deserialize.
	EventLLMRequest  EventType = "llm_request"
	EventLLMResponse EventType = "llm_response"
)

// DecisionBy records whether deterministic code or the model's own choice
// produced an event. Descriptive metadata only.
type DecisionBy string

const (
	DecisionCode DecisionBy = "code"
	DecisionLLM  DecisionBy = "llm"
)

// TokenRole classifies what an event's token_count represents.
type TokenRole string

const (
	// RoleComposition marks content destined for a future API call.
	RoleComposition TokenRole = "composition"
	// RoleActual marks verified real API cost.
	RoleActual TokenRole = "actual"
	// RoleInfo marks events with no token cost.
	RoleInfo TokenRole = "info"
)

// EventData is the per-type payload behind the shared event envelope.
// Each event type has a concrete payload struct so the shape is checkable
// at the serialization boundary; unknown and legacy types decode into
// GenericData.
type EventData interface {
	eventData()
}

// PromptComposedData is the payload for prompt_composed events.
type PromptComposedData struct {
	PromptPreview  string   `json:"prompt_preview"`
	PromptLength   int      `json:"prompt_length"`
	SkillsIncluded []string `json:"skills_included"`
}

// ClassifierDecisionData is the payload for classifier_decision events.
type ClassifierDecisionData struct {
	Classification string   `json:"classification"`
	Confidence     *float64 `json:"confidence"`
}

// SkillLoadedData is the payload for skill_loaded events. DisclosureLevel
// distinguishes the SKILL.md body (2) from reference files (3).
type SkillLoadedData struct {
	SkillName       string `json:"skill_name"`
	DisclosureLevel int    `json:"disclosure_level"`
	ContentPreview  string `json:"content_preview"`
	FilePath        string `json:"file_path,omitempty"`
}

// ToolRegisteredData is the payload for tool_registered events.
type ToolRegisteredData struct {
	ToolName string `json:"tool_name"`
}

// ProactiveFetchData is the payload for proactive_fetch events.
type ProactiveFetchData struct {
	Source      string `json:"source"`
	DataSummary string `json:"data_summary"`
}

// ToolCalledData is the payload for tool_called events.
type ToolCalledData struct {
	ToolName      string         `json:"tool_name"`
	Parameters    map[string]any `json:"parameters"`
	ResultSummary string         `json:"result_summary"`
}

// APICallData is the payload for api_call events — one request/response
// round with the model, carrying the verified token counts and the
// provenance-tagged input breakdown. TotalRounds is backfilled once the
// query's last round has completed; it is the only field of any appended
// event that is ever rewritten.
type APICallData struct {
	RoundNumber     int             `json:"round_number"`
	TotalRounds     int             `json:"total_rounds"`
	Model           string          `json:"model"`
	InputTokens     int             `json:"input_tokens"`
	OutputTokens    int             `json:"output_tokens"`
	ResponseType    string          `json:"response_type"` // "text" or "tool_call"
	ResponsePreview string          `json:"response_preview"`
	InputBreakdown  []BreakdownItem `json:"input_breakdown"`
	ToolCalls       []string        `json:"tool_calls,omitempty"`
	DurationMS      int64           `json:"duration_ms"`
}

// ErrorData is the payload for error events.
type ErrorData struct {
	ErrorMessage string         `json:"error_message"`
	Detail       map[string]any `json:"detail"`
}

// GenericData carries payloads of deprecated or unknown event types.
type GenericData map[string]any

func (*PromptComposedData) eventData()     {}
func (*ClassifierDecisionData) eventData() {}
func (*SkillLoadedData) eventData()        {}
func (*ToolRegisteredData) eventData()     {}
func (*ProactiveFetchData) eventData()     {}
func (*ToolCalledData) eventData()         {}
func (*APICallData) eventData()            {}
func (*ErrorData) eventData()              {}
func (GenericData) eventData()             {}

// BreakdownItem is one named component of a round's input token cost.
// Exactly one of the provenance flags is set: measured values come from a
// token-counting probe, computed values are derived by subtraction, real
// values are reported by the provider for an actual round, and metadata
// entries (the clean-call probe figure) exist for verification only and
// are excluded from the reconciliation sum.
type BreakdownItem struct {
	Label      string `json:"label"`
	Tokens     int    `json:"tokens"`
	IsMeasured bool   `json:"is_measured,omitempty"`
	IsComputed bool   `json:"is_computed,omitempty"`
	IsReal     bool   `json:"is_real,omitempty"`
	IsMetadata bool   `json:"is_metadata,omitempty"`
	Source     string `json:"source,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Event is a single immutable record in a query's timeline. Events are
// append-only; after append nothing is rewritten except the sanctioned
// total_rounds backfill on api_call payloads.
type Event struct {
	QueryID     string     `json:"query_id"`
	Level       int        `json:"level"`
	Timestamp   time.Time  `json:"timestamp"`
	EventType   EventType  `json:"event_type"`
	DecisionBy  DecisionBy `json:"decision_by"`
	Data        EventData  `json:"data"`
	TokenCount  *int       `json:"token_count"`
	TokenRole   TokenRole  `json:"token_role"`
	RoundNumber *int       `json:"round_number,omitempty"`
	DurationMS  *int64     `json:"duration_ms,omitempty"`
}

// APICall returns the api_call payload, or nil for any other event type.
func (e *Event) APICall() *APICallData {
	d, ok := e.Data.(*APICallData)
	if !ok {
		return nil
	}
	return d
}

type eventAlias struct {
	QueryID     string          `json:"query_id"`
	Level       int             `json:"level"`
	Timestamp   time.Time       `json:"timestamp"`
	EventType   EventType       `json:"event_type"`
	DecisionBy  DecisionBy      `json:"decision_by"`
	Data        json.RawMessage `json:"data"`
	TokenCount  *int            `json:"token_count"`
	TokenRole   TokenRole       `json:"token_role"`
	RoundNumber *int            `json:"round_number,omitempty"`
	DurationMS  *int64          `json:"duration_ms,omitempty"`
}

// UnmarshalJSON decodes the envelope, then decodes the data payload into
// the concrete type selected by event_type.
func (e *Event) UnmarshalJSON(b []byte) error {
	var alias eventAlias
	if err := json.Unmarshal(b, &alias); err != nil {
		return err
	}
	data, err := decodePayload(alias.EventType, alias.Data)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", alias.EventType, err)
	}
	e.QueryID = alias.QueryID
	e.Level = alias.Level
	e.Timestamp = alias.Timestamp
	e.EventType = alias.EventType
	e.DecisionBy = alias.DecisionBy
	e.Data = data
	e.TokenCount = alias.TokenCount
	e.TokenRole = alias.TokenRole
	e.RoundNumber = alias.RoundNumber
	e.DurationMS = alias.DurationMS
	return nil
}

func decodePayload(t EventType, raw json.RawMessage) (EventData, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return GenericData{}, nil
	}
	var target EventData
	switch t {
	case EventPromptComposed:
		target = &PromptComposedData{}
	case EventClassifierDecision:
		target = &ClassifierDecisionData{}
	case EventSkillLoaded:
		target = &SkillLoadedData{}
	case EventToolRegistered:
		target = &ToolRegisteredData{}
	case EventProactiveFetch:
		target = &ProactiveFetchData{}
	case EventToolCalled:
		target = &ToolCalledData{}
	case EventAPICall:
		target = &APICallData{}
	case EventError:
		target = &ErrorData{}
	default:
		// Deprecated llm_request/llm_response and anything unknown.
		g := GenericData{}
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, err
		}
		return g, nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, err
	}
	return target, nil
}
