// Package events owns query-session lifecycle: creation, append-only
// event recording, the sanctioned total_rounds backfill, finalization,
// and persistence of completed sessions.
package events

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ctxlab/internal/types"
)

// ErrUnknownQuery is returned when an operation references a query_id with
// no active session. This always indicates a caller bug (wrong id, or the
// session was already finalized), never a recoverable runtime condition.
var ErrUnknownQuery = errors.New("no active session for query_id")

const previewLen = 200

// Logger records events during query processing. Each engine level owns
// one Logger; sessions are collected per query and written to disk when
// the query ends. The Logger is the sole writer of session state.
type Logger struct {
	level int
	store *Store
	log   *zap.Logger

	mu     sync.Mutex
	active map[string]*types.QuerySession
}

// NewLogger creates a logger for one engine level, persisting finalized
// sessions through store. log may be nil.
func NewLogger(level int, store *Store, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{
		level:  level,
		store:  store,
		log:    log,
		active: make(map[string]*types.QuerySession),
	}
}

// StartConversation allocates a grouping id for a multi-query chat.
// Pure id allocation; nothing is persisted.
func (l *Logger) StartConversation() string {
	return uuid.NewString()
}

// StartQuery begins a new session and returns its query_id. An empty
// conversationID makes the session its own singleton conversation.
// historyTokens may be zero at start; the engine sets the real value once
// round 1's verified measurement is known (SetConversationHistoryTokens).
func (l *Logger) StartQuery(queryText, conversationID string, sequence, historyTokens int) string {
	queryID := uuid.NewString()
	if conversationID == "" {
		conversationID = queryID
	}
	if sequence < 1 {
		sequence = 1
	}
	session := &types.QuerySession{
		QueryID:                   queryID,
		Level:                     l.level,
		QueryText:                 queryText,
		StartedAt:                 time.Now().UTC(),
		ConversationID:            conversationID,
		Sequence:                  sequence,
		ConversationHistoryTokens: historyTokens,
	}

	l.mu.Lock()
	l.active[queryID] = session
	l.mu.Unlock()

	l.log.Debug("query started",
		zap.String("query_id", queryID),
		zap.String("conversation_id", conversationID),
		zap.Int("sequence", sequence))
	return queryID
}

// append builds the event envelope and appends it to the active session.
func (l *Logger) append(queryID string, eventType types.EventType, decidedBy types.DecisionBy, data types.EventData, tokenCount *int, role types.TokenRole, roundNumber *int, durationMS *int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	session, ok := l.active[queryID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuery, queryID)
	}
	session.Events = append(session.Events, types.Event{
		QueryID:     queryID,
		Level:       l.level,
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		DecisionBy:  decidedBy,
		Data:        data,
		TokenCount:  tokenCount,
		TokenRole:   role,
		RoundNumber: roundNumber,
		DurationMS:  durationMS,
	})
	return nil
}

// LogPromptComposed records that the system prompt was built. Role is
// composition: the prompt is part of what gets sent, not a separate cost.
func (l *Logger) LogPromptComposed(queryID, promptText string, tokenCount int, skillsIncluded []string) error {
	return l.append(queryID, types.EventPromptComposed, types.DecisionCode,
		&types.PromptComposedData{
			PromptPreview:  truncate(promptText, previewLen),
			PromptLength:   len(promptText),
			SkillsIncluded: skillsIncluded,
		},
		&tokenCount, types.RoleComposition, nil, nil)
}

// LogClassifierDecision records a query classification (L3+). The
// classifier runs locally, so role is info.
func (l *Logger) LogClassifierDecision(queryID, classification string, confidence *float64, durationMS int64) error {
	return l.append(queryID, types.EventClassifierDecision, types.DecisionCode,
		&types.ClassifierDecisionData{Classification: classification, Confidence: confidence},
		nil, types.RoleInfo, nil, &durationMS)
}

// LogSkillLoaded records that a skill's instructions entered the context.
func (l *Logger) LogSkillLoaded(queryID, skillName string, decidedBy types.DecisionBy, disclosureLevel int, content, filePath string, durationMS int64) error {
	zero := 0
	return l.append(queryID, types.EventSkillLoaded, decidedBy,
		&types.SkillLoadedData{
			SkillName:       skillName,
			DisclosureLevel: disclosureLevel,
			ContentPreview:  truncate(content, previewLen),
			FilePath:        filePath,
		},
		&zero, types.RoleInfo, nil, &durationMS)
}

// LogToolRegistered records that a tool was made available to the LLM.
// Tool definitions ride along in the API call, so role is composition.
func (l *Logger) LogToolRegistered(queryID, toolName string, tokenCount int) error {
	return l.append(queryID, types.EventToolRegistered, types.DecisionCode,
		&types.ToolRegisteredData{ToolName: toolName},
		&tokenCount, types.RoleComposition, nil, nil)
}

// LogProactiveFetch records a data fetch performed before the LLM ran (L4+).
func (l *Logger) LogProactiveFetch(queryID, source, dataSummary string, tokenCount int, durationMS int64) error {
	return l.append(queryID, types.EventProactiveFetch, types.DecisionCode,
		&types.ProactiveFetchData{Source: source, DataSummary: dataSummary},
		&tokenCount, types.RoleComposition, nil, &durationMS)
}

// LogToolCalled records a tool invocation during generation. Its token
// cost is already covered by the surrounding api_call rounds, so role is
// info.
func (l *Logger) LogToolCalled(queryID, toolName string, parameters map[string]any, resultSummary string, decidedBy types.DecisionBy, durationMS int64) error {
	return l.append(queryID, types.EventToolCalled, decidedBy,
		&types.ToolCalledData{
			ToolName:      toolName,
			Parameters:    parameters,
			ResultSummary: truncate(resultSummary, previewLen),
		},
		nil, types.RoleInfo, nil, &durationMS)
}

// LogAPICall records one complete model round-trip with verified token
// counts and the round's input breakdown.
func (l *Logger) LogAPICall(queryID string, call types.APICallData) error {
	total := call.InputTokens + call.OutputTokens
	round := call.RoundNumber
	return l.append(queryID, types.EventAPICall, types.DecisionCode,
		&call, &total, types.RoleActual, &round, &call.DurationMS)
}

// LogError records a processing failure against the active session.
func (l *Logger) LogError(queryID, message string, detail map[string]any) error {
	if detail == nil {
		detail = map[string]any{}
	}
	return l.append(queryID, types.EventError, types.DecisionCode,
		&types.ErrorData{ErrorMessage: message, Detail: detail},
		nil, types.RoleInfo, nil, nil)
}

// SetConversationHistoryTokens stores the exact history cost once round
// 1's verified input is known. Zero for the first query in a conversation.
func (l *Logger) SetConversationHistoryTokens(queryID string, tokens int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	session, ok := l.active[queryID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuery, queryID)
	}
	session.ConversationHistoryTokens = tokens
	return nil
}

// BackfillTotalRounds rewrites total_rounds on every already-appended
// api_call event of the session. The round count is only knowable after
// the query's last round, making this the one sanctioned mutation of an
// appended event. Idempotent.
func (l *Logger) BackfillTotalRounds(queryID string, totalRounds int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	session, ok := l.active[queryID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuery, queryID)
	}
	for i := range session.Events {
		if call := session.Events[i].APICall(); call != nil {
			call.TotalRounds = totalRounds
		}
	}
	return nil
}

// EndQuery finalizes the session: removes it from the active table,
// stamps ended_at, computes the derived totals, persists the record, and
// returns it. A second call for the same id fails with ErrUnknownQuery —
// a finalized session must never be reopened or rewritten.
func (l *Logger) EndQuery(queryID string) (*types.QuerySession, error) {
	l.mu.Lock()
	session, ok := l.active[queryID]
	if ok {
		delete(l.active, queryID)
	}
	l.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuery, queryID)
	}

	now := time.Now().UTC()
	session.EndedAt = &now
	session.TotalTokens = session.ComputeTotalTokens()
	session.TotalAPICalls, session.TotalInputTokens, session.TotalOutputTokens = session.ComputeTokenBreakdown()

	if l.store != nil {
		if err := l.store.Save(session); err != nil {
			return nil, fmt.Errorf("persist session %s: %w", queryID, err)
		}
	}

	l.log.Info("query ended",
		zap.String("query_id", queryID),
		zap.Int("api_calls", session.TotalAPICalls),
		zap.Int("input_tokens", session.TotalInputTokens),
		zap.Int("output_tokens", session.TotalOutputTokens))
	return session, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
