// Package engine implements the query-processing levels. Each level
// answers the same queries with the same tools; what differs is who
// curates the context and what that costs. All token figures come from
// the provider — measured by countTokens probes or verified from
// response usage metadata, never estimated from text length.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ctxlab/internal/accounting"
	"ctxlab/internal/events"
	"ctxlab/internal/types"
)

// Engine processes one user message at a time, recording every step of
// the work into the event log.
type Engine interface {
	// Run processes the message against the prior transcript and
	// returns the response plus the updated transcript.
	Run(ctx context.Context, userMessage string, history []types.ChatMessage) (string, []types.ChatMessage, error)
	Level() int
	Description() string
}

// maxRounds bounds the tool-call loop; a runaway model must not spin
// API calls forever.
const maxRounds = 8

// runner is the level-independent query loop: probe, log composition,
// round-trip with tools until the model answers in text, account for
// every round, finalize. Levels differ only in prompt and toolset.
// A runner serves one conversation at a time; Run is not safe for
// concurrent use.
type runner struct {
	level       int
	description string
	model       string

	client  types.LLMClient
	counter types.TokenCounter
	logger  *events.Logger
	log     *zap.Logger

	systemPrompt string
	skills       []string
	tools        []toolEntry
	static       accounting.StaticCosts

	conversationID string
	sequence       int
}

func (r *runner) Level() int          { return r.level }
func (r *runner) Description() string { return r.description }

func (r *runner) toolDefs() []types.ToolDefinition {
	defs := make([]types.ToolDefinition, len(r.tools))
	for i, t := range r.tools {
		defs[i] = t.def
	}
	return defs
}

// measureStaticCosts runs the startup probes: the empty-request
// baseline, the prompt cost, and the tool-definition cost. The probes
// are independent API calls and run concurrently.
func (r *runner) measureStaticCosts(ctx context.Context) error {
	probe := []types.ChatMessage{{Role: "user", Text: "x"}}

	var baseline, withPrompt, withTools int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.counter.CountTokens(gctx, "", probe, nil)
		if err != nil {
			return fmt.Errorf("baseline probe: %w", err)
		}
		baseline = n
		return nil
	})
	g.Go(func() error {
		n, err := r.counter.CountTokens(gctx, r.systemPrompt, probe, nil)
		if err != nil {
			return fmt.Errorf("prompt probe: %w", err)
		}
		withPrompt = n
		return nil
	})
	g.Go(func() error {
		n, err := r.counter.CountTokens(gctx, "", probe, r.toolDefs())
		if err != nil {
			return fmt.Errorf("tool probe: %w", err)
		}
		withTools = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// The probe message is a single token; prompt cost keeps the base
	// framing so that prompt + tools + message sums to a clean call.
	r.static.PromptTokens = withPrompt - 1
	r.static.ToolTokens = withTools - baseline
	r.static.BaseTokens = baseline - 1
	r.static.SkillCount = len(r.skills)
	r.static.ToolCount = len(r.tools)

	r.log.Info("static costs measured",
		zap.Int("level", r.level),
		zap.Int("prompt_tokens", r.static.PromptTokens),
		zap.Int("tool_tokens", r.static.ToolTokens),
		zap.Int("base_tokens", r.static.BaseTokens))
	return nil
}

// Run processes one user message through the full instrumented loop.
func (r *runner) Run(ctx context.Context, userMessage string, history []types.ChatMessage) (answer string, transcript []types.ChatMessage, err error) {
	if r.conversationID == "" {
		r.conversationID = r.logger.StartConversation()
	}
	r.sequence++

	// Per-query probe: what would this message cost without history?
	// A failed probe degrades attribution, never the query itself.
	var cleanCall *int
	if n, probeErr := r.counter.CountTokens(ctx, r.systemPrompt, []types.ChatMessage{{Role: "user", Text: userMessage}}, r.toolDefs()); probeErr == nil {
		cleanCall = &n
	} else {
		r.log.Warn("clean-call probe failed", zap.Error(probeErr))
	}

	queryID := r.logger.StartQuery(userMessage, r.conversationID, r.sequence, 0)
	ledger := accounting.NewRoundLedger(r.static, cleanCall, len(history) > 0)

	// The session is finalized on every path out of this function.
	defer func() {
		if err != nil {
			_ = r.logger.LogError(queryID, err.Error(), nil)
		}
		_ = r.logger.BackfillTotalRounds(queryID, currentRound(transcript, history))
		_ = r.logger.SetConversationHistoryTokens(queryID, ledger.HistoryTokens())
		if _, endErr := r.logger.EndQuery(queryID); endErr != nil && err == nil {
			err = endErr
		}
	}()

	if logErr := r.logger.LogPromptComposed(queryID, r.systemPrompt, r.static.PromptTokens, r.skills); logErr != nil {
		return "", history, logErr
	}
	r.logToolRegistrations(queryID)

	toolCtx := ToolContext{QueryID: queryID, Logger: r.logger}
	transcript = append(append([]types.ChatMessage{}, history...), types.ChatMessage{Role: "user", Text: userMessage})

	for round := 1; round <= maxRounds; round++ {
		roundStart := time.Now()
		resp, callErr := r.client.CompleteWithTools(ctx, r.systemPrompt, transcript, r.toolDefs())
		if callErr != nil {
			return "", transcript, fmt.Errorf("round %d: %w", round, callErr)
		}

		ledger.ObserveRound(round, resp.Usage.InputTokens)

		call := types.APICallData{
			RoundNumber:     round,
			Model:           r.model,
			InputTokens:     resp.Usage.InputTokens,
			OutputTokens:    resp.Usage.OutputTokens,
			ResponseType:    "text",
			ResponsePreview: responsePreview(resp),
			InputBreakdown:  ledger.Breakdown(round, resp.Usage.InputTokens),
			DurationMS:      time.Since(roundStart).Milliseconds(),
		}
		if len(resp.ToolCalls) > 0 {
			call.ResponseType = "tool_call"
			for _, tc := range resp.ToolCalls {
				call.ToolCalls = append(call.ToolCalls, tc.Name)
			}
		}
		if logErr := r.logger.LogAPICall(queryID, call); logErr != nil {
			return "", transcript, logErr
		}

		if len(resp.ToolCalls) == 0 {
			transcript = append(transcript, types.ChatMessage{Role: "model", Text: resp.Text})
			return resp.Text, transcript, nil
		}

		transcript = append(transcript, types.ChatMessage{
			Role:      "model",
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		results := r.executeToolCalls(ctx, toolCtx, resp.ToolCalls)
		transcript = append(transcript, types.ChatMessage{Role: "user", ToolResults: results})
	}

	return "", transcript, fmt.Errorf("no text response after %d rounds", maxRounds)
}

// logToolRegistrations records one event per tool. The probe measures
// all definitions combined, so the cost is split evenly with the last
// tool absorbing the rounding remainder — the per-round sums stay exact.
func (r *runner) logToolRegistrations(queryID string) {
	if len(r.tools) == 0 {
		return
	}
	perTool := r.static.ToolTokens / len(r.tools)
	remainder := r.static.ToolTokens % len(r.tools)
	for i, tool := range r.tools {
		tokens := perTool
		if i == len(r.tools)-1 {
			tokens += remainder
		}
		_ = r.logger.LogToolRegistered(queryID, tool.def.Name, tokens)
	}
}

func (r *runner) executeToolCalls(ctx context.Context, toolCtx ToolContext, calls []types.ToolCall) []types.ToolResult {
	results := make([]types.ToolResult, 0, len(calls))
	for _, call := range calls {
		entry, ok := r.findTool(call.Name)
		var result string
		if !ok {
			result = jsonError(fmt.Sprintf("Unknown tool: %s", call.Name))
		} else {
			start := time.Now()
			result = entry.handler(ctx, toolCtx, call.Input)
			if !entry.logsSelf {
				_ = r.logger.LogToolCalled(toolCtx.QueryID, call.Name, call.Input, result, types.DecisionLLM, time.Since(start).Milliseconds())
			}
		}
		results = append(results, types.ToolResult{Name: call.Name, Content: result})
	}
	return results
}

func (r *runner) findTool(name string) (toolEntry, bool) {
	for _, entry := range r.tools {
		if entry.def.Name == name {
			return entry, true
		}
	}
	return toolEntry{}, false
}

// currentRound counts completed rounds from transcript growth: each
// round appends one model turn.
func currentRound(transcript, history []types.ChatMessage) int {
	rounds := 0
	for i := len(history); i < len(transcript); i++ {
		if transcript[i].Role == "model" {
			rounds++
		}
	}
	return rounds
}

func responsePreview(resp *types.LLMToolResponse) string {
	if len(resp.ToolCalls) > 0 {
		names := make([]string, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			names[i] = tc.Name
		}
		return "[Calling tools: " + strings.Join(names, ", ") + "]"
	}
	if len(resp.Text) > 200 {
		return resp.Text[:200] + "..."
	}
	return resp.Text
}
