package teaching

import (
	"fmt"
	"strconv"

	"ctxlab/internal/types"
)

// InsightContext is the bounded set of measurements extracted from one
// session for template filling. Every field defaults to zero so a sparse
// or empty session still renders.
type InsightContext struct {
	TotalInput   int
	TotalOutput  int
	InputPct     float64
	SystemTokens int
	ToolTokens   int
	SkillCount   int
}

// ExtractInsightContext pulls template measurements from a session.
// Never errors: whatever the session lacks stays zero.
func ExtractInsightContext(session *types.QuerySession) InsightContext {
	var ctx InsightContext
	if session == nil {
		return ctx
	}
	ctx.TotalInput = session.TotalInputTokens
	ctx.TotalOutput = session.TotalOutputTokens
	if total := ctx.TotalInput + ctx.TotalOutput; total > 0 {
		ctx.InputPct = float64(ctx.TotalInput) / float64(total) * 100
	}

	for i := range session.Events {
		e := &session.Events[i]
		switch e.EventType {
		case types.EventPromptComposed:
			if ctx.SystemTokens == 0 && e.TokenCount != nil {
				ctx.SystemTokens = *e.TokenCount
			}
		case types.EventToolRegistered:
			if e.TokenCount != nil {
				ctx.ToolTokens += *e.TokenCount
			}
		case types.EventSkillLoaded:
			ctx.SkillCount++
		}
	}

	// L1 bakes skills into the prompt without skill_loaded events; fall
	// back to the prompt_composed skill list.
	if ctx.SkillCount == 0 {
		for i := range session.Events {
			if d, ok := session.Events[i].Data.(*types.PromptComposedData); ok {
				ctx.SkillCount = len(d.SkillsIncluded)
				break
			}
		}
	}
	return ctx
}

// placeholders returns the formatted value for every template slot.
func (c InsightContext) placeholders() map[string]string {
	return map[string]string{
		"total_input":   groupThousands(c.TotalInput),
		"total_output":  groupThousands(c.TotalOutput),
		"input_pct":     strconv.Itoa(int(c.InputPct + 0.5)),
		"system_tokens": groupThousands(c.SystemTokens),
		"tool_tokens":   groupThousands(c.ToolTokens),
		"skill_count":   strconv.Itoa(c.SkillCount),
	}
}

// groupThousands renders 12345 as "12,345".
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if n < 0 {
		neg = true
		s = s[1:]
	}
	if len(s) > 3 {
		var out []byte
		for i, c := range []byte(s) {
			if i > 0 && (len(s)-i)%3 == 0 {
				out = append(out, ',')
			}
			out = append(out, c)
		}
		s = string(out)
	}
	if neg {
		return "-" + s
	}
	return s
}

// InsightGenerator produces a narrative from one session's measurements,
// or nil when the session lacks the data the narrative needs.
type InsightGenerator func(session *types.QuerySession) *Insight

type insightKey struct {
	Level   int
	Concept string
}

func monolithTaxInsight(session *types.QuerySession) *Insight {
	var systemTokens int
	for i := range session.Events {
		e := &session.Events[i]
		if e.EventType == types.EventPromptComposed && e.TokenCount != nil {
			systemTokens = *e.TokenCount
			break
		}
	}
	totalInput := session.TotalInputTokens
	if systemTokens == 0 || totalInput == 0 {
		return nil
	}
	pct := float64(systemTokens) / float64(totalInput) * 100
	return &Insight{
		Text: fmt.Sprintf(
			"System prompt consumes %s tokens (%.0f%% of input). This is the monolith tax — the fixed cost paid on every query, every round.",
			groupThousands(systemTokens), pct),
		Measurements: map[string]float64{
			"system_tokens": float64(systemTokens),
			"total_input":   float64(totalInput),
		},
		Accuracy: map[string]string{
			"system_tokens": "measured",
			"total_input":   "verified",
			"pct":           "computed",
		},
	}
}

func inputDominanceInsight(session *types.QuerySession) *Insight {
	in, out := session.TotalInputTokens, session.TotalOutputTokens
	if in+out == 0 {
		return nil
	}
	pct := float64(in) / float64(in+out) * 100
	return &Insight{
		Text: fmt.Sprintf(
			"Input: %s tokens. Output: %s tokens. Input is %.0f%% of total cost — the suitcase weighs far more than the postcard back.",
			groupThousands(in), groupThousands(out), pct),
		Measurements: map[string]float64{
			"input_tokens":  float64(in),
			"output_tokens": float64(out),
		},
		Accuracy: map[string]string{
			"input_tokens":  "verified",
			"output_tokens": "verified",
			"pct":           "computed",
		},
	}
}

func suitcaseGrowthInsight(session *types.QuerySession) *Insight {
	calls := session.APICallEvents()
	if len(calls) < 2 {
		return nil
	}
	first := calls[0].InputTokens
	last := calls[len(calls)-1].InputTokens
	if first == 0 {
		return nil
	}
	growth := last - first
	return &Insight{
		Text: fmt.Sprintf(
			"Suitcase grew from %s to %s tokens across %d rounds (+%s). Each round adds tool results to the context that gets re-sent next round.",
			groupThousands(first), groupThousands(last), len(calls), groupThousands(growth)),
		Measurements: map[string]float64{
			"first_input": float64(first),
			"last_input":  float64(last),
			"rounds":      float64(len(calls)),
		},
		Accuracy: map[string]string{
			"first_input": "verified",
			"last_input":  "verified",
			"rounds":      "measured",
			"growth":      "computed",
		},
	}
}

func progressiveDisclosureInsight(session *types.QuerySession) *Insight {
	loads := 0
	for i := range session.Events {
		if session.Events[i].EventType == types.EventSkillLoaded {
			loads++
		}
	}
	totalInput := session.TotalInputTokens
	if totalInput == 0 {
		return nil
	}
	return &Insight{
		Text: fmt.Sprintf(
			"%d skill(s) loaded on demand; total input %s tokens. Only what the LLM asked for entered the context.",
			loads, groupThousands(totalInput)),
		Measurements: map[string]float64{
			"skills_loaded": float64(loads),
			"total_input":   float64(totalInput),
		},
		Accuracy: map[string]string{
			"skills_loaded": "measured",
			"total_input":   "verified",
		},
	}
}
