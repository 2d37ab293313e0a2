package engine

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"ctxlab/internal/events"
	"ctxlab/internal/skills"
	"ctxlab/internal/types"
)

// NewMonolithEngine builds the level 1 engine: every skill's full
// instructions baked into one system prompt, all tools always
// registered. Nobody curates context; every query pays for everything.
// Startup measures the real prompt and tool costs via countTokens.
func NewMonolithEngine(ctx context.Context, client types.LLMClient, counter types.TokenCounter, logger *events.Logger, skillsDir, model string, log *zap.Logger) (Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}

	prompt, err := skills.BuildMonolithPrompt(skillsDir)
	if err != nil {
		return nil, fmt.Errorf("build monolith prompt: %w", err)
	}
	loaded, err := skills.LoadAll(skillsDir)
	if err != nil {
		return nil, err
	}

	r := &runner{
		level:        1,
		description:  "The Monolith — all skills and tools hardcoded in one prompt",
		model:        model,
		client:       client,
		counter:      counter,
		logger:       logger,
		log:          log,
		systemPrompt: prompt,
		skills:       skillNames(loaded),
		tools:        []toolEntry{HTTPFetchTool(), MockAPIFetchTool(), DatetimeTool()},
	}
	if err := r.measureStaticCosts(ctx); err != nil {
		return nil, fmt.Errorf("measure static costs: %w", err)
	}
	return r, nil
}

func skillNames(loaded map[string]skills.Metadata) []string {
	names := make([]string, 0, len(loaded))
	for name := range loaded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
