package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ctxlab/internal/events"
	"ctxlab/internal/skills"
	"ctxlab/internal/types"
)

// NewSkillsEngine builds the level 2 engine: the prompt carries a skill
// menu (summaries only) and the LLM loads full instructions on demand
// through skill tools. The LLM curates its own context.
func NewSkillsEngine(ctx context.Context, client types.LLMClient, counter types.TokenCounter, logger *events.Logger, skillsDir, model string, log *zap.Logger) (Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}

	prompt, err := skills.BuildMenuPrompt(skillsDir)
	if err != nil {
		return nil, fmt.Errorf("build menu prompt: %w", err)
	}
	loaded, err := skills.LoadAll(skillsDir)
	if err != nil {
		return nil, err
	}

	r := &runner{
		level:        2,
		description:  "Skills + Generic Tools — progressive disclosure, LLM loads details on demand",
		model:        model,
		client:       client,
		counter:      counter,
		logger:       logger,
		log:          log,
		systemPrompt: prompt,
		skills:       skillNames(loaded),
		tools: []toolEntry{
			loadSkillTool(skillsDir),
			listSkillFilesTool(skillsDir),
			readSkillFileTool(skillsDir),
			HTTPFetchTool(),
			MockAPIFetchTool(),
			DatetimeTool(),
		},
	}
	if err := r.measureStaticCosts(ctx); err != nil {
		return nil, fmt.Errorf("measure static costs: %w", err)
	}
	return r, nil
}

// loadSkillTool returns a skill's full SKILL.md body. Recorded as a
// skill_loaded event at disclosure level 2, not a generic tool call.
func loadSkillTool(skillsDir string) toolEntry {
	return toolEntry{
		def: types.ToolDefinition{
			Name:        "load_skill",
			Description: "Load full instructions for a skill. Call this BEFORE using any skill.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"skill_name": map[string]any{"type": "string", "description": "Name of the skill to load"},
				},
				"required": []any{"skill_name"},
			},
		},
		logsSelf: true,
		handler: func(_ context.Context, call ToolContext, params map[string]any) string {
			name, _ := params["skill_name"].(string)
			start := time.Now()
			detail, err := skills.LoadDetail(skillsDir, name)
			if err != nil {
				detail = fmt.Sprintf("Error: Skill '%s' not found.", name)
			}
			_ = call.Logger.LogSkillLoaded(call.QueryID, name, types.DecisionLLM, 2, detail, "", time.Since(start).Milliseconds())
			return detail
		},
	}
}

// listSkillFilesTool lists a skill's reference files. This is discovery,
// not loading, so it stays a generic tool call.
func listSkillFilesTool(skillsDir string) toolEntry {
	return toolEntry{
		def: types.ToolDefinition{
			Name:        "list_skill_files",
			Description: "List reference files available for a skill.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"skill_name": map[string]any{"type": "string", "description": "Name of the skill"},
				},
				"required": []any{"skill_name"},
			},
		},
		handler: func(_ context.Context, _ ToolContext, params map[string]any) string {
			name, _ := params["skill_name"].(string)
			files, err := skills.ListSkillFiles(skillsDir, name)
			if err != nil || len(files) == 0 {
				return "No reference files available."
			}
			return strings.Join(files, "\n")
		},
	}
}

// readSkillFileTool reads one reference file. Recorded as a
// skill_loaded event at disclosure level 3.
func readSkillFileTool(skillsDir string) toolEntry {
	return toolEntry{
		def: types.ToolDefinition{
			Name:        "read_skill_file",
			Description: "Read a reference file from a skill directory for detailed information.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"skill_name": map[string]any{"type": "string", "description": "Name of the skill"},
					"file_path":  map[string]any{"type": "string", "description": "Path to the reference file, relative to the skill directory"},
				},
				"required": []any{"skill_name", "file_path"},
			},
		},
		logsSelf: true,
		handler: func(_ context.Context, call ToolContext, params map[string]any) string {
			name, _ := params["skill_name"].(string)
			path, _ := params["file_path"].(string)
			start := time.Now()
			content, err := skills.ReadSkillFile(skillsDir, name, path)
			if err != nil {
				content = fmt.Sprintf("Error: %v", err)
			}
			_ = call.Logger.LogSkillLoaded(call.QueryID, name, types.DecisionLLM, 3, content, path, time.Since(start).Milliseconds())
			return content
		},
	}
}
