package teaching

import "ctxlab/internal/types"

type teachingKey struct {
	Level     int
	EventType types.EventType
}

// Template placeholders, filled from real session data at render time:
//
//	{system_tokens}  measured system prompt tokens
//	{tool_tokens}    measured tool definition tokens
//	{total_input}    verified total input tokens
//	{total_output}   verified total output tokens
//	{input_pct}      computed input percentage
//	{skill_count}    counted skills loaded
var eventTeaching = map[teachingKey]EventTeaching{
	{1, types.EventPromptComposed}: {
		Title: "System Prompt Composed",
		What:  "All skills and instructions packed into one system prompt",
		Why:   "At Level 1, everything goes in the suitcase every time — there's no mechanism to select what's relevant",
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "Nobody — all content is hardcoded, no selection occurs",
			Q2WhatVisible:   "Every skill, every instruction, every constraint — always",
			Q3BlastRadius:   "Competing instructions may confuse the LLM. Irrelevant context dilutes focus",
			Q4HumanInvolved: "Human authored the prompt once. No per-query control",
		},
		DecisionMaker:        "code",
		LevelInsightTemplate: "System prompt: {system_tokens} tokens with {skill_count} skills. This is the monolith tax — paid on every query. At Level 2, progressive disclosure loads only what's needed.",
		ConceptsDemonstrated: []string{"monolith_tax", "suitcase_model"},
	},
	{1, types.EventToolRegistered}: {
		Title: "Tool Registered",
		What:  "Tool definition added to the API call",
		Why:   "Every tool the LLM might need is registered, whether this query will use it or not",
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "Code registers all tools unconditionally",
			Q2WhatVisible:   "All tool definitions — the LLM sees every available action",
			Q3BlastRadius:   "More tools = more tokens + more chances the LLM picks the wrong one",
			Q4HumanInvolved: "Human defined the tools. No per-query filtering",
		},
		DecisionMaker:        "code",
		LevelInsightTemplate: "Tool definitions: {tool_tokens} tokens across all tools. At Level 2, generic tools replace endpoint-specific ones — fewer definitions, same capabilities. At Level 3, only route-relevant tools are registered.",
		ConceptsDemonstrated: []string{"monolith_tax", "token_cost"},
	},
	{1, types.EventToolCalled}: {
		Title: "Tool Executed",
		What:  "The LLM chose to call a tool and received results",
		Why:   "The LLM selected this tool from all available options based on the query",
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "LLM decides which tool to call and with what parameters",
			Q2WhatVisible:   "Tool results are added to context for the next round — the suitcase gets heavier",
			Q3BlastRadius:   "Wrong tool call wastes a round trip. Results add to context for all subsequent rounds",
			Q4HumanInvolved: "No human checkpoint between tool selection and execution",
		},
		DecisionMaker:        "llm",
		LevelInsightTemplate: "Tool call added results to context. Total input now {total_input} tokens. The suitcase gets heavier with each round.",
		ConceptsDemonstrated: []string{"suitcase_model", "token_cost"},
	},
	{1, types.EventAPICall}: {
		Title: "API Round Trip",
		What:  "Complete request/response cycle with the model",
		Why:   "Each round sends the full suitcase — system prompt, tools, conversation history, and any tool results",
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "Code decides when to make API calls. LLM decides if more rounds are needed",
			Q2WhatVisible:   "Everything from all prior rounds plus new tool results",
			Q3BlastRadius:   "Each round compounds cost — input tokens grow with conversation history",
			Q4HumanInvolved: "No human checkpoint between rounds in a multi-round exchange",
		},
		DecisionMaker:        "code",
		LevelInsightTemplate: "Round trip: {total_input} input + {total_output} output tokens. Input is {input_pct}% of total — the suitcase weighs far more than the postcard back.",
		ConceptsDemonstrated: []string{"input_dominance", "suitcase_model"},
	},
	{1, types.EventSkillLoaded}: {
		Title: "Skill Content Loaded",
		What:  "Skill instructions embedded in system prompt",
		Why:   "At Level 1, all skills are loaded unconditionally — there's no loading mechanism, just hardcoded content",
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "Nobody decides — all skills are always present",
			Q2WhatVisible:   "Full skill text for every domain, regardless of query relevance",
			Q3BlastRadius:   "Irrelevant skills waste tokens and may confuse routing",
			Q4HumanInvolved: "Human authored skill content. No per-query selection",
		},
		DecisionMaker:        "code",
		LevelInsightTemplate: "All {skill_count} skills loaded regardless of query. At Level 2, only the relevant skill's details get loaded on demand.",
		ConceptsDemonstrated: []string{"monolith_tax", "token_cost"},
	},
	{1, types.EventError}: {
		Title: "Error Occurred",
		What:  "Something went wrong during processing",
		Why:   "Errors at Level 1 have maximum blast radius — no isolation, no fallback routing",
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "Nobody — errors propagate uncontrolled",
			Q2WhatVisible:   "Error details added to context, consuming tokens",
			Q3BlastRadius:   "Full blast radius — no route isolation, no graceful degradation",
			Q4HumanInvolved: "Human sees error in response. No recovery mechanism",
		},
		DecisionMaker:        "code",
		LevelInsightTemplate: "Error with full blast radius. At Level 3, classifier-based routing contains errors to a single route. At Level 4, confidence-driven fallbacks can recover gracefully.",
		ConceptsDemonstrated: []string{"token_cost"},
	},
	{2, types.EventPromptComposed}: {
		Title: "Skill Menu Composed",
		What:  "Summaries of every skill packed into the prompt; full details left out",
		Why:   "At Level 2 the prompt carries a menu, not the whole kitchen — the LLM loads details when it needs them",
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "Code composes the menu. The LLM decides what to load from it",
			Q2WhatVisible:   "Every skill's summary, no skill's full instructions",
			Q3BlastRadius:   "A misleading summary sends the LLM to the wrong skill",
			Q4HumanInvolved: "Human authored the summaries. No per-query control",
		},
		DecisionMaker:        "code",
		LevelInsightTemplate: "Menu prompt: {system_tokens} tokens — summaries only. The full skill bodies stay on disk until requested.",
		ConceptsDemonstrated: []string{"progressive_disclosure", "token_scaling"},
	},
	{2, types.EventSkillLoaded}: {
		Title: "Skill Loaded On Demand",
		What:  "The LLM requested a skill's full instructions mid-query",
		Why:   "Progressive disclosure: details enter context only when the LLM judges them relevant",
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "LLM decides which skill to load, and whether to load one at all",
			Q2WhatVisible:   "The chosen skill's full text, from this round onward",
			Q3BlastRadius:   "Wrong skill loaded wastes tokens; skipped loading degrades the answer",
			Q4HumanInvolved: "No human checkpoint on the load decision",
		},
		DecisionMaker:        "llm",
		LevelInsightTemplate: "{skill_count} skill(s) loaded on demand this query. At Level 1 every skill rode along whether needed or not.",
		ConceptsDemonstrated: []string{"progressive_disclosure", "generic_tools"},
	},
	{2, types.EventToolRegistered}: {
		Title: "Generic Tool Registered",
		What:  "A generic verb-style tool added to the API call",
		Why:   "Generic tools keep the definition count flat as skills multiply",
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "Code registers the fixed generic toolset",
			Q2WhatVisible:   "A small set of verbs; skills supply the nouns",
			Q3BlastRadius:   "A generic tool misused affects any skill that relies on it",
			Q4HumanInvolved: "Human defined the verbs once",
		},
		DecisionMaker:        "code",
		LevelInsightTemplate: "Tool definitions: {tool_tokens} tokens. The count stays flat no matter how many skills exist — only summaries scale.",
		ConceptsDemonstrated: []string{"generic_tools", "token_scaling"},
	},
	{2, types.EventToolCalled}: {
		Title: "Tool Executed",
		What:  "The LLM invoked a generic tool and received results",
		Why:   "The same verbs serve every skill; the loaded skill told the LLM how to use them",
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "LLM decides which tool to call and with what parameters",
			Q2WhatVisible:   "Tool results join the context for subsequent rounds",
			Q3BlastRadius:   "Wrong call wastes a round trip and re-sends with every later round",
			Q4HumanInvolved: "No human checkpoint between selection and execution",
		},
		DecisionMaker:        "llm",
		LevelInsightTemplate: "Tool call added results to context. Total input now {total_input} tokens.",
		ConceptsDemonstrated: []string{"generic_tools", "token_cost"},
	},
	{2, types.EventAPICall}: {
		Title: "API Round Trip",
		What:  "Complete request/response cycle with the model",
		Why:   "Each round still re-sends everything loaded so far — disclosure is progressive, the suitcase is not",
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "Code decides when to call. LLM decides whether more rounds are needed",
			Q2WhatVisible:   "Menu, loaded skills, tool results from all prior rounds",
			Q3BlastRadius:   "Loaded content compounds across rounds like any other context",
			Q4HumanInvolved: "No human checkpoint between rounds",
		},
		DecisionMaker:        "code",
		LevelInsightTemplate: "Round trip: {total_input} input + {total_output} output tokens ({input_pct}% input). Compare the same query at Level 1 to see what the menu saved.",
		ConceptsDemonstrated: []string{"progressive_disclosure", "input_dominance"},
	},
	{2, types.EventError}: {
		Title: "Error Occurred",
		What:  "Something went wrong during processing",
		Why:   "Level 2 errors still have no route isolation — a bad skill load poisons the whole query",
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "Nobody — errors propagate uncontrolled",
			Q2WhatVisible:   "Error details added to context, consuming tokens",
			Q3BlastRadius:   "Whole query affected; loaded skills don't contain failures",
			Q4HumanInvolved: "Human sees error in response. No recovery mechanism",
		},
		DecisionMaker:        "code",
		LevelInsightTemplate: "Error with full blast radius. Classifier routing at Level 3 is what first contains failures.",
		ConceptsDemonstrated: []string{"token_cost"},
	},
}
