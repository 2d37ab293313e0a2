package teaching

// levelConcepts is the source of truth for what each level teaches, what
// forces the next level, and the Four Questions at level scope.
var levelConcepts = map[int]LevelConcept{
	1: {
		Number:      1,
		Name:        "The Monolith",
		OneLiner:    "Everything always present. Nobody manages context.",
		WhoCurates:  "Nobody — everything is always present",
		Description: "All skills and tools hardcoded in one prompt. Every query pays full cost.",
		Implemented: true,
		Teaches: []Concept{
			{ID: "token_cost", Label: "What context costs", Description: "Tokens as a finite resource with real dollar costs"},
			{ID: "monolith_tax", Label: "The monolith tax", Description: "Fixed overhead of system prompt + tools paid every query"},
			{ID: "input_dominance", Label: "Input dominates output", Description: "~95%+ of cost is input tokens in tool-using queries"},
			{ID: "suitcase_model", Label: "The suitcase mental model", Description: "Every API call packs everything and sends it"},
		},
		ForcesNext: &ForcingFunction{
			Trigger:    "Prompt exceeds ~3-4k tokens, LLM confused by competing instructions",
			Observable: "Adding any capability grows the prompt linearly",
		},
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "LLM decides everything — which skill, which tool",
			Q2WhatVisible:   "Everything — all skills, all tools, all instructions, always",
			Q3BlastRadius:   "Wrong instructions followed, irrelevant tools called, confused by competing context",
			Q4HumanInvolved: "Bookend only — start (query) and end (response)",
		},
	},
	2: {
		Number:      2,
		Name:        "Skills + Generic Tools",
		OneLiner:    "Progressive disclosure. The LLM manages its own context.",
		WhoCurates:  "The LLM — reads skill menu, decides what to load",
		Description: "Skills broken into summaries (always present) and details (loaded on demand). Generic tools replace endpoint-specific functions.",
		Implemented: true,
		Teaches: []Concept{
			{ID: "progressive_disclosure", Label: "Progressive disclosure", Description: "Separating what's available from what's loaded"},
			{ID: "generic_tools", Label: "Generic tool pattern", Description: "Tools as verbs, skills as nouns — the Swiss Army knife"},
			{ID: "agent_skills_spec", Label: "Agent Skills spec", Description: "Industry standard (agentskills.io) for skill packaging"},
			{ID: "token_scaling", Label: "Token scaling math", Description: "Tool definitions stay flat; only skill summaries scale linearly"},
		},
		ForcesNext: &ForcingFunction{
			Trigger:    "LLM loads wrong skill for ambiguous queries, inconsistent behavior",
			Observable: "Implicit routing is unreliable when queries span domains",
		},
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "LLM decides what to load (reads menu, picks skill). Code decides tool implementations",
			Q2WhatVisible:   "Skill summaries always. Full details on demand. Generic tool definitions (flat count)",
			Q3BlastRadius:   "Wrong skill loaded, unnecessary loading, skipped loading when needed",
			Q4HumanInvolved: "Same bookend control as L1",
		},
	},
	3: {
		Number:      3,
		Name:        "Query Classification",
		OneLiner:    "Your code decides what the LLM sees. Explicit routing.",
		WhoCurates:  "Your code — classifier routes to pre-configured context",
		Description: "Lightweight classifier examines query before main agent. Classification determines which skills and tools are loaded.",
		Implemented: false,
		Teaches: []Concept{
			{ID: "explicit_routing", Label: "Explicit vs implicit routing", Description: "Classifier is cheap and deterministic; LLM is expensive and non-deterministic"},
			{ID: "lowest_cost_decider", Label: "Lowest-cost decider principle", Description: "Push decisions to the cheapest reliable component"},
			{ID: "token_scoping", Label: "Token scoping", Description: "Zero tools for creative queries, full toolset for technical queries"},
			{ID: "route_configuration", Label: "Route configuration as code", Description: "Deterministic mapping from classification to context"},
		},
		ForcesNext: &ForcingFunction{
			Trigger:    "LLM always calls same tool first in certain routes — predictable fetches",
			Observable: "Paying for round trips the system could pre-empt",
		},
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "Code decides what to load (classifier routes). LLM decides how to use it",
			Q2WhatVisible:   "Only skills and tools for the classified route. No menu, no irrelevant context",
			Q3BlastRadius:   "Misclassification → wrong route → wrong context. Contained to one query",
			Q4HumanInvolved: "Bookend + classification checkpoint possible",
		},
	},
	4: {
		Number:      4,
		Name:        "Adaptive Context Engineering",
		OneLiner:    "Your code manages context as a resource with a budget.",
		WhoCurates:  "Your code, intelligently — confidence-driven proactive/reactive split",
		Description: "Classification output is a confidence signal. High-confidence needs pre-fetched. Uncertain needs stay reactive. Active context budget management.",
		Implemented: false,
		Teaches: []Concept{
			{ID: "proactive_reactive", Label: "Proactive vs reactive loading", Description: "Confidence as a decision signal for what to pre-fetch vs leave available"},
			{ID: "context_budget", Label: "Context budget awareness", Description: "Context rot is real — performance degrades as context grows"},
			{ID: "long_horizon", Label: "Long-horizon context management", Description: "Compaction, structured notes, selective retention over time"},
			{ID: "confidence_framework", Label: "Confidence framework", Description: "~100% certain = proactive, ~50% = reactive, ~0% = not loaded"},
		},
		ForcesNext: nil, // architectural ceiling
		FourQuestions: FourQuestions{
			Q1WhoDecides:    "Code decides proactive/reactive split. LLM decides within reactive scope",
			Q2WhatVisible:   "Pre-loaded data for high-confidence needs + available tools for uncertain needs",
			Q3BlastRadius:   "Over-fetching wastes tokens. Under-fetching misses data. Compaction loses subtle context",
			Q4HumanInvolved: "Checkpoints at classification, after pre-fetch, and at session boundaries",
		},
	},
}
