// Package teaching holds the educational metadata layered over recorded
// sessions: what each level teaches, per-event annotations with
// data-filled insight text, insight generators over real measurements,
// and cross-level comparisons. Everything here is fail-soft — missing
// data degrades content, never the caller.
package teaching

// Concept is a single thing a level teaches.
type Concept struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// ForcingFunction describes what pushes a system to the next level.
type ForcingFunction struct {
	Trigger    string `json:"trigger"`
	Observable string `json:"observable"`
}

// FourQuestions frames any context-management decision: who decides,
// what is visible, what breaks when it goes wrong, where the human sits.
type FourQuestions struct {
	Q1WhoDecides    string `json:"q1_who_decides"`
	Q2WhatVisible   string `json:"q2_what_visible"`
	Q3BlastRadius   string `json:"q3_blast_radius"`
	Q4HumanInvolved string `json:"q4_human_involved"`
}

// LevelConcept is the complete teaching metadata for one level.
type LevelConcept struct {
	Number        int              `json:"number"`
	Name          string           `json:"name"`
	OneLiner      string           `json:"one_liner"`
	WhoCurates    string           `json:"who_curates"`
	Description   string           `json:"description"`
	Implemented   bool             `json:"implemented"`
	Teaches       []Concept        `json:"teaches"`
	ForcesNext    *ForcingFunction `json:"forces_next"` // nil at the ceiling
	FourQuestions FourQuestions    `json:"four_questions"`
}

// EventTeaching is the static teaching content for one event type at one
// level. LevelInsightTemplate carries {placeholder} slots filled from
// real session measurements at render time.
type EventTeaching struct {
	Title                string
	What                 string
	Why                  string
	FourQuestions        FourQuestions
	DecisionMaker        string // "code", "llm", or "human"
	LevelInsightTemplate string
	ConceptsDemonstrated []string
}

// Annotation is the rendered teaching content for one event occurrence.
type Annotation struct {
	Title                string   `json:"title"`
	What                 string   `json:"what"`
	Why                  string   `json:"why"`
	Q1WhoDecides         string   `json:"q1_who_decides"`
	Q2WhatVisible        string   `json:"q2_what_visible"`
	Q3BlastRadius        string   `json:"q3_blast_radius"`
	Q4HumanInvolved      string   `json:"q4_human_involved"`
	DecisionMaker        string   `json:"decision_maker"`
	LevelInsight         string   `json:"level_insight"`
	ConceptsDemonstrated []string `json:"concepts_demonstrated"`
}

// Insight is a data-driven observation generated from one session's real
// measurements. Accuracy labels every measurement's provenance.
type Insight struct {
	Text         string             `json:"text"`
	Measurements map[string]float64 `json:"measurements"`
	Accuracy     map[string]string  `json:"accuracy"` // "measured" | "computed" | "verified"
}

// ComparisonInsight contrasts the same query across two levels.
type ComparisonInsight struct {
	Levels       [2]int             `json:"levels"`
	Text         string             `json:"text"`
	WhatChanged  string             `json:"what_changed"`
	Measurements map[string]float64 `json:"measurements"`
}
