package teaching

import (
	"regexp"
	"sort"
	"strings"

	"ctxlab/internal/types"
)

// Matches unfilled {placeholder} or {placeholder:format_spec} patterns.
var unfilledPlaceholder = regexp.MustCompile(`\{[a-z_]+(?::[^}]*)?\}`)

var doubleSpaces = regexp.MustCompile(`  +`)

// Registry serves all teaching content. It is built once with the
// built-in content registered and is read-only afterwards; construct it
// where you wire the dashboard rather than sharing a package global.
type Registry struct {
	levels      map[int]LevelConcept
	events      map[teachingKey]EventTeaching
	insights    map[insightKey]InsightGenerator
	comparisons []ComparisonGenerator
}

// NewRegistry builds a registry with all built-in teaching content.
func NewRegistry() *Registry {
	r := &Registry{
		levels:   levelConcepts,
		events:   eventTeaching,
		insights: make(map[insightKey]InsightGenerator),
	}
	r.RegisterInsight(1, "monolith_tax", monolithTaxInsight)
	r.RegisterInsight(1, "input_dominance", inputDominanceInsight)
	r.RegisterInsight(1, "suitcase_model", suitcaseGrowthInsight)
	r.RegisterInsight(2, "progressive_disclosure", progressiveDisclosureInsight)
	r.RegisterComparison(ComparisonGenerator{Levels: []int{1, 2}, Generate: monolithVsSkills})
	return r
}

// RegisterInsight binds a generator to a (level, concept) pair,
// replacing any previous binding.
func (r *Registry) RegisterInsight(level int, concept string, gen InsightGenerator) {
	r.insights[insightKey{Level: level, Concept: concept}] = gen
}

// RegisterComparison adds a cross-level comparison generator.
func (r *Registry) RegisterComparison(gen ComparisonGenerator) {
	r.comparisons = append(r.comparisons, gen)
}

// LevelInfo returns the teaching metadata for one level, nil if unknown.
func (r *Registry) LevelInfo(level int) *LevelConcept {
	concept, ok := r.levels[level]
	if !ok {
		return nil
	}
	return &concept
}

// AllLevels returns every level's metadata in level order.
func (r *Registry) AllLevels() []LevelConcept {
	nums := make([]int, 0, len(r.levels))
	for n := range r.levels {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	levels := make([]LevelConcept, 0, len(nums))
	for _, n := range nums {
		levels = append(levels, r.levels[n])
	}
	return levels
}

// AnnotationForEvent renders the teaching content for one event type at
// one level. session may be nil, in which case placeholders are stripped
// rather than filled. Returns nil when no content exists for the pair —
// including future event types below their minimum level.
func (r *Registry) AnnotationForEvent(eventType types.EventType, level int, session *types.QuerySession) *Annotation {
	teaching, ok := r.events[teachingKey{Level: level, EventType: eventType}]
	if !ok {
		return nil
	}

	insight := teaching.LevelInsightTemplate
	if session != nil {
		insight = fillTemplate(insight, ExtractInsightContext(session))
	}
	insight = sanitize(insight)

	return &Annotation{
		Title:                teaching.Title,
		What:                 teaching.What,
		Why:                  teaching.Why,
		Q1WhoDecides:         teaching.FourQuestions.Q1WhoDecides,
		Q2WhatVisible:        teaching.FourQuestions.Q2WhatVisible,
		Q3BlastRadius:        teaching.FourQuestions.Q3BlastRadius,
		Q4HumanInvolved:      teaching.FourQuestions.Q4HumanInvolved,
		DecisionMaker:        teaching.DecisionMaker,
		LevelInsight:         insight,
		ConceptsDemonstrated: teaching.ConceptsDemonstrated,
	}
}

// Annotations returns every annotation for a level, keyed by event type.
// Templates are rendered without session data.
func (r *Registry) Annotations(level int) map[types.EventType]*Annotation {
	result := make(map[types.EventType]*Annotation)
	for key := range r.events {
		if key.Level != level {
			continue
		}
		if a := r.AnnotationForEvent(key.EventType, level, nil); a != nil {
			result[key.EventType] = a
		}
	}
	return result
}

// InsightsForSession runs every generator registered for the session's
// level. A generator that panics or returns nil contributes nothing;
// insight generation must never take down the dashboard.
func (r *Registry) InsightsForSession(session *types.QuerySession) []*Insight {
	if session == nil {
		return nil
	}
	keys := make([]insightKey, 0, len(r.insights))
	for key := range r.insights {
		if key.Level == session.Level {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Concept < keys[j].Concept })

	var results []*Insight
	for _, key := range keys {
		if insight := runInsight(r.insights[key], session); insight != nil {
			results = append(results, insight)
		}
	}
	return results
}

func runInsight(gen InsightGenerator, session *types.QuerySession) (insight *Insight) {
	defer func() {
		if recover() != nil {
			insight = nil
		}
	}()
	return gen(session)
}

// Comparisons runs every comparison generator whose required levels all
// have a session available.
func (r *Registry) Comparisons(sessions map[int]*types.QuerySession) []*ComparisonInsight {
	var results []*ComparisonInsight
	for _, gen := range r.comparisons {
		if !hasAllLevels(sessions, gen.Levels) {
			continue
		}
		if insight := runComparison(gen, sessions); insight != nil {
			results = append(results, insight)
		}
	}
	return results
}

func hasAllLevels(sessions map[int]*types.QuerySession, levels []int) bool {
	for _, level := range levels {
		if sessions[level] == nil {
			return false
		}
	}
	return true
}

func runComparison(gen ComparisonGenerator, sessions map[int]*types.QuerySession) (insight *ComparisonInsight) {
	defer func() {
		if recover() != nil {
			insight = nil
		}
	}()
	return gen.Generate(sessions)
}

// fillTemplate substitutes {placeholder} slots with formatted values.
func fillTemplate(template string, ctx InsightContext) string {
	values := ctx.placeholders()
	pairs := make([]string, 0, len(values)*2)
	for name, value := range values {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// sanitize strips any surviving placeholder syntax so raw templates
// never reach a reader, then collapses the spacing damage.
func sanitize(s string) string {
	s = unfilledPlaceholder.ReplaceAllString(s, "")
	s = doubleSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
