package strategy

import (
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/jobsense/jobsense/internal/preferences"
	"github.com/jobsense/jobsense/internal/signals"
	"github.com/jobsense/jobsense/internal/util"
)

// Rule is one autonomous adjustment step. Apply mutates the current
// strategy when it decides to change something and returns the
// decision record, or nil when nothing changes.
type Rule interface {
	Name() string
	Apply(strategy *Current, prefs *preferences.Document) *Decision
}

func defaultRules(opts Options) []Rule {
	return []Rule{
		strictnessRule{},
		queryFocusRule{max: opts.MaxFocusKeywords},
		companyFocusRule{max: opts.MaxFocusCompanies},
		breadthRule{
			minFeedback: opts.MinFeedbackForBreadth,
			narrowBelow: opts.NarrowBelow,
			widenAbove:  opts.WidenAbove,
		},
	}
}

// strictnessRule follows the learner's strictness recommendation.
type strictnessRule struct{}

func (strictnessRule) Name() string { return "strictness" }

func (strictnessRule) Apply(strategy *Current, prefs *preferences.Document) *Decision {
	current := strategy.Strictness
	recommended := prefs.Strictness.Recommended
	if recommended == "" || recommended == current {
		return nil
	}

	strategy.Strictness = recommended

	reason := prefs.Strictness.Reason
	if reason == "" {
		reason = "Based on accuracy metrics"
	}

	return &Decision{
		Type:   DecisionAdjustStrictness,
		From:   string(current),
		To:     string(recommended),
		Reason: reason,
		Impact: fmt.Sprintf("Filtering strictness changed from %s to %s", current, recommended),
	}
}

// queryFocusRule points the search at the keywords with the strongest
// liked-to-disliked ratios.
type queryFocusRule struct {
	max int
}

func (queryFocusRule) Name() string { return "query_focus" }

func (r queryFocusRule) Apply(strategy *Current, prefs *preferences.Document) *Decision {
	patterns := prefs.DiscoveredPatterns
	if patterns == nil || len(patterns.Differential.StrongPositives) == 0 {
		return nil
	}

	positives := make([]signals.KeywordSignal, len(patterns.Differential.StrongPositives))
	copy(positives, patterns.Differential.StrongPositives)
	sort.SliceStable(positives, func(i, j int) bool {
		return positives[i].Ratio > positives[j].Ratio
	})
	positives = head(positives, r.max)

	focus := make([]string, len(positives))
	for i, kw := range positives {
		focus[i] = kw.Name
	}
	if sameSet(focus, strategy.QueryFocus) {
		return nil
	}

	previous := strategy.QueryFocus
	strategy.QueryFocus = focus

	return &Decision{
		Type:     DecisionUpdateQueryFocus,
		Keywords: focus,
		Previous: previous,
		Reason:   "Based on user preference patterns",
		Impact:   "Search queries will prioritize: " + strings.Join(focus, ", "),
	}
}

// companyFocusRule prioritizes companies the user has liked more than
// once.
type companyFocusRule struct {
	max int
}

func (companyFocusRule) Name() string { return "company_focus" }

func (r companyFocusRule) Apply(strategy *Current, prefs *preferences.Document) *Decision {
	patterns := prefs.DiscoveredPatterns
	if patterns == nil || len(patterns.Differential.LikedCompanies) == 0 {
		return nil
	}

	companies := head(patterns.Differential.LikedCompanies, r.max)
	focus := make([]string, len(companies))
	for i, company := range companies {
		focus[i] = company.Name
	}
	if sameSet(focus, strategy.CompanyPriorities) {
		return nil
	}

	previous := strategy.CompanyPriorities
	strategy.CompanyPriorities = focus

	return &Decision{
		Type:      DecisionPrioritizeCompanies,
		Companies: focus,
		Previous:  previous,
		Reason:    "User has shown consistent interest in these companies",
		Impact:    "Will prioritize jobs from: " + strings.Join(focus, ", "),
	}
}

// breadthRule narrows the search when precision drops and widens it
// again once precision recovers. It stays put until enough feedback
// has accumulated.
type breadthRule struct {
	minFeedback int
	narrowBelow float64
	widenAbove  float64
}

func (breadthRule) Name() string { return "search_breadth" }

func (r breadthRule) Apply(strategy *Current, prefs *preferences.Document) *Decision {
	stats := prefs.LearningStats
	if stats.TotalFeedbackProcessed < r.minFeedback {
		return nil
	}

	current := strategy.SearchBreadth
	switch {
	case stats.Precision < r.narrowBelow && current != BreadthNarrow:
		strategy.SearchBreadth = BreadthNarrow
		return &Decision{
			Type:   DecisionAdjustBreadth,
			From:   string(current),
			To:     string(BreadthNarrow),
			Reason: fmt.Sprintf("Low precision (%s) - focusing on better-matched results", util.Percent(stats.Precision)),
			Impact: "Search will be more targeted, fewer but better results",
		}
	case stats.Precision > r.widenAbove && current != BreadthWide:
		strategy.SearchBreadth = BreadthWide
		return &Decision{
			Type:   DecisionAdjustBreadth,
			From:   string(current),
			To:     string(BreadthWide),
			Reason: fmt.Sprintf("High precision (%s) - can explore more opportunities", util.Percent(stats.Precision)),
			Impact: "Search will cast wider net for more opportunities",
		}
	}

	return nil
}

func sameSet(a, b []string) bool {
	return maps.Equal(stringSet(a), stringSet(b))
}

func stringSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
