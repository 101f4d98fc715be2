// Package strategy adjusts the search strategy on its own, based on
// what the preference learner has extracted from user feedback. Every
// adjustment is recorded as a decision so the user can always see what
// changed and why. Larger changes are queued as recommendations and
// wait for an explicit user verdict.
package strategy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jobsense/jobsense/internal/docstore"
	"github.com/jobsense/jobsense/internal/logger"
	"github.com/jobsense/jobsense/internal/preferences"
	"go.uber.org/zap"
)

const documentVersion = "1.0"

const (
	defaultMaxDecisions          = 50
	defaultRecentDecisions       = 10
	defaultMaxFocusKeywords      = 5
	defaultMaxFocusCompanies     = 5
	defaultMinFeedbackForBreadth = 20
	defaultNarrowBelow           = 0.25
	defaultWidenAbove            = 0.6
)

// Breadth is how wide the search casts its net.
type Breadth string

const (
	BreadthWide   Breadth = "wide"
	BreadthNarrow Breadth = "narrow"
)

// Decision types.
const (
	DecisionAdjustStrictness    = "adjust_strictness"
	DecisionUpdateQueryFocus    = "update_query_focus"
	DecisionPrioritizeCompanies = "prioritize_companies"
	DecisionAdjustBreadth       = "adjust_search_breadth"
)

// Recommendation statuses.
const (
	RecommendationPending   = "pending"
	RecommendationAccepted  = "accepted"
	RecommendationDismissed = "dismissed"
)

// ErrRecommendationNotFound reports a resolution attempt against an
// unknown or already resolved recommendation.
var ErrRecommendationNotFound = errors.New("pending recommendation not found")

// Current holds the strategy settings the search and filtering layers
// consume.
type Current struct {
	Strictness        preferences.Strictness `json:"strictness_level"`
	SearchBreadth     Breadth                `json:"search_breadth"`
	QueryFocus        []string               `json:"query_focus"`
	CompanyPriorities []string               `json:"company_priorities"`
}

// Decision is one recorded strategy adjustment.
type Decision struct {
	Type      string   `json:"decision_type"`
	From      string   `json:"from,omitempty"`
	To        string   `json:"to,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Companies []string `json:"companies,omitempty"`
	Previous  []string `json:"previous,omitempty"`
	Reason    string   `json:"reason"`
	Impact    string   `json:"impact"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// Recommendation is a queued suggestion awaiting a user verdict. It is
// resolved only through ResolveRecommendation, never automatically.
type Recommendation struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	ResolvedAt  string `json:"resolved_at,omitempty"`
}

// State is the persisted strategy document.
type State struct {
	docstore.Meta
	Strategy        Current           `json:"current_strategy"`
	Decisions       []Decision        `json:"autonomous_decisions"`
	Recommendations []*Recommendation `json:"pending_recommendations"`
}

func (s *State) DocumentMeta() *docstore.Meta {
	return &s.Meta
}

func (s *State) init() {
	*s = State{
		Strategy: Current{
			Strictness:        preferences.StrictnessModerate,
			SearchBreadth:     BreadthWide,
			QueryFocus:        []string{},
			CompanyPriorities: []string{},
		},
		Decisions:       []Decision{},
		Recommendations: []*Recommendation{},
	}
}

// Options control the decision thresholds. Zero fields fall back to
// defaults.
type Options struct {
	// MaxDecisions caps the retained decision log.
	MaxDecisions      int
	MaxFocusKeywords  int
	MaxFocusCompanies int
	// MinFeedbackForBreadth is the feedback floor below which breadth
	// never changes.
	MinFeedbackForBreadth int
	NarrowBelow           float64
	WidenAbove            float64
}

// Controller owns the strategy document and runs the decision rules.
// Every operation reads the document fresh from disk.
type Controller struct {
	store *docstore.File
	log   *zap.Logger
	opts  Options
	rules []Rule
	now   func() time.Time
	newID func() string
}

func NewController(path string, log *zap.Logger, opts Options) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxDecisions == 0 {
		opts.MaxDecisions = defaultMaxDecisions
	}
	if opts.MaxFocusKeywords == 0 {
		opts.MaxFocusKeywords = defaultMaxFocusKeywords
	}
	if opts.MaxFocusCompanies == 0 {
		opts.MaxFocusCompanies = defaultMaxFocusCompanies
	}
	if opts.MinFeedbackForBreadth == 0 {
		opts.MinFeedbackForBreadth = defaultMinFeedbackForBreadth
	}
	if opts.NarrowBelow == 0 {
		opts.NarrowBelow = defaultNarrowBelow
	}
	if opts.WidenAbove == 0 {
		opts.WidenAbove = defaultWidenAbove
	}

	return &Controller{
		store: docstore.NewFile(path, documentVersion, log),
		log:   log,
		opts:  opts,
		rules: defaultRules(opts),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Decide runs every rule against the current strategy, records the
// adjustments that were made and persists the updated state. The
// decision log keeps only the most recent entries.
func (c *Controller) Decide(prefs *preferences.Document) ([]Decision, error) {
	if prefs == nil {
		prefs = &preferences.Document{}
	}

	state := c.loadState()

	decisions := []Decision{}
	for _, rule := range c.rules {
		decision := rule.Apply(&state.Strategy, prefs)
		if decision == nil {
			c.log.Debug("no strategy change", zap.String("rule", rule.Name()))
			continue
		}
		decision.Timestamp = c.now().Format(time.RFC3339)
		decisions = append(decisions, *decision)

		c.log.Info("strategy adjusted",
			zap.String("rule", rule.Name()),
			zap.String("decision", decision.Type),
			zap.String("impact", decision.Impact),
		)
	}

	state.Decisions = append(state.Decisions, decisions...)
	state.Decisions = tail(state.Decisions, c.opts.MaxDecisions)

	if err := c.store.Save(state); err != nil {
		return nil, fmt.Errorf("save strategy state: %w", err)
	}

	return decisions, nil
}

// CurrentStrategy returns the settings the search layer should use.
func (c *Controller) CurrentStrategy() Current {
	return c.loadState().Strategy
}

// RecentDecisions returns the last n decisions, oldest first. A
// non-positive n falls back to the default window.
func (c *Controller) RecentDecisions(n int) []Decision {
	if n <= 0 {
		n = defaultRecentDecisions
	}
	return tail(c.loadState().Decisions, n)
}

// AddRecommendation queues a suggestion for the user to review.
func (c *Controller) AddRecommendation(recType, description string) (*Recommendation, error) {
	state := c.loadState()

	rec := &Recommendation{
		ID:          c.newID(),
		Type:        recType,
		Description: description,
		Status:      RecommendationPending,
		CreatedAt:   c.now().Format(time.RFC3339),
	}
	state.Recommendations = append(state.Recommendations, rec)

	if err := c.store.Save(state); err != nil {
		return nil, fmt.Errorf("save strategy state: %w", err)
	}

	c.log.Info("recommendation queued",
		zap.String("id", rec.ID),
		zap.String("type", rec.Type),
	)

	return rec, nil
}

// PendingRecommendations lists the suggestions still awaiting a
// verdict.
func (c *Controller) PendingRecommendations() []*Recommendation {
	pending := []*Recommendation{}
	for _, rec := range c.loadState().Recommendations {
		if rec.Status == RecommendationPending {
			pending = append(pending, rec)
		}
	}
	return pending
}

// ResolveRecommendation records the user's verdict on one pending
// recommendation.
func (c *Controller) ResolveRecommendation(id string, accepted bool) error {
	state := c.loadState()

	for _, rec := range state.Recommendations {
		if rec.ID != id || rec.Status != RecommendationPending {
			continue
		}

		rec.Status = RecommendationDismissed
		if accepted {
			rec.Status = RecommendationAccepted
		}
		rec.ResolvedAt = c.now().Format(time.RFC3339)

		if err := c.store.Save(state); err != nil {
			return fmt.Errorf("save strategy state: %w", err)
		}

		c.log.Info("recommendation resolved",
			zap.String("id", rec.ID),
			zap.String("status", rec.Status),
		)

		return nil
	}

	return fmt.Errorf("%w: %s", ErrRecommendationNotFound, id)
}

// Summary renders the current strategy and the latest decisions as
// plain text.
func (c *Controller) Summary() string {
	state := c.loadState()
	strategy := state.Strategy

	lines := []string{
		"CURRENT STRATEGY",
		"----------------------------------------",
		"  Strictness: " + string(strategy.Strictness),
		"  Search breadth: " + string(strategy.SearchBreadth),
	}
	if len(strategy.QueryFocus) > 0 {
		lines = append(lines, "  Query focus: "+strings.Join(head(strategy.QueryFocus, 3), ", "))
	}
	if len(strategy.CompanyPriorities) > 0 {
		lines = append(lines, "  Priority companies: "+strings.Join(head(strategy.CompanyPriorities, 3), ", "))
	}

	if recent := tail(state.Decisions, 3); len(recent) > 0 {
		lines = append(lines, "\nRECENT DECISIONS:")
		for _, d := range recent {
			lines = append(lines, fmt.Sprintf("  - %s: %s", d.Type, logger.TruncateForLog(d.Impact, 50)))
		}
	}

	return strings.Join(lines, "\n")
}

// Document returns the persisted document, loaded fresh from disk.
func (c *Controller) Document() (*State, docstore.Outcome) {
	state := &State{}
	outcome := c.store.Load(state, state.init)
	return state, outcome
}

func (c *Controller) loadState() *State {
	state := &State{}
	c.store.Load(state, state.init)
	if state.Strategy.Strictness == "" {
		state.Strategy.Strictness = preferences.StrictnessModerate
	}
	if state.Strategy.SearchBreadth == "" {
		state.Strategy.SearchBreadth = BreadthWide
	}
	return state
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func tail[T any](s []T, n int) []T {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
