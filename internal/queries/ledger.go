// Package queries tracks how well each search query performs: how many
// jobs it found, and how the user judged them. The ledger ranks
// queries, suggests adjustments and derives new queries from learned
// signals.
package queries

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jobsense/jobsense/internal/catalog"
	"github.com/jobsense/jobsense/internal/docstore"
	"github.com/jobsense/jobsense/internal/signals"
	"github.com/jobsense/jobsense/internal/util"
	"go.uber.org/zap"
)

const documentVersion = "1.0"

const defaultSource = "google"

const (
	defaultKeyLimit          = 100
	defaultMinFeedback       = 3
	defaultDropBelow         = 0.15
	defaultReviewBelow       = 0.3
	defaultExpandAbove       = 0.6
	defaultExpandMinFeedback = 5
	defaultKeepAbove         = 0.5
	defaultMaxKeywordQueries = 5
	defaultKeywordRatioFloor = 2.0
	defaultMaxCompanyQueries = 3
	defaultRegion            = "UK"
)

// Suggested actions.
const (
	ActionDrop   = "drop"
	ActionReview = "review"
	ActionExpand = "expand"
	ActionKeep   = "keep"
)

// Suggestion priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Record is the tally kept per tracked query.
type Record struct {
	Query          string `json:"query"`
	Source         string `json:"source"`
	TotalJobsFound int    `json:"total_jobs_found"`
	JobsLiked      int    `json:"jobs_liked"`
	JobsDisliked   int    `json:"jobs_disliked"`
	JobsMaybe      int    `json:"jobs_maybe"`
	RunCount       int    `json:"run_count"`
	FirstRun       string `json:"first_run,omitempty"`
	LastRun        string `json:"last_run,omitempty"`
}

// Performance is the persisted query document, keyed by source plus a
// length-capped query string.
type Performance struct {
	docstore.Meta
	Queries          map[string]*Record `json:"queries"`
	GeneratedQueries []string           `json:"generated_queries"`
	LastUpdated      string             `json:"last_updated,omitempty"`
}

func (p *Performance) DocumentMeta() *docstore.Meta {
	return &p.Meta
}

func (p *Performance) init() {
	*p = Performance{
		Queries:          map[string]*Record{},
		GeneratedQueries: []string{},
	}
}

// Effectiveness is one ranked entry: the share of feedback on a query's
// jobs that was positive.
type Effectiveness struct {
	Query         string  `json:"query"`
	Source        string  `json:"source"`
	Effectiveness float64 `json:"effectiveness"`
	TotalJobs     int     `json:"total_jobs"`
	Liked         int     `json:"liked"`
	Disliked      int     `json:"disliked"`
	Maybe         int     `json:"maybe"`
	RunCount      int     `json:"run_count"`
	FeedbackCount int     `json:"feedback_count"`
}

// Suggestion is an advised adjustment to one query.
type Suggestion struct {
	Query    string `json:"query"`
	Action   string `json:"action"`
	Reason   string `json:"reason"`
	Stats    string `json:"stats"`
	Priority string `json:"priority"`
}

// Summary condenses the document for reports.
type Summary struct {
	TotalQueriesTracked int `json:"total_queries_tracked"`
	QueriesWithFeedback int `json:"queries_with_feedback"`
	HighPerformers      int `json:"high_performers"`
	LowPerformers       int `json:"low_performers"`
	Suggestions         int `json:"suggestions"`
	GeneratedQueries    int `json:"generated_queries"`
}

// Options control the suggestion thresholds and query generation. Zero
// fields fall back to defaults.
type Options struct {
	// KeyLimit caps the query part of a record key, in runes.
	KeyLimit int
	// MinFeedback is the feedback floor below which no suggestion is
	// made for a query.
	MinFeedback int
	DropBelow   float64
	ReviewBelow float64
	// ExpandAbove needs ExpandMinFeedback pieces of feedback on top of
	// the threshold before an expand suggestion is made.
	ExpandAbove       float64
	ExpandMinFeedback int
	KeepAbove         float64

	MaxKeywordQueries int
	// KeywordRatioFloor is the minimum liked/disliked ratio a keyword
	// needs before queries are generated from it.
	KeywordRatioFloor float64
	MaxCompanyQueries int
	// Region is appended to generated queries.
	Region string
}

// Ledger maintains the query performance document. Every operation
// reads the document fresh from disk.
type Ledger struct {
	store  *docstore.File
	logger *zap.Logger
	opts   Options
	now    func() time.Time
}

func NewLedger(path string, logger *zap.Logger, opts Options) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.KeyLimit == 0 {
		opts.KeyLimit = defaultKeyLimit
	}
	if opts.MinFeedback == 0 {
		opts.MinFeedback = defaultMinFeedback
	}
	if opts.DropBelow == 0 {
		opts.DropBelow = defaultDropBelow
	}
	if opts.ReviewBelow == 0 {
		opts.ReviewBelow = defaultReviewBelow
	}
	if opts.ExpandAbove == 0 {
		opts.ExpandAbove = defaultExpandAbove
	}
	if opts.ExpandMinFeedback == 0 {
		opts.ExpandMinFeedback = defaultExpandMinFeedback
	}
	if opts.KeepAbove == 0 {
		opts.KeepAbove = defaultKeepAbove
	}
	if opts.MaxKeywordQueries == 0 {
		opts.MaxKeywordQueries = defaultMaxKeywordQueries
	}
	if opts.KeywordRatioFloor == 0 {
		opts.KeywordRatioFloor = defaultKeywordRatioFloor
	}
	if opts.MaxCompanyQueries == 0 {
		opts.MaxCompanyQueries = defaultMaxCompanyQueries
	}
	if opts.Region == "" {
		opts.Region = defaultRegion
	}

	return &Ledger{
		store:  docstore.NewFile(path, documentVersion, logger),
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
}

// RecordResult tallies one run of a query: how many jobs it returned.
// An empty source defaults to google.
func (l *Ledger) RecordResult(query string, jobsFound int, source string) error {
	if source == "" {
		source = defaultSource
	}

	perf := l.loadPerformance()

	key := l.recordKey(source, query)
	rec := perf.Queries[key]
	if rec == nil {
		rec = &Record{
			Query:    query,
			Source:   source,
			FirstRun: l.now().Format(time.RFC3339),
		}
		perf.Queries[key] = rec
	}
	rec.TotalJobsFound += jobsFound
	rec.RunCount++
	rec.LastRun = l.now().Format(time.RFC3339)

	if err := l.save(perf); err != nil {
		return fmt.Errorf("record query results: %w", err)
	}

	l.logger.Debug("query run recorded",
		zap.String("key", key),
		zap.Int("jobs_found", jobsFound),
		zap.Int("run_count", rec.RunCount),
	)

	return nil
}

// RecordOutcome attributes one piece of job feedback to the query that
// found the job. Keys are scanned in sorted order, so the first
// substring match is deterministic. Feedback for a query that was
// never tracked is dropped.
func (l *Ledger) RecordOutcome(jobURL, sourceQuery string, status catalog.Status) error {
	if sourceQuery == "" || !status.Reviewed() {
		return nil
	}

	perf := l.loadPerformance()

	var matched *Record
	for _, key := range sortedKeys(perf.Queries) {
		if rec := perf.Queries[key]; strings.Contains(rec.Query, sourceQuery) {
			matched = rec
			break
		}
	}
	if matched == nil {
		l.logger.Debug("feedback for untracked query",
			zap.String("source_query", sourceQuery),
			zap.String("job_url", jobURL),
		)
		return nil
	}

	switch status {
	case catalog.StatusLiked:
		matched.JobsLiked++
	case catalog.StatusDisliked:
		matched.JobsDisliked++
	case catalog.StatusMaybe:
		matched.JobsMaybe++
	}

	if err := l.save(perf); err != nil {
		return fmt.Errorf("record query outcome: %w", err)
	}

	return nil
}

// Effectiveness ranks all tracked queries. Queries with feedback come
// first, ordered by their liked share; queries that only ran sit below
// them at a neutral score.
func (l *Ledger) Effectiveness() []Effectiveness {
	return effectivenessOf(l.loadPerformance())
}

// SuggestAdjustments recommends dropping, reviewing, expanding or
// keeping queries that have collected enough feedback.
func (l *Ledger) SuggestAdjustments() []Suggestion {
	return l.suggestionsOf(effectivenessOf(l.loadPerformance()))
}

// GenerateQueries derives new search queries from the strongest
// learned signals and stores them, deduplicated, in the document. It
// returns every query derived in this pass, including already-known
// ones.
func (l *Ledger) GenerateQueries(bundle *signals.Bundle) ([]string, error) {
	generated := []string{}

	positives := bundle.Differential.StrongPositives
	if len(positives) > l.opts.MaxKeywordQueries {
		positives = positives[:l.opts.MaxKeywordQueries]
	}
	for _, kw := range positives {
		if kw.Ratio > l.opts.KeywordRatioFloor {
			generated = append(generated,
				fmt.Sprintf("%q %s job graduate", kw.Name, l.opts.Region),
				fmt.Sprintf("site:greenhouse.io %q %s", kw.Name, l.opts.Region),
				fmt.Sprintf("site:lever.co %q %s", kw.Name, l.opts.Region),
			)
		}
	}

	companies := bundle.Differential.LikedCompanies
	if len(companies) > l.opts.MaxCompanyQueries {
		companies = companies[:l.opts.MaxCompanyQueries]
	}
	for _, company := range companies {
		generated = append(generated,
			fmt.Sprintf("site:%s.com careers", strings.ReplaceAll(company.Name, " ", "")),
			fmt.Sprintf("%q careers graduate %s", company.Name, l.opts.Region),
		)
	}

	perf := l.loadPerformance()

	known := make(map[string]struct{}, len(perf.GeneratedQueries))
	for _, q := range perf.GeneratedQueries {
		known[q] = struct{}{}
	}
	added := 0
	for _, q := range generated {
		if _, ok := known[q]; !ok {
			perf.GeneratedQueries = append(perf.GeneratedQueries, q)
			known[q] = struct{}{}
			added++
		}
	}

	if err := l.save(perf); err != nil {
		return nil, fmt.Errorf("store generated queries: %w", err)
	}

	l.logger.Info("search queries generated",
		zap.Int("derived", len(generated)),
		zap.Int("new", added),
	)

	return generated, nil
}

// Summary condenses tracking state for reports.
func (l *Ledger) Summary() *Summary {
	perf := l.loadPerformance()
	ranked := effectivenessOf(perf)
	suggestions := l.suggestionsOf(ranked)

	s := &Summary{
		TotalQueriesTracked: len(perf.Queries),
		Suggestions:         len(suggestions),
		GeneratedQueries:    len(perf.GeneratedQueries),
	}
	for _, q := range ranked {
		if q.FeedbackCount > 0 {
			s.QueriesWithFeedback++
		}
		if q.FeedbackCount < l.opts.MinFeedback {
			continue
		}
		if q.Effectiveness > l.opts.KeepAbove {
			s.HighPerformers++
		}
		if q.Effectiveness < l.opts.ReviewBelow {
			s.LowPerformers++
		}
	}

	return s
}

// Document returns the persisted document, loaded fresh from disk.
func (l *Ledger) Document() (*Performance, docstore.Outcome) {
	perf := &Performance{}
	outcome := l.store.Load(perf, perf.init)
	return perf, outcome
}

func (l *Ledger) loadPerformance() *Performance {
	perf := &Performance{}
	l.store.Load(perf, perf.init)
	if perf.Queries == nil {
		perf.Queries = map[string]*Record{}
	}
	return perf
}

func (l *Ledger) save(perf *Performance) error {
	perf.LastUpdated = l.now().Format(time.RFC3339)
	return l.store.Save(perf)
}

func (l *Ledger) recordKey(source, query string) string {
	runes := []rune(query)
	if len(runes) > l.opts.KeyLimit {
		query = string(runes[:l.opts.KeyLimit])
	}
	return source + ":" + query
}

func (l *Ledger) suggestionsOf(ranked []Effectiveness) []Suggestion {
	suggestions := []Suggestion{}

	for _, q := range ranked {
		if q.FeedbackCount < l.opts.MinFeedback {
			continue
		}

		stats := fmt.Sprintf("%d liked vs %d disliked", q.Liked, q.Disliked)

		switch {
		case q.Effectiveness < l.opts.DropBelow:
			suggestions = append(suggestions, Suggestion{
				Query:    q.Query,
				Action:   ActionDrop,
				Reason:   fmt.Sprintf("Very low effectiveness (%s)", util.Percent(q.Effectiveness)),
				Stats:    stats,
				Priority: PriorityHigh,
			})
		case q.Effectiveness < l.opts.ReviewBelow:
			suggestions = append(suggestions, Suggestion{
				Query:    q.Query,
				Action:   ActionReview,
				Reason:   fmt.Sprintf("Low effectiveness (%s)", util.Percent(q.Effectiveness)),
				Stats:    stats,
				Priority: PriorityMedium,
			})
		case q.Effectiveness > l.opts.ExpandAbove && q.FeedbackCount >= l.opts.ExpandMinFeedback:
			suggestions = append(suggestions, Suggestion{
				Query:    q.Query,
				Action:   ActionExpand,
				Reason:   fmt.Sprintf("High effectiveness (%s)", util.Percent(q.Effectiveness)),
				Stats:    stats,
				Priority: PriorityHigh,
			})
		case q.Effectiveness > l.opts.KeepAbove:
			suggestions = append(suggestions, Suggestion{
				Query:    q.Query,
				Action:   ActionKeep,
				Reason:   fmt.Sprintf("Good effectiveness (%s)", util.Percent(q.Effectiveness)),
				Stats:    stats,
				Priority: PriorityLow,
			})
		}
	}

	// High priority first; the stable sort keeps the effectiveness
	// order within each band.
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority == PriorityHigh && suggestions[j].Priority != PriorityHigh
	})

	return suggestions
}

func effectivenessOf(perf *Performance) []Effectiveness {
	results := make([]Effectiveness, 0, len(perf.Queries))

	for _, key := range sortedKeys(perf.Queries) {
		rec := perf.Queries[key]
		feedback := rec.JobsLiked + rec.JobsDisliked

		var eff float64
		switch {
		case feedback > 0:
			eff = float64(rec.JobsLiked) / float64(feedback)
		case rec.TotalJobsFound > 0:
			// Ran and found jobs, but nothing reviewed yet.
			eff = 0.5
		}

		results = append(results, Effectiveness{
			Query:         rec.Query,
			Source:        rec.Source,
			Effectiveness: util.Round3(eff),
			TotalJobs:     rec.TotalJobsFound,
			Liked:         rec.JobsLiked,
			Disliked:      rec.JobsDisliked,
			Maybe:         rec.JobsMaybe,
			RunCount:      rec.RunCount,
			FeedbackCount: feedback,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if (results[i].FeedbackCount > 0) != (results[j].FeedbackCount > 0) {
			return results[i].FeedbackCount > 0
		}
		return results[i].Effectiveness > results[j].Effectiveness
	})

	return results
}

func sortedKeys(queries map[string]*Record) []string {
	keys := make([]string, 0, len(queries))
	for key := range queries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
