// Package preferences turns extracted feedback signals into a persisted
// preference document: learned patterns, personalization notes for the
// filtering prompt, and a recommended strictness level.
package preferences

import (
	"fmt"
	"time"

	"github.com/jobsense/jobsense/internal/catalog"
	"github.com/jobsense/jobsense/internal/docstore"
	"github.com/jobsense/jobsense/internal/signals"
	"github.com/jobsense/jobsense/internal/util"
	"go.uber.org/zap"
)

const documentVersion = "1.0"

// Strictness is a filtering strictness level.
type Strictness string

const (
	StrictnessLenient     Strictness = "lenient"
	StrictnessModerate    Strictness = "moderate"
	StrictnessStrict      Strictness = "strict"
	StrictnessVeryLenient Strictness = "very_lenient"
)

// LearningStats summarize the feedback the last learning pass saw.
type LearningStats struct {
	TotalFeedbackProcessed int     `json:"total_feedback_processed"`
	LikedCount             int     `json:"liked_count"`
	DislikedCount          int     `json:"disliked_count"`
	MaybeCount             int     `json:"maybe_count"`
	Precision              float64 `json:"precision"`
}

// Adjustment is the strictness recommendation derived from precision.
type Adjustment struct {
	Current     Strictness `json:"current"`
	Recommended Strictness `json:"recommended"`
	Reason      string     `json:"reason"`
}

// Document is the persisted preference state.
type Document struct {
	docstore.Meta
	LastUpdated        string          `json:"last_updated,omitempty"`
	LearningStats      LearningStats   `json:"learning_stats"`
	DiscoveredPatterns *signals.Bundle `json:"discovered_patterns,omitempty"`
	Notes              string          `json:"dynamic_personalization_notes"`
	Strictness         Adjustment      `json:"strictness_adjustment"`
}

func (d *Document) DocumentMeta() *docstore.Meta {
	return &d.Meta
}

func (d *Document) init() {
	*d = Document{
		Strictness: Adjustment{
			Current:     StrictnessModerate,
			Recommended: StrictnessModerate,
			Reason:      "No feedback data yet",
		},
	}
}

// LearnResult summarizes one learning pass.
type LearnResult struct {
	PatternsFound         int              `json:"patterns_found"`
	NegativePatternsFound int              `json:"negative_patterns_found"`
	Accuracy              *signals.Metrics `json:"accuracy"`
	NotesGenerated        bool             `json:"notes_generated"`
	Strictness            Strictness       `json:"strictness_recommendation"`
}

// LearningSummary condenses the document for reports.
type LearningSummary struct {
	LastUpdated    string        `json:"last_updated,omitempty"`
	Stats          LearningStats `json:"stats"`
	Strictness     Adjustment    `json:"strictness"`
	HasLearnedData bool          `json:"has_learned_data"`
}

// Breakpoints are the precision bands of the strictness table.
type Breakpoints struct {
	// MinReviews is the feedback floor below which no recommendation
	// beyond moderate is made.
	MinReviews int
	VeryLow    float64
	Low        float64
	Calibrated float64
	Good       float64
}

// Options control notes rendering and the strictness table. Zero
// fields fall back to defaults.
type Options struct {
	// MinReviewsForNotes is the feedback floor below which the notes
	// block only states that more data is needed.
	MinReviewsForNotes int
	TopKeywords        int
	TopCompanies       int
	// LowPrecision is the guidance threshold below which the notes tell
	// the filter to be more selective.
	LowPrecision float64
	// HighPrecision is the guidance threshold above which the notes
	// confirm the current approach.
	HighPrecision float64
	Breakpoints   Breakpoints
}

const (
	defaultMinReviewsForNotes = 5
	defaultTopKeywords        = 7
	defaultTopCompanies       = 5
	defaultLowPrecision       = 0.3
	defaultHighPrecision      = 0.6
)

func defaultBreakpoints() Breakpoints {
	return Breakpoints{
		MinReviews: 10,
		VeryLow:    0.2,
		Low:        0.35,
		Calibrated: 0.5,
		Good:       0.7,
	}
}

// Learner maintains the preference document. Every operation reads the
// document fresh from disk.
type Learner struct {
	store     *docstore.File
	extractor *signals.Extractor
	logger    *zap.Logger
	opts      Options
	now       func() time.Time
}

func NewLearner(path string, extractor *signals.Extractor, logger *zap.Logger, opts Options) *Learner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MinReviewsForNotes == 0 {
		opts.MinReviewsForNotes = defaultMinReviewsForNotes
	}
	if opts.TopKeywords == 0 {
		opts.TopKeywords = defaultTopKeywords
	}
	if opts.TopCompanies == 0 {
		opts.TopCompanies = defaultTopCompanies
	}
	if opts.LowPrecision == 0 {
		opts.LowPrecision = defaultLowPrecision
	}
	if opts.HighPrecision == 0 {
		opts.HighPrecision = defaultHighPrecision
	}
	if opts.Breakpoints == (Breakpoints{}) {
		opts.Breakpoints = defaultBreakpoints()
	}

	return &Learner{
		store:     docstore.NewFile(path, documentVersion, logger),
		extractor: extractor,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// LearnFromFeedback extracts signals from the catalog and rewrites the
// preference document with fresh patterns, notes and a strictness
// recommendation.
func (l *Learner) LearnFromFeedback(c *catalog.Catalog) (*LearnResult, error) {
	bundle := l.extractor.Extract(c)
	metrics := l.extractor.Accuracy(c)

	doc := l.loadDocument()
	doc.LastUpdated = l.now().Format(time.RFC3339)
	doc.LearningStats = LearningStats{
		TotalFeedbackProcessed: metrics.TotalReviewed,
		LikedCount:             metrics.Liked,
		DislikedCount:          metrics.Disliked,
		MaybeCount:             metrics.Maybe,
		Precision:              metrics.Precision,
	}
	doc.DiscoveredPatterns = bundle
	doc.Notes = l.renderNotes(bundle, metrics)
	doc.Strictness = l.recommendStrictness(metrics)

	if err := l.store.Save(doc); err != nil {
		return nil, fmt.Errorf("save learned preferences: %w", err)
	}

	l.logger.Info("preferences updated from feedback",
		zap.Int("total_reviewed", metrics.TotalReviewed),
		zap.Int("patterns_found", len(bundle.Differential.StrongPositives)),
		zap.Int("negative_patterns_found", len(bundle.Differential.StrongNegatives)),
		zap.String("strictness", string(doc.Strictness.Recommended)),
	)

	return &LearnResult{
		PatternsFound:         len(bundle.Differential.StrongPositives),
		NegativePatternsFound: len(bundle.Differential.StrongNegatives),
		Accuracy:              metrics,
		NotesGenerated:        doc.Notes != "",
		Strictness:            doc.Strictness.Recommended,
	}, nil
}

// Notes returns the current personalization notes block, ready to be
// injected into a filtering prompt.
func (l *Learner) Notes() string {
	return l.loadDocument().Notes
}

// Recommendation returns the recommended strictness level.
func (l *Learner) Recommendation() Strictness {
	return l.loadDocument().Strictness.Recommended
}

// Summary condenses the document for reports.
func (l *Learner) Summary() *LearningSummary {
	doc := l.loadDocument()

	return &LearningSummary{
		LastUpdated:    doc.LastUpdated,
		Stats:          doc.LearningStats,
		Strictness:     doc.Strictness,
		HasLearnedData: doc.Notes != "",
	}
}

// Document returns the persisted document, loaded fresh from disk.
func (l *Learner) Document() (*Document, docstore.Outcome) {
	doc := &Document{}
	outcome := l.store.Load(doc, doc.init)
	return doc, outcome
}

func (l *Learner) loadDocument() *Document {
	doc := &Document{}
	l.store.Load(doc, doc.init)
	return doc
}

// recommendStrictness maps precision to the strictness table. The
// current level is inferred alongside the recommendation so the
// controller can log a meaningful transition.
func (l *Learner) recommendStrictness(metrics *signals.Metrics) Adjustment {
	bp := l.opts.Breakpoints

	if metrics.TotalReviewed < bp.MinReviews {
		return Adjustment{
			Current:     StrictnessModerate,
			Recommended: StrictnessModerate,
			Reason:      fmt.Sprintf("Not enough feedback data yet (need %d+ reviews)", bp.MinReviews),
		}
	}

	precision := metrics.Precision
	switch {
	case precision < bp.VeryLow:
		return Adjustment{
			Current:     StrictnessLenient,
			Recommended: StrictnessStrict,
			Reason:      fmt.Sprintf("Very low precision (%s) - too many irrelevant jobs passing filter", util.Percent(precision)),
		}
	case precision < bp.Low:
		return Adjustment{
			Current:     StrictnessLenient,
			Recommended: StrictnessModerate,
			Reason:      fmt.Sprintf("Low precision (%s) - tighten filtering somewhat", util.Percent(precision)),
		}
	case precision < bp.Calibrated:
		return Adjustment{
			Current:     StrictnessModerate,
			Recommended: StrictnessModerate,
			Reason:      fmt.Sprintf("Moderate precision (%s) - filtering calibrated reasonably", util.Percent(precision)),
		}
	case precision < bp.Good:
		return Adjustment{
			Current:     StrictnessModerate,
			Recommended: StrictnessLenient,
			Reason:      fmt.Sprintf("Good precision (%s) - could explore more opportunities", util.Percent(precision)),
		}
	default:
		return Adjustment{
			Current:     StrictnessStrict,
			Recommended: StrictnessVeryLenient,
			Reason:      fmt.Sprintf("High precision (%s) - may be missing good opportunities, try wider net", util.Percent(precision)),
		}
	}
}
