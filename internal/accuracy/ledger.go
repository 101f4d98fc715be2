// Package accuracy keeps a rolling history of filtering accuracy so
// improvement can be measured across review sessions, not just within
// one.
package accuracy

import (
	"fmt"
	"sort"
	"time"

	"github.com/jobsense/jobsense/internal/catalog"
	"github.com/jobsense/jobsense/internal/docstore"
	"github.com/jobsense/jobsense/internal/signals"
	"github.com/jobsense/jobsense/internal/util"
	"go.uber.org/zap"
)

const documentVersion = "1.0"

const (
	defaultTrendDelta   = 0.05
	defaultRecentWindow = 2
	defaultMaxSessions  = 50
	defaultMaxPeriods   = 12
)

// Trend labels.
const (
	TrendInsufficientData = "insufficient_data"
	TrendEstablishing     = "establishing"
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
)

// Session is one recorded accuracy snapshot.
type Session struct {
	Timestamp     string  `json:"timestamp"`
	TotalReviewed int     `json:"total_reviewed"`
	Liked         int     `json:"liked"`
	Disliked      int     `json:"disliked"`
	Maybe         int     `json:"maybe"`
	Precision     float64 `json:"precision"`
}

// Period aggregates the retained sessions of one ISO week.
type Period struct {
	Week       string  `json:"week"`
	Accuracy   float64 `json:"accuracy"`
	SampleSize int     `json:"sample_size"`
	Liked      int     `json:"liked"`
	Disliked   int     `json:"disliked"`
}

// Overall sums every retained session.
type Overall struct {
	TotalReviewed int     `json:"total_reviewed"`
	TotalLiked    int     `json:"total_liked"`
	TotalDisliked int     `json:"total_disliked"`
	TotalMaybe    int     `json:"total_maybe"`
	Precision     float64 `json:"precision"`
	LastUpdated   string  `json:"last_updated"`
}

// History is the persisted accuracy document.
type History struct {
	docstore.Meta
	Overall  *Overall  `json:"overall_accuracy,omitempty"`
	Periods  []Period  `json:"by_time_period"`
	Sessions []Session `json:"sessions"`
}

func (h *History) DocumentMeta() *docstore.Meta {
	return &h.Meta
}

func (h *History) init() {
	*h = History{
		Periods:  []Period{},
		Sessions: []Session{},
	}
}

// Trend describes how accuracy moved over the retained weeks.
type Trend struct {
	Trend   string   `json:"trend"`
	Message string   `json:"message"`
	Current float64  `json:"current_accuracy"`
	Periods []Period `json:"periods"`
}

// Summary condenses the history for reports.
type Summary struct {
	TotalJobsReviewed int     `json:"total_jobs_reviewed"`
	OverallPrecision  float64 `json:"overall_precision"`
	Trend             string  `json:"trend"`
	TrendMessage      string  `json:"trend_message"`
	SessionsRecorded  int     `json:"sessions_recorded"`
}

// Options control retention and trend sensitivity. Zero fields fall
// back to defaults.
type Options struct {
	// TrendDelta is how far the recent average must move from the older
	// average before the trend counts as improving or declining.
	TrendDelta float64
	// RecentWindow is how many of the newest weekly buckets form the
	// "recent" side of the comparison.
	RecentWindow int
	MaxSessions  int
	MaxPeriods   int
}

// Ledger records and reports accuracy history. Every operation reads
// the document fresh from disk, so concurrent runs see each other's
// writes.
type Ledger struct {
	store     *docstore.File
	extractor *signals.Extractor
	logger    *zap.Logger
	opts      Options
	now       func() time.Time
}

func NewLedger(path string, extractor *signals.Extractor, logger *zap.Logger, opts Options) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TrendDelta == 0 {
		opts.TrendDelta = defaultTrendDelta
	}
	if opts.RecentWindow == 0 {
		opts.RecentWindow = defaultRecentWindow
	}
	if opts.MaxSessions == 0 {
		opts.MaxSessions = defaultMaxSessions
	}
	if opts.MaxPeriods == 0 {
		opts.MaxPeriods = defaultMaxPeriods
	}

	return &Ledger{
		store:     docstore.NewFile(path, documentVersion, logger),
		extractor: extractor,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// RecordSession snapshots the catalog's current feedback counts into
// the history. A catalog without reviewed jobs leaves the history
// untouched and still returns the (zeroed) metrics.
func (l *Ledger) RecordSession(c *catalog.Catalog) (*signals.Metrics, error) {
	metrics := l.extractor.Accuracy(c)
	if metrics.TotalReviewed == 0 {
		l.logger.Debug("no reviewed jobs, accuracy session skipped")
		return metrics, nil
	}

	hist := l.loadHistory()

	hist.Sessions = append(hist.Sessions, Session{
		Timestamp:     l.now().Format(time.RFC3339),
		TotalReviewed: metrics.TotalReviewed,
		Liked:         metrics.Liked,
		Disliked:      metrics.Disliked,
		Maybe:         metrics.Maybe,
		Precision:     metrics.Precision,
	})
	if len(hist.Sessions) > l.opts.MaxSessions {
		hist.Sessions = hist.Sessions[len(hist.Sessions)-l.opts.MaxSessions:]
	}

	l.refreshOverall(hist)
	l.refreshPeriods(hist)

	if err := l.store.Save(hist); err != nil {
		return nil, fmt.Errorf("record accuracy session: %w", err)
	}

	l.logger.Info("accuracy session recorded",
		zap.Int("total_reviewed", metrics.TotalReviewed),
		zap.Float64("precision", metrics.Precision),
		zap.Int("sessions", len(hist.Sessions)),
	)

	return metrics, nil
}

// Trend compares the newest weekly buckets against the older ones.
func (l *Ledger) Trend() *Trend {
	return l.trendOf(l.loadHistory().Periods)
}

// Summary condenses overall accuracy and the current trend.
func (l *Ledger) Summary() *Summary {
	hist := l.loadHistory()
	trend := l.trendOf(hist.Periods)

	s := &Summary{
		Trend:            trend.Trend,
		TrendMessage:     trend.Message,
		SessionsRecorded: len(hist.Sessions),
	}
	if hist.Overall != nil {
		s.TotalJobsReviewed = hist.Overall.TotalReviewed
		s.OverallPrecision = hist.Overall.Precision
	}

	return s
}

// History returns the persisted document, loaded fresh from disk.
func (l *Ledger) History() (*History, docstore.Outcome) {
	hist := &History{}
	outcome := l.store.Load(hist, hist.init)
	return hist, outcome
}

func (l *Ledger) loadHistory() *History {
	hist := &History{}
	l.store.Load(hist, hist.init)
	return hist
}

func (l *Ledger) refreshOverall(hist *History) {
	if len(hist.Sessions) == 0 {
		return
	}

	overall := &Overall{LastUpdated: l.now().Format(time.RFC3339)}
	for _, s := range hist.Sessions {
		overall.TotalReviewed += s.TotalReviewed
		overall.TotalLiked += s.Liked
		overall.TotalDisliked += s.Disliked
		overall.TotalMaybe += s.Maybe
	}
	if overall.TotalReviewed == 0 {
		return
	}
	overall.Precision = util.Round3(float64(overall.TotalLiked) / float64(overall.TotalReviewed))

	hist.Overall = overall
}

// refreshPeriods rebuilds the weekly buckets from the retained
// sessions. Sessions whose timestamp no longer parses are skipped so
// one bad record cannot sink the rebuild.
func (l *Ledger) refreshPeriods(hist *History) {
	if len(hist.Sessions) == 0 {
		return
	}

	type bucket struct {
		liked, disliked, maybe, total int
	}
	weekly := map[string]*bucket{}

	for _, s := range hist.Sessions {
		ts, err := time.Parse(time.RFC3339, s.Timestamp)
		if err != nil {
			l.logger.Debug("skipping session with unparseable timestamp",
				zap.String("timestamp", s.Timestamp))
			continue
		}

		year, week := ts.ISOWeek()
		key := fmt.Sprintf("%d-W%02d", year, week)

		b := weekly[key]
		if b == nil {
			b = &bucket{}
			weekly[key] = b
		}
		b.liked += s.Liked
		b.disliked += s.Disliked
		b.maybe += s.Maybe
		b.total += s.TotalReviewed
	}

	weeks := make([]string, 0, len(weekly))
	for week := range weekly {
		weeks = append(weeks, week)
	}
	sort.Strings(weeks)

	periods := make([]Period, 0, len(weeks))
	for _, week := range weeks {
		b := weekly[week]
		if b.total == 0 {
			continue
		}
		periods = append(periods, Period{
			Week:       week,
			Accuracy:   util.Round3(float64(b.liked) / float64(b.total)),
			SampleSize: b.total,
			Liked:      b.liked,
			Disliked:   b.disliked,
		})
	}
	if len(periods) > l.opts.MaxPeriods {
		periods = periods[len(periods)-l.opts.MaxPeriods:]
	}

	hist.Periods = periods
}

func (l *Ledger) trendOf(periods []Period) *Trend {
	if len(periods) < 2 {
		t := &Trend{
			Trend:   TrendInsufficientData,
			Message: "Need at least 2 weeks of data for trend analysis",
			Periods: periods,
		}
		if len(periods) > 0 {
			t.Current = periods[len(periods)-1].Accuracy
		}
		return t
	}

	window := l.opts.RecentWindow
	if window > len(periods) {
		window = len(periods)
	}

	recent := periods[len(periods)-window:]
	older := periods[:len(periods)-window]

	var recentSum float64
	for _, p := range recent {
		recentSum += p.Accuracy
	}
	recentAvg := recentSum / float64(len(recent))

	if len(older) == 0 {
		return &Trend{
			Trend:   TrendEstablishing,
			Message: fmt.Sprintf("Current accuracy: %.0f%%", recentAvg*100),
			Current: util.Round3(recentAvg),
			Periods: periods,
		}
	}

	var olderSum float64
	for _, p := range older {
		olderSum += p.Accuracy
	}
	olderAvg := olderSum / float64(len(older))

	var label, message string
	switch {
	case recentAvg > olderAvg+l.opts.TrendDelta:
		label = TrendImproving
		message = fmt.Sprintf("Accuracy improving: %.0f%% -> %.0f%%", olderAvg*100, recentAvg*100)
	case recentAvg < olderAvg-l.opts.TrendDelta:
		label = TrendDeclining
		message = fmt.Sprintf("Accuracy declining: %.0f%% -> %.0f%%", olderAvg*100, recentAvg*100)
	default:
		label = TrendStable
		message = fmt.Sprintf("Accuracy stable around %.0f%%", recentAvg*100)
	}

	return &Trend{
		Trend:   label,
		Message: message,
		Current: util.Round3(recentAvg),
		Periods: periods,
	}
}
