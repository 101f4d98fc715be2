package queries

import (
	"fmt"
	"strings"

	"github.com/jobsense/jobsense/internal/logger"
	"github.com/jobsense/jobsense/internal/util"
)

const reportBar = "=================================================="

// Report renders the query rankings and suggestions as plain text.
func (l *Ledger) Report() string {
	ranked := effectivenessOf(l.loadPerformance())
	suggestions := l.suggestionsOf(ranked)

	lines := []string{
		"QUERY PERFORMANCE REPORT",
		reportBar,
	}

	top := []Effectiveness{}
	for _, q := range ranked {
		if q.Effectiveness > l.opts.KeepAbove && q.FeedbackCount >= l.opts.MinFeedback {
			top = append(top, q)
		}
	}
	if len(top) > 0 {
		lines = append(lines, "\nTOP PERFORMING QUERIES:")
		for _, q := range head(top, 5) {
			lines = append(lines,
				fmt.Sprintf("  [%s] %s", util.Percent(q.Effectiveness), logger.TruncateForLog(q.Query, 50)),
				fmt.Sprintf("       %d liked, %d disliked", q.Liked, q.Disliked),
			)
		}
	}

	bottom := []Effectiveness{}
	for _, q := range ranked {
		if q.Effectiveness < l.opts.ReviewBelow && q.FeedbackCount >= l.opts.MinFeedback {
			bottom = append(bottom, q)
		}
	}
	if len(bottom) > 0 {
		lines = append(lines, "\nLOW PERFORMING QUERIES:")
		for _, q := range head(bottom, 5) {
			lines = append(lines,
				fmt.Sprintf("  [%s] %s", util.Percent(q.Effectiveness), logger.TruncateForLog(q.Query, 50)),
				"       Consider removing or modifying",
			)
		}
	}

	if len(suggestions) > 0 {
		lines = append(lines, "\nRECOMMENDATIONS:")
		for _, s := range head(suggestions, 5) {
			lines = append(lines,
				fmt.Sprintf("  [%s] %s", strings.ToUpper(s.Action), logger.TruncateForLog(s.Query, 40)),
				"       "+s.Reason,
			)
		}
	}

	lines = append(lines, "\n"+reportBar)

	return strings.Join(lines, "\n")
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
