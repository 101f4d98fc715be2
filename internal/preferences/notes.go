package preferences

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jobsense/jobsense/internal/signals"
	"github.com/jobsense/jobsense/internal/util"
)

// renderNotes builds the plain-text block injected into the filtering
// prompt. Below the feedback floor it only reports how much data is
// still missing.
func (l *Learner) renderNotes(bundle *signals.Bundle, metrics *signals.Metrics) string {
	bar := strings.Repeat("=", 50)
	notes := []string{bar, "LEARNED FROM USER FEEDBACK", bar}

	total := metrics.TotalReviewed
	if total < l.opts.MinReviewsForNotes {
		notes = append(notes, fmt.Sprintf("\n(Only %d jobs reviewed so far - need more data)", total))
		return strings.Join(notes, "\n")
	}

	notes = append(notes, fmt.Sprintf("\nFeedback summary: %d liked, %d disliked, %d maybe",
		metrics.Liked, metrics.Disliked, metrics.Maybe))
	notes = append(notes, fmt.Sprintf("Current precision: %s", util.Percent(metrics.Precision)))

	if positives := topByRatio(bundle.Differential.StrongPositives, l.opts.TopKeywords); len(positives) > 0 {
		notes = append(notes, "\nSTRONGLY PREFERRED (user consistently likes these keywords):")
		for _, kw := range positives {
			notes = append(notes, fmt.Sprintf("  + '%s' (liked %dx vs disliked %dx)", kw.Name, kw.Liked, kw.Disliked))
		}
	}

	if negatives := topByRatio(bundle.Differential.StrongNegatives, l.opts.TopKeywords); len(negatives) > 0 {
		notes = append(notes, "\nSTRONGLY AVOIDED (user consistently dislikes these keywords):")
		for _, kw := range negatives {
			notes = append(notes, fmt.Sprintf("  - '%s' (disliked %dx vs liked %dx)", kw.Name, kw.Disliked, kw.Liked))
		}
	}

	if companies := bundle.Differential.LikedCompanies; len(companies) > 0 {
		notes = append(notes, "\nPREFERRED COMPANIES (user has liked multiple jobs from):")
		for _, company := range head(companies, l.opts.TopCompanies) {
			notes = append(notes, fmt.Sprintf("  + %s (%d liked)", company.Name, company.Liked))
		}
	}

	if companies := bundle.Differential.DislikedCompanies; len(companies) > 0 {
		notes = append(notes, "\nAVOIDED COMPANIES (user has disliked multiple jobs from):")
		for _, company := range head(companies, l.opts.TopCompanies) {
			notes = append(notes, fmt.Sprintf("  - %s (%d disliked)", company.Name, company.Disliked))
		}
	}

	if metrics.Precision < l.opts.LowPrecision {
		notes = append(notes,
			fmt.Sprintf("\nFILTERING GUIDANCE: User only liked %s of suggestions.", util.Percent(metrics.Precision)),
			"  -> Be MORE selective! Apply stricter criteria.",
			"  -> Prioritize jobs with the STRONGLY PREFERRED keywords above.",
		)
	} else if metrics.Precision > l.opts.HighPrecision {
		notes = append(notes,
			fmt.Sprintf("\nFILTERING GUIDANCE: User liked %s of suggestions.", util.Percent(metrics.Precision)),
			"  -> Good calibration! Continue with current approach.",
		)
	}

	notes = append(notes, "\n"+bar)

	return strings.Join(notes, "\n")
}

// topByRatio keeps the n strongest keyword signals. The sort is stable
// so equal ratios keep their count order.
func topByRatio(kws []signals.KeywordSignal, n int) []signals.KeywordSignal {
	out := make([]signals.KeywordSignal, len(kws))
	copy(out, kws)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ratio > out[j].Ratio })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func head(companies []signals.CompanySignal, n int) []signals.CompanySignal {
	if len(companies) > n {
		return companies[:n]
	}
	return companies
}
