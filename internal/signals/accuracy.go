package signals

import (
	"github.com/jobsense/jobsense/internal/catalog"
	"github.com/jobsense/jobsense/internal/util"
)

const minReviewsForScore = 10

// Metrics describe how well past filtering matched the user's actual
// interest, derived purely from feedback counts.
type Metrics struct {
	TotalReviewed     int     `json:"total_reviewed"`
	Liked             int     `json:"liked"`
	Maybe             int     `json:"maybe"`
	Disliked          int     `json:"disliked"`
	TruePositiveRate  float64 `json:"true_positive_rate"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
	UncertainRate     float64 `json:"uncertain_rate"`
	Precision         float64 `json:"precision"`
	Message           string  `json:"message"`
}

// Accuracy computes filtering accuracy from the catalog's feedback
// counts. With no reviewed jobs it returns zeroed metrics rather than
// an error.
func (e *Extractor) Accuracy(c *catalog.Catalog) *Metrics {
	liked := c.CountByStatus(catalog.StatusLiked)
	maybe := c.CountByStatus(catalog.StatusMaybe)
	disliked := c.CountByStatus(catalog.StatusDisliked)

	total := liked + maybe + disliked
	if total == 0 {
		return &Metrics{Message: "No feedback data yet"}
	}

	precision := float64(liked) / float64(total)

	return &Metrics{
		TotalReviewed:     total,
		Liked:             liked,
		Maybe:             maybe,
		Disliked:          disliked,
		TruePositiveRate:  util.Round3(float64(liked) / float64(total)),
		FalsePositiveRate: util.Round3(float64(disliked) / float64(total)),
		UncertainRate:     util.Round3(float64(maybe) / float64(total)),
		Precision:         util.Round3(precision),
		Message:           accuracyMessage(precision, total),
	}
}

func accuracyMessage(precision float64, total int) string {
	switch {
	case total < minReviewsForScore:
		return "Not enough data yet (need 10+ reviews)"
	case precision >= 0.6:
		return "Excellent! Filtering is well-calibrated to your preferences"
	case precision >= 0.4:
		return "Good calibration, with room for improvement"
	case precision >= 0.2:
		return "Moderate accuracy - learning from your feedback to improve"
	default:
		return "Low accuracy - significant learning needed"
	}
}
