package cmd

import (
	"fmt"

	"github.com/jobsense/jobsense/internal/preferences"
	"github.com/jobsense/jobsense/internal/strategy"
	"github.com/jobsense/jobsense/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Run a learning pass over the reviewed jobs",
	Run: func(_ *cobra.Command, _ []string) {
		learn()
	},
}

func init() {
	rootCmd.AddCommand(learnCmd)
}

// learn is the closed-loop pass: record the review session, relearn
// preferences from the feedback, let the strategy rules react to them and
// derive new search queries. A component that fails to persist is logged
// and skipped so one bad write never blocks the rest of the pass.
func learn() {
	c := mustCore()

	c.log.Info("starting the learning pass",
		zap.String("version", version),
		zap.Int("jobs in catalog", c.catalog.Len()),
	)

	if _, err := c.accuracy.RecordSession(c.catalog); err != nil {
		c.log.Warn("recording the accuracy session", zap.Error(err))
	}

	result, err := c.prefs.LearnFromFeedback(c.catalog)
	if err != nil {
		c.log.Warn("updating learned preferences", zap.Error(err))
	}

	doc, _ := c.prefs.Document()

	decisions, err := c.strategy.Decide(doc)
	if err != nil {
		c.log.Warn("updating the strategy state", zap.Error(err))
	}

	var generated []string
	if doc.DiscoveredPatterns != nil {
		generated, err = c.queries.GenerateQueries(doc.DiscoveredPatterns)
		if err != nil {
			c.log.Warn("storing generated queries", zap.Error(err))
		}
	}

	printLearnSummary(result, decisions, generated)
}

func printLearnSummary(result *preferences.LearnResult, decisions []strategy.Decision, generated []string) {
	if result != nil {
		m := result.Accuracy
		fmt.Printf("Feedback reviewed: %d jobs (%d liked, %d disliked, %d maybe)\n",
			m.TotalReviewed, m.Liked, m.Disliked, m.Maybe)
		fmt.Printf("Precision: %s (%s)\n", util.Percent(m.Precision), m.Message)
		fmt.Printf("Patterns discovered: %d positive, %d negative\n",
			result.PatternsFound, result.NegativePatternsFound)
		fmt.Printf("Strictness recommendation: %s\n", result.Strictness)
	}

	if len(decisions) == 0 {
		fmt.Println("\nNo strategy changes.")
	} else {
		fmt.Println("\nSTRATEGY DECISIONS:")
		for _, d := range decisions {
			fmt.Printf("  [%s] %s\n", d.Type, d.Impact)
		}
	}

	if len(generated) > 0 {
		fmt.Println("\nNEW SEARCH QUERIES:")
		for _, q := range generated {
			fmt.Printf("  - %s\n", q)
		}
	}
}
