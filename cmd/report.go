package cmd

import (
	"fmt"

	"github.com/jobsense/jobsense/internal/util"

	"github.com/spf13/cobra"
)

const sectionRule = "----------------------------------------"

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the full learning report",
	Run: func(_ *cobra.Command, _ []string) {
		report()
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func report() {
	c := mustCore()

	accuracy := c.accuracy.Summary()
	fmt.Println("FILTERING ACCURACY")
	fmt.Println(sectionRule)
	fmt.Printf("  Jobs reviewed: %d\n", accuracy.TotalJobsReviewed)
	fmt.Printf("  Overall precision: %s\n", util.Percent(accuracy.OverallPrecision))
	fmt.Printf("  Sessions recorded: %d\n", accuracy.SessionsRecorded)
	fmt.Printf("  Trend: %s\n", accuracy.Trend)
	if accuracy.TrendMessage != "" {
		fmt.Printf("  %s\n", accuracy.TrendMessage)
	}

	learning := c.prefs.Summary()
	fmt.Println()
	fmt.Println("LEARNED PREFERENCES")
	fmt.Println(sectionRule)
	if learning.HasLearnedData {
		stats := learning.Stats
		fmt.Printf("  Feedback processed: %d (%d liked, %d disliked, %d maybe)\n",
			stats.TotalFeedbackProcessed, stats.LikedCount, stats.DislikedCount, stats.MaybeCount)
		fmt.Printf("  Precision: %s\n", util.Percent(stats.Precision))
		fmt.Printf("  Strictness recommendation: %s\n", learning.Strictness.Recommended)
	} else {
		fmt.Println("  No learned data yet.")
	}

	fmt.Println()
	fmt.Println(c.strategy.Summary())

	fmt.Println()
	fmt.Println(c.queries.Report())

	deadlines := c.deadlines.Stats()
	fmt.Println()
	fmt.Println("DEADLINES")
	fmt.Println(sectionRule)
	fmt.Printf("  Tracked jobs: %d\n", deadlines.TotalTracked)
	fmt.Printf("  With deadlines: %d\n", deadlines.WithDeadlines)
	fmt.Printf("  Critical: %d\n", deadlines.Critical)
	fmt.Printf("  Urgent: %d\n", deadlines.Urgent)
	fmt.Printf("  Upcoming: %d\n", deadlines.Upcoming)
	fmt.Printf("  Expired: %d\n", deadlines.Expired)
}
