package cmd

import (
	"fmt"

	"github.com/jobsense/jobsense/internal/catalog"
	"github.com/jobsense/jobsense/internal/logger"
	"github.com/jobsense/jobsense/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Inspect and feed the search query ledger",
}

var queriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked queries ranked by effectiveness",
	Run: func(_ *cobra.Command, _ []string) {
		listQueries()
	},
}

var queriesSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Print suggested query adjustments",
	Run: func(_ *cobra.Command, _ []string) {
		suggestQueries()
	},
}

var queriesRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a scrape result for a query",
	Run: func(cmd *cobra.Command, _ []string) {
		recordQueryResult(cmd)
	},
}

var queriesOutcomeCmd = &cobra.Command{
	Use:   "outcome",
	Short: "Record the user's rating of a job a query found",
	Run: func(cmd *cobra.Command, _ []string) {
		recordQueryOutcome(cmd)
	},
}

func init() {
	rootCmd.AddCommand(queriesCmd)
	queriesCmd.AddCommand(queriesListCmd)
	queriesCmd.AddCommand(queriesSuggestCmd)
	queriesCmd.AddCommand(queriesRecordCmd)
	queriesCmd.AddCommand(queriesOutcomeCmd)

	queriesRecordCmd.Flags().StringP("query", "q", "", "the search query that ran")
	queriesRecordCmd.Flags().IntP("found", "n", 0, "how many jobs the query returned")
	queriesRecordCmd.Flags().StringP("source", "s", "", `search source the query ran against (default "google")`)

	queriesOutcomeCmd.Flags().String("job", "", "URL of the rated job")
	queriesOutcomeCmd.Flags().StringP("query", "q", "", "query recorded as the job's source")
	queriesOutcomeCmd.Flags().String("status", "", "rating given: liked, disliked or maybe")
}

func listQueries() {
	c := mustCore()

	ranked := c.queries.Effectiveness()
	if len(ranked) == 0 {
		fmt.Println("No queries tracked yet.")
		return
	}

	fmt.Println("TRACKED QUERIES")
	fmt.Println(sectionRule)
	for _, q := range ranked {
		fmt.Printf("  [%s] %s\n", util.Percent(q.Effectiveness), logger.TruncateForLog(q.Query, 60))
		fmt.Printf("       source %s, %d jobs over %d runs, %d liked / %d disliked / %d maybe\n",
			q.Source, q.TotalJobs, q.RunCount, q.Liked, q.Disliked, q.Maybe)
	}
}

func suggestQueries() {
	c := mustCore()

	suggestions := c.queries.SuggestAdjustments()
	if len(suggestions) == 0 {
		fmt.Println("No suggestions yet.")
		return
	}

	fmt.Println("QUERY SUGGESTIONS")
	fmt.Println(sectionRule)
	for _, s := range suggestions {
		fmt.Printf("  [%s/%s] %s\n", s.Action, s.Priority, logger.TruncateForLog(s.Query, 60))
		fmt.Printf("       %s (%s)\n", s.Reason, s.Stats)
	}
}

// recordQueryResult is the entry point for shell-level scrapers: they report
// how many jobs a query returned and the ledger keeps score.
func recordQueryResult(cmd *cobra.Command) {
	c := mustCore()

	query := cmd.Flag("query").Value.String()
	if query == "" {
		c.log.Fatal("a query is required", zap.String("hint", "pass the search string via --query"))
	}

	found, err := cmd.Flags().GetInt("found")
	if err != nil {
		c.log.Fatal("reading the found flag", zap.Error(err))
	}

	source := cmd.Flag("source").Value.String()

	if err := c.queries.RecordResult(query, found, source); err != nil {
		c.log.Fatal("recording the query result", zap.Error(err))
	}

	fmt.Printf("Recorded: %d jobs for %q\n", found, query)
}

// recordQueryOutcome feeds a review rating back to the query that surfaced
// the job, closing the loop between search and feedback.
func recordQueryOutcome(cmd *cobra.Command) {
	c := mustCore()

	sourceQuery := cmd.Flag("query").Value.String()
	if sourceQuery == "" {
		c.log.Fatal("a source query is required", zap.String("hint", "pass the job's source query via --query"))
	}

	status := catalog.Status(cmd.Flag("status").Value.String())
	if !status.Reviewed() {
		c.log.Fatal("status must be liked, disliked or maybe", zap.String("status", string(status)))
	}

	jobURL := cmd.Flag("job").Value.String()

	if err := c.queries.RecordOutcome(jobURL, sourceQuery, status); err != nil {
		c.log.Fatal("recording the job outcome", zap.Error(err))
	}

	fmt.Printf("Recorded: %s outcome for %q\n", status, sourceQuery)
}
