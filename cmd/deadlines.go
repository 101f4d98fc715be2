package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var deadlinesCmd = &cobra.Command{
	Use:   "deadlines",
	Short: "Print deadline alerts for liked and maybe jobs",
	Run: func(_ *cobra.Command, _ []string) {
		printDeadlines()
	},
}

func init() {
	rootCmd.AddCommand(deadlinesCmd)

	deadlinesCmd.Flags().IntP("warn-days", "w", 0, "how many days ahead counts as upcoming (default 7)")

	viper.BindPFlag("warn-days", deadlinesCmd.Flags().Lookup("warn-days"))
}

func printDeadlines() {
	c := mustCore()

	fmt.Println(c.deadlines.Report(c.config.warnDays()))
}
