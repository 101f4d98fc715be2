package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Print the personalization notes for the filtering prompt",
	Run: func(cmd *cobra.Command, _ []string) {
		printNotes(cmd)
	},
}

func init() {
	rootCmd.AddCommand(notesCmd)

	notesCmd.Flags().Bool("strictness", false, "print only the recommended strictness level")
}

// printNotes emits the rendered notes block verbatim so the prompt builder
// can embed it as-is. Logs go to stderr, stdout carries nothing else.
func printNotes(cmd *cobra.Command) {
	c := mustCore()

	if only, _ := cmd.Flags().GetBool("strictness"); only {
		fmt.Println(c.prefs.Recommendation())
		return
	}

	if notes := c.prefs.Notes(); notes != "" {
		fmt.Println(notes)
	}
}
