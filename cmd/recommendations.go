package cmd

import (
	"fmt"
	"strings"

	"github.com/jobsense/jobsense/internal/logger"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptAccept      = "Accept"
	PromptDismiss     = "Dismiss"
	PromptKeepPending = "Keep pending"
	PromptBack        = "back"
)

var recommendationsCmd = &cobra.Command{
	Use:   "recommendations",
	Short: "Triage pending strategy recommendations",
	Run: func(_ *cobra.Command, _ []string) {
		triageRecommendations()
	},
}

var recommendationsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Queue a recommendation for later triage",
	Run: func(cmd *cobra.Command, _ []string) {
		addRecommendation(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendationsCmd)
	recommendationsCmd.AddCommand(recommendationsAddCmd)

	recommendationsAddCmd.Flags().StringP("type", "t", "user_suggestion", "recommendation type")
	recommendationsAddCmd.Flags().StringP("description", "m", "", "what is being recommended")
}

// triageRecommendations walks the pending queue one entry at a time. The
// queue is reloaded on every pass so resolved entries drop out of the list.
func triageRecommendations() {
	c := mustCore()

	for {
		pending := c.strategy.PendingRecommendations()
		if len(pending) == 0 {
			fmt.Println("No pending recommendations.")
			return
		}

		items := make([]string, 0, len(pending)+1)
		for _, rec := range pending {
			items = append(items, fmt.Sprintf("%s [%s] %s",
				rec.ID, rec.Type, logger.TruncateForLog(rec.Description, 60)))
		}

		listPrompt := promptui.Select{
			Label: "Choose a recommendation and press ENTER",
			Items: append(items, PromptBack),
		}

		_, selected, err := listPrompt.Run()
		if err != nil {
			c.log.Fatal("exiting", zap.Error(err))
		}

		if selected == PromptBack {
			return
		}

		id := strings.Split(selected, " ")[0]

		if err := resolveRecommendation(c, id); err != nil {
			c.log.Fatal("exiting", zap.Error(err))
		}
	}
}

func resolveRecommendation(c *core, id string) error {
	actionPrompt := promptui.Select{
		Label: "Resolve " + id,
		Items: []string{PromptAccept, PromptDismiss, PromptKeepPending, PromptBack},
	}

	_, action, err := actionPrompt.Run()
	if err != nil {
		return err
	}

	switch action {
	case PromptAccept:
		return c.strategy.ResolveRecommendation(id, true)
	case PromptDismiss:
		return c.strategy.ResolveRecommendation(id, false)
	case PromptKeepPending, PromptBack:
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func addRecommendation(cmd *cobra.Command) {
	c := mustCore()

	description := cmd.Flag("description").Value.String()
	if description == "" {
		c.log.Fatal("a description is required", zap.String("hint", "pass the recommendation text via --description"))
	}

	rec, err := c.strategy.AddRecommendation(cmd.Flag("type").Value.String(), description)
	if err != nil {
		c.log.Fatal("queueing the recommendation", zap.Error(err))
	}

	fmt.Printf("Queued %s: %s\n", rec.ID, rec.Description)
}
