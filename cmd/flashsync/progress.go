package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/flashsync/internal/app"
)

var (
	progressTag     string
	progressLearned bool
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show how much of the question set is learned",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			refresh(ctx, a)

			p, err := a.Selector.Progress(ctx, progressTag)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Progress: %d%%  (%d of %d learned)\n", p.Percent, p.Learned, p.Total)
			if progressLearned {
				for _, q := range p.LearnedQuestions {
					fmt.Fprintf(out, "- %s: %s\n", q.Prompt, q.Answer)
				}
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(progressCmd)
	progressCmd.Flags().StringVarP(&progressTag, "tag", "t", "", "Only count questions with this tag")
	progressCmd.Flags().BoolVarP(&progressLearned, "learned", "l", false, "List learned questions")
}
