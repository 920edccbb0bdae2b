package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/flashsync/internal/app"
	"github.com/conorfennell/flashsync/internal/domain"
)

var (
	addDescription string
	addTags        string
	addID          string
)

var addCmd = &cobra.Command{
	Use:   "add [question] [answer]",
	Short: "Add a new question",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		nq := domain.NewQuestion{
			ID:     addID,
			Prompt: args[0],
			Answer: args[1],
			Tags:   domain.ParseTags(addTags),
		}
		if addDescription != "" {
			nq.Description = &addDescription
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			q, err := a.Sync.CreateQuestion(ctx, nq)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q (id %s)\n", q.Prompt, q.ID)
			if q.PendingCreate {
				fmt.Fprintln(cmd.OutOrStdout(), "Remote is unreachable; the question will be uploaded on the next sync.")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Extra notes shown with the answer")
	addCmd.Flags().StringVarP(&addTags, "tags", "t", "", "Comma-separated tags (e.g. german,nouns)")
	addCmd.Flags().StringVar(&addID, "id", "", "Use this id instead of a generated one")
}
