package main

import (
	"bufio"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/flashsync/internal/app"
)

var gameTag string

var gameCmd = &cobra.Command{
	Use:   "game",
	Short: "Play a round of up to ten questions",
	Long: `Play one game round: two difficult questions and eight fresh ones
where available, shuffled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			refresh(ctx, a)

			batch, err := a.Selector.Batch(ctx, gameTag)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(batch) == 0 {
				fmt.Fprintln(out, "No questions to play.")
				return nil
			}

			in := bufio.NewReader(cmd.InOrStdin())
			correct, answered := 0, 0
			for i, q := range batch {
				fmt.Fprintf(out, "\nQuestion %d/%d", i+1, len(batch))
				input, ok := ask(in, out, q)
				if !ok {
					break
				}
				res, err := a.Sync.Answer(ctx, q.ID, input)
				if err != nil {
					return err
				}
				printResult(out, res)
				answered++
				if res.Correct {
					correct++
				}
			}

			fmt.Fprintf(out, "\nGame over: %d/%d correct.\n", correct, answered)
			pushOrWarn(context.WithoutCancel(ctx), cmd, a)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(gameCmd)
	gameCmd.Flags().StringVarP(&gameTag, "tag", "t", "", "Only play questions with this tag")
}
