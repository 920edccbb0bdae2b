package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conorfennell/flashsync/internal/app"
	"github.com/conorfennell/flashsync/internal/domain"
)

var reviseTag string

var reviseCmd = &cobra.Command{
	Use:   "revise",
	Short: "Answer questions one at a time, least recently reviewed first",
	Long: `Start a revision session. Each answer is scored against the local
replica and pushed in the background. Enter an empty line or press Ctrl-D
to stop.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			refresh(ctx, a)
			stop := a.Sync.Start(ctx)

			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())
			answered := 0
			for ctx.Err() == nil {
				q, err := a.Selector.Next(ctx, reviseTag)
				if err != nil {
					stop()
					return err
				}
				if q == nil {
					fmt.Fprintln(out, "Nothing left to revise.")
					break
				}

				input, ok := ask(in, out, *q)
				if !ok {
					break
				}
				res, err := a.Sync.Answer(ctx, q.ID, input)
				if err != nil {
					stop()
					return err
				}
				printResult(out, res)
				answered++
				a.Sync.Trigger()
			}

			stop()
			fmt.Fprintf(out, "\nRevision session complete: %d answered.\n", answered)
			pushOrWarn(context.WithoutCancel(ctx), cmd, a)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(reviseCmd)
	reviseCmd.Flags().StringVarP(&reviseTag, "tag", "t", "", "Only revise questions with this tag")
}

// ask shows q and reads one answer line. It reports false on an empty line
// or end of input.
func ask(in *bufio.Reader, out io.Writer, q domain.Question) (string, bool) {
	fmt.Fprintln(out, "\n========================================")
	fmt.Fprintf(out, "%s  (score %.0f)\n", q.Prompt, q.Score)
	if len(q.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(q.Tags, ", "))
	}
	fmt.Fprintln(out, "========================================")
	fmt.Fprint(out, "> ")

	line, err := in.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" && err != nil {
		return "", false
	}
	return line, line != ""
}

func printResult(out io.Writer, res *domain.AnswerResult) {
	if res.Correct {
		fmt.Fprintf(out, "Correct! Score is now %.0f.\n", res.NewScore)
		return
	}
	fmt.Fprintf(out, "Wrong, the answer is %q. Score is now %.0f.\n", res.CorrectAnswer, res.NewScore)
}
