package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conorfennell/flashsync/internal/app"
	"github.com/conorfennell/flashsync/internal/deck"
	"github.com/conorfennell/flashsync/internal/domain"
	"github.com/conorfennell/flashsync/internal/gitsource"
)

var (
	importCacheDir string
	importTags     string
)

var importCmd = &cobra.Command{
	Use:   "import [dir|git-url]",
	Short: "Import questions from a markdown deck",
	Long: `Import questions from markdown files in a directory or git repository.
Cards are written as Q:/A: blocks with optional D: (description) and
T: (comma-separated tags) lines, separated by ---. Cards already present
with the same question and answer are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		out := cmd.OutOrStdout()

		dir := source
		if gitsource.IsURL(source) {
			cacheDir := importCacheDir
			if cacheDir == "" {
				base, err := os.UserCacheDir()
				if err != nil {
					return fmt.Errorf("no cache directory, pass --cache-dir: %w", err)
				}
				cacheDir = filepath.Join(base, "flashsync", "decks")
			}
			localPath, err := gitsource.LocalPath(cacheDir, source)
			if err != nil {
				return err
			}
			if err := gitsource.Sync(cmd.Context(), logger, source, localPath); err != nil {
				return err
			}
			dir = localPath
		}

		cards, parseErrs, err := deck.ParseDir(dir)
		if err != nil {
			return err
		}
		for _, e := range parseErrs {
			fmt.Fprintf(out, "- %s\n", e)
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			refresh(ctx, a)

			existing, err := a.Replica.FindQuestions(ctx, domain.QuestionFilter{})
			if err != nil {
				return err
			}
			res, err := deck.Import(ctx, a.Sync, cards, existing, domain.ParseTags(importTags))
			fmt.Fprintf(out, "Found %d cards: %d added, %d already present, %d failed.\n",
				len(cards), res.Created, res.Skipped, len(res.Failed))
			for _, e := range res.Failed {
				fmt.Fprintf(out, "- %s\n", e)
			}
			if err != nil {
				return err
			}

			pushOrWarn(ctx, cmd, a)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importCacheDir, "cache-dir", "", "Where git decks are checked out (default: user cache dir)")
	importCmd.Flags().StringVarP(&importTags, "tags", "t", "", "Comma-separated tags added to every imported card")
}
