package cmd

import (
	"context"
	"fmt"

	"github.com/daedaleanai/cobra"

	"github.com/daedaleanai/mantra/ingest"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Manage manual review records.",
}

var reviewCollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect reviews from the [review] files in the manifest.",
	Args:  cobra.NoArgs,
	RunE:  runAndHandleError(runReviewCollect),
}

func runReviewCollect(cmd *cobra.Command, args []string) error {
	if cfg.Review == nil || len(cfg.Review.Files) == 0 {
		fmt.Println("No review sources configured.")
		return nil
	}

	ctx := context.Background()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := ingest.CollectReviews(ctx, db, resolveAll(cfg.Review.Files)); err != nil {
		return err
	}
	fmt.Println("Reviews collected.")
	return nil
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(reviewCollectCmd)
}
