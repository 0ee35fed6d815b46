package cmd

import (
	"context"
	"fmt"

	"github.com/daedaleanai/cobra"

	"github.com/daedaleanai/mantra/store"
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Reap stale requirements, traces, test runs or reviews.",
}

var (
	deleteReqsIds          *[]string
	deleteReqsBeforeGen    *int64
	deleteTracesReqIds     *[]string
	deleteTracesBeforeGen  *int64
	deleteTestRunsBefore   *string
	deleteReviewsBefore    *string
)

var deleteReqsCmd = &cobra.Command{
	Use:   "reqs",
	Short: "Delete requirements by id or ingest generation.",
	Args:  cobra.NoArgs,
	RunE:  runAndHandleError(runDeleteReqs),
}

func runDeleteReqs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var before *int64
	if cmd.Flags().Changed("before-generation") {
		before = deleteReqsBeforeGen
	}
	deleted, err := db.DeleteRequirements(ctx, store.DeleteReqsConfig{Ids: *deleteReqsIds, Before: before})
	if err != nil {
		return err
	}
	fmt.Println(store.DeletedRequirementsString(deleted))
	return nil
}

var deleteTracesCmd = &cobra.Command{
	Use:   "traces",
	Short: "Delete traces by requirement id or ingest generation.",
	Args:  cobra.NoArgs,
	RunE:  runAndHandleError(runDeleteTraces),
}

func runDeleteTraces(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var before *int64
	if cmd.Flags().Changed("before-generation") {
		before = deleteTracesBeforeGen
	}
	deleted, err := db.DeleteTraces(ctx, store.DeleteTracesConfig{RequirementIds: *deleteTracesReqIds, Before: before})
	if err != nil {
		return err
	}
	fmt.Println(store.DeletedTracesString(deleted))
	return nil
}

var deleteTestRunsCmd = &cobra.Command{
	Use:   "test-runs",
	Short: "Delete test runs older than a date.",
	Args:  cobra.NoArgs,
	RunE:  runAndHandleError(runDeleteTestRuns),
}

func runDeleteTestRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var before *string
	if cmd.Flags().Changed("before") {
		before = deleteTestRunsBefore
	}
	n, err := db.DeleteTestRuns(ctx, store.DeleteTestRunsConfig{Before: before})
	if err != nil {
		return err
	}
	fmt.Printf("'%d' test runs deleted.\n", n)
	return nil
}

var deleteReviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Delete reviews older than a date.",
	Args:  cobra.NoArgs,
	RunE:  runAndHandleError(runDeleteReviews),
}

func runDeleteReviews(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var before *string
	if cmd.Flags().Changed("before") {
		before = deleteReviewsBefore
	}
	n, err := db.DeleteReviews(ctx, store.DeleteReviewsConfig{Before: before})
	if err != nil {
		return err
	}
	fmt.Printf("'%d' reviews deleted.\n", n)
	return nil
}

func init() {
	deleteReqsIds = deleteReqsCmd.Flags().StringSlice("ids", nil, "Requirement ids to delete.")
	deleteReqsBeforeGen = deleteReqsCmd.Flags().Int64("before-generation", 0, "Delete requirements from ingest generations older than this.")

	deleteTracesReqIds = deleteTracesCmd.Flags().StringSlice("req-ids", nil, "Only delete traces attached to these requirement ids.")
	deleteTracesBeforeGen = deleteTracesCmd.Flags().Int64("before-generation", 0, "Delete traces from ingest generations older than this.")

	deleteTestRunsBefore = deleteTestRunsCmd.Flags().String("before", "", "Delete test runs dated before this ISO-8601 date.")
	deleteReviewsBefore = deleteReviewsCmd.Flags().String("before", "", "Delete reviews dated before this ISO-8601 date.")

	deleteCmd.AddCommand(deleteReqsCmd, deleteTracesCmd, deleteTestRunsCmd, deleteReviewsCmd)
	rootCmd.AddCommand(deleteCmd)
}
