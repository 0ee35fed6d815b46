package cmd

import (
	"context"
	"fmt"

	"github.com/daedaleanai/cobra"

	"github.com/daedaleanai/mantra/ingest"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Manage test run and coverage data.",
}

var coverageCollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect test runs and coverage from the [coverage] files in the manifest.",
	Args:  cobra.NoArgs,
	RunE:  runAndHandleError(runCoverageCollect),
}

func runCoverageCollect(cmd *cobra.Command, args []string) error {
	if cfg.Coverage == nil || len(cfg.Coverage.Files) == 0 {
		fmt.Println("No coverage sources configured.")
		return nil
	}

	ctx := context.Background()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	changes, err := ingest.CollectCoverage(ctx, db, resolveAll(cfg.Coverage.Files))
	if err != nil {
		return err
	}
	fmt.Print(changes.String())
	return nil
}

func init() {
	rootCmd.AddCommand(coverageCmd)
	coverageCmd.AddCommand(coverageCollectCmd)
}
