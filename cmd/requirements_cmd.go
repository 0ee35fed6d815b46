package cmd

import (
	"context"
	"fmt"

	"github.com/daedaleanai/cobra"

	"github.com/daedaleanai/mantra/config"
	"github.com/daedaleanai/mantra/ingest"
)

var requirementsCmd = &cobra.Command{
	Use:   "requirements",
	Short: "Manage tracked requirements.",
}

var requirementsCollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect requirements from every [[requirements]] source in the manifest.",
	Args:  cobra.NoArgs,
	RunE:  runAndHandleError(runRequirementsCollect),
}

func runRequirementsCollect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	sources := make([]config.RequirementsSource, len(cfg.Requirements))
	for i, s := range cfg.Requirements {
		s.Root = resolveOrEmpty(s.Root)
		s.Files = resolveAll(s.Files)
		sources[i] = s
	}

	changes, err := ingest.CollectRequirements(ctx, db, sources)
	if err != nil {
		return err
	}
	fmt.Print(changes.String())
	return nil
}

func resolveOrEmpty(path string) string {
	if path == "" {
		return ""
	}
	return resolve(path)
}

func init() {
	rootCmd.AddCommand(requirementsCmd)
	requirementsCmd.AddCommand(requirementsCollectCmd)
}
