package cmd

import (
	"context"
	"fmt"

	"github.com/daedaleanai/cobra"

	"github.com/daedaleanai/mantra/config"
	"github.com/daedaleanai/mantra/ingest"
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Manage source-level trace sites.",
}

var traceCollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect traces from every [[traces]] source in the manifest.",
	Args:  cobra.NoArgs,
	RunE:  runAndHandleError(runTraceCollect),
}

func runTraceCollect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	sources := make([]config.TraceSource, len(cfg.Traces))
	for i, s := range cfg.Traces {
		if s.IsFromSource() {
			s.Root = resolve(s.Root)
			s.LsifData = resolveAll(s.LsifData)
		} else {
			s.Files = resolveAll(s.Files)
		}
		sources[i] = s
	}

	changes, err := ingest.CollectTraces(ctx, db, sources)
	if err != nil {
		return err
	}
	fmt.Print(changes.String())
	return nil
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.AddCommand(traceCollectCmd)
}
