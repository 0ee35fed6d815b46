package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/daedaleanai/cobra"

	"github.com/daedaleanai/mantra/diagnostics"
	"github.com/daedaleanai/mantra/query"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report invalid, untraced, uncovered or deprecated-but-traced requirements.",
	Args:  cobra.NoArgs,
	RunE:  runAndHandleError(runValidate),
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	issues, err := query.Validate(ctx, db)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Println("No issues found.")
		return nil
	}

	var majorCount int
	for _, i := range issues {
		fmt.Printf("[%s] %s: %s\n", severityLabel(i.Severity), i.RequirementId, i.Description)
		if i.Severity == diagnostics.IssueSeverityMajor {
			majorCount++
		}
	}
	if majorCount > 0 {
		os.Exit(1)
	}
	return nil
}

func severityLabel(s diagnostics.IssueSeverity) string {
	switch s {
	case diagnostics.IssueSeverityMajor:
		return "MAJOR"
	case diagnostics.IssueSeverityMinor:
		return "MINOR"
	default:
		return "NOTE"
	}
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
