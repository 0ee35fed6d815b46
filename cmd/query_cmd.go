package cmd

import (
	"context"
	"fmt"

	"github.com/daedaleanai/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/daedaleanai/mantra/query"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read back the current state of the store.",
}

var queryOverviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Print the top-level requirement and test summary.",
	Args:  cobra.NoArgs,
	RunE:  runAndHandleError(runQueryOverview),
}

func runQueryOverview(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	o, err := query.Fetch(ctx, db)
	if err != nil {
		return err
	}
	title := cases.Title(language.English)
	fmt.Printf("%-22s %d\n", title.String("total requirements"), o.TotalRequirements)
	fmt.Printf("%-22s %d\n", title.String("fully traced"), o.FullyTraced)
	fmt.Printf("%-22s %d\n", title.String("fully covered"), o.FullyCovered)
	fmt.Printf("%-22s %d\n", title.String("invalid"), o.Invalid)
	fmt.Printf("%-22s %d\n", title.String("total tests"), o.TotalTests)
	fmt.Printf("%-22s %d\n", title.String("passed tests"), o.PassedTests)
	fmt.Printf("%-22s %d\n", title.String("skipped tests"), o.SkippedTests)
	return nil
}

var queryRequirementCmd = &cobra.Command{
	Use:   "requirement ID",
	Short: "Print everything known about a single requirement.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAndHandleError(runQueryRequirement),
}

func runQueryRequirement(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	d, err := query.Requirement(ctx, db, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", d.Requirement.Id, d.Requirement.Title)
	if d.ParentId != nil {
		fmt.Printf("  parent: %s\n", *d.ParentId)
	}
	fmt.Printf("  children: %v\n", d.ChildrenIds)
	fmt.Printf("  leaves: %d/%d traced\n", d.TracedLeaves, d.LeafCount)
	fmt.Printf("  valid: %v, fully traced: %v, fully covered: %v\n", d.Valid, d.FullyTraced, d.FullyCovered)
	for _, t := range d.DirectTraces {
		fmt.Printf("  trace: %s:%d\n", t.Filepath, t.Line)
	}
	for _, c := range d.Coverage {
		fmt.Printf("  coverage: %s/%s %s (passed=%v)\n", c.TestRunName, c.TestRunDate, c.TestName, c.Passed)
	}
	for _, t := range d.IndirectTraces {
		fmt.Printf("  indirect trace: %s:%d (via %s)\n", t.Filepath, t.Line, t.RequirementId)
	}
	for _, c := range d.IndirectCoverage {
		fmt.Printf("  indirect coverage: %s/%s (via %s)\n", c.TestRunName, c.TestName, c.RequirementId)
	}
	for _, v := range d.Verified {
		fmt.Printf("  verified: %s/%s by %s\n", v.ReviewName, v.ReviewDate, v.Reviewer)
	}
	return nil
}

var queryTestRunCmd = &cobra.Command{
	Use:   "test-run NAME DATE",
	Short: "Print everything known about a single test run.",
	Args:  cobra.ExactArgs(2),
	RunE:  runAndHandleError(runQueryTestRun),
}

func runQueryTestRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	d, err := query.TestRun(ctx, db, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("%s/%s: %d tests\n", d.Name, d.Date, d.NrOfTests)
	for _, t := range d.Tests {
		status := "passed"
		if t.Skipped {
			status = "skipped"
		} else if !t.Passed {
			status = "failed"
		}
		fmt.Printf("  %s: %s (%s:%d) covers %v\n", t.Name, status, t.Filepath, t.Line, t.CoveredRequirements)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(queryOverviewCmd, queryRequirementCmd, queryTestRunCmd)
}
