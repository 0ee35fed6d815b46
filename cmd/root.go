// Package cmd wires the mantra.toml manifest (config), the ingest
// orchestrator, and the query facade into a cobra command tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"runtime"
	"strings"

	"github.com/daedaleanai/cobra"
	"github.com/pkg/errors"

	"github.com/daedaleanai/mantra/config"
	"github.com/daedaleanai/mantra/linepipes"
	"github.com/daedaleanai/mantra/logging"
	"github.com/daedaleanai/mantra/store"
	"github.com/daedaleanai/mantra/util"
	"github.com/daedaleanai/mantra/workspace"
)

var rootCmd = &cobra.Command{
	Use:   "mantra",
	Short: "Mantra is a requirements traceability engine.",
	Long: `Mantra ingests requirements, source-level traces, test coverage and manual
reviews into a SQLite store and reports on which requirements are fully
traced, fully covered, or invalid.`,
	Version: fmt.Sprintf("%d.%d.%d", util.Version.Major, util.Version.Minor, util.Version.Revision),
}

var manifestPath *string

var cfg *config.Config
var root string

// loadConfig parses the manifest and resolves the directory that its
// relative paths are interpreted against.
func loadConfig() error {
	c, err := config.Load(*manifestPath)
	if err != nil {
		return err
	}
	r, err := workspace.Root(*manifestPath)
	if err != nil {
		return err
	}
	cfg, root = c, r
	return nil
}

// openStore opens the database named by the manifest (or MANTRA_DB), using
// a file alongside the manifest as the default.
func openStore(ctx context.Context) (*store.DB, error) {
	defaultURL := workspace.Resolve(root, "mantra.db")
	return store.Open(ctx, cfg.DatabaseURL(defaultURL))
}

// resolve joins a manifest-relative path against the workspace root.
func resolve(path string) string {
	return workspace.Resolve(root, path)
}

func resolveAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = resolve(p)
	}
	return out
}

func init() {
	manifestPath = rootCmd.PersistentFlags().StringP("config", "c", config.DefaultFilename, "Path to the mantra.toml manifest.")
	rootCmd.PersistentFlags().BoolVarP(&linepipes.Verbose, "verbose", "v", false, "Enable verbose logs.")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Init(linepipes.Verbose)
		if cmd.Name() == "completion" {
			return nil
		}
		return loadConfig()
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// runAndHandleError wraps a RunE function so that errors are reported with
// the name of the function that produced them and exit the process.
func runAndHandleError(runE func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if errRun := runE(cmd, args); errRun != nil {
			s := runtime.FuncForPC(reflect.ValueOf(runE).Pointer()).Name()
			s = s[strings.LastIndex(s, "/")+1:]
			fmt.Fprintln(os.Stderr, errors.Wrap(errRun, s))
			os.Exit(1)
		}
		return nil
	}
}
