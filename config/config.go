// Package config reads the mantra.toml project manifest: the single file
// that names where requirements, traces, coverage data and reviews come
// from, plus project metadata and the database connection.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// DefaultFilename is the manifest name looked for in the working
// directory when no path is given on the command line.
const DefaultFilename = "mantra.toml"

// Project carries optional project metadata surfaced in query output.
type Project struct {
	Name       string `toml:"name"`
	Version    string `toml:"version"`
	Repository string `toml:"repository"`
	Homepage   string `toml:"homepage"`
}

// WikiSource collects requirements from headings in markdown files below
// Root, attributing them to Origin.
type WikiSource struct {
	Root         string `toml:"root"`
	Origin       string `toml:"origin"`
	MajorVersion *int   `toml:"major-version"`
}

// SchemaFilesSource collects requirements, traces, or reviews from
// structured data files rather than source scanning.
type SchemaFilesSource struct {
	Files []string `toml:"files"`
}

// RequirementsSource is one [[requirements]] table. Exactly one of Wiki or
// Files should be populated; which one is set selects the collection mode,
// mirroring the original implementation's untagged Format enum.
type RequirementsSource struct {
	WikiSource
	SchemaFilesSource
}

// IsWiki reports whether this source collects from wiki markdown rather
// than schema files.
func (s RequirementsSource) IsWiki() bool {
	return s.Root != ""
}

// TraceSource is one [[traces]] table: either a source tree to scan or a
// pre-collected schema file.
type TraceSource struct {
	Root             string   `toml:"root"`
	KeepPathAbsolute bool     `toml:"keep-path-absolute"`
	LsifData         []string `toml:"lsif-data"`
	SchemaFilesSource
}

// IsFromSource reports whether this source scans a tree rather than
// reading a pre-collected schema file. A [[traces]] table with a "files"
// key is a schema source; everything else (including an empty root,
// meaning "scan the current directory") is a source-tree scan.
func (s TraceSource) IsFromSource() bool {
	return len(s.Files) == 0
}

// CoverageConfig is the [coverage] table.
type CoverageConfig struct {
	Files []string `toml:"files"`
}

// ReviewConfig is the [review] table.
type ReviewConfig struct {
	Files []string `toml:"files"`
}

// DBConfig is the [db] table, an addition over the original's
// environment-variable-only MANTRA_DB scheme so the manifest is
// self-contained; MANTRA_DB still overrides it when set.
type DBConfig struct {
	URL string `toml:"url"`
}

// Config is the full mantra.toml manifest.
type Config struct {
	Project      Project              `toml:"project"`
	Requirements []RequirementsSource `toml:"requirements"`
	Traces       []TraceSource        `toml:"traces"`
	Coverage     *CoverageConfig      `toml:"coverage"`
	Review       *ReviewConfig        `toml:"review"`
	DB           DBConfig             `toml:"db"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read manifest %q", path)
	}
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.Wrapf(err, "could not parse manifest %q", path)
	}
	return &cfg, nil
}

// DatabaseURL resolves the effective database URL: the MANTRA_DB
// environment variable takes precedence over the manifest, which takes
// precedence over the package default.
func (c *Config) DatabaseURL(defaultURL string) string {
	if url := os.Getenv("MANTRA_DB"); url != "" {
		return url
	}
	if c.DB.URL != "" {
		return c.DB.URL
	}
	return defaultURL
}
