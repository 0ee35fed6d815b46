// Package wiki extracts requirement headings from markdown pages.
package wiki

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/daedaleanai/mantra/errkind"
)

// Requirement is a single requirement as recovered from a wiki heading.
type Requirement struct {
	Id         string
	Title      string
	Origin     string
	Manual     bool
	Deprecated bool
}

// reHeading matches `#{1,6} `id`(marker)?: title`, grounded on the heading
// grammar used by the original wiki front-end: an id in backticks with no
// whitespace or colon, an optional parenthesized marker (itself optionally
// version-gated as `v<int>:<marker>`), then a colon and the title text.
var reHeading = regexp.MustCompile("^#{1,6}\\s`([^`\\s:]+)`(?:\\((?:v(\\d{1,7}):)?([^)]+)\\))?:\\s+(.+)$")

// CollectFromDir walks root recursively, parsing every markdown file found.
// origin is the configured origin prefix; each file contributes requirements
// whose Origin is `<origin>/<file-stem-with-spaces-replaced-by-dashes>`.
// majorVersion, if non-nil, gates version-qualified markers: a marker tagged
// `v<n>:` is discarded when the gate is older than n.
func CollectFromDir(root, origin string, majorVersion *int) ([]Requirement, error) {
	var all []Requirement
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".md") && !strings.EqualFold(filepath.Ext(path), ".markdown") {
			return nil
		}
		reqs, ferr := CollectFromFile(path, origin, majorVersion)
		if ferr != nil {
			return ferr
		}
		all = append(all, reqs...)
		return nil
	})
	if err != nil {
		return nil, errkind.Wrap(errkind.IO, err, "failed walking wiki root %q", root)
	}
	return all, nil
}

// CollectFromFile parses a single markdown file into requirements.
func CollectFromFile(path, origin string, majorVersion *int) ([]Requirement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errkind.Wrap(errkind.IO, err, "could not read wiki file %q", path)
	}
	defer f.Close()

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.ReplaceAll(stem, " ", "-")
	fileOrigin := origin
	if stem != "" {
		fileOrigin = strings.TrimSuffix(origin, "/") + "/" + stem
	}

	return CollectFromReader(f, fileOrigin, majorVersion)
}

// CollectFromReader parses wiki content already opened by the caller,
// tracking a verbatim-block flag across fenced code blocks so headings
// inside ``` or ~~~ fences are never mistaken for requirements.
func CollectFromReader(r io.Reader, origin string, majorVersion *int) ([]Requirement, error) {
	var reqs []Requirement
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	inVerbatim := false
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inVerbatim = !inVerbatim
			continue
		}
		if inVerbatim {
			continue
		}

		m := reHeading.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		id, versionStr, marker, title := m[1], m[2], m[3], m[4]

		manual, deprecated := false, false
		if marker != "" {
			useMarker := true
			if versionStr != "" && majorVersion != nil {
				extracted, verr := strconv.Atoi(versionStr)
				if verr == nil && *majorVersion < extracted {
					// The heading claims a version newer than the gate asked
					// for: ignore the marker.
					useMarker = false
				}
			}
			if useMarker {
				switch marker {
				case "manual":
					manual = true
				case "deprecated":
					deprecated = true
				}
			}
		}

		reqs = append(reqs, Requirement{
			Id:         id,
			Title:      title,
			Origin:     origin,
			Manual:     manual,
			Deprecated: deprecated,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed scanning wiki content")
	}
	return reqs, nil
}
