package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/daedaleanai/mantra/errkind"
	"github.com/daedaleanai/mantra/logging"
)

// TracePk is the natural key of a Trace row.
type TracePk struct {
	RequirementId string
	Filepath      string
	Line          int
}

func (p TracePk) String() string {
	return "id=`" + p.RequirementId + "`, file='" + p.Filepath + "', line='" + strconv.Itoa(p.Line) + "'"
}

// TraceSite is a single trace site as discovered by the collector layer:
// one source location naming one or more requirement ids, with an
// optional governing span.
type TraceSite struct {
	RequirementIds []string
	Line           int
	SpanStart      *int
	SpanEnd        *int
}

// TraceChanges is the change report returned by AddTraces.
type TraceChanges struct {
	Inserted      []TracePk
	UnchangedCnt  int
	NewGeneration int64
}

// Merge folds other into c, matching the original implementation's
// TraceChanges::merge used to fold per-file results into a single report.
func (c *TraceChanges) Merge(other *TraceChanges) {
	c.Inserted = append(c.Inserted, other.Inserted...)
	c.UnchangedCnt += other.UnchangedCnt
	if other.NewGeneration > c.NewGeneration {
		c.NewGeneration = other.NewGeneration
	}
}

// String renders the same human-readable summary as the original
// implementation's TraceChanges Display impl.
func (c *TraceChanges) String() string {
	var b strings.Builder
	if len(c.Inserted) == 0 {
		if c.UnchangedCnt == 0 {
			fmt.Fprintln(&b, "No traces found.")
		} else {
			fmt.Fprintf(&b, "'%d' traces kept.\n", c.UnchangedCnt)
		}
		return b.String()
	}
	fmt.Fprintf(&b, "'%d' traces added:\n", len(c.Inserted))
	for _, t := range c.Inserted {
		fmt.Fprintf(&b, "- `%s`\n", t)
	}
	return b.String()
}

// DeletedTracesString renders the same summary as the original
// implementation's DeletedTraces Display impl.
func DeletedTracesString(deleted []TracePk) string {
	var b strings.Builder
	if len(deleted) == 0 {
		fmt.Fprintln(&b, "No trace was deleted.")
		return b.String()
	}
	fmt.Fprintf(&b, "'%d' traces deleted:\n", len(deleted))
	for _, t := range deleted {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	return b.String()
}

// MaxTraceGeneration returns the highest generation currently stored.
func (db *DB) MaxTraceGeneration(ctx context.Context) (int64, error) {
	var gen sql.NullInt64
	row := db.QueryRowContext(ctx, "SELECT MAX(Generation) FROM Traces")
	if err := row.Scan(&gen); err != nil {
		return 0, errkind.Wrap(errkind.Query, err, "failed to read max trace generation")
	}
	return gen.Int64, nil
}

// AddTraces upserts the trace sites found in filepath. A site naming an id
// with no matching requirement is logged and skipped rather than failing
// the whole call, matching the "trace insertion edge cases" rule.
func (db *DB) AddTraces(ctx context.Context, filepath string, sites []TraceSite, newGeneration int64) (*TraceChanges, error) {
	changes := &TraceChanges{NewGeneration: newGeneration}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errkind.Wrap(errkind.Connect, err, "failed to start trace ingest transaction")
	}
	defer tx.Rollback()

	for _, site := range sites {
		for _, reqId := range site.RequirementIds {
			pk := TracePk{RequirementId: reqId, Filepath: filepath, Line: site.Line}

			var exists int
			row := tx.QueryRowContext(ctx,
				"SELECT 1 FROM Traces WHERE RequirementId=? AND Filepath=? AND Line=?",
				pk.RequirementId, pk.Filepath, pk.Line)
			err := row.Scan(&exists)
			if err != nil && err != sql.ErrNoRows {
				return nil, errkind.Wrap(errkind.Query, err, "failed looking up trace %s", pk)
			}

			if err == nil {
				if _, uerr := tx.ExecContext(ctx,
					"UPDATE Traces SET Generation=? WHERE RequirementId=? AND Filepath=? AND Line=?",
					newGeneration, pk.RequirementId, pk.Filepath, pk.Line); uerr != nil {
					return nil, errkind.Wrap(errkind.Update, uerr, "failed updating trace %s", pk)
				}
				changes.UnchangedCnt++
			} else {
				_, ierr := tx.ExecContext(ctx,
					"INSERT INTO Traces (RequirementId, Filepath, Line, Generation) VALUES (?,?,?,?)",
					pk.RequirementId, pk.Filepath, pk.Line, newGeneration)
				if ierr != nil {
					if isForeignKeyViolation(ierr) {
						logging.Log().Warnw("skipping trace, no requirement found", "requirement", reqId, "file", filepath, "line", site.Line)
						continue
					}
					logging.Log().Errorw("failed inserting trace", "requirement", reqId, "file", filepath, "line", site.Line, "error", ierr)
					continue
				}
				changes.Inserted = append(changes.Inserted, pk)
			}

			if site.SpanStart != nil && site.SpanEnd != nil {
				if _, serr := tx.ExecContext(ctx,
					`INSERT INTO TraceSpans (RequirementId, Filepath, Line, StartLine, EndLine) VALUES (?,?,?,?,?)
					 ON CONFLICT(RequirementId, Filepath, Line) DO UPDATE SET StartLine=excluded.StartLine, EndLine=excluded.EndLine`,
					pk.RequirementId, pk.Filepath, pk.Line, *site.SpanStart, *site.SpanEnd); serr != nil {
					return nil, errkind.Wrap(errkind.Insert, serr, "failed upserting trace span %s", pk)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errkind.Wrap(errkind.Insert, err, "failed to commit trace ingest")
	}
	return changes, nil
}

// DeleteTracesConfig selects which trace generations to reap.
type DeleteTracesConfig struct {
	RequirementIds []string
	Before         *int64
}

// DeleteTraces removes traces matching cfg, cascading to TraceSpans and
// TestCoverage, and returns the deleted primary keys.
func (db *DB) DeleteTraces(ctx context.Context, cfg DeleteTracesConfig) ([]TracePk, error) {
	query := "SELECT RequirementId, Filepath, Line FROM Traces WHERE 1=1"
	var args []interface{}
	if len(cfg.RequirementIds) > 0 {
		placeholders := ""
		for i, id := range cfg.RequirementIds {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "?"
			args = append(args, id)
		}
		query += " AND RequirementId IN (" + placeholders + ")"
	}
	if cfg.Before != nil {
		query += " AND Generation < ?"
		args = append(args, *cfg.Before)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed selecting traces to delete")
	}
	var deleted []TracePk
	for rows.Next() {
		var pk TracePk
		if err := rows.Scan(&pk.RequirementId, &pk.Filepath, &pk.Line); err != nil {
			rows.Close()
			return nil, errkind.Wrap(errkind.Query, err, "failed scanning trace row")
		}
		deleted = append(deleted, pk)
	}
	rows.Close()

	for _, pk := range deleted {
		if _, err := db.ExecContext(ctx, "DELETE FROM Traces WHERE RequirementId=? AND Filepath=? AND Line=?",
			pk.RequirementId, pk.Filepath, pk.Line); err != nil {
			return nil, errkind.Wrap(errkind.Delete, err, "failed deleting trace %s", pk)
		}
	}
	return deleted, nil
}
