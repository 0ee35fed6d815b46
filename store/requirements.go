package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/daedaleanai/mantra/errkind"
	"github.com/daedaleanai/mantra/logging"
)

// Requirement is a row of the Requirements table.
type Requirement struct {
	Id         string
	Title      string
	OriginLink string
	Info       *string
	Manual     bool
	Deprecated bool
	Generation int64
}

// RequirementUpdate pairs a requirement's state before and after an
// in-place update.
type RequirementUpdate struct {
	Old Requirement
	New Requirement
}

// RequirementChanges is the change report returned by AddRequirements,
// grounded on the original implementation's RequirementChanges shape.
type RequirementChanges struct {
	Updated       []RequirementUpdate
	Inserted      []Requirement
	UnchangedCnt  int
	NewGeneration int64
}

// Merge folds other into c, used by the ingest layer to accumulate
// changes across several requirement sources into one report.
func (c *RequirementChanges) Merge(other *RequirementChanges) {
	c.Updated = append(c.Updated, other.Updated...)
	c.Inserted = append(c.Inserted, other.Inserted...)
	c.UnchangedCnt += other.UnchangedCnt
	if other.NewGeneration > c.NewGeneration {
		c.NewGeneration = other.NewGeneration
	}
}

// String renders the same human-readable summary as the original
// implementation's RequirementChanges Display impl.
func (c *RequirementChanges) String() string {
	var b strings.Builder
	if len(c.Updated) == 0 && len(c.Inserted) == 0 {
		if c.UnchangedCnt == 0 {
			fmt.Fprintln(&b, "No requirements found.")
		} else {
			fmt.Fprintf(&b, "'%d' requirements kept.\n", c.UnchangedCnt)
		}
		return b.String()
	}
	if len(c.Updated) > 0 {
		fmt.Fprintf(&b, "'%d' requirements updated:\n", len(c.Updated))
		for _, u := range c.Updated {
			fmt.Fprintf(&b, "- `%s`\n", u.New.Id)
		}
	}
	if len(c.Inserted) > 0 {
		fmt.Fprintf(&b, "'%d' requirements added:\n", len(c.Inserted))
		for _, r := range c.Inserted {
			fmt.Fprintf(&b, "- `%s`\n", r.Id)
		}
	}
	return b.String()
}

// MaxRequirementGeneration returns the highest generation currently stored,
// or 0 if the table is empty.
func (db *DB) MaxRequirementGeneration(ctx context.Context) (int64, error) {
	var gen sql.NullInt64
	row := db.QueryRowContext(ctx, "SELECT MAX(Generation) FROM Requirements")
	if err := row.Scan(&gen); err != nil {
		return 0, errkind.Wrap(errkind.Query, err, "failed to read max requirement generation")
	}
	return gen.Int64, nil
}

// AddRequirements performs a generational refresh: rows matching an
// incoming id are updated in place (generation bumped, before/after
// recorded); unmatched rows are inserted; hierarchy edges are then
// rebuilt for the newly inserted rows via the ancestor-climb rule.
func (db *DB) AddRequirements(ctx context.Context, reqs []Requirement) (*RequirementChanges, error) {
	oldGen, err := db.MaxRequirementGeneration(ctx)
	if err != nil {
		return nil, err
	}
	newGen := oldGen + 1

	changes := &RequirementChanges{NewGeneration: newGen}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errkind.Wrap(errkind.Connect, err, "failed to start requirement ingest transaction")
	}
	defer tx.Rollback()

	for _, req := range reqs {
		existing, found, err := queryRequirement(ctx, tx, req.Id)
		if err != nil {
			return nil, err
		}

		if found {
			unchanged := requirementsEqualIgnoringGeneration(existing, req)
			req.Generation = newGen
			if _, err := tx.ExecContext(ctx,
				`UPDATE Requirements SET Title=?, OriginLink=?, Info=?, Manual=?, Deprecated=?, Generation=? WHERE Id=?`,
				req.Title, req.OriginLink, req.Info, req.Manual, req.Deprecated, req.Generation, req.Id); err != nil {
				return nil, errkind.Wrap(errkind.Update, err, "failed to update requirement %q", req.Id)
			}
			if unchanged {
				changes.UnchangedCnt++
			} else {
				changes.Updated = append(changes.Updated, RequirementUpdate{Old: existing, New: req})
			}
			continue
		}

		req.Generation = newGen
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO Requirements (Id, Title, OriginLink, Info, Manual, Deprecated, Generation) VALUES (?,?,?,?,?,?,?)`,
			req.Id, req.Title, req.OriginLink, req.Info, req.Manual, req.Deprecated, req.Generation); err != nil {
			logging.Log().Errorw("failed inserting requirement", "id", req.Id, "error", err)
			continue
		}
		changes.Inserted = append(changes.Inserted, req)
	}

	for _, req := range changes.Inserted {
		if !strings.Contains(req.Id, ".") {
			continue
		}
		parent, ok, err := getRequirementParent(ctx, tx, req.Id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO RequirementHierarchies (ParentId, ChildId) VALUES (?,?)`,
			parent, req.Id); err != nil {
			return nil, errkind.Wrap(errkind.Insert, err, "failed to insert hierarchy edge %q -> %q", parent, req.Id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errkind.Wrap(errkind.Insert, err, "failed to commit requirement ingest")
	}
	return changes, nil
}

// getRequirementParent climbs the dotted id, stripping trailing segments,
// until it finds an existing ancestor requirement. Holes in the chain are
// skipped, matching the spec's ancestor-climb rule.
func getRequirementParent(ctx context.Context, tx *sql.Tx, id string) (string, bool, error) {
	for {
		idx := strings.LastIndex(id, ".")
		if idx < 0 {
			return "", false, nil
		}
		id = id[:idx]
		var exists int
		row := tx.QueryRowContext(ctx, "SELECT 1 FROM Requirements WHERE Id = ?", id)
		if err := row.Scan(&exists); err == nil {
			return id, true, nil
		} else if err != sql.ErrNoRows {
			return "", false, errkind.Wrap(errkind.Query, err, "failed looking up ancestor %q", id)
		}
	}
}

func queryRequirement(ctx context.Context, tx *sql.Tx, id string) (Requirement, bool, error) {
	var r Requirement
	row := tx.QueryRowContext(ctx,
		`SELECT Id, Title, OriginLink, Info, Manual, Deprecated, Generation FROM Requirements WHERE Id = ?`, id)
	if err := row.Scan(&r.Id, &r.Title, &r.OriginLink, &r.Info, &r.Manual, &r.Deprecated, &r.Generation); err != nil {
		if err == sql.ErrNoRows {
			return Requirement{}, false, nil
		}
		return Requirement{}, false, errkind.Wrap(errkind.Query, err, "failed looking up requirement %q", id)
	}
	return r, true, nil
}

func requirementsEqualIgnoringGeneration(a, b Requirement) bool {
	aInfo, bInfo := "", ""
	if a.Info != nil {
		aInfo = *a.Info
	}
	if b.Info != nil {
		bInfo = *b.Info
	}
	return a.Title == b.Title && a.OriginLink == b.OriginLink && aInfo == bInfo &&
		a.Manual == b.Manual && a.Deprecated == b.Deprecated
}

// DeleteReqsConfig selects which requirement generations to reap.
type DeleteReqsConfig struct {
	Ids    []string
	Before *int64
}

// DeleteRequirements removes requirements matching cfg, cascading to their
// hierarchy edges and traces, and returns the deleted rows.
func (db *DB) DeleteRequirements(ctx context.Context, cfg DeleteReqsConfig) ([]Requirement, error) {
	query := "SELECT Id, Title, OriginLink, Info, Manual, Deprecated, Generation FROM Requirements WHERE 1=1"
	var args []interface{}
	if len(cfg.Ids) > 0 {
		placeholders := make([]string, len(cfg.Ids))
		for i, id := range cfg.Ids {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += " AND Id IN (" + strings.Join(placeholders, ",") + ")"
	}
	if cfg.Before != nil {
		query += " AND Generation < ?"
		args = append(args, *cfg.Before)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed selecting requirements to delete")
	}
	var deleted []Requirement
	for rows.Next() {
		var r Requirement
		if err := rows.Scan(&r.Id, &r.Title, &r.OriginLink, &r.Info, &r.Manual, &r.Deprecated, &r.Generation); err != nil {
			rows.Close()
			return nil, errkind.Wrap(errkind.Query, err, "failed scanning requirement row")
		}
		deleted = append(deleted, r)
	}
	rows.Close()

	for _, r := range deleted {
		if _, err := db.ExecContext(ctx, "DELETE FROM Requirements WHERE Id = ?", r.Id); err != nil {
			return nil, errkind.Wrap(errkind.Delete, err, "failed deleting requirement %q", r.Id)
		}
	}
	return deleted, nil
}

// DeletedRequirementsString renders the same summary as the original
// implementation's DeletedRequirements Display impl.
func DeletedRequirementsString(deleted []Requirement) string {
	var b strings.Builder
	if len(deleted) == 0 {
		fmt.Fprintln(&b, "No requirement was deleted.")
		return b.String()
	}
	fmt.Fprintf(&b, "'%d' requirements deleted:\n", len(deleted))
	for _, r := range deleted {
		fmt.Fprintf(&b, "- %s\n", r.Id)
	}
	return b.String()
}

// IsValid reports whether the store contains no invalid requirements
// (a deprecated requirement that still has an active trace).
func (db *DB) IsValid(ctx context.Context) (bool, int, error) {
	var count int
	row := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM InvalidRequirements")
	if err := row.Scan(&count); err != nil {
		return false, 0, errkind.Wrap(errkind.Query, err, "failed counting invalid requirements")
	}
	return count == 0, count, nil
}
