package store

import (
	"context"

	"github.com/daedaleanai/mantra/errkind"
	"github.com/daedaleanai/mantra/logging"
)

// Review is a manual-verification sign-off event: a reviewer attesting,
// on a given date, that some set of requirements has been checked by
// inspection rather than by an automated test.
type Review struct {
	Name     string
	Date     string
	Reviewer string
	Comment  *string
}

// VerifiedRequirement is one requirement covered by a Review.
type VerifiedRequirement struct {
	RequirementId string
	Comment       *string
}

// AddReview records a review and its per-requirement verification rows.
// A verified id with no matching requirement is logged and skipped
// rather than failing the whole review.
func (db *DB) AddReview(ctx context.Context, review Review, verified []VerifiedRequirement) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errkind.Wrap(errkind.Connect, err, "failed to start review ingest transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO Reviews (Name, Date, Reviewer, Comment) VALUES (?,?,?,?)`,
		review.Name, review.Date, review.Reviewer, review.Comment); err != nil {
		return errkind.Wrap(errkind.Insert, err, "failed inserting review %q/%q", review.Name, review.Date)
	}

	for _, v := range verified {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO ManuallyVerified (RequirementId, ReviewName, ReviewDate, Comment) VALUES (?,?,?,?)`,
			v.RequirementId, review.Name, review.Date, v.Comment)
		if err != nil {
			if isForeignKeyViolation(err) {
				logging.Log().Warnw("skipping manual verification, no requirement found", "requirement", v.RequirementId)
				continue
			}
			return errkind.Wrap(errkind.Insert, err, "failed inserting manual verification for %q", v.RequirementId)
		}
	}

	if err := tx.Commit(); err != nil {
		return errkind.Wrap(errkind.Insert, err, "failed to commit review ingest")
	}
	return nil
}

// DeleteReviewsConfig selects which reviews to reap by age.
type DeleteReviewsConfig struct {
	Before *string // ISO-8601 date string
}

// DeleteReviews removes reviews older than cfg.Before, cascading to their
// ManuallyVerified rows, and returns the number of reviews removed.
func (db *DB) DeleteReviews(ctx context.Context, cfg DeleteReviewsConfig) (int, error) {
	query := "SELECT Name, Date FROM Reviews WHERE 1=1"
	var args []interface{}
	if cfg.Before != nil {
		query += " AND unixepoch(Date) < unixepoch(?)"
		args = append(args, *cfg.Before)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, errkind.Wrap(errkind.Query, err, "failed selecting reviews to delete")
	}
	type key struct{ name, date string }
	var keys []key
	for rows.Next() {
		var k key
		if err := rows.Scan(&k.name, &k.date); err != nil {
			rows.Close()
			return 0, errkind.Wrap(errkind.Query, err, "failed scanning review row")
		}
		keys = append(keys, k)
	}
	rows.Close()

	for _, k := range keys {
		if _, err := db.ExecContext(ctx, "DELETE FROM Reviews WHERE Name=? AND Date=?", k.name, k.date); err != nil {
			return 0, errkind.Wrap(errkind.Delete, err, "failed deleting review %q/%q", k.name, k.date)
		}
	}
	return len(keys), nil
}
