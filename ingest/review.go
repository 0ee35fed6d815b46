package ingest

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/daedaleanai/mantra/store"
)

// CollectReviews reads every review data file and records the review and
// its manual verifications, grounded on schema/src/reviews.rs's
// ReviewSchema and the original implementation's review ingest path.
func CollectReviews(ctx context.Context, db *store.DB, files []string) error {
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return errors.Wrapf(err, "could not read review data from %q", file)
		}
		var schema ReviewSchema
		if err := json.Unmarshal(content, &schema); err != nil {
			return errors.Wrapf(err, "could not parse review data %q", file)
		}

		review := store.Review{Name: schema.Name, Date: schema.Date, Reviewer: schema.Reviewer, Comment: schema.Comment}
		verified := make([]store.VerifiedRequirement, len(schema.Requirements))
		for i, v := range schema.Requirements {
			verified[i] = store.VerifiedRequirement{RequirementId: v.Id, Comment: v.Comment}
		}

		if err := db.AddReview(ctx, review, verified); err != nil {
			return err
		}
	}
	return nil
}
