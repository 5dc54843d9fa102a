package tasks

import (
	"context"

	"github.com/desertthunder/moodmap/internal/models"
	"github.com/desertthunder/moodmap/internal/services"
)

// BatchSize is the number of ids sent per feature lookup.
const BatchSize = 50

// FetchFeatures looks up features for ids in consecutive batches of [BatchSize] and returns the non-null records in order.
//
// No ids means no calls. The first error from src is returned as-is.
func FetchFeatures(ctx context.Context, src services.FeatureSource, ids []string) ([]models.AudioFeatures, error) {
	return fetchFeatures(ctx, src, ids, nil)
}

// fetchFeatures is [FetchFeatures] with a hook called after each batch.
func fetchFeatures(ctx context.Context, src services.FeatureSource, ids []string, done func(batch, batches int)) ([]models.AudioFeatures, error) {
	features := make([]models.AudioFeatures, 0, len(ids))
	batches := (len(ids) + BatchSize - 1) / BatchSize

	for i := 0; i < len(ids); i += BatchSize {
		end := min(i+BatchSize, len(ids))

		records, err := src.AudioFeatures(ctx, ids[i:end])
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if r != nil {
				features = append(features, *r)
			}
		}

		if done != nil {
			done(i/BatchSize+1, batches)
		}
	}
	return features, nil
}
