package commands

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
)

const defaultMaxTries = 5

// retryStorageFailures re-runs op while it fails with a storage failure.
// Deletion procedures are idempotent so the whole procedure is retried from the start.
// Any other error kind stops the retry immediately.
func retryStorageFailures[T any](ctx context.Context, b backoff.BackOff, maxTries uint, op func(context.Context) (T, error)) (T, error) {
	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		res, err := op(ctx)
		if err != nil && !apperr.IsKind(err, apperr.StorageFailure) {
			return res, backoff.Permanent(err)
		}
		return res, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("next", next).Msg("Retrying after storage failure")
		}),
	)
}
