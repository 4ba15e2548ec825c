package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/model"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Redis keys for the model reference slots
const (
	activeModelKey = "churn:model:active"
	shadowModelKey = "churn:model:shadow"
)

// Compile-time check
var _ model.ReferenceStore = (*ModelReferenceStore)(nil)

// ModelReferenceStore implements model.ReferenceStore using Redis. The
// artifacts live on shared storage; Redis only holds which version is
// production and which is on shadow trial, so every scorer instance agrees
// instantly after a promotion.
type ModelReferenceStore struct {
	client *redis.Client
}

// NewModelReferenceStore creates a new model reference store
func NewModelReferenceStore(client *redis.Client) *ModelReferenceStore {
	return &ModelReferenceStore{client: client}
}

// Active returns the production model version id
func (s *ModelReferenceStore) Active(ctx context.Context) (string, error) {
	version, err := s.client.Get(ctx, activeModelKey).Result()
	if err == redis.Nil {
		return "", errors.Wrap(errors.ErrNoActiveModel, "no production model reference")
	}
	if err != nil {
		return "", errors.Wrap(err, "get active model reference")
	}
	return version, nil
}

// SetActive points production at the version
func (s *ModelReferenceStore) SetActive(ctx context.Context, versionID string) error {
	if err := s.client.Set(ctx, activeModelKey, versionID, 0).Err(); err != nil {
		return errors.Wrapf(err, "set active model reference to %s", versionID)
	}
	return nil
}

// Shadow returns the trial candidate, if one is set
func (s *ModelReferenceStore) Shadow(ctx context.Context) (string, bool, error) {
	version, err := s.client.Get(ctx, shadowModelKey).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "get shadow model reference")
	}
	return version, true, nil
}

// SetShadow installs a trial candidate without touching production
func (s *ModelReferenceStore) SetShadow(ctx context.Context, versionID string) error {
	if err := s.client.Set(ctx, shadowModelKey, versionID, 0).Err(); err != nil {
		return errors.Wrapf(err, "set shadow model reference to %s", versionID)
	}
	return nil
}

// PromoteShadow atomically makes the shadow candidate the production model
// and clears the shadow slot. The watch/transaction loop guarantees no
// scorer can observe a half-promoted state.
func (s *ModelReferenceStore) PromoteShadow(ctx context.Context) error {
	promote := func(tx *redis.Tx) error {
		version, err := tx.Get(ctx, shadowModelKey).Result()
		if err == redis.Nil {
			return errors.Wrap(errors.ErrNotFound, "no shadow candidate to promote")
		}
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, activeModelKey, version, 0)
			pipe.Del(ctx, shadowModelKey)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err := s.client.Watch(ctx, promote, shadowModelKey)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "promote shadow model")
		}
		return nil
	}
	return errors.Wrap(errors.ErrInternal, "promote shadow model: too much contention")
}
