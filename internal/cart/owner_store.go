package cart

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"storefront_back_end/internal/metrics"
	"storefront_back_end/internal/models"
)

const (
	cartKeyPrefix      = "cart:"
	DefaultMaxAttempts = 8
)

// CartKey est la clé Redis du panier d'un utilisateur (sans TTL)
func CartKey(userID string) string {
	return cartKeyPrefix + userID
}

// OwnerStore garde le panier d'un utilisateur dans Redis.
// Chaque écriture passe par WATCH/MULTI et incrémente Version ; un conflit relance la lecture.
type OwnerStore struct {
	rdb         redis.UniversalClient
	userID      string
	maxAttempts int
	backoff     time.Duration
}

func NewOwnerStore(rdb redis.UniversalClient, userID string) *OwnerStore {
	return &OwnerStore{
		rdb:         rdb,
		userID:      userID,
		maxAttempts: DefaultMaxAttempts,
		backoff:     5 * time.Millisecond,
	}
}

// OwnerStores retourne une fabrique de stores utilisateur sur le même client
func OwnerStores(rdb redis.UniversalClient) func(userID string) Store {
	return func(userID string) Store {
		return NewOwnerStore(rdb, userID)
	}
}

func (s *OwnerStore) Owner() string { return s.userID }

func (s *OwnerStore) Load(ctx context.Context) (*models.Cart, error) {
	data, err := s.rdb.Get(ctx, CartKey(s.userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, E("cart.Load", StorageFailure, err)
	}
	return s.decode(data)
}

func (s *OwnerStore) decode(data []byte) (*models.Cart, error) {
	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, E("cart.decode", StorageFailure, err)
	}
	if cart.Lines == nil {
		cart.Lines = []models.CartLine{}
	}
	cart.OwnerID = s.userID
	return &cart, nil
}

func (s *OwnerStore) Mutate(ctx context.Context, create bool, fn func(*models.Cart) error) (*models.Cart, bool, error) {
	key := CartKey(s.userID)

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		var (
			result  *models.Cart
			changed bool
		)

		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			var cart *models.Cart
			data, err := tx.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
				if !create {
					return E("cart.Mutate", NotFound, ErrCartNotFound)
				}
				cart = models.NewCart(s.userID)
			case err != nil:
				return err
			default:
				if cart, err = s.decode(data); err != nil {
					return err
				}
			}

			if err := fn(cart); err != nil {
				if errors.Is(err, errUnchanged) {
					result = cart
					return nil
				}
				return err
			}

			cart.Version++
			now := time.Now().UTC()
			cart.UpdatedAt = &now
			payload, err := json.Marshal(cart)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, 0)
				return nil
			})
			if err != nil {
				return err
			}
			result, changed = cart, true
			return nil
		}, key)

		switch {
		case err == nil:
			return result, changed, nil
		case errors.Is(err, redis.TxFailedErr):
			metrics.CartConflictRetries.Inc()
			if err := s.wait(ctx, attempt); err != nil {
				return nil, false, E("cart.Mutate", StorageFailure, err)
			}
			continue
		case KindOf(err) != Unknown:
			return nil, false, err
		default:
			return nil, false, E("cart.Mutate", StorageFailure, err)
		}
	}

	return nil, false, E("cart.Mutate", StorageFailure, ErrTooManyRetries)
}

func (s *OwnerStore) wait(ctx context.Context, attempt int) error {
	return backoff(ctx, s.backoff, attempt)
}

// backoff applique un délai linéaire avec un peu de gigue
func backoff(ctx context.Context, base time.Duration, attempt int) error {
	d := base*time.Duration(attempt+1) + time.Duration(rand.Int64N(int64(base)+1))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
