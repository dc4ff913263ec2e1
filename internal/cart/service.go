package cart

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Service reads carts through the cache and empties them after checkout.
type Service struct {
	repo  Repository
	cache Cache
	log   *zap.Logger
	sfg   singleflight.Group
}

func NewService(repo Repository, cache Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// GetCart returns the user's cart, or an empty one when nothing is saved.
func (s *Service) GetCart(ctx context.Context, userID int64) (*Cart, error) {
	key := strconv.FormatInt(userID, 10)
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn("cart cache get failed", zap.Int64("user_id", userID), zap.Error(err))
		}

		cart, err = s.repo.GetCart(ctx, userID)
		if errors.Is(err, ErrCartNotFound) {
			return &Cart{UserID: userID}, nil
		}
		if err != nil {
			return nil, err
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(setCtx, userID, cart); err != nil {
				s.log.Warn("cart cache set failed", zap.Int64("user_id", userID), zap.Error(err))
			}
		}()
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Cart), nil
}

// ClearCart deletes the user's cart. Clearing an already empty cart succeeds.
func (s *Service) ClearCart(ctx context.Context, userID int64) error {
	err := s.repo.DeleteCart(ctx, userID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *Service) invalidate(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.Warn("cart cache invalidate failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
