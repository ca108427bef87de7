package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cwesi-djin/storefront-go/internal/cache"
	"github.com/cwesi-djin/storefront-go/internal/catalog"
	"github.com/cwesi-djin/storefront-go/internal/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type ProductReader interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
}

// ViewCache holds rendered cart views. Get returns cache.ErrCacheMiss on a miss.
type ViewCache interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// viewGenKey holds the generation stamped into every view key. Bumping it
// orphans all cached views at once; they age out on their TTL.
const viewGenKey = "cart:gen"

type Service struct {
	store    Store
	products ProductReader
	cache    ViewCache
	metrics  *metrics.Metrics
	logger   *zap.Logger
	group    singleflight.Group
}

func NewService(store Store, products ProductReader, viewCache ViewCache, m *metrics.Metrics, logger *zap.Logger) *Service {
	if viewCache == nil {
		viewCache = cache.Nop{}
	}
	return &Service{
		store:    store,
		products: products,
		cache:    viewCache,
		metrics:  m,
		logger:   logger,
	}
}

// Get returns the owner's cart priced at current product prices. A missing
// cart is returned as an empty view and is not created.
func (s *Service) Get(ctx context.Context, owner Owner) (*View, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	key := s.viewKey(ctx, owner)

	var cached View
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		s.metrics.ObserveCache(true)
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("cart cache read failed", zap.String("owner", owner.Key()), zap.Error(err))
	}
	s.metrics.ObserveCache(false)

	v, err, _ := s.group.Do(key, func() (any, error) {
		view, err := s.load(ctx, owner)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, view); err != nil {
			s.logger.Warn("cart cache write failed", zap.String("owner", owner.Key()), zap.Error(err))
		}
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*View), nil
}

func (s *Service) AddItem(ctx context.Context, owner Owner, productID string, quantity int) (*View, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, catalog.ErrProductNotFound
	}
	if err := ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	item, err := s.store.AddItem(ctx, owner, productID, quantity)
	s.metrics.ObserveCartMutation("add", err)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("cart item added",
		zap.String("owner", owner.Key()),
		zap.String("product_id", productID),
		zap.Int("quantity", item.Quantity),
	)

	s.Invalidate(ctx, owner)
	return s.Get(ctx, owner)
}

// UpdateQuantity sets the line for productID to quantity. Out of range
// quantities are rejected and leave the stored quantity untouched.
func (s *Service) UpdateQuantity(ctx context.Context, owner Owner, productID string, quantity int) (*View, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateQuantity(quantity); err != nil {
		s.metrics.ObserveCartMutation("update", err)
		return nil, err
	}

	err := s.store.SetQuantity(ctx, owner, strings.TrimSpace(productID), quantity)
	s.metrics.ObserveCartMutation("update", err)
	if err != nil {
		return nil, err
	}

	s.Invalidate(ctx, owner)
	return s.Get(ctx, owner)
}

func (s *Service) RemoveItem(ctx context.Context, owner Owner, productID string) (*View, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	err := s.store.RemoveItem(ctx, owner, strings.TrimSpace(productID))
	s.metrics.ObserveCartMutation("remove", err)
	if err != nil {
		return nil, err
	}

	s.Invalidate(ctx, owner)
	return s.Get(ctx, owner)
}

// Merge folds the session cart into the user's cart on login. An empty
// session key or a session without a cart is a no-op, which makes repeated
// calls safe.
func (s *Service) Merge(ctx context.Context, sessionKey, userID string) (MergeResult, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return MergeResult{}, ErrInvalidOwner
	}
	if sessionKey == "" {
		s.metrics.ObserveMerge(false)
		return MergeResult{}, nil
	}

	res, err := s.store.Merge(ctx, sessionKey, userID)
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge session cart: %w", err)
	}
	s.metrics.ObserveMerge(res.Merged)

	if res.Merged {
		s.Invalidate(ctx, SessionOwner(sessionKey), UserOwner(userID))
		s.logger.Info("session cart merged",
			zap.String("user_id", userID),
			zap.String("cart_id", res.CartID),
			zap.Int("moved", res.Moved),
			zap.Int("summed", res.Summed),
		)
	}
	return res, nil
}

// Invalidate drops cached views for owners. Failures are logged only.
func (s *Service) Invalidate(ctx context.Context, owners ...Owner) {
	keys := make([]string, 0, len(owners))
	for _, o := range owners {
		keys = append(keys, s.viewKey(ctx, o))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cart cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *Service) load(ctx context.Context, owner Owner) (*View, error) {
	c, err := s.store.Find(ctx, owner)
	if errors.Is(err, ErrCartNotFound) {
		return &View{UserID: owner.UserID, Items: []Line{}, Total: decimal.Zero}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find cart: %w", err)
	}

	view := &View{
		CartID:    c.ID,
		UserID:    c.UserID,
		Items:     make([]Line, 0, len(c.Items)),
		Total:     decimal.Zero,
		UpdatedAt: c.UpdatedAt,
	}
	for _, it := range c.Items {
		p, err := s.products.Get(ctx, it.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("price cart line %s: %w", it.ProductID, err)
		}
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		view.Items = append(view.Items, Line{
			ProductID: it.ProductID,
			Name:      p.Name,
			Quantity:  it.Quantity,
			Price:     p.Price,
			Subtotal:  subtotal,
		})
		view.ItemCount += it.Quantity
		view.Total = view.Total.Add(subtotal)
	}
	return view, nil
}

func (s *Service) viewKey(ctx context.Context, o Owner) string {
	var gen int64
	if err := s.cache.Get(ctx, viewGenKey, &gen); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("cart cache generation read failed", zap.Error(err))
	}
	return fmt.Sprintf("cart:%d:%s", gen, o.Key())
}

// ProductChanged drops every cached view, since any cart may price the
// product. It satisfies catalog.Listener.
func (s *Service) ProductChanged(ctx context.Context, productID string) {
	gen, err := s.cache.Incr(ctx, viewGenKey)
	if err != nil {
		s.logger.Warn("cart cache generation bump failed", zap.String("product_id", productID), zap.Error(err))
		return
	}
	s.logger.Debug("cart views invalidated", zap.String("product_id", productID), zap.Int64("generation", gen))
}
