package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/cwesi-djin/storefront-go/internal/cart"
	"github.com/cwesi-djin/storefront-go/internal/catalog"
	"github.com/cwesi-djin/storefront-go/internal/events"
	"github.com/cwesi-djin/storefront-go/internal/metrics"
	"github.com/cwesi-djin/storefront-go/internal/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrLoginRequired = errors.New("checkout requires a signed-in user")
)

// Line is a cart item joined with the product row it points at, read inside
// the checkout transaction.
type Line struct {
	ProductID string
	Name      string
	Quantity  int
	Price     decimal.Decimal
	Stock     int
}

// BuildFunc turns locked cart lines into the order to persist.
type BuildFunc func(lines []Line) (*order.Order, error)

// Store places orders atomically: read and lock the user's cart lines, call
// build, persist the order, decrement stock and empty the cart. Any error
// from build aborts without side effects.
type Store interface {
	PlaceOrder(ctx context.Context, userID string, build BuildFunc) (*order.Order, error)
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, meta events.EventMeta, o *order.Order) error
}

type CartInvalidator interface {
	Invalidate(ctx context.Context, owners ...cart.Owner)
}

// BuildOrder snapshots each line's current price into a Pending order.
func BuildOrder(userID string, lines []Line, now time.Time) (*order.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	o := &order.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    order.StatusPending,
		Items:     make([]order.Item, 0, len(lines)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, l := range lines {
		if l.Quantity > l.Stock {
			return nil, &catalog.StockError{
				ProductID: l.ProductID,
				Name:      l.Name,
				Requested: l.Quantity,
				Available: l.Stock,
			}
		}
		o.Items = append(o.Items, order.Item{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.Price,
		})
	}
	o.TotalPrice = order.SumItems(o.Items)
	return o, nil
}

type Service struct {
	store     Store
	publisher Publisher
	carts     CartInvalidator
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires checkout. publisher may be nil when events are disabled.
func NewService(store Store, carts CartInvalidator, publisher Publisher, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		carts:     carts,
		metrics:   m,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Checkout converts the user's cart into an order and empties the cart.
func (s *Service) Checkout(ctx context.Context, owner cart.Owner, meta events.EventMeta) (*order.Order, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if !owner.IsUser() {
		return nil, ErrLoginRequired
	}

	o, err := s.store.PlaceOrder(ctx, owner.UserID, func(lines []Line) (*order.Order, error) {
		return BuildOrder(owner.UserID, lines, s.now())
	})
	switch {
	case errors.Is(err, ErrEmptyCart):
		s.metrics.ObserveCheckout("empty")
		return nil, err
	case errors.Is(err, catalog.ErrInsufficientStock):
		s.metrics.ObserveCheckout("insufficient_stock")
		s.logger.Info("checkout rejected", zap.String("user_id", owner.UserID), zap.Error(err))
		return nil, err
	case err != nil:
		s.metrics.ObserveCheckout("error")
		return nil, err
	}
	s.metrics.ObserveCheckout("placed")

	if s.carts != nil {
		s.carts.Invalidate(ctx, owner)
	}

	s.logger.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Int("lines", len(o.Items)),
		zap.String("total", o.TotalPrice.StringFixed(2)),
		zap.String("correlation_id", meta.CorrelationID),
	)

	if s.publisher != nil {
		if meta.PartitionKey == "" {
			meta.PartitionKey = o.ID
		}
		if err := s.publisher.PublishOrderPlaced(ctx, meta, o); err != nil {
			s.logger.Error("publish OrderPlaced failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	return o, nil
}
