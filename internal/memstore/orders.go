package memstore

import (
	"context"
	"sort"

	"github.com/cwesi-djin/storefront-go/internal/cart"
	"github.com/cwesi-djin/storefront-go/internal/checkout"
	"github.com/cwesi-djin/storefront-go/internal/order"
)

type OrderStore struct {
	db *DB
}

var _ order.Repository = (*OrderStore)(nil)

func (s *OrderStore) Get(_ context.Context, id string) (*order.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	o, ok := s.db.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	out := copyOrder(o)
	return &out, nil
}

func (s *OrderStore) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var out []order.Order
	for _, o := range s.db.orders {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.db.orderSeq[out[i].ID] > s.db.orderSeq[out[j].ID]
	})
	return out, nil
}

type CheckoutStore struct {
	db *DB
}

var _ checkout.Store = (*CheckoutStore)(nil)

func (s *CheckoutStore) PlaceOrder(_ context.Context, userID string, build checkout.BuildFunc) (*order.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	cartID, ok := s.db.userCarts[userID]
	if !ok {
		return nil, checkout.ErrEmptyCart
	}
	c := s.db.carts[cartID]

	lines := make([]checkout.Line, 0, len(c.Items))
	for _, it := range c.Items {
		p, ok := s.db.products[it.ProductID]
		if !ok {
			continue
		}
		lines = append(lines, checkout.Line{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  it.Quantity,
			Price:     p.Price,
			Stock:     p.Stock,
		})
	}

	o, err := build(lines)
	if err != nil {
		return nil, err
	}

	for _, it := range o.Items {
		p := s.db.products[it.ProductID]
		p.Stock -= it.Quantity
		s.db.products[it.ProductID] = p
	}
	s.db.orders[o.ID] = copyOrder(*o)
	s.db.orderSeq[o.ID] = s.db.nextSeq()

	c.Items = []cart.Item{}
	c.UpdatedAt = s.db.now()
	return o, nil
}
