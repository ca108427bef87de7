package memstore

import (
	"context"

	"github.com/cwesi-djin/storefront-go/internal/cart"
	"github.com/cwesi-djin/storefront-go/internal/catalog"
	"github.com/google/uuid"
)

type CartStore struct {
	db *DB
}

var _ cart.Store = (*CartStore)(nil)

func (s *CartStore) Find(_ context.Context, owner cart.Owner) (*cart.Cart, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c := s.lookup(owner)
	if c == nil {
		return nil, cart.ErrCartNotFound
	}
	return copyCart(c), nil
}

func (s *CartStore) AddItem(_ context.Context, owner cart.Owner, productID string, quantity int) (cart.Item, error) {
	if err := owner.Validate(); err != nil {
		return cart.Item{}, err
	}
	if err := cart.ValidateQuantity(quantity); err != nil {
		return cart.Item{}, err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, ok := s.db.products[productID]
	if !ok {
		return cart.Item{}, catalog.ErrProductNotFound
	}

	existing := 0
	if c := s.lookup(owner); c != nil {
		existing = c.Quantity(productID)
	}
	if err := catalog.CheckAdditional(p, existing, quantity); err != nil {
		return cart.Item{}, err
	}

	c := s.getOrCreate(owner)
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += quantity
			c.UpdatedAt = s.db.now()
			return c.Items[i], nil
		}
	}
	item := cart.Item{ProductID: productID, Quantity: quantity}
	c.Items = append(c.Items, item)
	c.UpdatedAt = s.db.now()
	return item, nil
}

func (s *CartStore) SetQuantity(_ context.Context, owner cart.Owner, productID string, quantity int) error {
	if err := cart.ValidateQuantity(quantity); err != nil {
		return err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c := s.lookup(owner)
	if c == nil {
		return cart.ErrItemNotFound
	}
	idx := indexOf(c.Items, productID)
	if idx < 0 {
		return cart.ErrItemNotFound
	}
	p, ok := s.db.products[productID]
	if !ok {
		return catalog.ErrProductNotFound
	}
	if err := catalog.CheckStock(p, quantity); err != nil {
		return err
	}

	c.Items[idx].Quantity = quantity
	c.UpdatedAt = s.db.now()
	return nil
}

func (s *CartStore) RemoveItem(_ context.Context, owner cart.Owner, productID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c := s.lookup(owner)
	if c == nil {
		return cart.ErrItemNotFound
	}
	idx := indexOf(c.Items, productID)
	if idx < 0 {
		return cart.ErrItemNotFound
	}

	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.UpdatedAt = s.db.now()
	return nil
}

func (s *CartStore) Merge(_ context.Context, sessionKey, userID string) (cart.MergeResult, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	sessionCartID, ok := s.db.sessionCarts[sessionKey]
	if !ok {
		return cart.MergeResult{}, nil
	}
	session := s.db.carts[sessionCartID]

	target := s.getOrCreate(cart.UserOwner(userID))
	merged, moved, summed := cart.MergeItems(target.Items, session.Items)
	target.Items = merged
	target.UpdatedAt = s.db.now()

	delete(s.db.carts, sessionCartID)
	delete(s.db.sessionCarts, sessionKey)

	return cart.MergeResult{Merged: true, CartID: target.ID, Moved: moved, Summed: summed}, nil
}

func (s *CartStore) lookup(owner cart.Owner) *cart.Cart {
	var (
		id string
		ok bool
	)
	if owner.IsUser() {
		id, ok = s.db.userCarts[owner.UserID]
	} else {
		id, ok = s.db.sessionCarts[owner.SessionKey]
	}
	if !ok {
		return nil
	}
	return s.db.carts[id]
}

func (s *CartStore) getOrCreate(owner cart.Owner) *cart.Cart {
	if c := s.lookup(owner); c != nil {
		return c
	}
	c := &cart.Cart{
		ID:         uuid.NewString(),
		UserID:     owner.UserID,
		SessionKey: owner.SessionKey,
		Items:      []cart.Item{},
		UpdatedAt:  s.db.now(),
	}
	s.db.carts[c.ID] = c
	if owner.IsUser() {
		s.db.userCarts[owner.UserID] = c.ID
	} else {
		s.db.sessionCarts[owner.SessionKey] = c.ID
	}
	return c
}

func indexOf(items []cart.Item, productID string) int {
	for i, it := range items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}
