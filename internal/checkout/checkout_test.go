package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cwesi-djin/storefront-go/internal/cart"
	"github.com/cwesi-djin/storefront-go/internal/catalog"
	"github.com/cwesi-djin/storefront-go/internal/events"
	"github.com/cwesi-djin/storefront-go/internal/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	lines  map[string][]Line
	placed []*order.Order
	err    error
}

func (f *fakeStore) PlaceOrder(_ context.Context, userID string, build BuildFunc) (*order.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	o, err := build(f.lines[userID])
	if err != nil {
		return nil, err
	}
	f.placed = append(f.placed, o)
	delete(f.lines, userID)
	return o, nil
}

type fakePublisher struct {
	metas  []events.EventMeta
	orders []*order.Order
	err    error
}

func (f *fakePublisher) PublishOrderPlaced(_ context.Context, meta events.EventMeta, o *order.Order) error {
	f.metas = append(f.metas, meta)
	f.orders = append(f.orders, o)
	return f.err
}

type fakeInvalidator struct {
	owners []cart.Owner
}

func (f *fakeInvalidator) Invalidate(_ context.Context, owners ...cart.Owner) {
	f.owners = append(f.owners, owners...)
}

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func twoLineCart() []Line {
	return []Line{
		{ProductID: "a", Name: "Mug", Quantity: 2, Price: decimal.RequireFromString("8.00"), Stock: 5},
		{ProductID: "b", Name: "Tea", Quantity: 1, Price: decimal.RequireFromString("4.50"), Stock: 1},
	}
}

func newTestService(store Store, pub Publisher, inv CartInvalidator) *Service {
	svc := NewService(store, inv, pub, nil, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestBuildOrder(t *testing.T) {
	tests := map[string]struct {
		lines   []Line
		wantErr error
	}{
		"snapshots prices": {lines: twoLineCart()},
		"empty cart":       {lines: nil, wantErr: ErrEmptyCart},
		"over stock": {
			lines:   []Line{{ProductID: "a", Name: "Mug", Quantity: 3, Price: decimal.NewFromInt(1), Stock: 2}},
			wantErr: catalog.ErrInsufficientStock,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			o, err := BuildOrder("u1", tc.lines, fixedNow)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, o)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, order.StatusPending, o.Status)
			assert.Equal(t, "u1", o.UserID)
			require.Len(t, o.Items, 2)
			assert.True(t, o.Items[0].Price.Equal(decimal.RequireFromString("8.00")))
			assert.True(t, o.Items[1].Price.Equal(decimal.RequireFromString("4.50")))
			assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("20.50")))
			assert.Equal(t, fixedNow, o.CreatedAt)
		})
	}
}

func TestCheckoutPlacesOrderAndPublishes(t *testing.T) {
	store := &fakeStore{lines: map[string][]Line{"u1": twoLineCart()}}
	pub := &fakePublisher{}
	inv := &fakeInvalidator{}
	svc := newTestService(store, pub, inv)

	o, err := svc.Checkout(context.Background(), cart.UserOwner("u1"), events.EventMeta{CorrelationID: "corr"})
	require.NoError(t, err)

	assert.Len(t, o.Items, 2)
	assert.Equal(t, []cart.Owner{cart.UserOwner("u1")}, inv.owners)
	require.Len(t, pub.orders, 1)
	assert.Equal(t, o.ID, pub.orders[0].ID)
	assert.Equal(t, o.ID, pub.metas[0].PartitionKey)
	assert.Equal(t, "corr", pub.metas[0].CorrelationID)
}

func TestCheckoutEmptyCartCreatesNoOrder(t *testing.T) {
	store := &fakeStore{lines: map[string][]Line{}}
	pub := &fakePublisher{}
	inv := &fakeInvalidator{}
	svc := newTestService(store, pub, inv)

	o, err := svc.Checkout(context.Background(), cart.UserOwner("u1"), events.EventMeta{})

	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, o)
	assert.Empty(t, store.placed)
	assert.Empty(t, pub.orders)
	assert.Empty(t, inv.owners)
}

func TestCheckoutRequiresUser(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil, nil)

	_, err := svc.Checkout(context.Background(), cart.SessionOwner("sess"), events.EventMeta{})
	require.ErrorIs(t, err, ErrLoginRequired)

	_, err = svc.Checkout(context.Background(), cart.Owner{}, events.EventMeta{})
	require.ErrorIs(t, err, cart.ErrInvalidOwner)
}

func TestCheckoutPublishFailureKeepsOrder(t *testing.T) {
	store := &fakeStore{lines: map[string][]Line{"u1": twoLineCart()}}
	svc := newTestService(store, &fakePublisher{err: errors.New("broker down")}, nil)

	o, err := svc.Checkout(context.Background(), cart.UserOwner("u1"), events.EventMeta{})

	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Len(t, store.placed, 1)
}

func TestCheckoutStoreError(t *testing.T) {
	boom := errors.New("serialization failure")
	svc := newTestService(&fakeStore{err: boom}, nil, nil)

	_, err := svc.Checkout(context.Background(), cart.UserOwner("u1"), events.EventMeta{})

	require.ErrorIs(t, err, boom)
}
