package cart_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cwesi-djin/storefront-go/internal/cache"
	"github.com/cwesi-djin/storefront-go/internal/cart"
	"github.com/cwesi-djin/storefront-go/internal/catalog"
	"github.com/cwesi-djin/storefront-go/internal/memstore"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	db  *memstore.DB
	svc *cart.Service
	mr  *miniredis.Miniredis
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := memstore.New()
	products := []catalog.Product{
		{ID: "A", Name: "Notebook", Price: decimal.RequireFromString("3.25"), Stock: 5, Category: catalog.CategoryBooks},
		{ID: "B", Name: "Pen", Price: decimal.RequireFromString("1.10"), Stock: 1, Category: catalog.CategoryBooks},
	}
	for i := range products {
		require.NoError(t, db.Products().Create(context.Background(), &products[i]))
	}

	svc := cart.NewService(db.Carts(), db.Products(), cache.NewRedisCache(client, time.Minute), nil, zap.NewNop())
	return fixture{db: db, svc: svc, mr: mr}
}

func TestGetMissingCartIsEmptyAndNotCreated(t *testing.T) {
	f := newFixture(t)
	owner := cart.SessionOwner("s1")

	v, err := f.svc.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, v.Items)
	assert.Empty(t, v.CartID)
	assert.True(t, v.Total.IsZero())

	_, err = f.db.Carts().Find(context.Background(), owner)
	assert.ErrorIs(t, err, cart.ErrCartNotFound)
}

func TestAddItemPricesLines(t *testing.T) {
	f := newFixture(t)
	owner := cart.UserOwner("u1")
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, owner, "A", 1)
	require.NoError(t, err)
	v, err := f.svc.AddItem(ctx, owner, "A", 1)
	require.NoError(t, err)
	v, err = f.svc.AddItem(ctx, owner, "B", 1)
	require.NoError(t, err)

	require.Len(t, v.Items, 2)
	assert.Equal(t, 2, v.Items[0].Quantity)
	assert.Equal(t, "Notebook", v.Items[0].Name)
	assert.True(t, v.Items[0].Subtotal.Equal(decimal.RequireFromString("6.50")))
	assert.True(t, v.Total.Equal(decimal.RequireFromString("7.60")))
	assert.Equal(t, 3, v.ItemCount)
}

func TestAddItemAtStockLimitIsRejected(t *testing.T) {
	f := newFixture(t)
	owner := cart.SessionOwner("s1")
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, owner, "B", 1)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, owner, "B", 1)
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)
	assert.Equal(t, "only 1 of Pen in stock", err.Error())

	v, err := f.svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Items[0].Quantity)
}

func TestAddItemValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, cart.UserOwner("u1"), "A", 0)
	assert.ErrorIs(t, err, cart.ErrInvalidQuantity)

	_, err = f.svc.AddItem(ctx, cart.UserOwner("u1"), "A", cart.MaxQuantity+1)
	assert.ErrorIs(t, err, cart.ErrInvalidQuantity)

	_, err = f.svc.AddItem(ctx, cart.UserOwner("u1"), "nope", 1)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	_, err = f.svc.AddItem(ctx, cart.Owner{}, "A", 1)
	assert.ErrorIs(t, err, cart.ErrInvalidOwner)
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture(t)
	owner := cart.UserOwner("u1")
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, owner, "A", 2)
	require.NoError(t, err)

	t.Run("zero keeps prior quantity", func(t *testing.T) {
		_, err := f.svc.UpdateQuantity(ctx, owner, "A", 0)
		require.ErrorIs(t, err, cart.ErrInvalidQuantity)

		v, err := f.svc.Get(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, 2, v.Items[0].Quantity)
	})

	t.Run("past column range keeps prior quantity", func(t *testing.T) {
		_, err := f.svc.UpdateQuantity(ctx, owner, "A", cart.MaxQuantity+1)
		require.ErrorIs(t, err, cart.ErrInvalidQuantity)
	})

	t.Run("above stock rejected", func(t *testing.T) {
		_, err := f.svc.UpdateQuantity(ctx, owner, "A", 6)
		require.ErrorIs(t, err, catalog.ErrInsufficientStock)
	})

	t.Run("missing line", func(t *testing.T) {
		_, err := f.svc.UpdateQuantity(ctx, owner, "B", 1)
		require.ErrorIs(t, err, cart.ErrItemNotFound)
	})

	t.Run("sets quantity", func(t *testing.T) {
		v, err := f.svc.UpdateQuantity(ctx, owner, "A", 5)
		require.NoError(t, err)
		assert.Equal(t, 5, v.Items[0].Quantity)
	})
}

func TestRemoveItem(t *testing.T) {
	f := newFixture(t)
	owner := cart.UserOwner("u1")
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, owner, "A", 1)
	require.NoError(t, err)

	v, err := f.svc.RemoveItem(ctx, owner, "A")
	require.NoError(t, err)
	assert.Empty(t, v.Items)
	assert.NotEmpty(t, v.CartID)

	_, err = f.svc.RemoveItem(ctx, owner, "A")
	assert.ErrorIs(t, err, cart.ErrItemNotFound)
}

func TestMergeSumsQuantities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, cart.SessionOwner("s1"), "A", 2)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, cart.UserOwner("u1"), "A", 1)
	require.NoError(t, err)

	res, err := f.svc.Merge(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.Equal(t, cart.MergeResult{Merged: true, CartID: res.CartID, Summed: 1}, res)

	v, err := f.svc.Get(ctx, cart.UserOwner("u1"))
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 3, v.Items[0].Quantity)

	session, err := f.svc.Get(ctx, cart.SessionOwner("s1"))
	require.NoError(t, err)
	assert.Empty(t, session.Items)
}

func TestMergeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, cart.SessionOwner("s1"), "A", 2)
	require.NoError(t, err)

	first, err := f.svc.Merge(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.True(t, first.Merged)
	assert.Equal(t, 1, first.Moved)

	second, err := f.svc.Merge(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.False(t, second.Merged)

	v, err := f.svc.Get(ctx, cart.UserOwner("u1"))
	require.NoError(t, err)
	assert.Equal(t, 2, v.Items[0].Quantity)
}

func TestMergeNoops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Merge(ctx, "", "u1")
	require.NoError(t, err)
	assert.False(t, res.Merged)

	res, err = f.svc.Merge(ctx, "unknown-session", "u1")
	require.NoError(t, err)
	assert.False(t, res.Merged)

	_, err = f.svc.Merge(ctx, "s1", "")
	assert.ErrorIs(t, err, cart.ErrInvalidOwner)
}

func TestGetServesFromCacheUntilMutation(t *testing.T) {
	f := newFixture(t)
	owner := cart.UserOwner("u1")
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, owner, "A", 1)
	require.NoError(t, err)
	assert.True(t, f.mr.Exists("storefront:cart:0:user:u1"))

	// change the price behind the cache's back
	p, err := f.db.Products().Get(ctx, "A")
	require.NoError(t, err)
	p.Price = decimal.NewFromInt(100)
	require.NoError(t, f.db.Products().Update(ctx, &p))

	cached, err := f.svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.True(t, cached.Total.Equal(decimal.RequireFromString("3.25")))

	v, err := f.svc.AddItem(ctx, owner, "A", 1)
	require.NoError(t, err)
	assert.True(t, v.Total.Equal(decimal.NewFromInt(200)))
}

func TestProductChangedDropsCachedViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyers := []cart.Owner{cart.UserOwner("u1"), cart.SessionOwner("s1")}
	for _, o := range buyers {
		_, err := f.svc.AddItem(ctx, o, "A", 1)
		require.NoError(t, err)
	}

	p, err := f.db.Products().Get(ctx, "A")
	require.NoError(t, err)
	p.Price = decimal.RequireFromString("5.00")
	require.NoError(t, f.db.Products().Update(ctx, &p))

	f.svc.ProductChanged(ctx, "A")
	assert.True(t, f.mr.Exists("storefront:cart:gen"))

	for _, o := range buyers {
		v, err := f.svc.Get(ctx, o)
		require.NoError(t, err)
		assert.True(t, v.Total.Equal(decimal.RequireFromString("5.00")), o.Key())
	}
	assert.True(t, f.mr.Exists("storefront:cart:1:user:u1"))
}

func TestGetSurvivesCacheOutage(t *testing.T) {
	f := newFixture(t)
	owner := cart.UserOwner("u1")
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, owner, "A", 1)
	require.NoError(t, err)

	f.mr.Close()

	v, err := f.svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, v.Items, 1)
}

type countingStore struct {
	cart.Store
	mu    sync.Mutex
	finds int
	gate  chan struct{}
}

func (c *countingStore) Find(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	c.mu.Lock()
	c.finds++
	c.mu.Unlock()
	<-c.gate
	return c.Store.Find(ctx, owner)
}

func TestConcurrentMissesShareOneLoad(t *testing.T) {
	db := memstore.New()
	store := &countingStore{Store: db.Carts(), gate: make(chan struct{})}
	svc := cart.NewService(store, db.Products(), cache.Nop{}, nil, zap.NewNop())

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Get(context.Background(), cart.UserOwner("u1"))
			errs <- err
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(store.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Less(t, store.finds, 8)
}

type failingStore struct {
	cart.Store
}

func (failingStore) Find(context.Context, cart.Owner) (*cart.Cart, error) {
	return nil, errors.New("connection refused")
}

func TestGetPropagatesStoreError(t *testing.T) {
	db := memstore.New()
	svc := cart.NewService(failingStore{Store: db.Carts()}, db.Products(), nil, nil, zap.NewNop())

	_, err := svc.Get(context.Background(), cart.UserOwner("u1"))
	require.ErrorContains(t, err, "connection refused")
}
