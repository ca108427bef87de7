package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cwesi-djin/storefront-go/internal/account"
	"github.com/cwesi-djin/storefront-go/internal/cache"
	"github.com/cwesi-djin/storefront-go/internal/cart"
	"github.com/cwesi-djin/storefront-go/internal/catalog"
	"github.com/cwesi-djin/storefront-go/internal/checkout"
	"github.com/cwesi-djin/storefront-go/internal/contracts"
	"github.com/cwesi-djin/storefront-go/internal/db"
	"github.com/cwesi-djin/storefront-go/internal/events"
	"github.com/cwesi-djin/storefront-go/internal/order"
	"github.com/cwesi-djin/storefront-go/internal/postgres"
	"github.com/cwesi-djin/storefront-go/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seed(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	users := postgres.NewAccountStore(pool)
	for _, u := range []account.User{
		{ID: "seller-1", Email: "seller@example.com", Username: "seller", Role: account.RoleSeller, PasswordHash: "x", CreatedAt: time.Now().UTC()},
		{ID: "buyer-1", Email: "buyer@example.com", Username: "buyer", Role: account.RoleCustomer, PasswordHash: "x", CreatedAt: time.Now().UTC()},
	} {
		require.NoError(t, users.Create(ctx, &u))
	}

	products := postgres.NewProductStore(pool)
	for _, p := range []catalog.Product{
		{ID: "A", Name: "Notebook", SellerID: "seller-1", Price: decimal.RequireFromString("3.25"), Stock: 5, Category: catalog.CategoryBooks, CreatedAt: time.Now().UTC()},
		{ID: "B", Name: "Pen", SellerID: "seller-1", Price: decimal.RequireFromString("1.10"), Stock: 1, Category: catalog.CategoryBooks, CreatedAt: time.Now().UTC()},
	} {
		require.NoError(t, products.Create(ctx, &p))
	}
}

func TestGuestCartMergeAndCheckout(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	ctx := context.Background()

	pool, dsn := testutil.StartPostgres(t)
	seed(t, pool)

	conn := testutil.StartRabbitMQ(t)
	sqlDB, err := db.OpenSQL(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	publisher, err := events.NewPublisher(conn, events.NewSequenceRepository(sqlDB))
	require.NoError(t, err)
	t.Cleanup(func() { _ = publisher.Close() })

	consumeCh, err := conn.Channel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = consumeCh.Close() })
	queue, err := events.BindOrderPlaced(consumeCh, "")
	require.NoError(t, err)
	msgs, err := consumeCh.Consume(queue, "integration-order-placed", true, true, false, false, nil)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := zap.NewNop()
	products := postgres.NewProductStore(pool)
	carts := cart.NewService(postgres.NewCartStore(pool), products, cache.NewRedisCache(rdb, time.Minute), nil, logger)
	checkouts := checkout.NewService(postgres.NewCheckoutStore(pool), carts, publisher, nil, logger)
	orders := order.NewService(postgres.NewOrderStore(pool))

	guest := cart.SessionOwner("guest-session")
	buyer := cart.UserOwner("buyer-1")

	_, err = carts.AddItem(ctx, guest, "A", 2)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, guest, "B", 1)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, buyer, "A", 1)
	require.NoError(t, err)

	_, err = carts.AddItem(ctx, guest, "B", 1)
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	res, err := carts.Merge(ctx, "guest-session", "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Moved)
	assert.Equal(t, 1, res.Summed)

	again, err := carts.Merge(ctx, "guest-session", "buyer-1")
	require.NoError(t, err)
	assert.False(t, again.Merged)

	view, err := carts.Get(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 3, view.Items[0].Quantity)

	_, err = checkouts.Checkout(ctx, guest, events.EventMeta{})
	require.ErrorIs(t, err, checkout.ErrLoginRequired)

	placed, err := checkouts.Checkout(ctx, buyer, events.EventMeta{CorrelationID: "cid-1"})
	require.NoError(t, err)
	assert.True(t, placed.TotalPrice.Equal(decimal.RequireFromString("10.85")))

	view, err = carts.Get(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = checkouts.Checkout(ctx, buyer, events.EventMeta{})
	require.ErrorIs(t, err, checkout.ErrEmptyCart)

	a, err := products.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 2, a.Stock)

	// A later price change leaves the order's captured price alone.
	a.Price = decimal.RequireFromString("9.99")
	require.NoError(t, products.Update(ctx, &a))
	stored, err := orders.GetForUser(ctx, "buyer-1", placed.ID)
	require.NoError(t, err)
	assert.True(t, stored.Items[0].Price.Equal(decimal.RequireFromString("3.25")))

	select {
	case msg := <-msgs:
		var env contracts.EventEnvelope
		require.NoError(t, json.Unmarshal(msg.Body, &env))
		assert.Equal(t, contracts.OrderPlacedEventName, env.EventName)
		assert.Equal(t, placed.ID, env.Payload.OrderID)
		assert.Equal(t, placed.ID, env.PartitionKey)
		assert.Equal(t, int64(1), env.Sequence)
		assert.Equal(t, "cid-1", msg.CorrelationId)
		assert.Len(t, env.Payload.Items, 2)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for OrderPlaced")
	}
}

func TestConcurrentAddsRespectStock(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	ctx := context.Background()

	pool, _ := testutil.StartPostgres(t)
	seed(t, pool)
	store := postgres.NewCartStore(pool)
	owner := cart.UserOwner("buyer-1")

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.AddItem(ctx, owner, "A", 1); err == nil {
				accepted.Add(1)
			} else {
				assert.ErrorIs(t, err, catalog.ErrInsufficientStock)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), accepted.Load())
	c, err := store.Find(ctx, owner)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
}

func TestConcurrentCheckoutsSharingProducts(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	ctx := context.Background()

	pool, _ := testutil.StartPostgres(t)
	seed(t, pool)
	products := postgres.NewProductStore(pool)
	for _, p := range []catalog.Product{
		{ID: "C", Name: "Cup", SellerID: "seller-1", Price: decimal.RequireFromString("2.00"), Stock: 100, Category: catalog.CategoryHome, CreatedAt: time.Now().UTC()},
		{ID: "D", Name: "Dish", SellerID: "seller-1", Price: decimal.RequireFromString("3.00"), Stock: 100, Category: catalog.CategoryHome, CreatedAt: time.Now().UTC()},
	} {
		require.NoError(t, products.Create(ctx, &p))
	}

	carts := postgres.NewCartStore(pool)
	placer := postgres.NewCheckoutStore(pool)
	orders := postgres.NewOrderStore(pool)

	// Half the carts hold C then D, the other half D then C.
	buyers := make([]string, 8)
	for i := range buyers {
		buyers[i] = fmt.Sprintf("buyer-%d", i+10)
		first, second := "C", "D"
		if i%2 == 1 {
			first, second = second, first
		}
		owner := cart.UserOwner(buyers[i])
		_, err := carts.AddItem(ctx, owner, first, 1)
		require.NoError(t, err)
		_, err = carts.AddItem(ctx, owner, second, 1)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for _, buyer := range buyers {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := placer.PlaceOrder(ctx, buyer, func(lines []checkout.Line) (*order.Order, error) {
				return checkout.BuildOrder(buyer, lines, time.Now().UTC())
			})
			assert.NoError(t, err, "checkout %s", buyer)
		}()
		go func() {
			defer wg.Done()
			_, err := carts.AddItem(ctx, cart.UserOwner(buyer), "C", 1)
			assert.NoError(t, err, "add %s", buyer)
		}()
	}
	wg.Wait()

	// Every C unit is either sold or still sitting in a cart.
	ordered := 0
	for _, buyer := range buyers {
		placed, err := orders.ListByUser(ctx, buyer)
		require.NoError(t, err)
		require.Len(t, placed, 1)
		for _, it := range placed[0].Items {
			if it.ProductID == "C" {
				ordered += it.Quantity
			}
		}
	}
	cup, err := products.Get(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, 100-ordered, cup.Stock)

	dish, err := products.Get(ctx, "D")
	require.NoError(t, err)
	assert.Equal(t, 100-len(buyers), dish.Stock)
}
