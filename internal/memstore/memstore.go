// Package memstore keeps every repository in process memory behind one mutex.
// It backs STORE_DRIVER=memory and the service tests.
package memstore

import (
	"sync"
	"time"

	"github.com/cwesi-djin/storefront-go/internal/account"
	"github.com/cwesi-djin/storefront-go/internal/cart"
	"github.com/cwesi-djin/storefront-go/internal/catalog"
	"github.com/cwesi-djin/storefront-go/internal/order"
	"github.com/cwesi-djin/storefront-go/internal/payment"
	"github.com/cwesi-djin/storefront-go/internal/review"
)

type DB struct {
	mu sync.Mutex

	products     map[string]catalog.Product
	carts        map[string]*cart.Cart
	userCarts    map[string]string
	sessionCarts map[string]string
	orders       map[string]order.Order
	users        map[string]account.User
	payments     []payment.Payment
	reviews      []review.Review

	// seq orders records created within the same clock tick.
	seq      int64
	orderSeq map[string]int64

	now func() time.Time
}

func New() *DB {
	return &DB{
		products:     make(map[string]catalog.Product),
		carts:        make(map[string]*cart.Cart),
		userCarts:    make(map[string]string),
		sessionCarts: make(map[string]string),
		orders:       make(map[string]order.Order),
		users:        make(map[string]account.User),
		orderSeq:     make(map[string]int64),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (db *DB) Carts() *CartStore        { return &CartStore{db: db} }
func (db *DB) Products() *ProductStore  { return &ProductStore{db: db} }
func (db *DB) Orders() *OrderStore      { return &OrderStore{db: db} }
func (db *DB) Checkout() *CheckoutStore { return &CheckoutStore{db: db} }
func (db *DB) Accounts() *AccountStore  { return &AccountStore{db: db} }
func (db *DB) Payments() *PaymentStore  { return &PaymentStore{db: db} }
func (db *DB) Reviews() *ReviewStore    { return &ReviewStore{db: db} }

func (db *DB) nextSeq() int64 {
	db.seq++
	return db.seq
}

func copyCart(c *cart.Cart) *cart.Cart {
	out := *c
	out.Items = append([]cart.Item(nil), c.Items...)
	return &out
}

func copyOrder(o order.Order) order.Order {
	o.Items = append([]order.Item(nil), o.Items...)
	return o
}
