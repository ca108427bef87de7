package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwesi-djin/storefront-go/internal/cart"
	"github.com/cwesi-djin/storefront-go/internal/checkout"
	"github.com/cwesi-djin/storefront-go/internal/order"
	"github.com/jackc/pgx/v5"
)

type OrderStore struct {
	db DB
}

var _ order.Repository = (*OrderStore)(nil)

func NewOrderStore(db DB) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx,
		`SELECT id, user_id, status, created_at, updated_at FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}

	if err := s.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *OrderStore) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, status, created_at, updated_at FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	orders := []order.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	for i := range orders {
		if err := s.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *OrderStore) loadItems(ctx context.Context, o *order.Order) error {
	rows, err := s.db.Query(ctx,
		`SELECT product_id, quantity, price::text FROM order_items WHERE order_id = $1 ORDER BY position`, o.ID)
	if err != nil {
		return fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	o.Items = []order.Item{}
	for rows.Next() {
		var (
			it    order.Item
			price string
		)
		if err := rows.Scan(&it.ProductID, &it.Quantity, &price); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if it.Price, err = parseNumeric(price); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order items: %w", err)
	}
	o.TotalPrice = order.SumItems(o.Items)
	return nil
}

func scanOrder(row pgx.Row) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	if err := row.Scan(&o.ID, &o.UserID, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return order.Order{}, err
	}
	o.Status = order.Status(status)
	return o, nil
}

type CheckoutStore struct {
	db DB
}

var _ checkout.Store = (*CheckoutStore)(nil)

func NewCheckoutStore(db DB) *CheckoutStore {
	return &CheckoutStore{db: db}
}

// PlaceOrder locks the user's cart, then the product rows it references in
// id order (SELECT ... FOR UPDATE), builds the order, then writes it,
// decrements stock and empties the cart in the same transaction.
func (s *CheckoutStore) PlaceOrder(ctx context.Context, userID string, build checkout.BuildFunc) (*order.Order, error) {
	var placed *order.Order

	err := inTx(ctx, s.db, func(tx pgx.Tx) error {
		cartID, err := lockCart(ctx, tx, cart.UserOwner(userID))
		if errors.Is(err, cart.ErrCartNotFound) {
			return checkout.ErrEmptyCart
		}
		if err != nil {
			return err
		}

		if err := lockProducts(ctx, tx, cartID); err != nil {
			return err
		}
		lines, err := cartLines(ctx, tx, cartID)
		if err != nil {
			return err
		}

		o, err := build(lines)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO orders (id, user_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
			o.ID, o.UserID, string(o.Status), o.CreatedAt, o.UpdatedAt); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i, it := range o.Items {
			if _, err := tx.Exec(ctx,
				`INSERT INTO order_items (order_id, position, product_id, quantity, price) VALUES ($1, $2, $3, $4, $5)`,
				o.ID, i, it.ProductID, it.Quantity, it.Price.StringFixed(2)); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
			if _, err := tx.Exec(ctx,
				`UPDATE products SET stock = stock - $2 WHERE id = $1`,
				it.ProductID, it.Quantity); err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		if err := touchCart(ctx, tx, cartID); err != nil {
			return err
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// lockProducts locks every product in the cart, always in id order.
func lockProducts(ctx context.Context, tx pgx.Tx, cartID string) error {
	const lockSQL = `
SELECT p.id
FROM products p
JOIN cart_items ci ON ci.product_id = p.id
WHERE ci.cart_id = $1
ORDER BY p.id
FOR UPDATE OF p
`
	rows, err := tx.Query(ctx, lockSQL, cartID)
	if err != nil {
		return fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock products: %w", err)
	}
	return nil
}

// cartLines reads the locked lines in the order they were added.
func cartLines(ctx context.Context, tx pgx.Tx, cartID string) ([]checkout.Line, error) {
	const linesSQL = `
SELECT p.id, p.name, ci.quantity, p.price::text, p.stock
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.added_at, ci.product_id
`
	rows, err := tx.Query(ctx, linesSQL, cartID)
	if err != nil {
		return nil, fmt.Errorf("select cart lines: %w", err)
	}
	defer rows.Close()

	var lines []checkout.Line
	for rows.Next() {
		var (
			l     checkout.Line
			price string
		)
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Quantity, &price, &l.Stock); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		if l.Price, err = parseNumeric(price); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	return lines, nil
}
