package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwesi-djin/storefront-go/internal/cart"
	"github.com/cwesi-djin/storefront-go/internal/catalog"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var errNoSessionCart = errors.New("no session cart")

type CartStore struct {
	db DB
}

var _ cart.Store = (*CartStore)(nil)

func NewCartStore(db DB) *CartStore {
	return &CartStore{db: db}
}

// ownerColumn returns the carts column identifying owner and its value.
func ownerColumn(o cart.Owner) (string, string) {
	if o.IsUser() {
		return "user_id", o.UserID
	}
	return "session_key", o.SessionKey
}

func (s *CartStore) Find(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	col, val := ownerColumn(owner)

	var c cart.Cart
	err := s.db.QueryRow(ctx,
		`SELECT id, COALESCE(user_id, ''), COALESCE(session_key, ''), updated_at FROM carts WHERE `+col+` = $1`, val).
		Scan(&c.ID, &c.UserID, &c.SessionKey, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrCartNotFound
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	c.Items, err = loadItems(ctx, s.db, c.ID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AddItem locks the cart (via the upsert) before the product row. Every cart
// write keeps that order.
func (s *CartStore) AddItem(ctx context.Context, owner cart.Owner, productID string, quantity int) (cart.Item, error) {
	if err := owner.Validate(); err != nil {
		return cart.Item{}, err
	}
	if err := cart.ValidateQuantity(quantity); err != nil {
		return cart.Item{}, err
	}
	item := cart.Item{ProductID: productID}

	err := inTx(ctx, s.db, func(tx pgx.Tx) error {
		cartID, err := upsertCart(ctx, tx, owner)
		if err != nil {
			return err
		}

		name, stock, err := productStock(ctx, tx, productID)
		if err != nil {
			return err
		}

		var existing int
		err = tx.QueryRow(ctx, `SELECT quantity FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID).Scan(&existing)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("select cart item: %w", err)
		}
		if err := catalog.CheckAdditional(catalog.Product{ID: productID, Name: name, Stock: stock}, existing, quantity); err != nil {
			return err
		}

		const upsertItemSQL = `
INSERT INTO cart_items (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id) DO UPDATE
SET quantity = cart_items.quantity + EXCLUDED.quantity
RETURNING quantity
`
		if err := tx.QueryRow(ctx, upsertItemSQL, cartID, productID, quantity).Scan(&item.Quantity); err != nil {
			return fmt.Errorf("upsert cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return cart.Item{}, err
	}
	return item, nil
}

// SetQuantity checks the line exists before consulting stock, so a missing
// line reports ErrItemNotFound whatever the requested quantity.
func (s *CartStore) SetQuantity(ctx context.Context, owner cart.Owner, productID string, quantity int) error {
	if err := cart.ValidateQuantity(quantity); err != nil {
		return err
	}

	return inTx(ctx, s.db, func(tx pgx.Tx) error {
		cartID, err := lockCart(ctx, tx, owner)
		if errors.Is(err, cart.ErrCartNotFound) {
			return cart.ErrItemNotFound
		}
		if err != nil {
			return err
		}

		var current int
		err = tx.QueryRow(ctx, `SELECT quantity FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.ErrItemNotFound
		}
		if err != nil {
			return fmt.Errorf("select cart item: %w", err)
		}

		name, stock, err := productStock(ctx, tx, productID)
		if err != nil {
			return err
		}
		if err := catalog.CheckStock(catalog.Product{ID: productID, Name: name, Stock: stock}, quantity); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE cart_items SET quantity = $3 WHERE cart_id = $1 AND product_id = $2`,
			cartID, productID, quantity); err != nil {
			return fmt.Errorf("update cart item: %w", err)
		}
		return touchCart(ctx, tx, cartID)
	})
}

func (s *CartStore) RemoveItem(ctx context.Context, owner cart.Owner, productID string) error {
	return inTx(ctx, s.db, func(tx pgx.Tx) error {
		cartID, err := lockCart(ctx, tx, owner)
		if errors.Is(err, cart.ErrCartNotFound) {
			return cart.ErrItemNotFound
		}
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
		if err != nil {
			return fmt.Errorf("delete cart item: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return cart.ErrItemNotFound
		}
		return touchCart(ctx, tx, cartID)
	})
}

// Merge locks the session cart, folds its lines into the user's cart with
// cart.MergeItems and deletes the session cart, all in one transaction.
func (s *CartStore) Merge(ctx context.Context, sessionKey, userID string) (cart.MergeResult, error) {
	var res cart.MergeResult

	err := inTx(ctx, s.db, func(tx pgx.Tx) error {
		sessionCartID, err := lockCart(ctx, tx, cart.SessionOwner(sessionKey))
		if errors.Is(err, cart.ErrCartNotFound) {
			return errNoSessionCart
		}
		if err != nil {
			return err
		}

		userCartID, err := upsertCart(ctx, tx, cart.UserOwner(userID))
		if err != nil {
			return err
		}

		into, err := loadItems(ctx, tx, userCartID)
		if err != nil {
			return err
		}
		from, err := loadItems(ctx, tx, sessionCartID)
		if err != nil {
			return err
		}

		merged, moved, summed := cart.MergeItems(into, from)
		touched := make(map[string]bool, len(from))
		for _, it := range from {
			touched[it.ProductID] = true
		}

		const setItemSQL = `
INSERT INTO cart_items (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id) DO UPDATE
SET quantity = EXCLUDED.quantity
`
		for _, it := range merged {
			if !touched[it.ProductID] {
				continue
			}
			if _, err := tx.Exec(ctx, setItemSQL, userCartID, it.ProductID, it.Quantity); err != nil {
				return fmt.Errorf("merge cart item: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, sessionCartID); err != nil {
			return fmt.Errorf("delete session cart: %w", err)
		}

		res = cart.MergeResult{Merged: true, CartID: userCartID, Moved: moved, Summed: summed}
		return nil
	})
	if errors.Is(err, errNoSessionCart) {
		return cart.MergeResult{}, nil
	}
	if err != nil {
		return cart.MergeResult{}, err
	}
	return res, nil
}

// upsertCart returns the owner's cart id, creating the cart if needed. The
// DO UPDATE branch also takes the row lock, serializing writers on one cart.
func upsertCart(ctx context.Context, tx pgx.Tx, owner cart.Owner) (string, error) {
	col, _ := ownerColumn(owner)
	sql := `
INSERT INTO carts (id, user_id, session_key)
VALUES ($1, $2, $3)
ON CONFLICT (` + col + `) WHERE ` + col + ` IS NOT NULL DO UPDATE
SET updated_at = now()
RETURNING id
`
	var id string
	if err := tx.QueryRow(ctx, sql, uuid.NewString(), nullable(owner.UserID), nullable(owner.SessionKey)).Scan(&id); err != nil {
		return "", fmt.Errorf("upsert cart: %w", err)
	}
	return id, nil
}

// lockCart takes the row lock on an existing cart. It returns
// cart.ErrCartNotFound when the owner has none.
func lockCart(ctx context.Context, tx pgx.Tx, owner cart.Owner) (string, error) {
	col, val := ownerColumn(owner)
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM carts WHERE `+col+` = $1 FOR UPDATE`, val).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", cart.ErrCartNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lock cart: %w", err)
	}
	return id, nil
}

func touchCart(ctx context.Context, tx pgx.Tx, cartID string) error {
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

func productStock(ctx context.Context, tx pgx.Tx, productID string) (string, int, error) {
	var (
		name  string
		stock int
	)
	err := tx.QueryRow(ctx, `SELECT name, stock FROM products WHERE id = $1 FOR SHARE`, productID).Scan(&name, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, catalog.ErrProductNotFound
	}
	if err != nil {
		return "", 0, fmt.Errorf("select product stock: %w", err)
	}
	return name, stock, nil
}

func loadItems(ctx context.Context, q querier, cartID string) ([]cart.Item, error) {
	rows, err := q.Query(ctx, `SELECT product_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY added_at, product_id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	items := []cart.Item{}
	for rows.Next() {
		var it cart.Item
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return items, nil
}
