package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwesi-djin/storefront-go/internal/catalog"
	"github.com/jackc/pgx/v5"
)

const productColumns = `id, name, COALESCE(seller_id, ''), description, price::text, stock, category, created_at`

type ProductStore struct {
	db DB
}

var _ catalog.Repository = (*ProductStore)(nil)

func NewProductStore(db DB) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) Get(ctx context.Context, id string) (catalog.Product, error) {
	p, err := scanProduct(s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (s *ProductStore) List(ctx context.Context) ([]catalog.Product, error) {
	return s.list(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
}

func (s *ProductStore) ListByCategory(ctx context.Context, category string) ([]catalog.Product, error) {
	return s.list(ctx, `SELECT `+productColumns+` FROM products WHERE lower(category) = lower($1) ORDER BY name, id`, category)
}

func (s *ProductStore) Create(ctx context.Context, p *catalog.Product) error {
	const insertSQL = `
INSERT INTO products (id, name, seller_id, description, price, stock, category, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	_, err := s.db.Exec(ctx, insertSQL,
		p.ID, p.Name, nullable(p.SellerID), p.Description, p.Price.StringFixed(2), p.Stock, string(p.Category), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *ProductStore) Update(ctx context.Context, p *catalog.Product) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE products SET description = $2, price = $3, stock = $4 WHERE id = $1`,
		p.ID, p.Description, p.Price.StringFixed(2), p.Stock)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

func (s *ProductStore) list(ctx context.Context, sql string, args ...any) ([]catalog.Product, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	products := []catalog.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var (
		p        catalog.Product
		price    string
		category string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.SellerID, &p.Description, &price, &p.Stock, &category, &p.CreatedAt); err != nil {
		return catalog.Product{}, err
	}
	amount, err := parseNumeric(price)
	if err != nil {
		return catalog.Product{}, err
	}
	p.Price = amount
	p.Category = catalog.Category(category)
	return p, nil
}
