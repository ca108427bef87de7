package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	Get(ctx context.Context, id string) (Product, error)
	List(ctx context.Context) ([]Product, error)
	// ListByCategory matches category case-insensitively.
	ListByCategory(ctx context.Context, category string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	// Update overwrites price, stock and description of an existing product.
	Update(ctx context.Context, p *Product) error
}

// Seller is the caller creating or editing a product.
type Seller struct {
	ID      string
	CanSell bool
	Admin   bool
}

type NewProduct struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Category    string          `json:"category" validate:"required"`
}

// ProductUpdate changes only the fields that are set.
type ProductUpdate struct {
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

// Listener hears about products whose price, stock or description changed.
type Listener interface {
	ProductChanged(ctx context.Context, productID string)
}

type Service struct {
	repo      Repository
	logger    *zap.Logger
	now       func() time.Time
	listeners []Listener
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Notify registers l to be called after every successful Update.
func (s *Service) Notify(l Listener) {
	s.listeners = append(s.listeners, l)
}

func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns every product, or only those in category when it is non-empty.
func (s *Service) List(ctx context.Context, category string) ([]Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return s.repo.List(ctx)
	}
	return s.repo.ListByCategory(ctx, category)
}

func (s *Service) Create(ctx context.Context, seller Seller, in NewProduct) (Product, error) {
	if !seller.CanSell {
		return Product{}, ErrForbidden
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if !in.Price.IsPositive() {
		return Product{}, fmt.Errorf("%w: price must be greater than zero", ErrInvalidProduct)
	}
	if in.Stock < 0 {
		return Product{}, fmt.Errorf("%w: stock cannot be negative", ErrInvalidProduct)
	}
	category, ok := ParseCategory(in.Category)
	if !ok {
		return Product{}, fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, in.Category)
	}

	p := Product{
		ID:          uuid.NewString(),
		Name:        name,
		SellerID:    seller.ID,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
		Category:    category,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, &p); err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}

	s.logger.Info("product created",
		zap.String("product_id", p.ID),
		zap.String("seller_id", p.SellerID),
		zap.String("category", string(p.Category)),
	)
	return p, nil
}

// Update lets the product's seller, or an admin, change price, stock or
// description. Orders already placed keep the price they captured.
func (s *Service) Update(ctx context.Context, seller Seller, id string, in ProductUpdate) (Product, error) {
	if !seller.CanSell {
		return Product{}, ErrForbidden
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !seller.Admin && p.SellerID != seller.ID {
		return Product{}, ErrForbidden
	}

	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		if !in.Price.IsPositive() {
			return Product{}, fmt.Errorf("%w: price must be greater than zero", ErrInvalidProduct)
		}
		p.Price = in.Price.Round(2)
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return Product{}, fmt.Errorf("%w: stock cannot be negative", ErrInvalidProduct)
		}
		p.Stock = *in.Stock
	}

	if err := s.repo.Update(ctx, &p); err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	s.logger.Info("product updated", zap.String("product_id", p.ID), zap.Int("stock", p.Stock))
	for _, l := range s.listeners {
		l.ProductChanged(ctx, p.ID)
	}
	return p, nil
}
