package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cwesi-djin/storefront-go/internal/catalog"
	"github.com/google/uuid"
)

var ErrEmptyComment = errors.New("comment is required")

type Review struct {
	ID        string    `json:"reviewId"`
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

type Repository interface {
	Create(ctx context.Context, r *Review) error
	// ListByProduct returns reviews newest first.
	ListByProduct(ctx context.Context, productID string) ([]Review, error)
}

type ProductReader interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
}

type Service struct {
	repo     Repository
	products ProductReader
	now      func() time.Time
}

func NewService(repo Repository, products ProductReader) *Service {
	return &Service{repo: repo, products: products, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Create(ctx context.Context, userID, productID, comment string) (Review, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return Review{}, ErrEmptyComment
	}
	if _, err := s.products.Get(ctx, productID); err != nil {
		return Review{}, err
	}

	r := Review{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Comment:   comment,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, &r); err != nil {
		return Review{}, fmt.Errorf("create review: %w", err)
	}
	return r, nil
}

func (s *Service) ListForProduct(ctx context.Context, productID string) ([]Review, error) {
	if _, err := s.products.Get(ctx, productID); err != nil {
		return nil, err
	}
	reviews, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []Review{}
	}
	return reviews, nil
}
