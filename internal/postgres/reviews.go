package postgres

import (
	"context"
	"fmt"

	"github.com/cwesi-djin/storefront-go/internal/review"
)

type ReviewStore struct {
	db DB
}

var _ review.Repository = (*ReviewStore)(nil)

func NewReviewStore(db DB) *ReviewStore {
	return &ReviewStore{db: db}
}

func (s *ReviewStore) Create(ctx context.Context, r *review.Review) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO reviews (id, user_id, product_id, comment, created_at) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.UserID, r.ProductID, r.Comment, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (s *ReviewStore) ListByProduct(ctx context.Context, productID string) ([]review.Review, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, product_id, comment, created_at FROM reviews WHERE product_id = $1 ORDER BY created_at DESC, id DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	defer rows.Close()

	reviews := []review.Review{}
	for rows.Next() {
		var r review.Review
		if err := rows.Scan(&r.ID, &r.UserID, &r.ProductID, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}
