package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cwesi-djin/storefront-go/internal/account"
	"github.com/cwesi-djin/storefront-go/internal/payment"
	"github.com/cwesi-djin/storefront-go/internal/review"
)

type AccountStore struct {
	db *DB
}

var _ account.Repository = (*AccountStore)(nil)

func (s *AccountStore) Create(_ context.Context, u *account.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, existing := range s.db.users {
		if strings.EqualFold(existing.Email, u.Email) || existing.Username == u.Username {
			return account.ErrDuplicate
		}
	}
	s.db.users[u.ID] = *u
	return nil
}

func (s *AccountStore) Get(_ context.Context, id string) (account.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u, ok := s.db.users[id]
	if !ok {
		return account.User{}, account.ErrNotFound
	}
	return u, nil
}

type PaymentStore struct {
	db *DB
}

var _ payment.Repository = (*PaymentStore)(nil)

func (s *PaymentStore) Create(_ context.Context, p *payment.Payment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if p.TransactionID != "" {
		for _, existing := range s.db.payments {
			if existing.TransactionID == p.TransactionID {
				return payment.ErrDuplicate
			}
		}
	}
	s.db.payments = append(s.db.payments, *p)
	return nil
}

func (s *PaymentStore) ListByUser(_ context.Context, userID string) ([]payment.Payment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var out []payment.Payment
	for i := len(s.db.payments) - 1; i >= 0; i-- {
		if s.db.payments[i].UserID == userID {
			out = append(out, s.db.payments[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *PaymentStore) UpdateStatus(_ context.Context, userID, id string, status payment.Status, at time.Time) (payment.Payment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for i := range s.db.payments {
		p := &s.db.payments[i]
		if p.ID == id && p.UserID == userID {
			p.Status = status
			p.UpdatedAt = at
			return *p, nil
		}
	}
	return payment.Payment{}, payment.ErrNotFound
}

type ReviewStore struct {
	db *DB
}

var _ review.Repository = (*ReviewStore)(nil)

func (s *ReviewStore) Create(_ context.Context, r *review.Review) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	s.db.reviews = append(s.db.reviews, *r)
	return nil
}

func (s *ReviewStore) ListByProduct(_ context.Context, productID string) ([]review.Review, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var out []review.Review
	for i := len(s.db.reviews) - 1; i >= 0; i-- {
		if s.db.reviews[i].ProductID == productID {
			out = append(out, s.db.reviews[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
