package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrNotFound      = errors.New("payment not found")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrInvalidStatus = errors.New("invalid payment status")
	ErrDuplicate     = errors.New("transaction id already recorded")
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusRefunded  Status = "Refunded"
)

// ParseStatus accepts the statuses a payment can be moved to.
func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{StatusCompleted, StatusFailed, StatusRefunded} {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

type Payment struct {
	ID            string          `json:"paymentId"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	Status        Status          `json:"status"`
	TransactionID string          `json:"transactionId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type Repository interface {
	// Create returns ErrDuplicate for a reused transaction id.
	Create(ctx context.Context, p *Payment) error
	// ListByUser returns payments newest first.
	ListByUser(ctx context.Context, userID string) ([]Payment, error)
	UpdateStatus(ctx context.Context, userID, id string, status Status, at time.Time) (Payment, error)
}

type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Record(ctx context.Context, userID string, amount decimal.Decimal, transactionID string) (Payment, error) {
	if !amount.IsPositive() {
		return Payment{}, ErrInvalidAmount
	}
	now := s.now()
	p := Payment{
		ID:            uuid.NewString(),
		UserID:        userID,
		Amount:        amount.Round(2),
		Status:        StatusPending,
		TransactionID: strings.TrimSpace(transactionID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, &p); err != nil {
		return Payment{}, err
	}
	s.logger.Info("payment recorded", zap.String("payment_id", p.ID), zap.String("user_id", userID))
	return p, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Payment, error) {
	payments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []Payment{}
	}
	return payments, nil
}

func (s *Service) SetStatus(ctx context.Context, userID, id, status string) (Payment, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return Payment{}, err
	}
	p, err := s.repo.UpdateStatus(ctx, userID, strings.TrimSpace(id), st, s.now())
	if err != nil {
		return Payment{}, fmt.Errorf("update payment status: %w", err)
	}
	return p, nil
}
