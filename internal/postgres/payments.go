package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cwesi-djin/storefront-go/internal/payment"
	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, user_id, amount::text, status, COALESCE(transaction_id, ''), created_at, updated_at`

type PaymentStore struct {
	db DB
}

var _ payment.Repository = (*PaymentStore)(nil)

func NewPaymentStore(db DB) *PaymentStore {
	return &PaymentStore{db: db}
}

func (s *PaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	const insertSQL = `
INSERT INTO payments (id, user_id, amount, status, transaction_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := s.db.Exec(ctx, insertSQL,
		p.ID, p.UserID, p.Amount.StringFixed(2), string(p.Status), nullable(p.TransactionID), p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return payment.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *PaymentStore) ListByUser(ctx context.Context, userID string) ([]payment.Payment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}
	defer rows.Close()

	payments := []payment.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

func (s *PaymentStore) UpdateStatus(ctx context.Context, userID, id string, status payment.Status, at time.Time) (payment.Payment, error) {
	p, err := scanPayment(s.db.QueryRow(ctx,
		`UPDATE payments SET status = $3, updated_at = $4 WHERE id = $1 AND user_id = $2 RETURNING `+paymentColumns,
		id, userID, string(status), at))
	if errors.Is(err, pgx.ErrNoRows) {
		return payment.Payment{}, payment.ErrNotFound
	}
	if err != nil {
		return payment.Payment{}, fmt.Errorf("update payment: %w", err)
	}
	return p, nil
}

func scanPayment(row pgx.Row) (payment.Payment, error) {
	var (
		p      payment.Payment
		amount string
		status string
	)
	if err := row.Scan(&p.ID, &p.UserID, &amount, &status, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return payment.Payment{}, err
	}
	value, err := parseNumeric(amount)
	if err != nil {
		return payment.Payment{}, err
	}
	p.Amount = value
	p.Status = payment.Status(status)
	return p, nil
}
