package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwesi-djin/storefront-go/internal/account"
	"github.com/jackc/pgx/v5"
)

type AccountStore struct {
	db DB
}

var _ account.Repository = (*AccountStore)(nil)

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, u *account.User) error {
	const insertSQL = `
INSERT INTO users (id, email, username, role, password_hash, phone_number, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := s.db.Exec(ctx, insertSQL, u.ID, u.Email, u.Username, string(u.Role), u.PasswordHash, u.Phone, u.CreatedAt)
	if isUniqueViolation(err) {
		return account.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *AccountStore) Get(ctx context.Context, id string) (account.User, error) {
	var (
		u    account.User
		role string
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, email, username, role, password_hash, phone_number, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Username, &role, &u.PasswordHash, &u.Phone, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return account.User{}, account.ErrNotFound
	}
	if err != nil {
		return account.User{}, fmt.Errorf("select user: %w", err)
	}
	u.Role = account.Role(role)
	return u, nil
}
