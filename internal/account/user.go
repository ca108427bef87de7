package account

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("account not found")
	ErrDuplicate    = errors.New("email or username already taken")
	ErrInvalidInput = errors.New("invalid registration")
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleCustomer:
		return RoleCustomer, true
	case RoleSeller:
		return RoleSeller, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// CanSell reports whether the role may list products.
func (r Role) CanSell() bool { return r == RoleSeller || r == RoleAdmin }

type User struct {
	ID           string    `json:"userId"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Role         Role      `json:"role"`
	Phone        string    `json:"phoneNumber,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NormalizeEmail lower-cases the domain part and leaves the local part as is.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
