package account

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

type Repository interface {
	// Create returns ErrDuplicate when email or username is taken.
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (User, error)
}

// Registration is the self-service sign-up form. Admin accounts are not
// created through it.
type Registration struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,max=30"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=customer seller"`
	Phone    string `json:"phoneNumber" validate:"omitempty,phone"`
}

type Service struct {
	repo     Repository
	validate *validator.Validate
	hashCost int
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &Service{
		repo:     repo,
		validate: v,
		hashCost: bcrypt.DefaultCost,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	reg.Email = NormalizeEmail(reg.Email)
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Phone = strings.TrimSpace(reg.Phone)
	reg.Role = strings.ToLower(strings.TrimSpace(reg.Role))

	if err := s.validate.Struct(reg); err != nil {
		return User{}, fmt.Errorf("%w: %s", ErrInvalidInput, describe(err))
	}
	role, _ := ParseRole(reg.Role)

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.hashCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        reg.Email,
		Username:     reg.Username,
		Role:         role,
		Phone:        reg.Phone,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, &u); err != nil {
		return User{}, err
	}

	s.logger.Info("account registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.Get(ctx, strings.TrimSpace(id))
}

// CheckPassword compares password against the stored bcrypt hash.
func (u User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}
