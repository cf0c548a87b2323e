package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ihavelanded/ms-go-esim/app/entity"
	"github.com/ihavelanded/ms-go-esim/app/repository"
	"github.com/ihavelanded/ms-go-esim/config"
)

type accountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
}

// AccountService backs the storefront dashboard: accounts are keyed by the
// purchaser email, so registering after a guest checkout picks up the
// existing order ledger automatically.
type AccountService struct {
	accounts accountRepository
	orders   orderRepository
	cfg      config.AuthConfig
}

func NewAccountService(accounts accountRepository, orders orderRepository, cfg config.AuthConfig) *AccountService {
	return &AccountService{
		accounts: accounts,
		orders:   orders,
		cfg:      cfg,
	}
}

func (s *AccountService) Register(ctx context.Context, email, password string) (*entity.Account, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") || password == "" {
		return nil, ErrInvalidRequest
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &entity.Account{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrAccountAlreadyExists) {
			return nil, ErrAccountAlreadyExists
		}
		return nil, err
	}

	return account, nil
}

func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", ErrInvalidRequest
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	return s.issueToken(account.Email)
}

func (s *AccountService) issueToken(email string) (string, error) {
	if strings.TrimSpace(s.cfg.JWTSecret) == "" {
		return "", ErrAuthNotConfigured
	}

	ttl := s.cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ParseToken validates a dashboard token and returns the account email.
func (s *AccountService) ParseToken(tokenString string) (string, error) {
	if strings.TrimSpace(s.cfg.JWTSecret) == "" {
		return "", ErrAuthNotConfigured
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCredentials
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidCredentials
	}

	return claims.Subject, nil
}

// Orders returns the ledger entries visible to an authenticated account.
func (s *AccountService) Orders(ctx context.Context, email string) ([]*entity.Order, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidRequest
	}
	return s.orders.FindByEmail(ctx, email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
