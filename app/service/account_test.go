package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ihavelanded/ms-go-esim/app/entity"
	"github.com/ihavelanded/ms-go-esim/app/repository"
	"github.com/ihavelanded/ms-go-esim/config"
)

type memoryAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*entity.Account
	nextID   uint64
}

func newMemoryAccountRepo() *memoryAccountRepo {
	return &memoryAccountRepo{accounts: map[string]*entity.Account{}}
}

func (r *memoryAccountRepo) Create(_ context.Context, account *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[account.Email]; exists {
		return repository.ErrAccountAlreadyExists
	}
	r.nextID++
	account.ID = r.nextID
	copied := *account
	r.accounts[account.Email] = &copied
	return nil
}

func (r *memoryAccountRepo) FindByEmail(_ context.Context, email string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[email]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func newAccountServiceForTest() (*AccountService, *memoryAccountRepo) {
	repo := newMemoryAccountRepo()
	svc := NewAccountService(repo, newMemoryOrderRepo(), config.AuthConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	})
	return svc, repo
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, _ := newAccountServiceForTest()

	account, err := svc.Register(context.Background(), "Buyer@Example.com", "hunter22")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if account.Email != "buyer@example.com" {
		t.Fatalf("email not normalized: %s", account.Email)
	}
	if account.PasswordHash == "hunter22" || account.PasswordHash == "" {
		t.Fatal("password stored without hashing")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("hunter22")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newAccountServiceForTest()
	if _, err := svc.Register(context.Background(), "buyer@example.com", "hunter22"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	_, err := svc.Register(context.Background(), "buyer@example.com", "hunter22")
	if !errors.Is(err, ErrAccountAlreadyExists) {
		t.Fatalf("expected ErrAccountAlreadyExists, got %v", err)
	}
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	svc, _ := newAccountServiceForTest()
	cases := []struct{ email, password string }{
		{"", "hunter22"},
		{"not-an-email", "hunter22"},
		{"buyer@example.com", ""},
	}
	for _, tc := range cases {
		if _, err := svc.Register(context.Background(), tc.email, tc.password); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest for %q/%q, got %v", tc.email, tc.password, err)
		}
	}
}

func TestLoginRoundTrip(t *testing.T) {
	svc, _ := newAccountServiceForTest()
	if _, err := svc.Register(context.Background(), "buyer@example.com", "hunter22"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, err := svc.Login(context.Background(), "Buyer@Example.com", "hunter22")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	email, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if email != "buyer@example.com" {
		t.Fatalf("unexpected subject: %s", email)
	}
}

func TestLoginWrongPasswordOrUnknownAccount(t *testing.T) {
	svc, _ := newAccountServiceForTest()
	if _, err := svc.Register(context.Background(), "buyer@example.com", "hunter22"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.Login(context.Background(), "buyer@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginWithoutSigningKey(t *testing.T) {
	repo := newMemoryAccountRepo()
	svc := NewAccountService(repo, newMemoryOrderRepo(), config.AuthConfig{TokenTTL: time.Hour})
	if _, err := svc.Register(context.Background(), "buyer@example.com", "hunter22"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.Login(context.Background(), "buyer@example.com", "hunter22"); !errors.Is(err, ErrAuthNotConfigured) {
		t.Fatalf("expected ErrAuthNotConfigured, got %v", err)
	}
}

func TestParseTokenRejectsForgedToken(t *testing.T) {
	svc, _ := newAccountServiceForTest()
	other := NewAccountService(newMemoryAccountRepo(), newMemoryOrderRepo(), config.AuthConfig{
		JWTSecret: "different-secret",
		TokenTTL:  time.Hour,
	})
	if _, err := other.Register(context.Background(), "buyer@example.com", "hunter22"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	token, err := other.Login(context.Background(), "buyer@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := svc.ParseToken(token); err == nil {
		t.Fatal("expected signature verification failure")
	}
}
