package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/ports"
)

const (
	minPasswordLength  = 6
	maxPasswordBytes   = 72
	msgPasswordTooLong = "Password must be at most 72 bytes"
)

var ErrUnauthorized = domain.Reject(domain.FailUnauthorized, "Unauthorized")

type SignUpInput struct {
	Email    string
	Username string
	Password string
}

// AuthService owns dashboard accounts: sign-up, sign-in, bearer token
// resolution and password changes.
type AuthService struct {
	repo   ports.AccountRepository
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
	now    func() time.Time
}

func NewAuthService(repo ports.AccountRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (domain.Account, error) {
	return s.create(ctx, in, domain.RoleUser)
}

// CreateAdmin provisions an administrator account; it backs the operator CLI.
func (s *AuthService) CreateAdmin(ctx context.Context, in SignUpInput) (domain.Account, error) {
	return s.create(ctx, in, domain.RoleAdmin)
}

func (s *AuthService) create(ctx context.Context, in SignUpInput, role domain.Role) (domain.Account, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if in.Email == "" || in.Username == "" || in.Password == "" {
		return domain.Account{}, domain.Reject(domain.FailInvalid, "All fields are required")
	}

	exists, err := s.repo.ExistsByEmailOrUsername(ctx, in.Email, in.Username)
	if err != nil {
		return domain.Account{}, fmt.Errorf("check account: %w", err)
	}
	if exists {
		return domain.Account{}, domain.Reject(domain.FailInvalid, "User already exists")
	}

	hash, err := hashPassword(s.hasher, in.Password)
	if err != nil {
		return domain.Account{}, err
	}

	now := s.now()
	account, err := s.repo.Create(ctx, domain.Account{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.Account{}, domain.Reject(domain.FailInvalid, "User already exists")
		}
		return domain.Account{}, err
	}
	return account, nil
}

// SignIn accepts either a username or an email as login and returns a fresh
// bearer token.
func (s *AuthService) SignIn(ctx context.Context, login, password string) (string, domain.Account, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return "", domain.Account{}, domain.Reject(domain.FailInvalid, "Username and password are required")
	}

	account, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.Account{}, domain.Reject(domain.FailUnauthorized, "Invalid credentials")
		}
		return "", domain.Account{}, fmt.Errorf("find account: %w", err)
	}
	if !s.hasher.Verify(password, account.PasswordHash) {
		return "", domain.Account{}, domain.Reject(domain.FailUnauthorized, "Invalid credentials")
	}

	token, err := s.tokens.Issue(domain.Claims{UserID: account.ID, Email: account.Email, Role: account.Role})
	if err != nil {
		return "", domain.Account{}, fmt.Errorf("issue token: %w", err)
	}
	return token, account, nil
}

// Authenticate resolves a bearer token to the current account row, so role
// changes take effect without reissuing tokens.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Account{}, ErrUnauthorized
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return domain.Account{}, ErrUnauthorized
	}

	account, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Account{}, ErrUnauthorized
		}
		return domain.Account{}, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, accountID int64, current, next string) error {
	if current == "" || next == "" {
		return domain.Reject(domain.FailInvalid, "Current password and new password are required")
	}
	if len(next) < minPasswordLength {
		return domain.Reject(domain.FailInvalid, "New password must be at least 6 characters long")
	}

	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Reject(domain.FailNotFound, "User not found")
		}
		return fmt.Errorf("load account: %w", err)
	}
	if !s.hasher.Verify(current, account.PasswordHash) {
		return domain.Reject(domain.FailInvalid, "Current password is incorrect")
	}

	hash, err := hashPassword(s.hasher, next)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, accountID, hash)
}

// hashPassword turns an over-long password into a caller-visible rejection.
func hashPassword(hasher ports.PasswordHasher, password string) (string, error) {
	hash, err := hasher.Hash(password)
	if err != nil {
		if errors.Is(err, domain.ErrSecretTooLong) {
			return "", domain.Reject(domain.FailInvalid, msgPasswordTooLong)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}
