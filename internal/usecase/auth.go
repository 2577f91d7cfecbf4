package usecase

import (
	"context"
	"crypto/subtle"
	"strings"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	pkgAuth "github.com/polkiloo/storepay/internal/pkg/auth"
)

// AdminAccount is the single configured operator credential.
type AdminAccount struct {
	Login        string
	PasswordHash string
}

// AuthUseCase authenticates the administrator and manages bearer tokens.
type AuthUseCase struct {
	account AdminAccount
	hasher  pkgAuth.PasswordHasher
	tokens  pkgAuth.Strategy
}

// NewAuthUseCase constructs AuthUseCase.
func NewAuthUseCase(account AdminAccount, hasher pkgAuth.PasswordHasher, strategy pkgAuth.Strategy) *AuthUseCase {
	return &AuthUseCase{account: account, hasher: hasher, tokens: strategy}
}

// Authenticate validates credentials and returns auth token. Login is disabled
// while no password hash is configured.
func (u *AuthUseCase) Authenticate(_ context.Context, login, password string) (string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" || u.account.PasswordHash == "" {
		return "", domainErrors.ErrInvalidCredentials
	}

	if subtle.ConstantTimeCompare([]byte(login), []byte(u.account.Login)) != 1 {
		return "", domainErrors.ErrInvalidCredentials
	}
	if err := u.hasher.Compare(u.account.PasswordHash, password); err != nil {
		return "", domainErrors.ErrInvalidCredentials
	}

	return u.tokens.IssueToken(login)
}

// ParseToken extracts the administrator login from provided token.
func (u *AuthUseCase) ParseToken(token string) (string, error) {
	if token == "" {
		return "", pkgAuth.ErrInvalidToken
	}
	return u.tokens.ParseToken(token)
}
