package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	pkgAuth "github.com/polkiloo/storepay/internal/pkg/auth"
	testhelpers "github.com/polkiloo/storepay/internal/test"
)

func newStrategyStub() testhelpers.StrategyStub {
	return testhelpers.StrategyStub{
		IssueFn: func(subject string) (string, error) {
			return "token-" + subject, nil
		},
		ParseFn: func(token string) (string, error) {
			subject, ok := strings.CutPrefix(token, "token-")
			if !ok || subject == "" {
				return "", pkgAuth.ErrInvalidToken
			}
			return subject, nil
		},
	}
}

func adminAccount() AdminAccount {
	return AdminAccount{Login: "root", PasswordHash: "hash:s3cret"}
}

func TestAuthUseCaseAuthenticate(t *testing.T) {
	uc := NewAuthUseCase(adminAccount(), testhelpers.HasherStub{}, newStrategyStub())

	ctx := context.Background()
	if _, err := uc.Authenticate(ctx, "root", "bad"); err != domainErrors.ErrInvalidCredentials {
		t.Fatalf("expected invalid credentials error, got %v", err)
	}

	token, err := uc.Authenticate(ctx, "root", "s3cret")
	if err != nil {
		t.Fatalf("authenticate returned error: %v", err)
	}
	if token != "token-root" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestAuthUseCaseAuthenticateUnknownLogin(t *testing.T) {
	uc := NewAuthUseCase(adminAccount(), testhelpers.HasherStub{}, newStrategyStub())
	if _, err := uc.Authenticate(context.Background(), "rooter", "s3cret"); err != domainErrors.ErrInvalidCredentials {
		t.Fatalf("expected invalid credentials error, got %v", err)
	}
}

func TestAuthUseCaseAuthenticateValidation(t *testing.T) {
	uc := NewAuthUseCase(adminAccount(), testhelpers.HasherStub{}, newStrategyStub())
	if _, err := uc.Authenticate(context.Background(), "", "pass"); err != domainErrors.ErrInvalidCredentials {
		t.Fatalf("expected invalid credentials error, got %v", err)
	}
	if _, err := uc.Authenticate(context.Background(), "root", ""); err != domainErrors.ErrInvalidCredentials {
		t.Fatalf("expected invalid credentials error, got %v", err)
	}
}

func TestAuthUseCaseLoginDisabledWithoutHash(t *testing.T) {
	uc := NewAuthUseCase(AdminAccount{Login: "root"}, testhelpers.HasherStub{CompareFn: func(string, string) error {
		t.Fatal("hasher must not be consulted without a configured hash")
		return nil
	}}, newStrategyStub())
	if _, err := uc.Authenticate(context.Background(), "root", "anything"); err != domainErrors.ErrInvalidCredentials {
		t.Fatalf("expected invalid credentials error, got %v", err)
	}
}

func TestAuthUseCaseAuthenticateHasherMismatch(t *testing.T) {
	uc := NewAuthUseCase(adminAccount(), testhelpers.HasherStub{CompareFn: func(hash, password string) error {
		return fmt.Errorf("mismatch")
	}}, newStrategyStub())
	if _, err := uc.Authenticate(context.Background(), "root", "s3cret"); err != domainErrors.ErrInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestAuthUseCaseAuthenticateIssueTokenError(t *testing.T) {
	strategy := testhelpers.StrategyStub{IssueFn: func(string) (string, error) {
		return "", fmt.Errorf("cannot issue token")
	}}
	uc := NewAuthUseCase(adminAccount(), testhelpers.HasherStub{}, strategy)
	if _, err := uc.Authenticate(context.Background(), "root", "s3cret"); err == nil {
		t.Fatal("expected token issuing error")
	}
}

func TestAuthUseCaseTrimsLogin(t *testing.T) {
	uc := NewAuthUseCase(adminAccount(), testhelpers.HasherStub{}, newStrategyStub())
	if _, err := uc.Authenticate(context.Background(), "  root  ", "s3cret"); err != nil {
		t.Fatalf("authenticate returned error: %v", err)
	}
}

func TestAuthUseCaseParseToken(t *testing.T) {
	uc := NewAuthUseCase(adminAccount(), testhelpers.HasherStub{}, newStrategyStub())

	subject, err := uc.ParseToken("token-root")
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if subject != "root" {
		t.Fatalf("expected subject root, got %q", subject)
	}

	if _, err := uc.ParseToken("bad-token"); err != pkgAuth.ErrInvalidToken {
		t.Fatalf("expected invalid token error, got %v", err)
	}

	if _, err := uc.ParseToken(""); err != pkgAuth.ErrInvalidToken {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestAuthUseCaseParseTokenStrategyError(t *testing.T) {
	uc := NewAuthUseCase(adminAccount(), testhelpers.HasherStub{}, testhelpers.StrategyStub{
		ParseFn: func(string) (string, error) { return "", fmt.Errorf("parse error") },
	})
	if _, err := uc.ParseToken("token"); err == nil {
		t.Fatal("expected parse error")
	}
}
