package test

import (
	"context"
	"errors"

	pkgAuth "github.com/polkiloo/cryptostore/internal/pkg/auth"
)

// HasherStub provides deterministic hashing for tests.
type HasherStub struct {
	HashFn    func(string) (string, error)
	CompareFn func(string, string) error
}

// Hash returns a predictable hash for the supplied password.
func (h HasherStub) Hash(password string) (string, error) {
	if h.HashFn != nil {
		return h.HashFn(password)
	}
	return "hash:" + password, nil
}

// Compare validates password against stored hash.
func (h HasherStub) Compare(hash string, password string) error {
	if h.CompareFn != nil {
		return h.CompareFn(hash, password)
	}
	if hash != "hash:"+password {
		return errors.New("mismatch")
	}
	return nil
}

// StrategyStub issues and parses tokens via function overrides.
type StrategyStub struct {
	IssueFn func(pkgAuth.Identity) (string, error)
	ParseFn func(string) (pkgAuth.Identity, error)
	NameVal string
}

// IssueToken returns deterministic tokens for tests.
func (s StrategyStub) IssueToken(identity pkgAuth.Identity) (string, error) {
	if s.IssueFn != nil {
		return s.IssueFn(identity)
	}
	return "token", nil
}

// ParseToken parses previously issued token strings.
func (s StrategyStub) ParseToken(token string) (pkgAuth.Identity, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return pkgAuth.Identity{UserID: 1}, nil
}

// Name returns the strategy identifier used in tests.
func (s StrategyStub) Name() string {
	if s.NameVal != "" {
		return s.NameVal
	}
	return "stub"
}

// TokenParserStub implements middleware token parsing contract.
type TokenParserStub struct {
	Identity pkgAuth.Identity
	Err      error
	ParseFn  func(string) (pkgAuth.Identity, error)
}

// ParseToken either delegates to override or returns predefined result.
func (s TokenParserStub) ParseToken(token string) (pkgAuth.Identity, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	if s.Err != nil {
		return pkgAuth.Identity{}, s.Err
	}
	return s.Identity, nil
}

var _ pkgAuth.PasswordHasher = HasherStub{}
var _ pkgAuth.Strategy = StrategyStub{}

// AuthFacadeStub provides controllable behaviour for auth endpoints.
type AuthFacadeStub struct {
	RegisterFn     func(context.Context, string, string) (string, error)
	AuthenticateFn func(context.Context, string, string) (string, error)
	Identity       pkgAuth.Identity
	ParseErr       error
}

// Register delegates to provided function or returns default token.
func (s AuthFacadeStub) Register(ctx context.Context, login, password string) (string, error) {
	if s.RegisterFn != nil {
		return s.RegisterFn(ctx, login, password)
	}
	return "token", nil
}

// Authenticate delegates to provided function or returns default token.
func (s AuthFacadeStub) Authenticate(ctx context.Context, login, password string) (string, error) {
	if s.AuthenticateFn != nil {
		return s.AuthenticateFn(ctx, login, password)
	}
	return "token", nil
}

// ParseToken returns configured identity.
func (s AuthFacadeStub) ParseToken(string) (pkgAuth.Identity, error) {
	if s.ParseErr != nil {
		return pkgAuth.Identity{}, s.ParseErr
	}
	return s.Identity, nil
}
