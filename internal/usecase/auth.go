package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/polkiloo/cryptostore/internal/config"
	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
	"github.com/polkiloo/cryptostore/internal/domain/repository"
	pkgAuth "github.com/polkiloo/cryptostore/internal/pkg/auth"
)

// AuthUseCase registers store accounts and issues session tokens.
type AuthUseCase struct {
	users  repository.UserRepository
	hasher pkgAuth.PasswordHasher
	tokens pkgAuth.Strategy
	admins map[string]struct{}
}

// NewAuthUseCase constructs AuthUseCase. Logins listed in cfg.AdminLogins
// register with the admin role.
func NewAuthUseCase(users repository.UserRepository, hasher pkgAuth.PasswordHasher, strategy pkgAuth.Strategy, cfg *config.Config) *AuthUseCase {
	admins := make(map[string]struct{}, len(cfg.AdminLogins))
	for _, login := range cfg.AdminLogins {
		if login = strings.TrimSpace(login); login != "" {
			admins[login] = struct{}{}
		}
	}
	return &AuthUseCase{users: users, hasher: hasher, tokens: strategy, admins: admins}
}

func credentials(login, password string) (string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return "", domainErrors.ErrInvalidCredentials
	}
	return login, nil
}

// Register creates an account and returns a token for it.
func (u *AuthUseCase) Register(ctx context.Context, login, password string) (*model.User, string, error) {
	login, err := credentials(login, password)
	if err != nil {
		return nil, "", err
	}

	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	role := model.RoleCustomer
	if _, ok := u.admins[login]; ok {
		role = model.RoleAdmin
	}

	usr, err := u.users.Create(ctx, login, hash, role)
	if err != nil {
		return nil, "", err
	}
	return u.session(usr)
}

// Authenticate checks credentials. Unknown logins and wrong passwords are
// indistinguishable to the caller.
func (u *AuthUseCase) Authenticate(ctx context.Context, login, password string) (*model.User, string, error) {
	login, err := credentials(login, password)
	if err != nil {
		return nil, "", err
	}

	usr, err := u.users.GetByLogin(ctx, login)
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		return nil, "", domainErrors.ErrInvalidCredentials
	case err != nil:
		return nil, "", err
	}

	if err := u.hasher.Compare(usr.PasswordHash, password); err != nil {
		return nil, "", domainErrors.ErrInvalidCredentials
	}
	return u.session(usr)
}

func (u *AuthUseCase) session(usr *model.User) (*model.User, string, error) {
	token, err := u.tokens.IssueToken(pkgAuth.Identity{UserID: usr.ID, Role: usr.Role})
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return usr, token, nil
}

// ParseToken extracts caller identity from provided token.
func (u *AuthUseCase) ParseToken(token string) (pkgAuth.Identity, error) {
	if token == "" {
		return pkgAuth.Identity{}, pkgAuth.ErrInvalidToken
	}
	return u.tokens.ParseToken(token)
}
