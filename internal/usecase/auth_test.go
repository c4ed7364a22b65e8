package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polkiloo/cryptostore/internal/config"
	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
	pkgAuth "github.com/polkiloo/cryptostore/internal/pkg/auth"
	testhelpers "github.com/polkiloo/cryptostore/internal/test"
)

// roleTokens encodes the identity into the token so parsing can be checked.
func roleTokens() testhelpers.StrategyStub {
	return testhelpers.StrategyStub{
		IssueFn: func(identity pkgAuth.Identity) (string, error) {
			return fmt.Sprintf("token-%d-%s", identity.UserID, identity.Role), nil
		},
		ParseFn: func(token string) (pkgAuth.Identity, error) {
			var id int64
			var role string
			if _, err := fmt.Sscanf(token, "token-%d-%s", &id, &role); err != nil {
				return pkgAuth.Identity{}, pkgAuth.ErrInvalidToken
			}
			return pkgAuth.Identity{UserID: id, Role: model.Role(role)}, nil
		},
	}
}

type authFixture struct {
	users *testhelpers.UserRepositoryStub
	uc    *AuthUseCase
}

func newAuthFixture(hasher testhelpers.HasherStub, strategy pkgAuth.Strategy, admins ...string) authFixture {
	users := testhelpers.NewUserRepositoryStub()
	return authFixture{
		users: users,
		uc:    NewAuthUseCase(users, hasher, strategy, &config.Config{AdminLogins: admins}),
	}
}

func TestAuthRegisterAssignsRoles(t *testing.T) {
	f := newAuthFixture(testhelpers.HasherStub{}, roleTokens(), " root ", "")
	ctx := context.Background()

	customer, token, err := f.uc.Register(ctx, "  alice  ", "password")
	require.NoError(t, err)
	assert.Equal(t, "alice", customer.Login)
	assert.Equal(t, model.RoleCustomer, customer.Role)
	assert.Equal(t, "token-1-customer", token)

	stored, err := f.users.GetByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash:password", stored.PasswordHash)

	admin, token, err := f.uc.Register(ctx, "root", "password")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	identity, err := f.uc.ParseToken(token)
	require.NoError(t, err)
	assert.True(t, identity.IsAdmin())
	assert.Equal(t, admin.ID, identity.UserID)
}

func TestAuthAuthenticate(t *testing.T) {
	f := newAuthFixture(testhelpers.HasherStub{}, roleTokens())
	ctx := context.Background()
	_, _, err := f.uc.Register(ctx, "carol", "123456")
	require.NoError(t, err)

	usr, token, err := f.uc.Authenticate(ctx, " carol", "123456")
	require.NoError(t, err)
	assert.Equal(t, "carol", usr.Login)
	assert.Equal(t, "token-1-customer", token)

	_, _, err = f.uc.Authenticate(ctx, "carol", "wrong")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidCredentials)

	_, _, err = f.uc.Authenticate(ctx, "mallory", "123456")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidCredentials, "unknown login must look like a wrong password")
}

func TestAuthRejectsBlankCredentials(t *testing.T) {
	f := newAuthFixture(testhelpers.HasherStub{}, roleTokens())
	ctx := context.Background()

	for _, tc := range []struct{ login, password string }{
		{"", "password"},
		{"   ", "password"},
		{"user", ""},
	} {
		_, _, err := f.uc.Register(ctx, tc.login, tc.password)
		assert.ErrorIs(t, err, domainErrors.ErrInvalidCredentials, "register %q", tc.login)
		_, _, err = f.uc.Authenticate(ctx, tc.login, tc.password)
		assert.ErrorIs(t, err, domainErrors.ErrInvalidCredentials, "authenticate %q", tc.login)
	}
}

func TestAuthRegisterDuplicate(t *testing.T) {
	f := newAuthFixture(testhelpers.HasherStub{}, roleTokens())
	ctx := context.Background()

	_, _, err := f.uc.Register(ctx, "bob", "secret")
	require.NoError(t, err)
	_, _, err = f.uc.Register(ctx, "bob", "other")
	assert.ErrorIs(t, err, domainErrors.ErrAlreadyExists)
}

func TestAuthPropagatesFailures(t *testing.T) {
	errHash := errors.New("hash failed")
	errIssue := errors.New("signing failed")
	errStore := errors.New("storage unavailable")

	t.Run("hasher", func(t *testing.T) {
		f := newAuthFixture(testhelpers.HasherStub{HashFn: func(string) (string, error) { return "", errHash }}, roleTokens())
		_, _, err := f.uc.Register(context.Background(), "user", "pass")
		assert.ErrorIs(t, err, errHash)
	})

	t.Run("repository", func(t *testing.T) {
		f := newAuthFixture(testhelpers.HasherStub{}, roleTokens())
		_, _, err := f.uc.Register(context.Background(), "user", "pass")
		require.NoError(t, err)

		f.users.Err = errStore
		_, _, err = f.uc.Register(context.Background(), "other", "pass")
		assert.ErrorIs(t, err, errStore)
		_, _, err = f.uc.Authenticate(context.Background(), "user", "pass")
		assert.ErrorIs(t, err, errStore)
	})

	t.Run("token issue", func(t *testing.T) {
		failing := testhelpers.StrategyStub{IssueFn: func(pkgAuth.Identity) (string, error) { return "", errIssue }}
		f := newAuthFixture(testhelpers.HasherStub{}, failing)
		_, _, err := f.uc.Register(context.Background(), "user", "pass")
		assert.ErrorIs(t, err, errIssue)
		_, _, err = f.uc.Authenticate(context.Background(), "user", "pass")
		assert.ErrorIs(t, err, errIssue)
	})
}

func TestAuthParseToken(t *testing.T) {
	f := newAuthFixture(testhelpers.HasherStub{}, roleTokens())

	identity, err := f.uc.ParseToken("token-42-customer")
	require.NoError(t, err)
	assert.Equal(t, pkgAuth.Identity{UserID: 42, Role: model.RoleCustomer}, identity)

	for _, token := range []string{"", "garbage"} {
		_, err := f.uc.ParseToken(token)
		assert.ErrorIs(t, err, pkgAuth.ErrInvalidToken, "token %q", token)
	}
}
