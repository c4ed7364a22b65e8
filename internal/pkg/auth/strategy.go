package auth

import (
	"errors"
	"time"

	"github.com/polkiloo/cryptostore/internal/domain/model"
)

var ErrInvalidToken = errors.New("invalid auth token")

// Identity is what a verified token says about the caller.
type Identity struct {
	UserID int64
	Role   model.Role
}

// IsAdmin reports whether the identity may use admin endpoints.
func (i Identity) IsAdmin() bool {
	return i.Role == model.RoleAdmin
}

type Strategy interface {
	IssueToken(identity Identity) (string, error)
	ParseToken(token string) (Identity, error)
	Name() string
}

type Options struct {
	TTL    time.Duration
	Issuer string
}
