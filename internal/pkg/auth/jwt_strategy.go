package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/polkiloo/cryptostore/internal/domain/model"
)

const defaultIssuer = "cryptostore"

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTStrategy issues and verifies HS256 signed JWTs.
type JWTStrategy struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewJWTStrategy builds JWTStrategy with provided secret and options.
func NewJWTStrategy(secret string, opts Options) *JWTStrategy {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	issuer := opts.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &JWTStrategy{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// IssueToken generates a signed token carrying user id and role.
func (s *JWTStrategy) IssueToken(identity Identity) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.UserID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates signature, issuer and expiry.
func (s *JWTStrategy) ParseToken(token string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	role, ok := model.ParseRole(c.Role)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: userID, Role: role}, nil
}

func (s *JWTStrategy) Name() string {
	return "jwt"
}
