package auth

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/polkiloo/cryptostore/internal/config"
)

func TestNewPasswordHasher(t *testing.T) {
	hasher := newPasswordHasher()
	bcryptHasher, ok := hasher.(*BcryptHasher)
	if !ok {
		t.Fatalf("expected *BcryptHasher, got %T", hasher)
	}
	if bcryptHasher.cost != bcrypt.DefaultCost {
		t.Fatalf("unexpected cost: %d", bcryptHasher.cost)
	}
}

func TestNewTokenStrategy(t *testing.T) {
	strategy := newTokenStrategy(strategyParams{Config: &config.Config{JWTSecret: "top-secret", TokenTTL: time.Hour}})
	jwtStrategy, ok := strategy.(*JWTStrategy)
	if !ok {
		t.Fatalf("expected *JWTStrategy, got %T", strategy)
	}
	if string(jwtStrategy.secret) != "top-secret" {
		t.Fatalf("unexpected secret: %q", string(jwtStrategy.secret))
	}
	if jwtStrategy.ttl != time.Hour {
		t.Fatalf("unexpected ttl: %s", jwtStrategy.ttl)
	}
}
