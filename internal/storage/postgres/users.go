package postgres

import (
	"context"

	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
)

type userRepository struct {
	storage *Storage
}

const userColumns = `id, login, password_hash, role, created_at`

func (r *userRepository) Create(ctx context.Context, login, passwordHash string, role model.Role) (*model.User, error) {
	const query = `INSERT INTO users (login, password_hash, role) VALUES ($1, $2, $3) RETURNING id, created_at`
	u := model.User{Login: login, PasswordHash: passwordHash, Role: role}
	err := r.storage.pool.QueryRow(ctx, query, login, passwordHash, role).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE login=$1`
	var u model.User
	err := r.storage.pool.QueryRow(ctx, query, login).Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	var u model.User
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}
