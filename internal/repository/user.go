package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/go-storefront-api/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, tx pgx.Tx, user *model.User) error
	GetByID(ctx context.Context, id int) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

type pgUserRepo struct{ pool *pgxpool.Pool }

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgUserRepo{pool: pool}
}

// Create inserts the user on tx so the paired profile can join the same
// transaction. A taken username yields ErrDuplicate.
func (r *pgUserRepo) Create(ctx context.Context, tx pgx.Tx, user *model.User) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO users (username, hashed_password, role) VALUES ($1, $2, $3) RETURNING user_id`,
		user.Username, user.HashedPassword, user.Role,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("create user: %w", classify(err))
	}
	return nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id int) (*model.User, error) {
	return r.getOne(ctx, `SELECT user_id, username, hashed_password, role FROM users WHERE user_id = $1`, id)
}

// GetByUsername matches case-sensitively.
func (r *pgUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, `SELECT user_id, username, hashed_password, role FROM users WHERE username = $1`, username)
}

func (r *pgUserRepo) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Username, &user.HashedPassword, &user.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
