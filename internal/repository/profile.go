package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/go-storefront-api/internal/model"
)

type ProfileRepository interface {
	Create(ctx context.Context, tx pgx.Tx, profile *model.Profile) error
	GetByUserID(ctx context.Context, userID int) (*model.Profile, error)
	Update(ctx context.Context, profile *model.Profile) error
}

type pgProfileRepo struct{ pool *pgxpool.Pool }

func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &pgProfileRepo{pool: pool}
}

const profileColumns = `profile_id, user_id, first_name, last_name, phone, email, address, city, state, zip`

func (r *pgProfileRepo) Create(ctx context.Context, tx pgx.Tx, p *model.Profile) error {
	query := `INSERT INTO profiles (user_id, first_name, last_name, phone, email, address, city, state, zip)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING profile_id`
	err := tx.QueryRow(ctx, query,
		p.UserID, p.FirstName, p.LastName, p.Phone, p.Email, p.Address, p.City, p.State, p.Zip,
	).Scan(&p.ProfileID)
	if err != nil {
		return fmt.Errorf("create profile: %w", classify(err))
	}
	return nil
}

func (r *pgProfileRepo) GetByUserID(ctx context.Context, userID int) (*model.Profile, error) {
	p := &model.Profile{}
	err := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID).Scan(
		&p.ProfileID, &p.UserID, &p.FirstName, &p.LastName, &p.Phone, &p.Email,
		&p.Address, &p.City, &p.State, &p.Zip,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Update overwrites the profile owned by p.UserID and fills in p.ProfileID.
func (r *pgProfileRepo) Update(ctx context.Context, p *model.Profile) error {
	query := `UPDATE profiles SET first_name=$2, last_name=$3, phone=$4, email=$5,
			  address=$6, city=$7, state=$8, zip=$9 WHERE user_id=$1 RETURNING profile_id`
	err := r.pool.QueryRow(ctx, query,
		p.UserID, p.FirstName, p.LastName, p.Phone, p.Email, p.Address, p.City, p.State, p.Zip,
	).Scan(&p.ProfileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
