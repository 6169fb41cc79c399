// Package userrepo manages repository layer of users.
//
// Registration and verification happen outside the engine; this repository
// only backs the user directory the transfer coordinator resolves
// counterparties through.
package userrepo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/kefaspay/wallet/internal/domain"
	"github.com/kefaspay/wallet/pkg/dbpkg"
	"github.com/kefaspay/wallet/pkg/errorspkg"
)

// RepoPGS facilitates user repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns user RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    users (name, phone, email)
VALUES
    ($1, $2, $3)
RETURNING id, name, phone, email, created_at
`

// Create creates the user and then returns it. Used by seeding and tests;
// production registration lives outside the engine.
func (r *RepoPGS) Create(ctx context.Context, name, phone, email string) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, name, phone, email)

	u, err := scanUser(row)
	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "users_phone_key" {
				return u, domain.ErrPhoneAlreadyExists
			}
		}

		return u, errorspkg.ErrInternal
	}

	return u, nil
}

const getQuery = `
SELECT id, name, phone, email, created_at
FROM users
WHERE id = $1
`

// Get returns the user with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, id)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return u, domain.ErrUserNotFound
		}

		l.Error().Err(err).Int64("user_id", id).Send()

		return u, errorspkg.ErrInternal
	}

	return u, nil
}

const resolveByPhoneQuery = `
SELECT id, name, phone, email, created_at
FROM users
WHERE phone = $1
`

// ResolveByPhone returns the user registered with the given phone number.
func (r *RepoPGS) ResolveByPhone(ctx context.Context, phone string) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, resolveByPhoneQuery, phone)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return u, domain.ErrUserNotFound
		}

		l.Error().Err(err).Send()

		return u, errorspkg.ErrInternal
	}

	return u, nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Phone,
		&u.Email,
		&u.CreatedAt,
	)

	return u, err
}
