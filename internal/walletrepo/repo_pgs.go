// Package walletrepo manages repository layer of wallets.
package walletrepo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/kefaspay/wallet/internal/domain"
	"github.com/kefaspay/wallet/pkg/dbpkg"
	"github.com/kefaspay/wallet/pkg/errorspkg"
)

// RepoPGS facilitates wallet repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns wallet RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    wallets (owner_id)
VALUES
    ($1)
RETURNING id, owner_id, balance, version, created_at, updated_at
`

// Create creates a zero-balance wallet for the owner and then returns it.
func (r *RepoPGS) Create(ctx context.Context, ownerID int64) (domain.Wallet, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, ownerID)

	w, err := scanWallet(row)
	if err != nil {
		l.Error().Err(err).Int64("owner_id", ownerID).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "wallets_owner_id_key":
				return w, domain.ErrWalletAlreadyExists
			case "wallets_owner_id_fkey":
				return w, domain.ErrUserNotFound
			}
		}

		return w, errorspkg.ErrInternal
	}

	return w, nil
}

const getQuery = `
SELECT id, owner_id, balance, version, created_at, updated_at
FROM wallets
WHERE owner_id = $1
`

// Get returns the wallet owned by the given user.
func (r *RepoPGS) Get(ctx context.Context, ownerID int64) (domain.Wallet, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, ownerID)

	w, err := scanWallet(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return w, domain.ErrWalletNotFound
		}

		l.Error().Err(err).Int64("owner_id", ownerID).Send()

		return w, errorspkg.ErrInternal
	}

	return w, nil
}

const addBalanceQuery = `
UPDATE wallets
SET balance = balance + $1,
    version = version + 1,
    updated_at = now()
WHERE id = $2
RETURNING id, owner_id, balance, version, created_at, updated_at
`

// AddBalance applies the signed delta to the wallet's balance and returns the
// changed wallet. Concurrent callers serialize on the row lock; the balance
// check constraint guards non-negativity.
func (r *RepoPGS) AddBalance(ctx context.Context, delta int64, id int64) (domain.Wallet, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, addBalanceQuery, delta, id)

	w, err := scanWallet(row)
	if err != nil {
		l.Error().Err(err).Int64("wallet_id", id).Int64("delta", delta).Send()

		if err == sql.ErrNoRows {
			return w, domain.ErrWalletNotFound
		}

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "wallets_balance_check" {
				return w, domain.ErrInsufficientBalance
			}
		}

		return w, errorspkg.ErrInternal
	}

	return w, nil
}

func scanWallet(row *sql.Row) (domain.Wallet, error) {
	var w domain.Wallet

	err := row.Scan(
		&w.ID,
		&w.OwnerID,
		&w.Balance,
		&w.Version,
		&w.CreatedAt,
		&w.UpdatedAt,
	)

	return w, err
}
