// Package ledgerrepo manages repository layer of the transaction ledger.
package ledgerrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/kefaspay/wallet/internal/domain"
	"github.com/kefaspay/wallet/pkg/dbpkg"
	"github.com/kefaspay/wallet/pkg/errorspkg"
)

// RepoPGS facilitates ledger repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns ledger RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const transactionColumns = `
id, reference, sender_id, receiver_id, amount, type, status, description, fail_reason, created_at, completed_at`

const beginQuery = `
INSERT INTO
    transactions (reference, sender_id, receiver_id, amount, type, status, description)
VALUES
    ($1, $2, $3, $4, $5, 'PENDING', $6)
RETURNING` + transactionColumns

// Begin creates a PENDING ledger entry and then returns it.
func (r *RepoPGS) Begin(ctx context.Context, arg domain.BeginTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, beginQuery,
		arg.Reference,
		arg.SenderID,
		arg.ReceiverID,
		arg.Amount,
		arg.Type,
		arg.Description,
	)

	txn, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Str("reference", arg.Reference).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "transactions_reference_key":
				return txn, domain.ErrDuplicateReference
			case "transactions_amount_check":
				return txn, domain.ErrInvalidAmount
			case "transactions_sender_id_fkey", "transactions_receiver_id_fkey":
				return txn, domain.ErrUserNotFound
			}
		}

		return txn, errorspkg.ErrInternal
	}

	return txn, nil
}

const completeQuery = `
UPDATE transactions
SET status = 'COMPLETED', completed_at = now()
WHERE id = $1 AND status = 'PENDING'
RETURNING` + transactionColumns

// Complete finalizes a PENDING entry to COMPLETED and then returns it.
// Finalized entries are immutable; completing one fails with
// ErrTransactionFinalized.
func (r *RepoPGS) Complete(ctx context.Context, id int64) (domain.Transaction, error) {
	return r.finalize(ctx, completeQuery, id)
}

const failQuery = `
UPDATE transactions
SET status = 'FAILED', fail_reason = $2, completed_at = now()
WHERE id = $1 AND status = 'PENDING'
RETURNING` + transactionColumns

// Fail finalizes a PENDING entry to FAILED with the given reason.
func (r *RepoPGS) Fail(ctx context.Context, id int64, reason string) (domain.Transaction, error) {
	return r.finalize(ctx, failQuery, id, reason)
}

func (r *RepoPGS) finalize(ctx context.Context, query string, id int64, args ...interface{}) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, query, append([]interface{}{id}, args...)...)

	txn, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			// Either the entry does not exist or it is already finalized.
			if _, getErr := r.Get(ctx, id); getErr == nil {
				return txn, domain.ErrTransactionFinalized
			}

			return txn, domain.ErrTransactionNotFound
		}

		l.Error().Err(err).Int64("transaction_id", id).Send()

		return txn, errorspkg.ErrInternal
	}

	return txn, nil
}

const getQuery = `
SELECT` + transactionColumns + `
FROM transactions
WHERE id = $1
`

// Get returns the transaction with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, id)

	txn, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return txn, domain.ErrTransactionNotFound
		}

		l.Error().Err(err).Send()

		return txn, errorspkg.ErrInternal
	}

	return txn, nil
}

const getByReferenceQuery = `
SELECT` + transactionColumns + `
FROM transactions
WHERE reference = $1
`

// GetByReference returns the transaction carrying the given reference.
func (r *RepoPGS) GetByReference(ctx context.Context, reference string) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getByReferenceQuery, reference)

	txn, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return txn, domain.ErrTransactionNotFound
		}

		l.Error().Err(err).Str("reference", reference).Send()

		return txn, errorspkg.ErrInternal
	}

	return txn, nil
}

const listForUserQuery = `
SELECT` + transactionColumns + `
FROM transactions
WHERE sender_id = $1 OR receiver_id = $1
ORDER BY created_at DESC, id DESC
`

// ListForUser returns the transactions the user participates in, newest first.
func (r *RepoPGS) ListForUser(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	return r.list(ctx, listForUserQuery, userID)
}

const listStalePendingQuery = `
SELECT` + transactionColumns + `
FROM transactions
WHERE status = 'PENDING' AND created_at < $1
ORDER BY created_at
`

// ListStalePending returns PENDING entries created before the given time.
func (r *RepoPGS) ListStalePending(ctx context.Context, olderThan time.Time) ([]domain.Transaction, error) {
	return r.list(ctx, listStalePendingQuery, olderThan)
}

func (r *RepoPGS) list(ctx context.Context, query string, arg interface{}) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, txn)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (domain.Transaction, error) {
	var (
		txn         domain.Transaction
		receiverID  sql.NullInt64
		failReason  sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(
		&txn.ID,
		&txn.Reference,
		&txn.SenderID,
		&receiverID,
		&txn.Amount,
		&txn.Type,
		&txn.Status,
		&txn.Description,
		&failReason,
		&txn.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return txn, err
	}

	if receiverID.Valid {
		txn.ReceiverID = &receiverID.Int64
	}

	if failReason.Valid {
		txn.FailReason = failReason.String
	}

	if completedAt.Valid {
		txn.CompletedAt = &completedAt.Time
	}

	return txn, nil
}
