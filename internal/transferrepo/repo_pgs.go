// Package transferrepo manages the atomic transfer unit of work.
package transferrepo

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/kefaspay/wallet/internal/domain"
	"github.com/kefaspay/wallet/internal/ledgerrepo"
	"github.com/kefaspay/wallet/internal/walletrepo"
	"github.com/kefaspay/wallet/pkg/errorspkg"
)

// RepoPGS executes transfer and deposit transactions against Postgres.
//
// A transfer runs in two phases. The PENDING ledger entry commits on its own
// so the record survives a crash mid-transfer; the wallet mutations and the
// COMPLETED flip then run in one database transaction. If that transaction
// cannot commit, the entry is finalized to FAILED and no balance changes.
// Entries left PENDING by a crash are swept by the reconciler.
type RepoPGS struct {
	conn   *sql.DB
	ledger *ledgerrepo.RepoPGS
}

// NewRepoPGS returns transfer RepoPGS.
func NewRepoPGS(conn *sql.DB) *RepoPGS {
	return &RepoPGS{
		conn:   conn,
		ledger: ledgerrepo.NewRepoPGS(conn),
	}
}

// TransferTx moves amount between two wallets and records the movement.
//
// Balance updates execute in ascending wallet id order regardless of
// direction to avoid deadlocks between concurrent opposite transfers.
func (r *RepoPGS) TransferTx(ctx context.Context, arg domain.TransferTxParams) (domain.TransferTxResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransferTxResult

	senderWallet, receiverWallet, err := r.walletOwners(ctx, arg.SenderWalletID, arg.ReceiverWalletID)
	if err != nil {
		return result, err
	}

	pending, err := r.ledger.Begin(ctx, domain.BeginTransactionParams{
		Reference:   arg.Reference,
		SenderID:    senderWallet.OwnerID,
		ReceiverID:  &receiverWallet.OwnerID,
		Amount:      arg.Amount,
		Type:        domain.TypeTransfer,
		Description: arg.Description,
	})
	if err != nil {
		return result, err
	}

	err = r.mutate(ctx, &result, pending.ID, func(wallets *walletrepo.RepoPGS) error {
		debitFirst := arg.SenderWalletID < arg.ReceiverWalletID

		if debitFirst {
			result.SenderWallet, err = wallets.AddBalance(ctx, -arg.Amount, arg.SenderWalletID)
			if err != nil {
				return err
			}

			result.ReceiverWallet, err = wallets.AddBalance(ctx, arg.Amount, arg.ReceiverWalletID)

			return err
		}

		result.ReceiverWallet, err = wallets.AddBalance(ctx, arg.Amount, arg.ReceiverWalletID)
		if err != nil {
			return err
		}

		result.SenderWallet, err = wallets.AddBalance(ctx, -arg.Amount, arg.SenderWalletID)

		return err
	})
	if err != nil {
		l.Error().Err(err).Str("reference", arg.Reference).Msg("transfer transaction failed")
		return domain.TransferTxResult{}, err
	}

	return result, nil
}

// DepositTx credits a single wallet from the external funding source.
func (r *RepoPGS) DepositTx(ctx context.Context, arg domain.DepositTxParams) (domain.TransferTxResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransferTxResult

	wallet, err := r.walletByID(ctx, arg.WalletID)
	if err != nil {
		return result, err
	}

	pending, err := r.ledger.Begin(ctx, domain.BeginTransactionParams{
		Reference:   arg.Reference,
		SenderID:    wallet.OwnerID,
		Amount:      arg.Amount,
		Type:        domain.TypeDeposit,
		Description: arg.Description,
	})
	if err != nil {
		return result, err
	}

	err = r.mutate(ctx, &result, pending.ID, func(wallets *walletrepo.RepoPGS) error {
		result.SenderWallet, err = wallets.AddBalance(ctx, arg.Amount, arg.WalletID)
		return err
	})
	if err != nil {
		l.Error().Err(err).Str("reference", arg.Reference).Msg("deposit transaction failed")
		return domain.TransferTxResult{}, err
	}

	return result, nil
}

// mutate runs fn and the COMPLETED flip in one database transaction. On any
// failure the transaction rolls back and the pending entry finalizes to
// FAILED, leaving wallet balances untouched.
func (r *RepoPGS) mutate(ctx context.Context, result *domain.TransferTxResult, pendingID int64, fn func(wallets *walletrepo.RepoPGS) error) error {
	l := zerolog.Ctx(ctx)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		r.failPending(ctx, pendingID, "begin tx: "+err.Error())

		return errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			l.Error().Err(err).Send()
		}
	}()

	txWallets := walletrepo.NewRepoPGS(tx)
	txLedger := ledgerrepo.NewRepoPGS(tx)

	if err := fn(txWallets); err != nil {
		r.failPending(ctx, pendingID, err.Error())
		return err
	}

	result.Transaction, err = txLedger.Complete(ctx, pendingID)
	if err != nil {
		r.failPending(ctx, pendingID, "complete: "+err.Error())
		return err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		r.failPending(ctx, pendingID, "commit: "+err.Error())

		return errorspkg.ErrInternal
	}

	return nil
}

// failPending finalizes the entry to FAILED outside the rolled back
// transaction. Best effort: if this also fails the reconciler picks the
// entry up later.
func (r *RepoPGS) failPending(ctx context.Context, id int64, reason string) {
	l := zerolog.Ctx(ctx)

	if _, err := r.ledger.Fail(ctx, id, reason); err != nil {
		l.Error().Err(err).Int64("transaction_id", id).Msg("cannot finalize pending transaction")
	}
}

const walletByIDQuery = `
SELECT id, owner_id, balance, version, created_at, updated_at
FROM wallets
WHERE id = $1
`

func (r *RepoPGS) walletByID(ctx context.Context, id int64) (domain.Wallet, error) {
	l := zerolog.Ctx(ctx)

	var w domain.Wallet

	row := r.conn.QueryRowContext(ctx, walletByIDQuery, id)

	err := row.Scan(&w.ID, &w.OwnerID, &w.Balance, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return w, domain.ErrWalletNotFound
		}

		l.Error().Err(err).Int64("wallet_id", id).Send()

		return w, errorspkg.ErrInternal
	}

	return w, nil
}

func (r *RepoPGS) walletOwners(ctx context.Context, senderWalletID, receiverWalletID int64) (domain.Wallet, domain.Wallet, error) {
	sender, err := r.walletByID(ctx, senderWalletID)
	if err != nil {
		return domain.Wallet{}, domain.Wallet{}, err
	}

	receiver, err := r.walletByID(ctx, receiverWalletID)
	if err != nil {
		return domain.Wallet{}, domain.Wallet{}, err
	}

	return sender, receiver, nil
}
