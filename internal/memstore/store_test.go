package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kefaspay/wallet/internal/domain"
)

func seed(t *testing.T, s *Store, phone string, balance int64) (domain.User, domain.Wallet) {
	t.Helper()

	user, err := s.CreateUser(context.Background(), "user "+phone, phone, phone+"@test.local")
	require.NoError(t, err)

	wallet, err := s.CreateWallet(context.Background(), user.ID, balance)
	require.NoError(t, err)

	return user, wallet
}

func TestCreateUser(t *testing.T) {
	t.Parallel()

	s := New()

	user, err := s.CreateUser(context.Background(), "Ada", "+2348011111111", "ada@test.local")
	require.NoError(t, err)
	require.NotZero(t, user.ID)

	_, err = s.CreateUser(context.Background(), "Ada Again", "+2348011111111", "ada2@test.local")
	require.ErrorIs(t, err, domain.ErrPhoneAlreadyExists)

	got, err := s.ResolveByPhone(context.Background(), "+2348011111111")
	require.NoError(t, err)
	require.Equal(t, user, got)

	_, err = s.ResolveByPhone(context.Background(), "+2348099999999")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestCreateWallet(t *testing.T) {
	t.Parallel()

	s := New()

	user, err := s.CreateUser(context.Background(), "Ada", "+2348011111112", "ada@test.local")
	require.NoError(t, err)

	wallet, err := s.CreateWallet(context.Background(), user.ID, 500)
	require.NoError(t, err)
	require.Equal(t, int64(500), wallet.Balance)

	_, err = s.CreateWallet(context.Background(), user.ID, 0)
	require.ErrorIs(t, err, domain.ErrWalletAlreadyExists)

	got, err := s.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, wallet, got)

	_, err = s.Get(context.Background(), user.ID+100)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestTransferTxVersionConflict(t *testing.T) {
	t.Parallel()

	s := New()

	_, senderWallet := seed(t, s, "+2348021111111", 1000)
	_, receiverWallet := seed(t, s, "+2348021111112", 0)

	arg := domain.TransferTxParams{
		Reference:        "TXN-CONFLICT-1",
		SenderWalletID:   senderWallet.ID,
		SenderVersion:    senderWallet.Version + 1,
		ReceiverWalletID: receiverWallet.ID,
		ReceiverVersion:  receiverWallet.Version,
		Amount:           100,
	}

	_, err := s.TransferTx(context.Background(), arg)
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	// A conflict is detected before the ledger write, so no FAILED entry
	// is left behind and a retry with fresh versions goes through.
	_, err = s.GetByReference(context.Background(), arg.Reference)
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)

	arg.SenderVersion = senderWallet.Version

	res, err := s.TransferTx(context.Background(), arg)
	require.NoError(t, err)
	require.Equal(t, int64(900), res.SenderWallet.Balance)
	require.Equal(t, int64(100), res.ReceiverWallet.Balance)
	require.Equal(t, senderWallet.Version+1, res.SenderWallet.Version)
}

func TestTransferTxDuplicateReference(t *testing.T) {
	t.Parallel()

	s := New()

	_, senderWallet := seed(t, s, "+2348021111121", 1000)
	_, receiverWallet := seed(t, s, "+2348021111122", 0)

	arg := domain.TransferTxParams{
		Reference:        "TXN-DUP-1",
		SenderWalletID:   senderWallet.ID,
		SenderVersion:    senderWallet.Version,
		ReceiverWalletID: receiverWallet.ID,
		ReceiverVersion:  receiverWallet.Version,
		Amount:           100,
	}

	res, err := s.TransferTx(context.Background(), arg)
	require.NoError(t, err)

	arg.SenderVersion = res.SenderWallet.Version
	arg.ReceiverVersion = res.ReceiverWallet.Version

	_, err = s.TransferTx(context.Background(), arg)
	require.ErrorIs(t, err, domain.ErrDuplicateReference)

	// The original entry is untouched and the balances moved exactly once.
	txn, err := s.GetByReference(context.Background(), "TXN-DUP-1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, txn.Status)

	senderNow, err := s.Get(context.Background(), senderWallet.OwnerID)
	require.NoError(t, err)
	require.Equal(t, int64(900), senderNow.Balance)
}

func TestTransferTxOppositeDirectionsConserveTotal(t *testing.T) {
	t.Parallel()

	s := New()

	userA, _ := seed(t, s, "+2348023333331", 5000)
	userB, _ := seed(t, s, "+2348023333332", 5000)

	const workers = 16
	const transfersPerWorker = 25

	// Half the workers transfer A to B, half B to A, so both lock
	// acquisition orders are exercised concurrently.
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		i := i

		wg.Add(1)

		go func() {
			defer wg.Done()

			from, to := userA.ID, userB.ID
			if i%2 == 1 {
				from, to = to, from
			}

			for j := 0; j < transfersPerWorker; j++ {
				for {
					sender, err := s.Get(context.Background(), from)
					if err != nil {
						t.Error(err)
						return
					}

					receiver, err := s.Get(context.Background(), to)
					if err != nil {
						t.Error(err)
						return
					}

					_, err = s.TransferTx(context.Background(), domain.TransferTxParams{
						Reference:        fmt.Sprintf("TXN-CROSS-%d-%d", i, j),
						SenderWalletID:   sender.ID,
						SenderVersion:    sender.Version,
						ReceiverWalletID: receiver.ID,
						ReceiverVersion:  receiver.Version,
						Amount:           10,
					})
					if errors.Is(err, domain.ErrVersionConflict) {
						continue
					}
					if err != nil {
						t.Error(err)
					}

					break
				}
			}
		}()
	}

	wg.Wait()

	a, err := s.Get(context.Background(), userA.ID)
	require.NoError(t, err)

	b, err := s.Get(context.Background(), userB.ID)
	require.NoError(t, err)

	require.Equal(t, int64(10000), a.Balance+b.Balance)
	require.Equal(t, int64(5000), a.Balance)
}

func TestTransferTxInsufficientBalance(t *testing.T) {
	t.Parallel()

	s := New()

	_, senderWallet := seed(t, s, "+2348021111131", 50)
	_, receiverWallet := seed(t, s, "+2348021111132", 0)

	_, err := s.TransferTx(context.Background(), domain.TransferTxParams{
		Reference:        "TXN-POOR-1",
		SenderWalletID:   senderWallet.ID,
		SenderVersion:    senderWallet.Version,
		ReceiverWalletID: receiverWallet.ID,
		ReceiverVersion:  receiverWallet.Version,
		Amount:           100,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = s.GetByReference(context.Background(), "TXN-POOR-1")
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestDepositTx(t *testing.T) {
	t.Parallel()

	s := New()

	owner, wallet := seed(t, s, "+2348021111141", 100)

	res, err := s.DepositTx(context.Background(), domain.DepositTxParams{
		Reference:     "TXN-FUND-1",
		WalletID:      wallet.ID,
		WalletVersion: wallet.Version,
		Amount:        400,
		Description:   "Wallet funding",
	})
	require.NoError(t, err)
	require.Equal(t, int64(500), res.SenderWallet.Balance)
	require.Equal(t, domain.TypeDeposit, res.Transaction.Type)
	require.Equal(t, owner.ID, res.Transaction.SenderID)
	require.Nil(t, res.Transaction.ReceiverID)

	_, err = s.DepositTx(context.Background(), domain.DepositTxParams{
		Reference:     "TXN-FUND-2",
		WalletID:      wallet.ID,
		WalletVersion: wallet.Version,
		Amount:        400,
	})
	require.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestFinalizeOnce(t *testing.T) {
	t.Parallel()

	s := New()

	user, _ := seed(t, s, "+2348021111151", 100)

	pending, err := s.Begin(context.Background(), domain.BeginTransactionParams{
		Reference: "TXN-ONCE-1",
		SenderID:  user.ID,
		Amount:    100,
		Type:      domain.TypeTransfer,
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, pending.Status)
	require.Nil(t, pending.CompletedAt)

	done, err := s.Complete(context.Background(), pending.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	_, err = s.Fail(context.Background(), pending.ID, "too late")
	require.ErrorIs(t, err, domain.ErrTransactionFinalized)

	_, err = s.Complete(context.Background(), pending.ID)
	require.ErrorIs(t, err, domain.ErrTransactionFinalized)

	_, err = s.Complete(context.Background(), pending.ID+100)
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestBeginRejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	s := New()

	_, err := s.Begin(context.Background(), domain.BeginTransactionParams{
		Reference: "TXN-ZERO-1",
		SenderID:  1,
		Amount:    0,
		Type:      domain.TypeTransfer,
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestListStalePending(t *testing.T) {
	t.Parallel()

	s := New()

	user, _ := seed(t, s, "+2348021111161", 100)

	stale, err := s.Begin(context.Background(), domain.BeginTransactionParams{
		Reference: "TXN-STALE-1",
		SenderID:  user.ID,
		Amount:    100,
		Type:      domain.TypeTransfer,
	})
	require.NoError(t, err)

	done, err := s.Begin(context.Background(), domain.BeginTransactionParams{
		Reference: "TXN-STALE-2",
		SenderID:  user.ID,
		Amount:    100,
		Type:      domain.TypeTransfer,
	})
	require.NoError(t, err)

	_, err = s.Complete(context.Background(), done.ID)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	got, err := s.ListStalePending(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, stale.ID, got[0].ID)

	got, err = s.ListStalePending(context.Background(), stale.CreatedAt)
	require.NoError(t, err)
	require.Empty(t, got)
}
