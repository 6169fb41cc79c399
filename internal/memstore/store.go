// Package memstore provides an in-memory wallet store and transaction ledger.
//
// It implements the same contracts as the Postgres repositories and backs the
// concurrency and atomicity property tests, which need precise control over
// interleavings and failure injection that a live database cannot offer.
// Per-wallet locks are always acquired in ascending wallet id order, and
// wallet mutations are staged on copies so a failed transaction never leaves
// a partial write behind.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kefaspay/wallet/internal/domain"
)

// Fault stages at which a FaultHook fires, mirroring the storage steps of the
// transfer transaction.
const (
	StageDebit    = "debit"
	StageCredit   = "credit"
	StageComplete = "complete"
)

// Store keeps users, wallets and the transaction ledger in memory.
type Store struct {
	mu             sync.Mutex
	users          map[int64]domain.User
	phones         map[string]int64
	wallets        map[int64]*walletSlot
	walletsByOwner map[int64]int64
	nextUserID     int64
	nextWalletID   int64

	ledgerMu  sync.Mutex
	txns      []*domain.Transaction
	txnByID   map[int64]*domain.Transaction
	txnByRef  map[string]*domain.Transaction
	nextTxnID int64

	// FaultHook, when set, runs before the named mutation stage and aborts
	// the transaction with the returned error. Test support only.
	FaultHook func(stage string) error
}

type walletSlot struct {
	// id duplicates w.ID so lock ordering never reads w without the mutex.
	id int64
	mu sync.Mutex
	w  domain.Wallet
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:          make(map[int64]domain.User),
		phones:         make(map[string]int64),
		wallets:        make(map[int64]*walletSlot),
		walletsByOwner: make(map[int64]int64),
		txnByID:        make(map[int64]*domain.Transaction),
		txnByRef:       make(map[string]*domain.Transaction),
	}
}

// CreateUser registers a user in the directory.
func (s *Store) CreateUser(ctx context.Context, name, phone, email string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.phones[phone]; taken {
		return domain.User{}, domain.ErrPhoneAlreadyExists
	}

	s.nextUserID++

	u := domain.User{
		ID:        s.nextUserID,
		Name:      name,
		Phone:     phone,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	s.users[u.ID] = u
	s.phones[phone] = u.ID

	return u, nil
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, id int64) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}

	return u, nil
}

// ResolveByPhone returns the user registered with the given phone number.
func (s *Store) ResolveByPhone(ctx context.Context, phone string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.phones[phone]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}

	return s.users[id], nil
}

// CreateWallet creates a wallet for the owner with the given opening balance.
func (s *Store) CreateWallet(ctx context.Context, ownerID, balance int64) (domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.walletsByOwner[ownerID]; taken {
		return domain.Wallet{}, domain.ErrWalletAlreadyExists
	}

	s.nextWalletID++
	now := time.Now().UTC()

	w := domain.Wallet{
		ID:        s.nextWalletID,
		OwnerID:   ownerID,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.wallets[w.ID] = &walletSlot{id: w.ID, w: w}
	s.walletsByOwner[ownerID] = w.ID

	return w, nil
}

// Get returns the wallet owned by the given user.
func (s *Store) Get(ctx context.Context, ownerID int64) (domain.Wallet, error) {
	s.mu.Lock()
	walletID, ok := s.walletsByOwner[ownerID]
	slot := s.wallets[walletID]
	s.mu.Unlock()

	if !ok {
		return domain.Wallet{}, domain.ErrWalletNotFound
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	return slot.w, nil
}

func (s *Store) slot(walletID int64) (*walletSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.wallets[walletID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}

	return slot, nil
}

// lockOrdered locks the given slots in ascending wallet id order and returns
// the unlock function. Duplicate slots are locked once.
func lockOrdered(slots ...*walletSlot) func() {
	uniq := slots[:0:0]

	for _, slot := range slots {
		seen := false

		for _, u := range uniq {
			if u == slot {
				seen = true
				break
			}
		}

		if !seen {
			uniq = append(uniq, slot)
		}
	}

	sort.Slice(uniq, func(i, j int) bool { return uniq[i].id < uniq[j].id })

	for _, slot := range uniq {
		slot.mu.Lock()
	}

	return func() {
		for i := len(uniq) - 1; i >= 0; i-- {
			uniq[i].mu.Unlock()
		}
	}
}

func (s *Store) fault(stage string) error {
	if s.FaultHook == nil {
		return nil
	}

	return s.FaultHook(stage)
}

// TransferTx moves amount between two wallets and records the movement.
//
// The wallet versions in arg must match the current versions; the transaction
// fails with ErrVersionConflict before any ledger write otherwise. Failures
// after the PENDING write finalize the entry to FAILED with both balances
// untouched.
func (s *Store) TransferTx(ctx context.Context, arg domain.TransferTxParams) (domain.TransferTxResult, error) {
	var result domain.TransferTxResult

	sSlot, err := s.slot(arg.SenderWalletID)
	if err != nil {
		return result, err
	}

	rSlot, err := s.slot(arg.ReceiverWalletID)
	if err != nil {
		return result, err
	}

	unlock := lockOrdered(sSlot, rSlot)
	defer unlock()

	if sSlot.w.Version != arg.SenderVersion || rSlot.w.Version != arg.ReceiverVersion {
		return result, domain.ErrVersionConflict
	}

	if sSlot.w.Balance < arg.Amount {
		return result, domain.ErrInsufficientBalance
	}

	receiverOwnerID := rSlot.w.OwnerID

	pending, err := s.Begin(ctx, domain.BeginTransactionParams{
		Reference:   arg.Reference,
		SenderID:    sSlot.w.OwnerID,
		ReceiverID:  &receiverOwnerID,
		Amount:      arg.Amount,
		Type:        domain.TypeTransfer,
		Description: arg.Description,
	})
	if err != nil {
		return result, err
	}

	now := time.Now().UTC()
	sender := sSlot.w

	if err := s.fault(StageDebit); err != nil {
		s.failLocked(pending.ID, err.Error())
		return result, err
	}

	sender.Balance -= arg.Amount
	sender.Version++
	sender.UpdatedAt = now

	// A permitted self transfer stages both deltas on the same copy.
	receiver := rSlot.w
	if rSlot == sSlot {
		receiver = sender
	}

	if err := s.fault(StageCredit); err != nil {
		s.failLocked(pending.ID, err.Error())
		return result, err
	}

	receiver.Balance += arg.Amount
	receiver.Version++
	receiver.UpdatedAt = now

	if err := s.fault(StageComplete); err != nil {
		s.failLocked(pending.ID, err.Error())
		return result, err
	}

	if rSlot == sSlot {
		sSlot.w = receiver
	} else {
		sSlot.w = sender
		rSlot.w = receiver
	}

	result.Transaction, err = s.Complete(ctx, pending.ID)
	if err != nil {
		return domain.TransferTxResult{}, err
	}

	result.SenderWallet = sSlot.w
	result.ReceiverWallet = rSlot.w

	return result, nil
}

// DepositTx credits a single wallet from the external funding source.
func (s *Store) DepositTx(ctx context.Context, arg domain.DepositTxParams) (domain.TransferTxResult, error) {
	var result domain.TransferTxResult

	slot, err := s.slot(arg.WalletID)
	if err != nil {
		return result, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.w.Version != arg.WalletVersion {
		return result, domain.ErrVersionConflict
	}

	pending, err := s.Begin(ctx, domain.BeginTransactionParams{
		Reference:   arg.Reference,
		SenderID:    slot.w.OwnerID,
		Amount:      arg.Amount,
		Type:        domain.TypeDeposit,
		Description: arg.Description,
	})
	if err != nil {
		return result, err
	}

	wallet := slot.w

	if err := s.fault(StageCredit); err != nil {
		s.failLocked(pending.ID, err.Error())
		return result, err
	}

	wallet.Balance += arg.Amount
	wallet.Version++
	wallet.UpdatedAt = time.Now().UTC()

	slot.w = wallet

	result.Transaction, err = s.Complete(ctx, pending.ID)
	if err != nil {
		return domain.TransferTxResult{}, err
	}

	result.SenderWallet = slot.w

	return result, nil
}

func (s *Store) failLocked(id int64, reason string) {
	// The ledger entry must reach FAILED even though the wallet mutation
	// aborted; staged copies were never applied so balances are intact.
	_, _ = s.Fail(context.Background(), id, reason)
}
