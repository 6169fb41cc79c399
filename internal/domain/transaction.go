package domain

import (
	"errors"
	"time"
)

var (
	// ErrInvalidAmount indicates a non-positive or non-integer amount of minor units.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrSelfTransferNotAllowed indicates a transfer where sender and receiver are the same user.
	ErrSelfTransferNotAllowed = errors.New("self transfer not allowed")
	// ErrDuplicateReference indicates that the transaction reference is already taken.
	ErrDuplicateReference = errors.New("duplicate transaction reference")
	// ErrTransactionNotFound indicates that the transaction is not found.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrTransactionFinalized indicates an attempt to finalize an already finalized transaction.
	ErrTransactionFinalized = errors.New("transaction already finalized")
)

// Transaction statuses. A transaction is created PENDING and transitions
// exactly once to COMPLETED or FAILED.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Transaction types.
const (
	TypeTransfer = "TRANSFER"
	TypeDeposit  = "DEPOSIT"
)

// Transaction is an immutable ledger record of one value-moving operation.
//
// ReceiverID is nil for deposits, where value arrives from an external
// funding source rather than another wallet.
type Transaction struct {
	ID          int64      `json:"id"`
	Reference   string     `json:"reference"`
	SenderID    int64      `json:"sender_id"`
	ReceiverID  *int64     `json:"receiver_id,omitempty"`
	Amount      int64      `json:"amount"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Description string     `json:"description"`
	FailReason  string     `json:"fail_reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Finalized reports whether the transaction reached a terminal status.
func (t Transaction) Finalized() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// CreateTransferParams is the caller-facing input data for a transfer.
// Amount is a decimal string of minor units, validated by the coordinator.
type CreateTransferParams struct {
	ReceiverPhone string `json:"receiver_phone"`
	Amount        string `json:"amount"`
	Description   string `json:"description"`
}

// FundWalletParams is the caller-facing input data for a deposit.
type FundWalletParams struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

// BeginTransactionParams is the input data for a new PENDING ledger entry.
type BeginTransactionParams struct {
	Reference   string `json:"reference"`
	SenderID    int64  `json:"sender_id"`
	ReceiverID  *int64 `json:"receiver_id,omitempty"`
	Amount      int64  `json:"amount"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// TransferTxParams is the input data for the atomic transfer transaction.
//
// SenderVersion and ReceiverVersion carry the wallet versions observed by the
// coordinator; stores with optimistic concurrency reject the transaction with
// ErrVersionConflict if either wallet was mutated since.
type TransferTxParams struct {
	Reference        string `json:"reference"`
	SenderWalletID   int64  `json:"sender_wallet_id"`
	SenderVersion    int64  `json:"sender_version"`
	ReceiverWalletID int64  `json:"receiver_wallet_id"`
	ReceiverVersion  int64  `json:"receiver_version"`
	Amount           int64  `json:"amount"`
	Description      string `json:"description"`
}

// DepositTxParams is the input data for the atomic deposit transaction.
type DepositTxParams struct {
	Reference     string `json:"reference"`
	WalletID      int64  `json:"wallet_id"`
	WalletVersion int64  `json:"wallet_version"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
}

// TransferTxResult is the result of the atomic transfer or deposit transaction.
// ReceiverWallet is zero-valued for deposits.
type TransferTxResult struct {
	Transaction    Transaction `json:"transaction"`
	SenderWallet   Wallet      `json:"sender_wallet"`
	ReceiverWallet Wallet      `json:"receiver_wallet"`
}
