// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"time"
)

var (
	// ErrWalletNotFound indicates that the wallet is not found.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrWalletAlreadyExists indicates that the owner already has a wallet.
	ErrWalletAlreadyExists = errors.New("wallet already exists")
	// ErrInsufficientBalance indicates that the wallet does not have sufficient balance.
	ErrInsufficientBalance = errors.New("insufficient funds")
	// ErrVersionConflict indicates that the wallet was mutated since it was read.
	ErrVersionConflict = errors.New("wallet version conflict")
)

// Wallet holds the spendable balance of a single owner in minor currency units.
//
// Exactly one wallet exists per owner. Balance is never negative and is
// mutated only through the transfer transaction paths. Version increments on
// every balance mutation and backs optimistic concurrency control.
type Wallet struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Balance   int64     `json:"balance"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
