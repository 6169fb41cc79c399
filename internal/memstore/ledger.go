package memstore

import (
	"context"
	"time"

	"github.com/kefaspay/wallet/internal/domain"
)

// Begin creates a PENDING ledger entry and then returns it.
func (s *Store) Begin(ctx context.Context, arg domain.BeginTransactionParams) (domain.Transaction, error) {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	if arg.Amount <= 0 {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	if _, taken := s.txnByRef[arg.Reference]; taken {
		return domain.Transaction{}, domain.ErrDuplicateReference
	}

	s.nextTxnID++

	txn := &domain.Transaction{
		ID:          s.nextTxnID,
		Reference:   arg.Reference,
		SenderID:    arg.SenderID,
		ReceiverID:  arg.ReceiverID,
		Amount:      arg.Amount,
		Type:        arg.Type,
		Status:      domain.StatusPending,
		Description: arg.Description,
		CreatedAt:   time.Now().UTC(),
	}

	s.txns = append(s.txns, txn)
	s.txnByID[txn.ID] = txn
	s.txnByRef[txn.Reference] = txn

	return *txn, nil
}

// Complete finalizes a PENDING entry to COMPLETED and then returns it.
func (s *Store) Complete(ctx context.Context, id int64) (domain.Transaction, error) {
	return s.finalize(id, domain.StatusCompleted, "")
}

// Fail finalizes a PENDING entry to FAILED with the given reason.
func (s *Store) Fail(ctx context.Context, id int64, reason string) (domain.Transaction, error) {
	return s.finalize(id, domain.StatusFailed, reason)
}

func (s *Store) finalize(id int64, status, reason string) (domain.Transaction, error) {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	txn, ok := s.txnByID[id]
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	if txn.Finalized() {
		return domain.Transaction{}, domain.ErrTransactionFinalized
	}

	now := time.Now().UTC()
	txn.Status = status
	txn.FailReason = reason
	txn.CompletedAt = &now

	return *txn, nil
}

// GetTransaction returns the transaction with the given id.
func (s *Store) GetTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	txn, ok := s.txnByID[id]
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	return *txn, nil
}

// GetByReference returns the transaction carrying the given reference.
func (s *Store) GetByReference(ctx context.Context, reference string) (domain.Transaction, error) {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	txn, ok := s.txnByRef[reference]
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	return *txn, nil
}

// ListForUser returns the transactions the user participates in, newest first.
func (s *Store) ListForUser(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	items := []domain.Transaction{}

	for i := len(s.txns) - 1; i >= 0; i-- {
		txn := s.txns[i]

		if txn.SenderID == userID || (txn.ReceiverID != nil && *txn.ReceiverID == userID) {
			items = append(items, *txn)
		}
	}

	return items, nil
}

// ListStalePending returns PENDING entries created before the given time.
func (s *Store) ListStalePending(ctx context.Context, olderThan time.Time) ([]domain.Transaction, error) {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	items := []domain.Transaction{}

	for _, txn := range s.txns {
		if txn.Status == domain.StatusPending && txn.CreatedAt.Before(olderThan) {
			items = append(items, *txn)
		}
	}

	return items, nil
}
