// Package reconciler resolves transactions left PENDING by a crash.
//
// A transaction only reaches COMPLETED in the same storage transaction as its
// wallet mutations, so an entry still PENDING after the timeout means those
// mutations never applied. Finalizing it to FAILED is therefore safe and
// restores the all-or-nothing contract after a crash mid-transfer.
package reconciler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/kefaspay/wallet/internal/domain"
)

// FailReason marks transactions finalized by the reconciler.
const FailReason = "reconciled: stale pending"

// Ledger provides the ledger access needed to sweep stale entries.
type Ledger interface {
	ListStalePending(ctx context.Context, olderThan time.Time) ([]domain.Transaction, error)
	Fail(ctx context.Context, id int64, reason string) (domain.Transaction, error)
}

// Reconciler periodically fails PENDING ledger entries older than the timeout.
type Reconciler struct {
	ledger   Ledger
	timeout  time.Duration
	interval time.Duration
}

// New returns a Reconciler with the given pending timeout and sweep interval.
func New(ledger Ledger, timeout, interval time.Duration) *Reconciler {
	return &Reconciler{
		ledger:   ledger,
		timeout:  timeout,
		interval: interval,
	}
}

// Run sweeps on every interval tick until the context is done.
func (r *Reconciler) Run(ctx context.Context) {
	l := zerolog.Ctx(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				l.Error().Err(err).Msg("reconcile sweep failed")
			}
		}
	}
}

// Sweep finalizes all stale PENDING entries to FAILED.
func (r *Reconciler) Sweep(ctx context.Context) error {
	l := zerolog.Ctx(ctx)

	stale, err := r.ledger.ListStalePending(ctx, time.Now().Add(-r.timeout))
	if err != nil {
		return err
	}

	for _, txn := range stale {
		if _, err := r.ledger.Fail(ctx, txn.ID, FailReason); err != nil {
			// A concurrent finalization is fine; anything else is logged
			// and retried on the next sweep.
			if errors.Is(err, domain.ErrTransactionFinalized) {
				continue
			}

			l.Error().Err(err).Int64("transaction_id", txn.ID).Msg("cannot reconcile transaction")

			continue
		}

		l.Warn().
			Int64("transaction_id", txn.ID).
			Str("reference", txn.Reference).
			Msg("stale pending transaction failed by reconciler")
	}

	return nil
}
