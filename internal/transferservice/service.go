// Package transferservice manages business logic layer of transfers and deposits.
package transferservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kefaspay/wallet/internal/domain"
	"github.com/kefaspay/wallet/pkg/configpkg"
	"github.com/kefaspay/wallet/pkg/refpkg"
)

// Events emitted to participants after a committed transaction.
const (
	EventTransactionCompleted = "transaction:completed"
	EventWalletUpdated        = "wallet:updated"
	EventWalletFunded         = "wallet:funded"
)

// Store provides the atomic transaction unit needed by the service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Store interface {
	TransferTx(ctx context.Context, arg domain.TransferTxParams) (domain.TransferTxResult, error)
	DepositTx(ctx context.Context, arg domain.DepositTxParams) (domain.TransferTxResult, error)
}

// WalletReader provides wallet read access needed by the service layer.
type WalletReader interface {
	Get(ctx context.Context, ownerID int64) (domain.Wallet, error)
}

// Directory resolves transfer counterparties by phone number.
type Directory interface {
	ResolveByPhone(ctx context.Context, phone string) (domain.User, error)
}

// Ledger provides transaction lookup needed for idempotent replays.
type Ledger interface {
	GetByReference(ctx context.Context, reference string) (domain.Transaction, error)
}

// Publisher delivers best-effort events to per-user topics.
type Publisher interface {
	Publish(ctx context.Context, topic, event string, payload interface{}) error
}

// Event is the payload delivered to a participant's topic.
type Event struct {
	Message     string             `json:"message"`
	Transaction domain.Transaction `json:"transaction"`
	NewBalance  int64              `json:"new_balance"`
}

// Service facilitates transfer service layer logic.
type Service struct {
	store     Store
	wallets   WalletReader
	directory Directory
	ledger    Ledger
	publisher Publisher
	refs      refpkg.Generator

	allowSelfTransfer bool
	maxRetries        int
	retryDelay        time.Duration
}

// New returns a transfer Service configured from the application config.
func New(store Store, wallets WalletReader, directory Directory, ledger Ledger, publisher Publisher, refs refpkg.Generator, config configpkg.Config) *Service {
	maxRetries := config.TransferMaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &Service{
		store:             store,
		wallets:           wallets,
		directory:         directory,
		ledger:            ledger,
		publisher:         publisher,
		refs:              refs,
		allowSelfTransfer: config.AllowSelfTransfer,
		maxRetries:        maxRetries,
		retryDelay:        config.TransferRetryDelay,
	}
}

// ParseAmount validates a decimal string amount and returns it as positive
// integer minor units.
func ParseAmount(amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, domain.ErrInvalidAmount
	}

	if d.LessThanOrEqual(decimal.Zero) || !d.Equal(d.Truncate(0)) {
		return 0, domain.ErrInvalidAmount
	}

	if !d.BigInt().IsInt64() {
		return 0, domain.ErrInvalidAmount
	}

	return d.IntPart(), nil
}

// Transfer moves funds from the sender's wallet to the wallet of the user
// owning the receiver phone number and returns the committed result.
//
// Validation failures reject before any ledger write. Version conflicts are
// retried with backoff up to the configured attempt count. Notifications are
// dispatched after commit and never affect the returned result.
func (s *Service) Transfer(ctx context.Context, senderID int64, arg domain.CreateTransferParams) (domain.TransferTxResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransferTxResult

	amount, err := ParseAmount(arg.Amount)
	if err != nil {
		l.Info().Err(err).Str("amount", arg.Amount).Send()
		return result, err
	}

	receiver, err := s.directory.ResolveByPhone(ctx, arg.ReceiverPhone)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return result, domain.ErrReceiverNotFound
		}

		l.Error().Err(err).Send()

		return result, err
	}

	if receiver.ID == senderID && !s.allowSelfTransfer {
		return result, domain.ErrSelfTransferNotAllowed
	}

	for attempt := 0; ; attempt++ {
		senderWallet, err := s.wallets.Get(ctx, senderID)
		if err != nil {
			return result, err
		}

		receiverWallet, err := s.wallets.Get(ctx, receiver.ID)
		if err != nil {
			return result, err
		}

		if senderWallet.Balance < amount {
			return result, domain.ErrInsufficientBalance
		}

		result, err = s.store.TransferTx(ctx, domain.TransferTxParams{
			Reference:        s.refs.New(),
			SenderWalletID:   senderWallet.ID,
			SenderVersion:    senderWallet.Version,
			ReceiverWalletID: receiverWallet.ID,
			ReceiverVersion:  receiverWallet.Version,
			Amount:           amount,
			Description:      arg.Description,
		})

		if errors.Is(err, domain.ErrVersionConflict) {
			if attempt+1 >= s.maxRetries {
				l.Warn().Int("attempts", attempt+1).Msg("transfer retries exhausted")
				return domain.TransferTxResult{}, err
			}

			sleep(ctx, s.retryDelay*time.Duration(attempt+1))

			continue
		}

		if err != nil {
			return domain.TransferTxResult{}, err
		}

		break
	}

	go s.notifyTransfer(ctx, senderID, receiver.ID, result)

	return result, nil
}

// Fund credits the owner's wallet from the external funding source and
// returns the committed result.
func (s *Service) Fund(ctx context.Context, ownerID int64, arg domain.FundWalletParams) (domain.TransferTxResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransferTxResult

	amount, err := ParseAmount(arg.Amount)
	if err != nil {
		l.Info().Err(err).Str("amount", arg.Amount).Send()
		return result, err
	}

	description := arg.Description
	if description == "" {
		description = "Wallet funding"
	}

	for attempt := 0; ; attempt++ {
		wallet, err := s.wallets.Get(ctx, ownerID)
		if err != nil {
			return result, err
		}

		result, err = s.store.DepositTx(ctx, domain.DepositTxParams{
			Reference:     s.refs.New(),
			WalletID:      wallet.ID,
			WalletVersion: wallet.Version,
			Amount:        amount,
			Description:   description,
		})

		if errors.Is(err, domain.ErrVersionConflict) {
			if attempt+1 >= s.maxRetries {
				l.Warn().Int("attempts", attempt+1).Msg("deposit retries exhausted")
				return domain.TransferTxResult{}, err
			}

			sleep(ctx, s.retryDelay*time.Duration(attempt+1))

			continue
		}

		if err != nil {
			return domain.TransferTxResult{}, err
		}

		break
	}

	go s.notifyDeposit(ctx, ownerID, result)

	return result, nil
}

// ByReference returns the transaction carrying the given reference, so a
// caller retrying a committed operation observes the existing terminal state
// instead of re-executing it.
func (s *Service) ByReference(ctx context.Context, reference string) (domain.Transaction, error) {
	return s.ledger.GetByReference(ctx, reference)
}

// Topic returns the notification topic of the given user.
func Topic(userID int64) string {
	return fmt.Sprintf("user-%d", userID)
}

func (s *Service) notifyTransfer(ctx context.Context, senderID, receiverID int64, result domain.TransferTxResult) {
	ctx, cancel := detach(ctx)
	defer cancel()

	s.publish(ctx, Topic(senderID), EventTransactionCompleted, Event{
		Message:     "Transfer completed successfully",
		Transaction: result.Transaction,
		NewBalance:  result.SenderWallet.Balance,
	})

	s.publish(ctx, Topic(receiverID), EventWalletUpdated, Event{
		Message:     "You received a transfer",
		Transaction: result.Transaction,
		NewBalance:  result.ReceiverWallet.Balance,
	})
}

func (s *Service) notifyDeposit(ctx context.Context, ownerID int64, result domain.TransferTxResult) {
	ctx, cancel := detach(ctx)
	defer cancel()

	s.publish(ctx, Topic(ownerID), EventWalletFunded, Event{
		Message:     "Wallet funded successfully",
		Transaction: result.Transaction,
		NewBalance:  result.SenderWallet.Balance,
	})
}

// publish delivers one event. Failures are logged and swallowed; a committed
// transfer is never unwound by a notification problem.
func (s *Service) publish(ctx context.Context, topic, event string, payload Event) {
	l := zerolog.Ctx(ctx)

	if err := s.publisher.Publish(ctx, topic, event, payload); err != nil {
		l.Error().Err(err).Str("topic", topic).Str("event", event).Msg("cannot publish notification")
	}
}

// detach keeps the request logger but drops the request deadline, since
// notification delivery outlives the caller-visible completion.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	l := zerolog.Ctx(ctx)
	return context.WithTimeout(l.WithContext(context.Background()), 5*time.Second)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
