// Package walletservice manages business logic layer of wallets.
package walletservice

import (
	"context"

	"github.com/kefaspay/wallet/internal/domain"
)

// Repo provides data access layer interface needed by wallet service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package walletservice
type Repo interface {
	Get(ctx context.Context, ownerID int64) (domain.Wallet, error)
}

// Service facilitates wallet service layer logic.
type Service struct {
	repo Repo
}

// New returns wallet service struct to manage wallet business logic.
func New(repo Repo) *Service {
	return &Service{repo: repo}
}

// Get returns the wallet owned by the given user.
func (s *Service) Get(ctx context.Context, ownerID int64) (domain.Wallet, error) {
	return s.repo.Get(ctx, ownerID)
}
