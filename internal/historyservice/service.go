// Package historyservice provides the read-only query surface over the ledger.
package historyservice

import (
	"context"

	"github.com/kefaspay/wallet/internal/domain"
)

// Repo provides data access layer interface needed by history service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package historyservice
type Repo interface {
	ListForUser(ctx context.Context, userID int64) ([]domain.Transaction, error)
}

// Service facilitates history service layer logic.
type Service struct {
	repo Repo
}

// New returns history service struct.
func New(repo Repo) *Service {
	return &Service{repo: repo}
}

// List returns the user's transactions newest first. Entries carry their
// status verbatim, so in-flight PENDING entries are never presented as
// settled. Reads take no locks and run in parallel with transfers.
func (s *Service) List(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	return s.repo.ListForUser(ctx, userID)
}
