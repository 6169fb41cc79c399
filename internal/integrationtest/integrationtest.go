// Package integrationtest provides db helpers used in integration tests.
package integrationtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kefaspay/wallet/cmd/httpserver"
	"github.com/kefaspay/wallet/internal/domain"
	"github.com/kefaspay/wallet/internal/middleware"
	"github.com/kefaspay/wallet/internal/userrepo"
	"github.com/kefaspay/wallet/internal/walletrepo"
	"github.com/kefaspay/wallet/pkg/configpkg"
	"github.com/kefaspay/wallet/pkg/dbpkg"
	"github.com/kefaspay/wallet/pkg/randompkg"
)

// NopPublisher drops every notification. Integration tests exercise the funds
// movement against a live database; event delivery is covered elsewhere.
type NopPublisher struct{}

// Publish implements the publisher contract and does nothing.
func (NopPublisher) Publish(ctx context.Context, topic, event string, payload interface{}) error {
	return nil
}

// SetupServer returns a test server that cleans up the database after each
// integration test.
func SetupServer(t *testing.T) *httpserver.Server {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		t.Fatalf(`configpkg.Load("../../configs") returned error: %v`, err)
	}

	zerolog.SetGlobalLevel(zerolog.FatalLevel)

	logger := middleware.CreateLogger(config)

	db := SetupDB(t, config.DBDriver, config.DBSource)

	gin.SetMode(gin.ReleaseMode)

	server, err := httpserver.New(db, NopPublisher{}, logger, config)
	if err != nil {
		t.Fatalf(`httpserver.New(db, publisher, logger, config) returned error: %v`, err)
	}

	return server
}

// Flush flushes all db tables without dropping.
func Flush(t *testing.T, db *sql.DB) {
	t.Helper()

	var tables string

	const query = `
	SELECT string_agg(table_name, ', ')
	FROM information_schema.tables
	WHERE table_schema='public';`

	row := db.QueryRow(query)

	err := row.Scan(&tables)
	if err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}

	if _, err := db.Exec(`TRUNCATE TABLE ` + tables + " CASCADE"); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}
}

// SetupDB sets up connection with database for testing and then cleans it.
func SetupDB(t *testing.T, driver, source string) *sql.DB {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	t.Cleanup(func() {
		Flush(t, db)

		if err := db.Close(); err != nil {
			t.Fatalf("db cleanup failed. err: %v", err)
		}
	})

	return db
}

// SetupTX sets up a database transaction to be used in tests.
//
// Once the tests are done it will rollback the transaction.
func SetupTX(t *testing.T, driver, source string) *sql.Tx {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("db.Begin() failed: %v", err)
	}

	t.Cleanup(func() {
		if err := tx.Rollback(); err != nil {
			t.Fatalf("tx.Rollback() failed: %v", err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("db.Close() failed: %v", err)
		}
	})

	return tx
}

// SeedUser creates a user with a random phone number.
func SeedUser(t *testing.T, db dbpkg.SQLInterface) domain.User {
	t.Helper()

	repo := userrepo.NewRepoPGS(db)

	user, err := repo.Create(context.Background(), randompkg.Name(), randompkg.Phone(), randompkg.Email())
	if err != nil {
		t.Fatalf("userRepo.Create(ctx, ...) returned error: %v", err)
	}

	return user
}

// SeedWallet creates a wallet for the owner holding the given balance.
func SeedWallet(t *testing.T, db dbpkg.SQLInterface, ownerID, balance int64) domain.Wallet {
	t.Helper()

	repo := walletrepo.NewRepoPGS(db)

	wallet, err := repo.Create(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("walletRepo.Create(ctx, %v) returned error: %v", ownerID, err)
	}

	if balance == 0 {
		return wallet
	}

	wallet, err = repo.AddBalance(context.Background(), balance, wallet.ID)
	if err != nil {
		t.Fatalf("walletRepo.AddBalance(ctx, %v, %v) returned error: %v", balance, wallet.ID, err)
	}

	return wallet
}
