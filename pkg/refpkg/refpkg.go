// Package refpkg generates globally unique transaction references.
package refpkg

import (
	"strings"

	"github.com/google/uuid"
)

// Prefix marks generated references as transaction references.
const Prefix = "TXN-"

// Generator produces globally unique transaction reference identifiers.
type Generator interface {
	New() string
}

// UUIDGenerator generates references backed by random 128-bit identifiers.
// The collision probability is negligible, which the ledger still guards
// with a unique index.
type UUIDGenerator struct{}

// New returns a new unique reference.
func (UUIDGenerator) New() string {
	return Prefix + strings.ToUpper(uuid.NewString())
}
