package contracts

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Snapshot is the normalized view of one filing.
// Accounts always holds an entry per AccountKeys element; nil means unresolved.
type Snapshot struct {
	Key           SnapshotKey
	Accounts      map[AccountKey]*big.Int
	IssuedShares  *big.Int
	BasicEPS      decimal.NullDecimal
	MissingFields []AccountKey
	MatchRate     float64 // percent, 0 ~ 100

	// EpsAttempts counts syncs that ended without a usable EPS
	EpsAttempts int
	// SyncRunID correlates the snapshot with the sync that wrote it
	SyncRunID string
}

// NewSnapshot returns a snapshot with every account present and unresolved
func NewSnapshot(key SnapshotKey) *Snapshot {
	accounts := make(map[AccountKey]*big.Int, len(AccountKeys))
	for _, k := range AccountKeys {
		accounts[k] = nil
	}
	return &Snapshot{Key: key, Accounts: accounts}
}

// Amount returns the resolved amount for k or nil
func (s *Snapshot) Amount(k AccountKey) *big.Int {
	if s == nil {
		return nil
	}
	return s.Accounts[k]
}

// HasAllKeys reports whether every normalized account is present as an entry
func (s *Snapshot) HasAllKeys() bool {
	if s == nil {
		return false
	}
	for _, k := range AccountKeys {
		if _, ok := s.Accounts[k]; !ok {
			return false
		}
	}
	return true
}

// Refresh recomputes MissingFields and MatchRate from Accounts
func (s *Snapshot) Refresh() {
	missing := make([]AccountKey, 0, len(AccountKeys))
	for _, k := range AccountKeys {
		if s.Accounts[k] == nil {
			missing = append(missing, k)
		}
	}
	s.MissingFields = missing
	matched := len(AccountKeys) - len(s.MissingFields)
	s.MatchRate = float64(matched) / float64(len(AccountKeys)) * 100
}
