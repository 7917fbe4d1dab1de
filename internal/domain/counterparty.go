package domain

import (
	"errors"
	"time"
)

// CounterpartyStatus classifies a Hive account or LN counterparty for the
// bad-actor / whitelist filter referenced throughout spec §7.
type CounterpartyStatus string

const (
	CounterpartyStatusAllowed     CounterpartyStatus = "allowed"
	CounterpartyStatusBlacklisted CounterpartyStatus = "blacklisted"
)

// Counterparty tracks whether a given name is permitted to move value
// through the bridge. Replaces the teacher's auth-oriented User type, which
// has no analogue once authentication is out of scope.
type Counterparty struct {
	Name      string
	Status    CounterpartyStatus
	Note      string
	UpdatedAt time.Time
}

// IsBlacklisted reports whether value flow to/from this counterparty must
// be rejected as a business rejection (spec §7), regardless of dev-mode.
func (c *Counterparty) IsBlacklisted() bool {
	return c != nil && c.Status == CounterpartyStatusBlacklisted
}

var ErrCounterpartyNotFound = errors.New("counterparty not found")
