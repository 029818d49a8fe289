// Package settlement implements C9: the settlement DAG that promotes a
// merchant's earned balance from payable into paid state (spec.md §4.9).
// No transition here ever creates or modifies a ledger entry — the
// settlement event_type is posted exactly once, at CREATED, by the event
// choreographer (C8); this package only tracks the bank-facing lifecycle.
package settlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/atlaspay/aggregator-core/pkg/money"
)

// State is one node of the settlement DAG.
type State string

const (
	StateCreated       State = "CREATED"
	StateFundsReserved State = "FUNDS_RESERVED"
	StateSentToBank    State = "SENT_TO_BANK"
	StateBankConfirmed State = "BANK_CONFIRMED"
	StateSettled       State = "SETTLED"
	StateFailed        State = "FAILED"
	StateRetried       State = "RETRIED"
)

// Settlement is one merchant payout batch moving through the DAG.
type Settlement struct {
	ID          uuid.UUID
	Tenant      string
	MerchantRef string
	BatchRef    string
	Amount      money.MinorUnits
	Currency    string
	State       State
	RetryCount  int
	MaxRetries  int
	UTR         string
	BankRef     string
	NextRetryAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Transition is one append-only row of the audit trail spec.md §4.9 and §5
// require ("Every transition appends {from, to, at, actor, metadata}").
type Transition struct {
	ID           uuid.UUID
	SettlementID uuid.UUID
	From         State
	To           State
	At           time.Time
	Actor        string
	Metadata     map[string]string
}

// CreateRequest is the input to Create.
type CreateRequest struct {
	Tenant      string
	MerchantRef string
	Amount      money.MinorUnits
	Currency    string
	MaxRetries  int
	Actor       string
}

// edges enumerates the DAG's permitted forward transitions (spec.md §4.9).
// RETRIED -> FUNDS_RESERVED is the sole backward-looking edge.
var edges = map[State][]State{
	StateCreated:       {StateFundsReserved, StateFailed},
	StateFundsReserved: {StateSentToBank, StateFailed},
	StateSentToBank:    {StateBankConfirmed, StateFailed},
	StateBankConfirmed: {StateSettled, StateFailed},
	StateFailed:        {StateRetried},
	StateRetried:       {StateFundsReserved},
	StateSettled:       {},
}

func canTransition(from, to State) bool {
	for _, allowed := range edges[from] {
		if allowed == to {
			return true
		}
	}

	return false
}

const defaultBackoffUnit = 30 * time.Minute

const defaultBackoffCeiling = 24 * time.Hour
