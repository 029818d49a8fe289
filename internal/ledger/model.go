// Package ledger implements C6: the sole writer of Transactions and
// Entries (spec.md §4.6, §3). Every mutation is threaded through an
// explicit storage handle (Repository.WithTx) rather than an ambient
// connection, per Design Notes (spec.md §9 "Ambient database connection").
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/atlaspay/aggregator-core/pkg/money"
)

// AccountType enumerates the account kinds named in spec.md §3.
type AccountType string

const (
	AccountTypeEscrowAsset        AccountType = "escrow_asset"
	AccountTypeEscrowLiability    AccountType = "escrow_liability"
	AccountTypeMerchantReceivable AccountType = "merchant_receivable"
	AccountTypeMerchantPayable    AccountType = "merchant_payable"
	AccountTypeGatewayClearing    AccountType = "gateway_clearing"
	AccountTypeGatewayFee         AccountType = "gateway_fee"
	AccountTypePlatformRevenue    AccountType = "platform_revenue"
	AccountTypeChargeback         AccountType = "chargeback"
)

// NormalBalance is the side on which an account's balance naturally grows.
type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "debit"
	NormalBalanceCredit NormalBalance = "credit"
)

// AccountStatus governs whether an account may receive new entries.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
	AccountStatusClosed AccountStatus = "closed"
)

// Account is identified by (tenant, code); mutated only via status flip,
// never deleted (spec.md §3).
type Account struct {
	ID            uuid.UUID
	Tenant        string
	Code          string
	Type          AccountType
	NormalBalance NormalBalance
	Status        AccountStatus
	CreatedAt     time.Time
}

// IsActive reports whether the account may accept new entries (I2).
func (a Account) IsActive() bool { return a.Status == AccountStatusActive }

// TransactionStatus is the lifecycle state of a ledger transaction.
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusPosted   TransactionStatus = "posted"
	TransactionStatusReversed TransactionStatus = "reversed"
)

// Side is the debit/credit tag on an Entry.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// EntryInput is one debit or credit line supplied to PostTransaction,
// before an Account has been resolved.
type EntryInput struct {
	AccountCode string
	Side        Side
	Amount      money.MinorUnits
	Description string
}

// Entry is a posted debit or credit line. Strictly immutable once
// inserted (I5) — the Repository implementation is expected to enforce this with a
// write-once constraint, not application convention alone (spec.md §9).
type Entry struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	AccountID     uuid.UUID
	AccountCode   string
	Side          Side
	Amount        money.MinorUnits
	Description   string
	Position      int
}

// Transaction is a group of entries representing one atomic economic
// event (spec.md §3).
type Transaction struct {
	ID                    uuid.UUID
	Tenant                string
	TransactionRef        string
	IdempotencyKey        string
	EventType             string
	SourceRef             string
	Amount                money.MinorUnits
	Currency              string
	Status                TransactionStatus
	TransactionDate       time.Time
	CreatedBy             string
	OverrideUsed          bool
	OverrideJustification string
	PeriodID              uuid.UUID
	ReversalOfID          *uuid.UUID
	ReversedByID          *uuid.UUID
	CreatedAt             time.Time
}

// PostRequest is the full input to PostTransaction (spec.md §4.6).
type PostRequest struct {
	Tenant                string
	TransactionRef        string
	IdempotencyKey        string
	EventType             string
	SourceRef             string
	Amount                money.MinorUnits
	Currency              string
	Description           string
	Entries               []EntryInput
	TransactionDate       time.Time
	CreatedBy             string
	Override              bool
	OverrideJustification string
	UserRole              string
}

// Validation reports the balance check PostTransaction performed.
type Validation struct {
	Balanced     bool
	TotalDebits  money.MinorUnits
	TotalCredits money.MinorUnits
}

// PostResult is what PostTransaction returns on success (spec.md §4.6
// step 9), including the I3 replay signal.
type PostResult struct {
	Transaction  Transaction
	Entries      []Entry
	Duplicate    bool
	Validation   Validation
	OverrideUsed bool
}

// AccountBalance is the derived projection (§3): never source of truth,
// a pure function of entries.
type AccountBalance struct {
	AccountID   uuid.UUID
	AccountCode string
	SumDebits   money.MinorUnits
	SumCredits  money.MinorUnits
	Balance     money.MinorUnits
}

// OverrideAuditEntry is appended whenever a posting consumes a
// SOFT_CLOSED-period override (spec.md §4.6 step 7).
type OverrideAuditEntry struct {
	ID               uuid.UUID
	Tenant           string
	Actor            string
	Role             string
	Justification    string
	AffectedEntities []string
	At               time.Time
}

// AuditLogEntry is appended for every ledger operation (spec.md §4.6
// step 8).
type AuditLogEntry struct {
	ID            uuid.UUID
	Tenant        string
	Operation     string
	TransactionID uuid.UUID
	Actor         string
	At            time.Time
	Detail        string
}

const minOverrideJustificationLen = 10
