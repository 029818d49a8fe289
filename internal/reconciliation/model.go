// Package reconciliation implements C10: the three-way match between the
// internal ledger view, a gateway settlement report, and (supplementing
// spec.md §4.10) a bank statement feed, closing the loop from
// escrow_asset down to real cash (spec.md §4.8, §4.10).
package reconciliation

import (
	"time"

	"github.com/google/uuid"

	"github.com/atlaspay/aggregator-core/pkg/money"
)

// Category is the per-item match outcome (spec.md §4.10).
type Category string

const (
	CategoryMatched         Category = "matched"
	CategoryMissingInternal Category = "missing_internal"
	CategoryMissingExternal Category = "missing_external"
	CategoryAmountMismatch  Category = "amount_mismatch"
)

// InternalRecord is one gateway-mediated movement as the ledger sees it.
// Callers supply this explicitly rather than the engine looking it up by a
// hidden tenant/gateway key (spec.md §4.8's "no hidden globals" principle
// extended to C10).
type InternalRecord struct {
	Ref    string
	Amount money.MinorUnits
	Date   time.Time
}

// ExternalRecord is one line from a gateway settlement report or bank
// statement.
type ExternalRecord struct {
	Ref    string
	Amount money.MinorUnits
	Date   time.Time
}

// MatchResult is one item's outcome within a batch.
type MatchResult struct {
	Ref             string
	Category        Category
	InternalAmount  money.MinorUnits
	ExternalAmount  money.MinorUnits
	DifferenceAmount money.MinorUnits
}

// BatchStatus summarizes whether a batch found anomalies.
type BatchStatus string

const (
	BatchStatusClean     BatchStatus = "clean"
	BatchStatusAnomalies BatchStatus = "anomalies"
)

// BatchSummary is the aggregate batch-level output (spec.md §4.10, P9, S7).
type BatchSummary struct {
	MatchedCount     int
	MissingInternal  int
	MissingExternal  int
	AmountMismatch   int
	DifferenceAmount money.MinorUnits
	Status           BatchStatus
}

// Source distinguishes the two three-way matches this package runs: the
// gateway settlement report and (supplementing §4.10) the bank statement.
type Source string

const (
	SourceGatewayReport  Source = "gateway_report"
	SourceBankStatement  Source = "bank_statement"
)

// Batch is the persisted record of one reconciliation run.
type Batch struct {
	ID          uuid.UUID
	Tenant      string
	Gateway     string
	Source      Source
	PeriodFrom  time.Time
	PeriodTo    time.Time
	SettlementID *uuid.UUID
	Items       []MatchResult
	Summary     BatchSummary
	RunAt       time.Time
}
