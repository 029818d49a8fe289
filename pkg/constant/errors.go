// Package constant declares the sentinel business errors shared across the
// aggregator core. Each sentinel is matched with errors.Is and translated
// into a tagged error (pkg/aggerrors) at the boundary the failure surfaces
// at.
package constant

import "errors"

var (
	// Ledger / posting (C6)
	ErrUnbalancedTransaction    = errors.New("AGG0001")
	ErrAccountInactive          = errors.New("AGG0002")
	ErrAccountNotFound          = errors.New("AGG0003")
	ErrPeriodClosed             = errors.New("AGG0004")
	ErrAdminOverrideRequired    = errors.New("AGG0005")
	ErrInsufficientOverrideRole = errors.New("AGG0006")
	ErrLedgerLocked             = errors.New("AGG0007")
	ErrIdempotencyConflict      = errors.New("AGG0008")
	ErrTransactionNotFound      = errors.New("AGG0009")
	ErrTransactionAlreadyPosted = errors.New("AGG0010")
	ErrJustificationTooShort    = errors.New("AGG0011")

	// Period / lock (C7)
	ErrPeriodTransitionInvalid = errors.New("AGG0020")
	ErrPeriodNotFound          = errors.New("AGG0021")
	ErrLockOverlap             = errors.New("AGG0022")
	ErrLockNotFound            = errors.New("AGG0023")
	ErrPeriodLockNotReleasable = errors.New("AGG0024")
	ErrHardCloseNeedsRecon     = errors.New("AGG0025")
	ErrInsufficientRoleForLock = errors.New("AGG0026")

	// Settlement (C9)
	ErrSettlementStateInvalid    = errors.New("AGG0040")
	ErrSettlementRetryExhausted  = errors.New("AGG0041")
	ErrSettlementUTRRequired     = errors.New("AGG0042")
	ErrDuplicateUTR              = errors.New("AGG0043")
	ErrSettlementNotFound        = errors.New("AGG0044")
	ErrSettlementRoleInsufficient = errors.New("AGG0045")

	// Router / breaker / retry (C3, C4, C5)
	ErrCircuitOpen        = errors.New("AGG0060")
	ErrOperationTimeout   = errors.New("AGG0061")
	ErrNoGatewayAvailable = errors.New("AGG0062")
	ErrRetryExhausted     = errors.New("AGG0063")
	ErrOperationCancelled = errors.New("AGG0064")

	// Reconciliation (C10)
	ErrReconciliationNotFound = errors.New("AGG0080")

	// Event choreographer (C8)
	ErrUnknownEventType = errors.New("AGG0090")

	// Generic
	ErrInternal          = errors.New("AGG0099")
	ErrInvalidMinorUnits = errors.New("AGG0100")
)
