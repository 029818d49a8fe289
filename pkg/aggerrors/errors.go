// Package aggerrors implements the tagged-variant error taxonomy the core
// returns across every boundary (C1, §7). Every failure that crosses out of
// a component is one of the structs below, carrying a stable Code an
// operator can grep for and a Message safe to surface to a caller.
package aggerrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/iancoleman/strcase"

	cn "github.com/atlaspay/aggregator-core/pkg/constant"
)

// EntityType describes the domain entity a tagged error concerns, used for
// operator-facing context and never parsed by callers.
type EntityType string

// EntityNotFoundError indicates a lookup (account, transaction, settlement,
// period, lock, reconciliation batch) found nothing.
type EntityNotFoundError struct {
	EntityType EntityType
	Code       string
	Title      string
	Message    string
	EntityID   string
	Err        error
}

func (e EntityNotFoundError) Error() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}

	return fmt.Sprintf("%s not found", e.EntityType)
}

func (e EntityNotFoundError) Unwrap() error { return e.Err }

// EntityConflictError indicates a write was rejected because of an existing,
// conflicting entity (duplicate idempotency key, duplicate UTR, overlapping
// lock).
type EntityConflictError struct {
	EntityType EntityType
	Code       string
	Title      string
	Message    string
	EntityID   string
	Err        error
}

func (e EntityConflictError) Error() string { return e.Message }
func (e EntityConflictError) Unwrap() error { return e.Err }

// ValidationError indicates the request itself is malformed or violates an
// invariant (unbalanced transaction, amount not integer minor units,
// justification too short).
type ValidationError struct {
	EntityType EntityType
	Code       string
	Title      string
	Message    string
	Err        error
}

func (e ValidationError) Error() string { return e.Message }
func (e ValidationError) Unwrap() error { return e.Err }

// StateTransitionError indicates an attempted state-machine transition
// (settlement, period, lock, circuit) that the DAG forbids.
type StateTransitionError struct {
	EntityType EntityType
	Code       string
	Title      string
	Message    string
	From       string
	To         string
	Err        error
}

func (e StateTransitionError) Error() string { return e.Message }
func (e StateTransitionError) Unwrap() error { return e.Err }

// AuthorizationError indicates the attested Principal lacks the role
// required for the mutating operation attempted (override, lock release,
// settlement dispatch).
type AuthorizationError struct {
	EntityType EntityType
	Code       string
	Title      string
	Message    string
	Err        error
}

func (e AuthorizationError) Error() string { return e.Message }
func (e AuthorizationError) Unwrap() error { return e.Err }

// RetryableError wraps a failure the caller MAY safely retry, optionally
// carrying a hint for how long to wait before retrying. Classification
// (§4.1) is attached at the point of failure, not guessed by the caller.
type RetryableError struct {
	Category   string
	Severity   string
	Message    string
	RetryAfter string
	Metadata   map[string]any
	Err        error
}

func (e RetryableError) Error() string { return e.Message }
func (e RetryableError) Unwrap() error { return e.Err }

// NonRetryableError wraps a terminal failure the caller must not retry
// without changing the request.
type NonRetryableError struct {
	Category string
	Severity string
	Code     string
	Message  string
	Metadata map[string]any
	Err      error
}

func (e NonRetryableError) Error() string { return e.Message }
func (e NonRetryableError) Unwrap() error { return e.Err }

// FieldValidations maps a request field to the reason it failed validation.
type FieldValidations map[string]string

// ValidationFieldsError is returned when request binding/validation rejects
// one or more named fields (HTTP adapter boundary).
type ValidationFieldsError struct {
	EntityType EntityType
	Code       string
	Title      string
	Message    string
	Fields     FieldValidations
}

func (e ValidationFieldsError) Error() string { return e.Message }

// NewFieldValidations builds a FieldValidations map from validator field
// names, normalizing each to snake_case the way the API documents fields.
func NewFieldValidations(raw map[string]string) FieldValidations {
	out := make(FieldValidations, len(raw))
	for k, v := range raw {
		out[strcase.ToSnake(k)] = v
	}

	return out
}

// ValidateBusinessError maps a sentinel from pkg/constant into the tagged
// error a caller should receive, attaching entityType and any format args
// the message template needs. Errors with no mapping pass through
// unchanged, per C6 "the ledger must never guess" (§7).
//
//nolint:gocyclo
func ValidateBusinessError(err error, entityType string, args ...any) error {
	et := EntityType(entityType)

	switch {
	case errors.Is(err, cn.ErrUnbalancedTransaction):
		return ValidationError{
			EntityType: et,
			Code:       cn.ErrUnbalancedTransaction.Error(),
			Title:      "Unbalanced Transaction",
			Message:    "The sum of debit entries does not equal the sum of credit entries. Every posted transaction must balance exactly.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrAccountInactive):
		return ValidationError{
			EntityType: et,
			Code:       cn.ErrAccountInactive.Error(),
			Title:      "Account Inactive",
			Message:    fmt.Sprintf("Account %v is not active and cannot receive postings.", args...),
			Err:        err,
		}
	case errors.Is(err, cn.ErrAccountNotFound):
		return EntityNotFoundError{
			EntityType: et,
			Code:       cn.ErrAccountNotFound.Error(),
			Title:      "Account Not Found",
			Message:    fmt.Sprintf("Account %v does not exist for this tenant.", args...),
			Err:        err,
		}
	case errors.Is(err, cn.ErrPeriodClosed):
		return ValidationError{
			EntityType: et,
			Code:       cn.ErrPeriodClosed.Error(),
			Title:      "Period Closed",
			Message:    "The accounting period covering this transaction date is HARD_CLOSED and accepts no further postings.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrAdminOverrideRequired):
		return AuthorizationError{
			EntityType: et,
			Code:       cn.ErrAdminOverrideRequired.Error(),
			Title:      "Override Required",
			Message:    "The period covering this transaction date is SOFT_CLOSED. Posting requires an explicit override and justification from a finance admin.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrInsufficientOverrideRole):
		return AuthorizationError{
			EntityType: et,
			Code:       cn.ErrInsufficientOverrideRole.Error(),
			Title:      "Insufficient Override Privileges",
			Message:    "Only a finance admin principal may override a SOFT_CLOSED period.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrLedgerLocked):
		return ValidationError{
			EntityType: et,
			Code:       cn.ErrLedgerLocked.Error(),
			Title:      "Ledger Locked",
			Message:    fmt.Sprintf("An active %v lock covers this transaction date. No postings are permitted until the lock is released.", args...),
			Err:        err,
		}
	case errors.Is(err, cn.ErrIdempotencyConflict):
		return EntityConflictError{
			EntityType: et,
			Code:       cn.ErrIdempotencyConflict.Error(),
			Title:      "Idempotency Conflict",
			Message:    "A transaction with this idempotency key already exists with different parameters.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrTransactionNotFound):
		return EntityNotFoundError{
			EntityType: et,
			Code:       cn.ErrTransactionNotFound.Error(),
			Title:      "Transaction Not Found",
			Message:    fmt.Sprintf("Transaction %v does not exist.", args...),
			Err:        err,
		}
	case errors.Is(err, cn.ErrTransactionAlreadyPosted):
		return EntityConflictError{
			EntityType: et,
			Code:       cn.ErrTransactionAlreadyPosted.Error(),
			Title:      "Transaction Already Reversed",
			Message:    "This transaction has already been reversed and cannot be reversed again.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrJustificationTooShort):
		return ValidationError{
			EntityType: et,
			Code:       cn.ErrJustificationTooShort.Error(),
			Title:      "Justification Too Short",
			Message:    "The override justification does not meet the minimum required length.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrPeriodTransitionInvalid):
		return StateTransitionError{
			EntityType: et,
			Code:       cn.ErrPeriodTransitionInvalid.Error(),
			Title:      "Invalid Period Transition",
			Message:    "Accounting periods may only move OPEN -> SOFT_CLOSED -> HARD_CLOSED. Reopening a closed period is not permitted.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrLockOverlap):
		return EntityConflictError{
			EntityType: et,
			Code:       cn.ErrLockOverlap.Error(),
			Title:      "Lock Overlap",
			Message:    "An ACTIVE lock of this type already overlaps the requested date range.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrPeriodLockNotReleasable):
		return ValidationError{
			EntityType: et,
			Code:       cn.ErrPeriodLockNotReleasable.Error(),
			Title:      "Period Lock Not Releasable",
			Message:    "A PERIOD_LOCK is system-created on hard close and can never be manually released.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrHardCloseNeedsRecon):
		return ValidationError{
			EntityType: et,
			Code:       cn.ErrHardCloseNeedsRecon.Error(),
			Title:      "Reconciliation Required",
			Message:    "A completed reconciliation for this period is required before it can be hard closed.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrInsufficientRoleForLock):
		return AuthorizationError{
			EntityType: et,
			Code:       cn.ErrInsufficientRoleForLock.Error(),
			Title:      "Insufficient Privileges",
			Message:    "Only a finance admin principal may perform this lock or period operation.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrSettlementStateInvalid):
		return StateTransitionError{
			EntityType: et,
			Code:       cn.ErrSettlementStateInvalid.Error(),
			Title:      "Invalid Settlement Transition",
			Message:    "This settlement transition is not permitted from its current state.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrSettlementRetryExhausted):
		return ValidationError{
			EntityType: et,
			Code:       cn.ErrSettlementRetryExhausted.Error(),
			Title:      "Settlement Retry Exhausted",
			Message:    "This settlement has already used its maximum allowed retry count.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrSettlementUTRRequired):
		return ValidationError{
			EntityType: et,
			Code:       cn.ErrSettlementUTRRequired.Error(),
			Title:      "UTR Required",
			Message:    "Confirming a settlement by bank requires a non-empty UTR.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrDuplicateUTR):
		return EntityConflictError{
			EntityType: et,
			Code:       cn.ErrDuplicateUTR.Error(),
			Title:      "Duplicate UTR",
			Message:    fmt.Sprintf("UTR %v has already been used to confirm a different settlement for this tenant.", args...),
			Err:        err,
		}
	case errors.Is(err, cn.ErrSettlementRoleInsufficient):
		return AuthorizationError{
			EntityType: et,
			Code:       cn.ErrSettlementRoleInsufficient.Error(),
			Title:      "Insufficient Privileges",
			Message:    "Only a finance admin principal may dispatch a settlement to the bank.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrCircuitOpen):
		return NonRetryableError{
			Category: "circuit_open",
			Severity: "medium",
			Code:     cn.ErrCircuitOpen.Error(),
			Message:  "The circuit for this gateway is OPEN. Route to a different gateway instead of retrying this one.",
			Err:      err,
		}
	case errors.Is(err, cn.ErrOperationTimeout):
		return RetryableError{
			Category: "timeout",
			Severity: "medium",
			Message:  "The operation exceeded its allotted timeout.",
			Err:      err,
		}
	case errors.Is(err, cn.ErrNoGatewayAvailable):
		return NonRetryableError{
			Category: "no_gateway_available",
			Severity: "high",
			Code:     cn.ErrNoGatewayAvailable.Error(),
			Message:  "No eligible gateway is available to route this request to.",
			Err:      err,
		}
	case errors.Is(err, cn.ErrOperationCancelled):
		return NonRetryableError{
			Category: "cancelled",
			Severity: "low",
			Code:     cn.ErrOperationCancelled.Error(),
			Message:  "The operation was cancelled by its caller.",
			Err:      err,
		}
	case errors.Is(err, cn.ErrReconciliationNotFound):
		return EntityNotFoundError{
			EntityType: et,
			Code:       cn.ErrReconciliationNotFound.Error(),
			Title:      "Reconciliation Batch Not Found",
			Message:    fmt.Sprintf("Reconciliation batch %v does not exist.", args...),
			Err:        err,
		}
	case errors.Is(err, cn.ErrUnknownEventType):
		return ValidationError{
			EntityType: et,
			Code:       cn.ErrUnknownEventType.Error(),
			Title:      "Unknown Event Type",
			Message:    "No handler is registered for this event type.",
			Err:        err,
		}
	case errors.Is(err, cn.ErrInvalidMinorUnits):
		return ValidationError{
			EntityType: et,
			Code:       cn.ErrInvalidMinorUnits.Error(),
			Title:      "Invalid Amount",
			Message:    "Amounts must be expressed as integer minor units (e.g. paise). Fractional or floating amounts are rejected at the boundary.",
			Err:        err,
		}
	default:
		return err
	}
}

// HTTPStatus maps a tagged variant (or an unmapped error passed through by
// ValidateBusinessError) to the status code the HTTP adapter responds
// with, so handlers never hand-roll their own error->status switch.
func HTTPStatus(err error) int {
	var (
		notFound      EntityNotFoundError
		conflict      EntityConflictError
		validation    ValidationError
		transition    StateTransitionError
		authz         AuthorizationError
		retryable     RetryableError
		nonRetryable  NonRetryableError
		fieldValidate ValidationFieldsError
	)

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &fieldValidate):
		return http.StatusUnprocessableEntity
	case errors.As(err, &transition):
		return http.StatusConflict
	case errors.As(err, &authz):
		return http.StatusForbidden
	case errors.As(err, &retryable):
		return http.StatusServiceUnavailable
	case errors.As(err, &nonRetryable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
