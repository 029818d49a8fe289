// Package period implements C7: the Period and Lock state machines, and
// the combined checkPeriodForPosting gate C6 calls before every posting
// (spec.md §4.7).
package period

import (
	"time"

	"github.com/google/uuid"
)

// Type is the granularity of an AccountingPeriod.
type Type string

const (
	TypeDaily   Type = "DAILY"
	TypeMonthly Type = "MONTHLY"
	TypeYearly  Type = "YEARLY"
)

// Status is an AccountingPeriod's lifecycle state. The transition graph is
// OPEN -> SOFT_CLOSED -> HARD_CLOSED; no reopening (spec.md §3).
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusSoftClosed Status = "SOFT_CLOSED"
	StatusHardClosed Status = "HARD_CLOSED"
)

// AccountingPeriod is one (tenant, type) coverage window.
type AccountingPeriod struct {
	ID            uuid.UUID
	Tenant        string
	Type          Type
	Start         time.Time
	End           time.Time
	Status        Status
	ClosedBy      string
	ClosureNotes  string
	HardClosedAt  *time.Time
}

// Covers reports whether t falls within the period's [Start, End) range.
func (p AccountingPeriod) Covers(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// LockType enumerates the lock kinds spec.md §3 names.
type LockType string

const (
	LockTypePeriod         LockType = "PERIOD_LOCK"
	LockTypeAudit          LockType = "AUDIT_LOCK"
	LockTypeReconciliation LockType = "RECONCILIATION_LOCK"
)

// LockStatus is whether a lock still blocks postings.
type LockStatus string

const (
	LockStatusActive   LockStatus = "ACTIVE"
	LockStatusReleased LockStatus = "RELEASED"
)

// Lock is one ledger lock record (spec.md §3).
type Lock struct {
	ID         uuid.UUID
	Tenant     string
	Type       LockType
	Start      time.Time
	End        time.Time
	Status     LockStatus
	Reason     string
	Reference  string
	LockedBy   string
	ReleasedBy string
	LockedAt   time.Time
	ReleasedAt *time.Time
}

// Overlaps reports whether the lock's range intersects [start, end).
func (l Lock) Overlaps(start, end time.Time) bool {
	return l.Start.Before(end) && start.Before(l.End)
}

// restrictiveness orders lock types for "most restrictive active lock"
// (§4.7 checkLockStatus): PERIOD_LOCK cannot be released at all, so it
// outranks the other two, which are equally binding on postings.
var restrictiveness = map[LockType]int{
	LockTypePeriod:         3,
	LockTypeReconciliation: 2,
	LockTypeAudit:          2,
}

// ApplyLockRequest is the input to Controller.ApplyLock.
type ApplyLockRequest struct {
	Tenant string
	Type   LockType
	Start  time.Time
	End    time.Time
	Reason string
	Ref    string
	Actor  string
	Role   string
}

// ReleaseLockRequest is the input to Controller.ReleaseLock.
type ReleaseLockRequest struct {
	Tenant string
	LockID uuid.UUID
	Actor  string
	Role   string
	Notes  string
}

// PostingCheck is checkPeriodForPosting's combined verdict (spec.md
// §4.7), consumed by C6 before every posting.
type PostingCheck struct {
	Period           *AccountingPeriod
	PostingAllowed   bool
	OverrideRequired bool
	Locked           bool
	LockInfo         *Lock
	ErrorMessage     string
}
