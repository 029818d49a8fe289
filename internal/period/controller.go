package period

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/atlaspay/aggregator-core/pkg/principal"

	cn "github.com/atlaspay/aggregator-core/pkg/constant"
)

// Controller owns the Period and Lock state machines (spec.md §4.7).
type Controller struct {
	repo Repository
	now  func() time.Time
}

// New builds a Controller backed by repo.
func New(repo Repository) *Controller {
	return &Controller{repo: repo, now: time.Now}
}

// SoftClose flips a period OPEN -> SOFT_CLOSED. Requires finance-admin.
func (c *Controller) SoftClose(ctx context.Context, p principal.Principal, periodID uuid.UUID, notes string) (*AccountingPeriod, error) {
	if !p.Role.IsFinanceAdmin() {
		return nil, cn.ErrInsufficientRoleForLock
	}

	period, err := c.repo.FindPeriodByID(ctx, p.Tenant, periodID)
	if err != nil {
		return nil, err
	}

	if period.Status != StatusOpen {
		return nil, cn.ErrPeriodTransitionInvalid
	}

	period.Status = StatusSoftClosed
	period.ClosedBy = p.ActorID
	period.ClosureNotes = notes

	if err := c.repo.SavePeriod(ctx, period); err != nil {
		return nil, err
	}

	return period, nil
}

// HardClose flips SOFT_CLOSED -> HARD_CLOSED. Requires finance-admin and a
// completed reconciliation for the period, and synchronously creates the
// covering PERIOD_LOCK (spec.md §4.7) inside this call. The period and the
// lock are saved by two separate repository calls, not in one storage
// transaction, so a failure after SavePeriod leaves the period HARD_CLOSED
// without its lock.
func (c *Controller) HardClose(ctx context.Context, p principal.Principal, periodID uuid.UUID, notes string) (*AccountingPeriod, error) {
	if !p.Role.IsFinanceAdmin() {
		return nil, cn.ErrInsufficientRoleForLock
	}

	period, err := c.repo.FindPeriodByID(ctx, p.Tenant, periodID)
	if err != nil {
		return nil, err
	}

	if period.Status != StatusSoftClosed {
		return nil, cn.ErrPeriodTransitionInvalid
	}

	reconciled, err := c.repo.HasCompletedReconciliation(ctx, p.Tenant, periodID)
	if err != nil {
		return nil, err
	}

	if !reconciled {
		return nil, cn.ErrHardCloseNeedsRecon
	}

	now := c.now()
	period.Status = StatusHardClosed
	period.ClosedBy = p.ActorID
	period.ClosureNotes = notes
	period.HardClosedAt = &now

	if err := c.repo.SavePeriod(ctx, period); err != nil {
		return nil, err
	}

	lock := &Lock{
		ID:       uuid.New(),
		Tenant:   p.Tenant,
		Type:     LockTypePeriod,
		Start:    period.Start,
		End:      period.End,
		Status:   LockStatusActive,
		Reason:   "hard close of " + string(period.Type) + " period",
		Reference: period.ID.String(),
		LockedBy: p.ActorID,
		LockedAt: now,
	}

	if err := c.repo.SaveLock(ctx, lock); err != nil {
		return nil, err
	}

	return period, nil
}

// ApplyLock creates a new ACTIVE lock, rejecting if any ACTIVE lock of the
// same type overlaps the requested range (spec.md §4.7).
func (c *Controller) ApplyLock(ctx context.Context, req ApplyLockRequest) (*Lock, error) {
	existing, err := c.repo.FindOverlappingLocks(ctx, req.Tenant, req.Type, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	for _, l := range existing {
		if l.Status == LockStatusActive {
			return nil, cn.ErrLockOverlap
		}
	}

	lock := &Lock{
		ID:        uuid.New(),
		Tenant:    req.Tenant,
		Type:      req.Type,
		Start:     req.Start,
		End:       req.End,
		Status:    LockStatusActive,
		Reason:    req.Reason,
		Reference: req.Ref,
		LockedBy:  req.Actor,
		LockedAt:  c.now(),
	}

	if err := c.repo.SaveLock(ctx, lock); err != nil {
		return nil, err
	}

	return lock, nil
}

// ReleaseLock releases a non-PERIOD_LOCK lock. PERIOD_LOCK releases are
// rejected outright (spec.md §4.7); other types require finance-admin.
func (c *Controller) ReleaseLock(ctx context.Context, req ReleaseLockRequest) error {
	lock, err := c.repo.FindLock(ctx, req.Tenant, req.LockID)
	if err != nil {
		return err
	}

	if lock.Type == LockTypePeriod {
		return cn.ErrPeriodLockNotReleasable
	}

	if principal.Role(req.Role) != principal.RoleFinanceAdmin {
		return cn.ErrInsufficientRoleForLock
	}

	now := c.now()
	lock.Status = LockStatusReleased
	lock.ReleasedBy = req.Actor
	lock.ReleasedAt = &now

	return c.repo.SaveLock(ctx, lock)
}

// CheckLockStatus returns the most restrictive ACTIVE lock covering date,
// or nil if none applies (spec.md §4.7).
func (c *Controller) CheckLockStatus(ctx context.Context, tenant string, date time.Time) (*Lock, error) {
	locks, err := c.repo.ActiveLocksCovering(ctx, tenant, date)
	if err != nil {
		return nil, err
	}

	var best *Lock

	for i := range locks {
		l := locks[i]
		if l.Status != LockStatusActive {
			continue
		}

		if best == nil || restrictiveness[l.Type] > restrictiveness[best.Type] {
			best = &l
		}
	}

	return best, nil
}

// CheckPeriodForPosting is the function C6 calls before every posting
// (spec.md §4.7), combining both state machines into one verdict.
func (c *Controller) CheckPeriodForPosting(ctx context.Context, tenant string, date time.Time) (PostingCheck, error) {
	check := PostingCheck{}

	periodTypes := []Type{TypeDaily, TypeMonthly, TypeYearly}

	for _, t := range periodTypes {
		p, err := c.repo.FindPeriod(ctx, tenant, t, date)
		if err != nil {
			return check, err
		}

		if p == nil {
			continue
		}

		if check.Period == nil || p.Type == TypeDaily {
			check.Period = p
		}

		switch p.Status {
		case StatusHardClosed:
			check.Period = p
			check.PostingAllowed = false
			check.ErrorMessage = "period " + p.ID.String() + " is hard closed"

			return check, nil
		case StatusSoftClosed:
			check.OverrideRequired = true
		}
	}

	lock, err := c.CheckLockStatus(ctx, tenant, date)
	if err != nil {
		return check, err
	}

	if lock != nil {
		check.Locked = true
		check.LockInfo = lock
	}

	check.PostingAllowed = !check.Locked

	return check, nil
}
