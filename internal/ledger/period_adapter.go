package ledger

import (
	"context"
	"time"

	"github.com/atlaspay/aggregator-core/internal/period"
)

// PeriodAdapter adapts a *period.Controller to the narrow PeriodGate
// interface PostTransaction depends on.
type PeriodAdapter struct {
	Controller *period.Controller
}

func (a PeriodAdapter) CheckPeriodForPosting(ctx context.Context, tenant string, date time.Time) (PostingCheck, error) {
	check, err := a.Controller.CheckPeriodForPosting(ctx, tenant, date)
	if err != nil {
		return PostingCheck{}, err
	}

	out := PostingCheck{
		PostingAllowed:   check.PostingAllowed,
		OverrideRequired: check.OverrideRequired,
		Locked:           check.Locked,
		ErrorMessage:     check.ErrorMessage,
	}

	if check.Period != nil {
		out.PeriodID = check.Period.ID
		out.PeriodStatus = string(check.Period.Status)
	}

	if check.LockInfo != nil {
		out.LockReason = check.LockInfo.Reason
	}

	return out, nil
}
