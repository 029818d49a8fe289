package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
	"github.com/atlaspay/aggregator-core/internal/platform/mtrace"
	"github.com/atlaspay/aggregator-core/pkg/aggerrors"
	"github.com/atlaspay/aggregator-core/pkg/money"
	"github.com/atlaspay/aggregator-core/pkg/principal"

	cn "github.com/atlaspay/aggregator-core/pkg/constant"
)

// UseCase is C6's public surface: the sole writer of Transactions and
// Entries, aggregating the storage Repository and the C7 PeriodGate it
// must consult before every posting.
type UseCase struct {
	Repo   Repository
	Period PeriodGate
}

// New builds a ledger UseCase.
func New(repo Repository, gate PeriodGate) *UseCase {
	return &UseCase{Repo: repo, Period: gate}
}

// PostTransaction runs the nine-step posting algorithm of spec.md §4.6,
// entirely inside a single Repository.WithTx call.
func (uc *UseCase) PostTransaction(ctx context.Context, req PostRequest) (PostResult, error) {
	logger := mlog.FromContext(ctx)
	ctx, span := mtrace.Start(ctx, "ledger.post_transaction")
	defer span.End()

	var result PostResult

	err := uc.Repo.WithTx(ctx, func(ctx context.Context) error {
		r, postErr := uc.postWithinTx(ctx, req)
		result = r

		return postErr
	})

	if err != nil {
		logger.Errorf("post_transaction failed for tenant %s: %v", req.Tenant, err)
		mtrace.HandleSpanError(&span, "post_transaction failed", err)

		return PostResult{}, aggerrors.ValidateBusinessError(err, "Transaction")
	}

	return result, nil
}

// postWithinTx is PostTransaction's body, assuming it already runs inside
// a Repository.WithTx scope. ReverseTransaction calls this directly so the
// reversal's posting and the original's status flip share one storage
// transaction.
func (uc *UseCase) postWithinTx(ctx context.Context, req PostRequest) (PostResult, error) {
	var result PostResult

	// Step 1: idempotency replay (I3).
	if req.IdempotencyKey != "" {
		existing, entries, err := uc.Repo.FindTransactionByIdempotencyKey(ctx, req.Tenant, req.IdempotencyKey)
		if err != nil {
			return PostResult{}, err
		}

		if existing != nil {
			return PostResult{Transaction: *existing, Entries: entries, Duplicate: true}, nil
		}
	}

	// Step 2: balance check (I1).
	totalDebits, totalCredits := sumSides(req.Entries)
	if totalDebits != totalCredits {
		return PostResult{}, cn.ErrUnbalancedTransaction
	}

	// Step 3: resolve + validate accounts (I2).
	codes := entryCodes(req.Entries)

	accounts, err := uc.Repo.FindAccountsByCode(ctx, req.Tenant, codes)
	if err != nil {
		return PostResult{}, err
	}

	for _, code := range codes {
		acc, ok := accounts[code]
		if !ok {
			return PostResult{}, cn.ErrAccountNotFound
		}

		if !acc.IsActive() {
			return PostResult{}, cn.ErrAccountInactive
		}
	}

	// Step 4: period gate (I6, I7).
	check, err := uc.Period.CheckPeriodForPosting(ctx, req.Tenant, req.TransactionDate)
	if err != nil {
		return PostResult{}, err
	}

	if check.PeriodStatus == "HARD_CLOSED" {
		return PostResult{}, cn.ErrPeriodClosed
	}

	overrideUsed := false

	if check.OverrideRequired {
		if !req.Override {
			return PostResult{}, cn.ErrAdminOverrideRequired
		}

		if principal.Role(req.UserRole) != principal.RoleFinanceAdmin {
			return PostResult{}, cn.ErrInsufficientOverrideRole
		}

		if len(req.OverrideJustification) < minOverrideJustificationLen {
			return PostResult{}, cn.ErrJustificationTooShort
		}

		overrideUsed = true
	}

	// Step 5: lock gate (I8).
	if check.Locked {
		return PostResult{}, cn.ErrLedgerLocked
	}

	// Step 6: insert pending, then entries, then flip to posted. The
	// insert-entries-then-flip order lets the storage layer re-verify
	// balance at flip time (spec.md §4.6 step 6).
	txID := uuid.New()

	tx := &Transaction{
		ID:                    txID,
		Tenant:                req.Tenant,
		TransactionRef:        req.TransactionRef,
		IdempotencyKey:        req.IdempotencyKey,
		EventType:             req.EventType,
		SourceRef:             req.SourceRef,
		Amount:                req.Amount,
		Currency:              req.Currency,
		Status:                TransactionStatusPending,
		TransactionDate:       req.TransactionDate,
		CreatedBy:             req.CreatedBy,
		OverrideUsed:          overrideUsed,
		OverrideJustification: req.OverrideJustification,
		PeriodID:              check.PeriodID,
	}

	if err := uc.Repo.InsertTransaction(ctx, tx); err != nil {
		return PostResult{}, err
	}

	entries := make([]Entry, 0, len(req.Entries))

	for i, e := range req.Entries {
		acc := accounts[e.AccountCode]
		entries = append(entries, Entry{
			ID:            uuid.New(),
			TransactionID: txID,
			AccountID:     acc.ID,
			AccountCode:   e.AccountCode,
			Side:          e.Side,
			Amount:        e.Amount,
			Description:   e.Description,
			Position:      i,
		})
	}

	if err := uc.Repo.InsertEntries(ctx, entries); err != nil {
		return PostResult{}, err
	}

	if err := uc.Repo.UpdateTransactionStatus(ctx, req.Tenant, txID, TransactionStatusPosted); err != nil {
		return PostResult{}, err
	}

	tx.Status = TransactionStatusPosted

	// Step 7: override audit.
	if overrideUsed {
		if err := uc.Repo.AppendOverrideAudit(ctx, OverrideAuditEntry{
			ID:               uuid.New(),
			Tenant:           req.Tenant,
			Actor:            req.CreatedBy,
			Role:             req.UserRole,
			Justification:    req.OverrideJustification,
			AffectedEntities: []string{txID.String()},
		}); err != nil {
			return PostResult{}, err
		}
	}

	// Step 8: ledger audit log.
	if err := uc.Repo.AppendAuditLog(ctx, AuditLogEntry{
		ID:            uuid.New(),
		Tenant:        req.Tenant,
		Operation:     "post_transaction",
		TransactionID: txID,
		Actor:         req.CreatedBy,
		Detail:        req.EventType,
	}); err != nil {
		return PostResult{}, err
	}

	// Step 9: result.
	return PostResult{
		Transaction: *tx,
		Entries:     entries,
		Duplicate:   false,
		Validation: Validation{
			Balanced:     true,
			TotalDebits:  totalDebits,
			TotalCredits: totalCredits,
		},
		OverrideUsed: overrideUsed,
	}, nil
}

func sumSides(entries []EntryInput) (debits, credits money.MinorUnits) {
	for _, e := range entries {
		switch e.Side {
		case SideDebit:
			debits += e.Amount
		case SideCredit:
			credits += e.Amount
		}
	}

	return debits, credits
}

func entryCodes(entries []EntryInput) []string {
	seen := make(map[string]bool, len(entries))

	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		if !seen[e.AccountCode] {
			seen[e.AccountCode] = true
			codes = append(codes, e.AccountCode)
		}
	}

	return codes
}
