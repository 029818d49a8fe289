package reconciliation

// match runs the three-way comparison between internal and external
// records keyed by Ref, using exact integer minor-unit equality for the
// amount comparison (spec.md §4.10's "exact decimal equality", resolved to
// exact integer equality under this system's minor-units representation).
func match(internal []InternalRecord, external []ExternalRecord) ([]MatchResult, BatchSummary) {
	internalByRef := make(map[string]InternalRecord, len(internal))
	for _, r := range internal {
		internalByRef[r.Ref] = r
	}

	externalByRef := make(map[string]ExternalRecord, len(external))
	for _, r := range external {
		externalByRef[r.Ref] = r
	}

	seen := make(map[string]bool, len(internal)+len(external))

	var results []MatchResult

	var summary BatchSummary

	appendResult := func(ref string, in InternalRecord, ex ExternalRecord, hasInternal, hasExternal bool) {
		switch {
		case hasInternal && !hasExternal:
			summary.MissingExternal++
			results = append(results, MatchResult{Ref: ref, Category: CategoryMissingExternal, InternalAmount: in.Amount})
		case hasExternal && !hasInternal:
			summary.MissingInternal++
			results = append(results, MatchResult{Ref: ref, Category: CategoryMissingInternal, ExternalAmount: ex.Amount})
		case in.Amount != ex.Amount:
			diff := in.Amount - ex.Amount
			if diff < 0 {
				diff = -diff
			}

			summary.AmountMismatch++
			summary.DifferenceAmount += diff
			results = append(results, MatchResult{
				Ref: ref, Category: CategoryAmountMismatch,
				InternalAmount: in.Amount, ExternalAmount: ex.Amount, DifferenceAmount: diff,
			})
		default:
			summary.MatchedCount++
			results = append(results, MatchResult{Ref: ref, Category: CategoryMatched, InternalAmount: in.Amount, ExternalAmount: ex.Amount})
		}
	}

	for _, r := range internal {
		if seen[r.Ref] {
			continue
		}

		seen[r.Ref] = true

		ex, hasExternal := externalByRef[r.Ref]
		appendResult(r.Ref, r, ex, true, hasExternal)
	}

	for _, r := range external {
		if seen[r.Ref] {
			continue
		}

		seen[r.Ref] = true

		appendResult(r.Ref, InternalRecord{}, r, false, true)
	}

	summary.Status = BatchStatusClean
	if summary.MissingInternal > 0 || summary.MissingExternal > 0 || summary.AmountMismatch > 0 {
		summary.Status = BatchStatusAnomalies
	}

	return results, summary
}
