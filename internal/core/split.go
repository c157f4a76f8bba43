package core

// ComputeEqualSplit distributes totalCents across members: every member
// gets floor(total/n) and the remainder goes one cent at a time to the
// first members in input order. The shares always sum to totalCents
// exactly. Returns nil for an empty member list or a non-positive total.
func ComputeEqualSplit(totalCents int64, memberIDs []string) []Split {
	if len(memberIDs) == 0 || totalCents <= 0 {
		return nil
	}
	n := int64(len(memberIDs))
	base := totalCents / n
	remainder := totalCents % n
	splits := make([]Split, 0, len(memberIDs))
	for i, id := range memberIDs {
		share := base
		if int64(i) < remainder {
			share++
		}
		splits = append(splits, Split{MemberID: id, Amount: Money{Cents: share}})
	}
	return splits
}

// DropZeroSplits removes zero-amount splits, preserving order.
func DropZeroSplits(splits []Split) []Split {
	out := splits[:0:0]
	for _, s := range splits {
		if s.Amount.Cents != 0 {
			out = append(out, s)
		}
	}
	return out
}

// SumSplits totals split amounts in cents.
func SumSplits(splits []Split) int64 {
	var sum int64
	for _, s := range splits {
		sum += s.Amount.Cents
	}
	return sum
}
