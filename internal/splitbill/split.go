package splitbill

// EqualSplit returns net balances for a pooled bill: everyone owes an equal
// share of the total, credited against what they actually paid.
func EqualSplit(participants []Participant, expenses []Expense) map[int64]float64 {
	var total float64
	paid := make(map[int64]float64)
	for _, e := range expenses {
		total += e.Amount
		paid[e.UserID] += e.Amount
	}

	share := total / float64(len(participants))
	balances := make(map[int64]float64, len(participants))
	for _, p := range participants {
		balances[p.UserID] = paid[p.UserID] - share
	}
	return balances
}

// ClaimSplit attributes receipt costs to users. Each non-shared item is split
// equally among its claimants; items nobody claimed cost nothing. Shared
// items are pooled and split equally across every participant (all distinct
// claimants plus the session creator), whether or not they claimed anything.
// The creator is always on the hook, so the table is always covered.
func ClaimSplit(items []LineItem, claims []Claim, creatorID int64) map[int64]float64 {
	claimants := make(map[int64][]int64)
	members := map[int64]struct{}{creatorID: {}}
	for _, c := range claims {
		claimants[c.ItemID] = append(claimants[c.ItemID], c.UserID)
		members[c.UserID] = struct{}{}
	}

	totals := make(map[int64]float64, len(members))
	for uid := range members {
		totals[uid] = 0
	}

	var sharedTotal float64
	for _, it := range items {
		cost := it.Price * float64(it.Quantity)
		if it.Shared {
			sharedTotal += cost
			continue
		}
		users := claimants[it.ID]
		if len(users) == 0 {
			continue
		}
		share := cost / float64(len(users))
		for _, uid := range users {
			totals[uid] += share
		}
	}

	if sharedTotal > 0 {
		perPerson := sharedTotal / float64(len(members))
		for uid := range totals {
			totals[uid] += perPerson
		}
	}
	return totals
}
