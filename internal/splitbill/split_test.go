package splitbill

import (
	"math"
	"testing"
)

func TestEqualSplit(t *testing.T) {
	parts := []Participant{
		{BillID: 1, UserID: 1, Name: "a"},
		{BillID: 1, UserID: 2, Name: "b"},
		{BillID: 1, UserID: 3, Name: "c"},
	}
	expenses := []Expense{
		{BillID: 1, UserID: 1, Amount: 90000},
		{BillID: 1, UserID: 3, Amount: 30000},
	}

	balances := EqualSplit(parts, expenses)

	want := map[int64]float64{1: 50000, 2: -40000, 3: -10000}
	for uid, amt := range want {
		if math.Abs(balances[uid]-amt) > Epsilon {
			t.Errorf("user %d: got balance %f, want %f", uid, balances[uid], amt)
		}
	}
}

func TestEqualSplitConservation(t *testing.T) {
	tests := []struct {
		name    string
		paid    map[int64]float64
		partIDs []int64
	}{
		{"one payer", map[int64]float64{1: 120000}, []int64{1, 2, 3}},
		{"everyone paid", map[int64]float64{1: 10, 2: 20, 3: 30, 4: 40}, []int64{1, 2, 3, 4}},
		{"non-divisible total", map[int64]float64{1: 100}, []int64{1, 2, 3}},
		{"payer without expenses", map[int64]float64{2: 5000.5}, []int64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var parts []Participant
			for _, id := range tt.partIDs {
				parts = append(parts, Participant{UserID: id})
			}
			var expenses []Expense
			for uid, amt := range tt.paid {
				expenses = append(expenses, Expense{UserID: uid, Amount: amt})
			}

			balances := EqualSplit(parts, expenses)

			var sum float64
			for _, amt := range balances {
				sum += amt
			}
			if math.Abs(sum) > Epsilon {
				t.Errorf("balances sum to %f, want 0", sum)
			}
		})
	}
}

func TestClaimSplit(t *testing.T) {
	// Pizza claimed by both, cola (x2) claimed by user 1 only.
	items := []LineItem{
		{ID: 10, Name: "Pizza", Price: 50000, Quantity: 1},
		{ID: 11, Name: "Cola", Price: 10000, Quantity: 2},
	}
	claims := []Claim{
		{ItemID: 10, UserID: 1, Name: "a"},
		{ItemID: 10, UserID: 2, Name: "b"},
		{ItemID: 11, UserID: 1, Name: "a"},
	}

	totals := ClaimSplit(items, claims, 1)

	if got := totals[1]; math.Abs(got-45000) > Epsilon {
		t.Errorf("user 1 owes %f, want 45000", got)
	}
	if got := totals[2]; math.Abs(got-25000) > Epsilon {
		t.Errorf("user 2 owes %f, want 25000", got)
	}
}

func TestClaimSplitUnclaimedItem(t *testing.T) {
	items := []LineItem{
		{ID: 10, Name: "Pizza", Price: 50000, Quantity: 1},
		{ID: 11, Name: "Untouched salad", Price: 30000, Quantity: 1},
	}
	claims := []Claim{
		{ItemID: 10, UserID: 1, Name: "a"},
	}

	totals := ClaimSplit(items, claims, 1)

	if got := totals[1]; math.Abs(got-50000) > Epsilon {
		t.Errorf("user 1 owes %f, want 50000: unclaimed items must cost nothing", got)
	}
}

func TestClaimSplitSharedPool(t *testing.T) {
	// Service charge is shared; the creator (3) claimed nothing but still
	// covers a share of it.
	items := []LineItem{
		{ID: 10, Name: "Pizza", Price: 60000, Quantity: 1},
		{ID: 11, Name: "Service", Price: 9000, Quantity: 1, Shared: true},
	}
	claims := []Claim{
		{ItemID: 10, UserID: 1, Name: "a"},
		{ItemID: 10, UserID: 2, Name: "b"},
	}

	totals := ClaimSplit(items, claims, 3)

	want := map[int64]float64{1: 33000, 2: 33000, 3: 3000}
	for uid, amt := range want {
		if math.Abs(totals[uid]-amt) > Epsilon {
			t.Errorf("user %d owes %f, want %f", uid, totals[uid], amt)
		}
	}
}

func TestClaimSplitPerClaimantShare(t *testing.T) {
	item := LineItem{ID: 10, Name: "Plov", Price: 42000, Quantity: 2}

	for k := 1; k <= 4; k++ {
		var claims []Claim
		for uid := int64(1); uid <= int64(k); uid++ {
			claims = append(claims, Claim{ItemID: 10, UserID: uid})
		}

		totals := ClaimSplit([]LineItem{item}, claims, 1)

		wantShare := 84000 / float64(k)
		for uid := int64(1); uid <= int64(k); uid++ {
			if math.Abs(totals[uid]-wantShare) > Epsilon {
				t.Errorf("k=%d: user %d owes %f, want %f", k, uid, totals[uid], wantShare)
			}
		}
	}
}
