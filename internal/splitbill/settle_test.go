package splitbill

import (
	"math"
	"testing"
)

func TestMinimizeTransfers(t *testing.T) {
	tests := []struct {
		name     string
		balances map[int64]float64
		want     []Transfer
	}{
		{
			name:     "three participants, one creditor",
			balances: map[int64]float64{1: 50000, 2: -40000, 3: -10000},
			want: []Transfer{
				{FromID: 2, ToID: 1, Amount: 40000},
				{FromID: 3, ToID: 1, Amount: 10000},
			},
		},
		{
			name:     "one debtor pays two creditors",
			balances: map[int64]float64{1: 30000, 2: 20000, 3: -50000},
			want: []Transfer{
				{FromID: 3, ToID: 1, Amount: 30000},
				{FromID: 3, ToID: 2, Amount: 20000},
			},
		},
		{
			name:     "already settled",
			balances: map[int64]float64{1: 0, 2: 0.005, 3: -0.005},
			want:     nil,
		},
		{
			name:     "exact pair",
			balances: map[int64]float64{7: -1500, 9: 1500},
			want: []Transfer{
				{FromID: 7, ToID: 9, Amount: 1500},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinimizeTransfers(tt.balances)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d transfers, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i].FromID != tt.want[i].FromID || got[i].ToID != tt.want[i].ToID {
					t.Errorf("transfer %d: got %d→%d, want %d→%d",
						i, got[i].FromID, got[i].ToID, tt.want[i].FromID, tt.want[i].ToID)
				}
				if math.Abs(got[i].Amount-tt.want[i].Amount) > Epsilon {
					t.Errorf("transfer %d: got amount %f, want %f", i, got[i].Amount, tt.want[i].Amount)
				}
			}
		})
	}
}

func TestMinimizeTransfersConservation(t *testing.T) {
	tests := []struct {
		name     string
		balances map[int64]float64
	}{
		{"even split leftovers", map[int64]float64{1: 50000, 2: -40000, 3: -10000}},
		{"many small debtors", map[int64]float64{1: 999.99, 2: -333.33, 3: -333.33, 4: -333.33}},
		{"two creditors two debtors", map[int64]float64{1: 120, 2: 80, 3: -70, 4: -130}},
		{"fractional amounts", map[int64]float64{1: 10000.0 / 3, 2: 10000.0 / 3, 3: -20000.0 / 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var positive float64
			for _, amt := range tt.balances {
				if amt > 0 {
					positive += amt
				}
			}

			transfers := MinimizeTransfers(tt.balances)

			var moved float64
			residual := make(map[int64]float64, len(tt.balances))
			for id, amt := range tt.balances {
				residual[id] = amt
			}
			for _, tr := range transfers {
				moved += tr.Amount
				residual[tr.FromID] += tr.Amount
				residual[tr.ToID] -= tr.Amount
			}

			if math.Abs(moved-positive) > Epsilon {
				t.Errorf("transfers move %f, positive balances total %f", moved, positive)
			}
			for id, amt := range residual {
				if math.Abs(amt) > Epsilon {
					t.Errorf("user %d left with residual %f", id, amt)
				}
			}
		})
	}
}

func TestMinimizeTransfersDeterministic(t *testing.T) {
	balances := map[int64]float64{1: 100, 2: 100, 3: -100, 4: -100}

	first := MinimizeTransfers(balances)
	for i := 0; i < 10; i++ {
		again := MinimizeTransfers(balances)
		if len(again) != len(first) {
			t.Fatalf("run %d produced %d transfers, first run %d", i, len(again), len(first))
		}
		for j := range again {
			if again[j] != first[j] {
				t.Fatalf("run %d transfer %d = %+v, first run %+v", i, j, again[j], first[j])
			}
		}
	}
}
