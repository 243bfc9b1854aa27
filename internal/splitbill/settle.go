package splitbill

import (
	"math"
	"sort"
)

// Epsilon below which a balance or a remaining debt is treated as settled.
const Epsilon = 0.01

// Transfer is one balancing payment: FromID pays ToID.
type Transfer struct {
	FromID int64
	ToID   int64
	Amount float64
}

// MinimizeTransfers converts net balances (positive = owed money, negative =
// owes money) into a short list of transfers by repeatedly matching the
// largest debtor against the largest creditor. The sum of the produced
// transfers equals the sum of the positive balances within Epsilon.
func MinimizeTransfers(balances map[int64]float64) []Transfer {
	type party struct {
		id  int64
		amt float64
	}

	ids := make([]int64, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var debtors, creditors []party
	for _, id := range ids {
		switch amt := balances[id]; {
		case amt < -Epsilon:
			debtors = append(debtors, party{id: id, amt: -amt})
		case amt > Epsilon:
			creditors = append(creditors, party{id: id, amt: amt})
		}
	}

	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].amt > debtors[j].amt })
	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].amt > creditors[j].amt })

	var txs []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d, c := &debtors[i], &creditors[j]
		amount := math.Min(d.amt, c.amt)
		txs = append(txs, Transfer{FromID: d.id, ToID: c.id, Amount: amount})
		d.amt -= amount
		c.amt -= amount
		if d.amt <= Epsilon {
			i++
		}
		if c.amt <= Epsilon {
			j++
		}
	}
	return txs
}
