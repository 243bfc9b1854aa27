package splitbill

import "time"

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

type SessionKind string

const (
	KindPooledBill      SessionKind = "bill"
	KindItemizedReceipt SessionKind = "receipt"
)

// Bill is a pooled bill: members join explicitly and post free-text expenses
// which are split equally on close.
type Bill struct {
	ID          int64
	ChatID      int64
	CreatorID   int64
	CreatorName string
	Status      Status
	CreatedAt   time.Time
	ClosedAt    *time.Time
}

type Participant struct {
	BillID int64
	UserID int64
	Name   string
}

type Expense struct {
	ID          int64
	BillID      int64
	UserID      int64
	UserName    string
	Description string
	Amount      float64
	CreatedAt   time.Time
}

// ReceiptSession is an itemized receipt: line items come from a photographed
// receipt and members claim the items they ordered.
type ReceiptSession struct {
	ID          int64
	ChatID      int64
	CreatorID   int64
	CreatorName string
	Status      Status
	CreatedAt   time.Time
	ClosedAt    *time.Time
}

// LineItem is one receipt line. Shared marks a cost (service charge, tip)
// split equally across the whole table regardless of individual claims.
type LineItem struct {
	ID        int64
	SessionID int64
	Name      string
	Price     float64
	Quantity  int
	Shared    bool
}

// Claim records that a user claims a line item. A user claims an item at
// most once; a repeated claim request removes the claim instead.
type Claim struct {
	ItemID int64
	UserID int64
	Name   string
}

// HistoryEntry is one past or current session of either kind in a chat.
type HistoryEntry struct {
	ID          int64
	Kind        SessionKind
	CreatorName string
	Status      Status
	CreatedAt   time.Time
	ClosedAt    *time.Time
}
