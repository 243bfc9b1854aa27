package splitbill

import (
	"context"
	"time"
)

// Store is the persistent ledger the service runs against. Lookups of open
// sessions return nil without error when none exists. Uniqueness of
// (bill, user) participants and (item, user) claims is the store's job; the
// service treats a duplicate insert as an idempotent no-op or a toggle.
type Store interface {
	CreateBill(ctx context.Context, chatID, creatorID int64, creatorName string) (*Bill, error)
	OpenBill(ctx context.Context, chatID int64) (*Bill, error)
	BillByID(ctx context.Context, id int64) (*Bill, error)
	AddParticipant(ctx context.Context, billID, userID int64, name string) (added bool, err error)
	Participants(ctx context.Context, billID int64) ([]Participant, error)
	AddExpense(ctx context.Context, e *Expense) error
	Expenses(ctx context.Context, billID int64) ([]Expense, error)
	CloseBill(ctx context.Context, billID int64, closedAt time.Time) error

	CreateReceiptSession(ctx context.Context, chatID, creatorID int64, creatorName string) (*ReceiptSession, error)
	OpenReceiptSession(ctx context.Context, chatID int64) (*ReceiptSession, error)
	ReceiptSessionByID(ctx context.Context, id int64) (*ReceiptSession, error)
	SessionForItem(ctx context.Context, itemID int64) (*ReceiptSession, error)
	// InsertItems stores a receipt batch. It fails with ErrAlreadyIngested
	// when the session already has items, re-checked inside the same
	// transaction as the insert.
	InsertItems(ctx context.Context, sessionID int64, items []LineItem) ([]LineItem, error)
	Items(ctx context.Context, sessionID int64) ([]LineItem, error)
	ToggleClaim(ctx context.Context, itemID, userID int64, name string) (claimed bool, err error)
	Claims(ctx context.Context, sessionID int64) ([]Claim, error)
	CloseReceiptSession(ctx context.Context, sessionID int64, closedAt time.Time) error

	History(ctx context.Context, chatID int64, limit int) ([]HistoryEntry, error)
}
