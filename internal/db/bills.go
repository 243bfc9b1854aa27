package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/koinot-markazi/split-bill-bot/internal/splitbill"
)

// CreateBill opens a new pooled bill for the chat.
func (db *DB) CreateBill(ctx context.Context, chatID, creatorID int64, creatorName string) (*splitbill.Bill, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO bills (chat_id, creator_id, creator_name)
         VALUES ($1, $2, $3)
         RETURNING id, chat_id, creator_id, creator_name, status, created_at, closed_at`,
		chatID, creatorID, creatorName,
	)
	return scanBill(row)
}

// OpenBill returns the chat's open bill, or nil when there is none.
func (db *DB) OpenBill(ctx context.Context, chatID int64) (*splitbill.Bill, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, chat_id, creator_id, creator_name, status, created_at, closed_at
         FROM bills WHERE chat_id = $1 AND status = 'open' LIMIT 1`,
		chatID,
	)
	b, err := scanBill(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (db *DB) BillByID(ctx context.Context, id int64) (*splitbill.Bill, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, chat_id, creator_id, creator_name, status, created_at, closed_at
         FROM bills WHERE id = $1`,
		id,
	)
	b, err := scanBill(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func scanBill(row pgx.Row) (*splitbill.Bill, error) {
	var b splitbill.Bill
	if err := row.Scan(&b.ID, &b.ChatID, &b.CreatorID, &b.CreatorName, &b.Status, &b.CreatedAt, &b.ClosedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// AddParticipant adds a user to the bill. A duplicate join is a no-op and
// reports added=false.
func (db *DB) AddParticipant(ctx context.Context, billID, userID int64, name string) (bool, error) {
	ct, err := db.pool.Exec(ctx,
		`INSERT INTO bill_participants (bill_id, user_id, name)
         VALUES ($1, $2, $3)
         ON CONFLICT (bill_id, user_id) DO NOTHING`,
		billID, userID, name,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// Participants returns all participants of a bill in join order.
func (db *DB) Participants(ctx context.Context, billID int64) ([]splitbill.Participant, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT bill_id, user_id, name FROM bill_participants WHERE bill_id = $1 ORDER BY user_id`,
		billID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []splitbill.Participant
	for rows.Next() {
		var p splitbill.Participant
		if err := rows.Scan(&p.BillID, &p.UserID, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddExpense inserts an expense and fills in its id and timestamp.
func (db *DB) AddExpense(ctx context.Context, e *splitbill.Expense) error {
	return db.pool.QueryRow(ctx,
		`INSERT INTO expenses (bill_id, user_id, user_name, description, amount)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, created_at`,
		e.BillID, e.UserID, e.UserName, e.Description, e.Amount,
	).Scan(&e.ID, &e.CreatedAt)
}

// Expenses returns all expenses of a bill in insertion order.
func (db *DB) Expenses(ctx context.Context, billID int64) ([]splitbill.Expense, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, bill_id, user_id, user_name, description, amount, created_at
         FROM expenses WHERE bill_id = $1 ORDER BY id`,
		billID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []splitbill.Expense
	for rows.Next() {
		var e splitbill.Expense
		if err := rows.Scan(&e.ID, &e.BillID, &e.UserID, &e.UserName, &e.Description, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CloseBill marks the bill closed. Closing an already closed bill changes
// nothing.
func (db *DB) CloseBill(ctx context.Context, billID int64, closedAt time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE bills SET status = 'closed', closed_at = $2 WHERE id = $1 AND status = 'open'`,
		billID, closedAt,
	)
	return err
}
