package db

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/koinot-markazi/split-bill-bot/internal/splitbill"
)

// CreateReceiptSession opens a new receipt session for the chat.
func (db *DB) CreateReceiptSession(ctx context.Context, chatID, creatorID int64, creatorName string) (*splitbill.ReceiptSession, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO receipt_sessions (chat_id, creator_id, creator_name)
         VALUES ($1, $2, $3)
         RETURNING id, chat_id, creator_id, creator_name, status, created_at, closed_at`,
		chatID, creatorID, creatorName,
	)
	return scanReceiptSession(row)
}

// OpenReceiptSession returns the chat's open receipt session, or nil.
func (db *DB) OpenReceiptSession(ctx context.Context, chatID int64) (*splitbill.ReceiptSession, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, chat_id, creator_id, creator_name, status, created_at, closed_at
         FROM receipt_sessions WHERE chat_id = $1 AND status = 'open' LIMIT 1`,
		chatID,
	)
	s, err := scanReceiptSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (db *DB) ReceiptSessionByID(ctx context.Context, id int64) (*splitbill.ReceiptSession, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, chat_id, creator_id, creator_name, status, created_at, closed_at
         FROM receipt_sessions WHERE id = $1`,
		id,
	)
	s, err := scanReceiptSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// SessionForItem returns the session owning a line item, or nil.
func (db *DB) SessionForItem(ctx context.Context, itemID int64) (*splitbill.ReceiptSession, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT rs.id, rs.chat_id, rs.creator_id, rs.creator_name, rs.status, rs.created_at, rs.closed_at
         FROM receipt_sessions rs
         JOIN receipt_items ri ON ri.session_id = rs.id
         WHERE ri.id = $1`,
		itemID,
	)
	s, err := scanReceiptSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func scanReceiptSession(row pgx.Row) (*splitbill.ReceiptSession, error) {
	var s splitbill.ReceiptSession
	if err := row.Scan(&s.ID, &s.ChatID, &s.CreatorID, &s.CreatorName, &s.Status, &s.CreatedAt, &s.ClosedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// InsertItems bulk-inserts a receipt batch. The session row is locked and
// re-checked for existing items inside the transaction, so two concurrent
// uploads cannot both get their batch in; the loser gets ErrAlreadyIngested.
func (db *DB) InsertItems(ctx context.Context, sessionID int64, items []splitbill.LineItem) ([]splitbill.LineItem, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	if err := tx.QueryRow(ctx,
		`SELECT id FROM receipt_sessions WHERE id = $1 FOR UPDATE`, sessionID,
	).Scan(&id); err != nil {
		return nil, err
	}

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM receipt_items WHERE session_id = $1`, sessionID,
	).Scan(&count); err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, splitbill.ErrAlreadyIngested
	}

	out := make([]splitbill.LineItem, 0, len(items))
	for _, it := range items {
		it.SessionID = sessionID
		if err := tx.QueryRow(ctx,
			`INSERT INTO receipt_items (session_id, name, price, quantity, shared)
             VALUES ($1, $2, $3, $4, $5)
             RETURNING id`,
			sessionID, it.Name, it.Price, it.Quantity, it.Shared,
		).Scan(&it.ID); err != nil {
			return nil, err
		}
		out = append(out, it)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// Items returns the session's line items in receipt order.
func (db *DB) Items(ctx context.Context, sessionID int64) ([]splitbill.LineItem, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, session_id, name, price, quantity, shared
         FROM receipt_items WHERE session_id = $1 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []splitbill.LineItem
	for rows.Next() {
		var it splitbill.LineItem
		if err := rows.Scan(&it.ID, &it.SessionID, &it.Name, &it.Price, &it.Quantity, &it.Shared); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ToggleClaim removes the (item, user) claim if it exists, otherwise inserts
// it. Returns whether the item is now claimed by the user. The delete and
// insert run in one transaction; a conflicting concurrent insert collapses
// into the same claimed state.
func (db *DB) ToggleClaim(ctx context.Context, itemID, userID int64, name string) (bool, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx,
		`DELETE FROM item_claims WHERE item_id = $1 AND user_id = $2`,
		itemID, userID,
	)
	if err != nil {
		return false, err
	}

	claimed := false
	if ct.RowsAffected() == 0 {
		if _, err := tx.Exec(ctx,
			`INSERT INTO item_claims (item_id, user_id, name)
             VALUES ($1, $2, $3)
             ON CONFLICT (item_id, user_id) DO NOTHING`,
			itemID, userID, name,
		); err != nil {
			return false, err
		}
		claimed = true
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return claimed, nil
}

// Claims returns every claim across the session's items.
func (db *DB) Claims(ctx context.Context, sessionID int64) ([]splitbill.Claim, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT ic.item_id, ic.user_id, ic.name
         FROM item_claims ic
         JOIN receipt_items ri ON ri.id = ic.item_id
         WHERE ri.session_id = $1
         ORDER BY ic.item_id, ic.user_id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []splitbill.Claim
	for rows.Next() {
		var c splitbill.Claim
		if err := rows.Scan(&c.ItemID, &c.UserID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CloseReceiptSession marks the session closed.
func (db *DB) CloseReceiptSession(ctx context.Context, sessionID int64, closedAt time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE receipt_sessions SET status = 'closed', closed_at = $2 WHERE id = $1 AND status = 'open'`,
		sessionID, closedAt,
	)
	return err
}

// History returns the chat's most recent sessions, newest first, up to
// limit of each kind.
func (db *DB) History(ctx context.Context, chatID int64, limit int) ([]splitbill.HistoryEntry, error) {
	var out []splitbill.HistoryEntry

	collect := func(query string, kind splitbill.SessionKind) error {
		rows, err := db.pool.Query(ctx, query, chatID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			e := splitbill.HistoryEntry{Kind: kind}
			if err := rows.Scan(&e.ID, &e.CreatorName, &e.Status, &e.CreatedAt, &e.ClosedAt); err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	}

	if err := collect(
		`SELECT id, creator_name, status, created_at, closed_at
         FROM bills WHERE chat_id = $1 ORDER BY created_at DESC LIMIT $2`,
		splitbill.KindPooledBill,
	); err != nil {
		return nil, err
	}
	if err := collect(
		`SELECT id, creator_name, status, created_at, closed_at
         FROM receipt_sessions WHERE chat_id = $1 ORDER BY created_at DESC LIMIT $2`,
		splitbill.KindItemizedReceipt,
	); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
