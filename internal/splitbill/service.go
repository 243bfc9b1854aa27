package splitbill

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Service is the session state machine for all chats. Every state-mutating
// operation runs under that chat's lock, so a close can never observe a
// half-applied toggle and two receipt uploads can never both pass the
// "no items yet" check.
type Service struct {
	store Store

	mu    sync.Mutex
	locks map[int64]*sync.Mutex // one mutex per chat ever seen; entries are never removed
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		locks: make(map[int64]*sync.Mutex),
	}
}

func (s *Service) chatLock(chatID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[chatID] = l
	}
	return l
}

// anyOpenSession reports whether the chat has an open session of either kind.
func (s *Service) anyOpenSession(ctx context.Context, chatID int64) (bool, error) {
	bill, err := s.store.OpenBill(ctx, chatID)
	if err != nil {
		return false, err
	}
	if bill != nil {
		return true, nil
	}
	sess, err := s.store.OpenReceiptSession(ctx, chatID)
	if err != nil {
		return false, err
	}
	return sess != nil, nil
}

// NewBill opens a pooled bill in the chat.
func (s *Service) NewBill(ctx context.Context, chatID, userID int64, userName string) (*Bill, error) {
	l := s.chatLock(chatID)
	l.Lock()
	defer l.Unlock()

	open, err := s.anyOpenSession(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrAlreadyOpen
	}
	return s.store.CreateBill(ctx, chatID, userID, userName)
}

// NewReceiptSession opens an itemized receipt session in the chat.
func (s *Service) NewReceiptSession(ctx context.Context, chatID, userID int64, userName string) (*ReceiptSession, error) {
	l := s.chatLock(chatID)
	l.Lock()
	defer l.Unlock()

	open, err := s.anyOpenSession(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrAlreadyOpen
	}
	return s.store.CreateReceiptSession(ctx, chatID, userID, userName)
}

type JoinResult struct {
	Bill         *Bill
	Participants []Participant
	Joined       bool // false when the user was already in
}

// JoinBill adds the user to a pooled bill. Joining twice is a no-op.
func (s *Service) JoinBill(ctx context.Context, billID, userID int64, userName string) (*JoinResult, error) {
	bill, err := s.store.BillByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, ErrNoOpenSession
	}

	l := s.chatLock(bill.ChatID)
	l.Lock()
	defer l.Unlock()

	// Re-read under the chat lock; a close may have landed between the
	// lookup and the lock.
	bill, err = s.store.BillByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, ErrNoOpenSession
	}
	if bill.Status != StatusOpen {
		return nil, ErrSessionClosed
	}

	added, err := s.store.AddParticipant(ctx, billID, userID, userName)
	if err != nil {
		return nil, err
	}
	parts, err := s.store.Participants(ctx, billID)
	if err != nil {
		return nil, err
	}
	return &JoinResult{Bill: bill, Participants: parts, Joined: added}, nil
}

// ParseExpenseLine splits a "<description> <amount>" message. The amount is
// the last whitespace-separated token; spaces and commas inside it are
// stripped so "Пицца 50,000" parses.
func ParseExpenseLine(text string) (string, float64, error) {
	text = strings.TrimSpace(text)
	i := strings.LastIndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return "", 0, ErrInvalidAmount
	}
	description := strings.TrimSpace(text[:i])
	raw := strings.NewReplacer(" ", "", ",", "").Replace(text[i+1:])
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil || amount <= 0 || description == "" {
		return "", 0, ErrInvalidAmount
	}
	return description, amount, nil
}

// RecordExpense appends an expense posted by a joined participant of the
// chat's open pooled bill.
func (s *Service) RecordExpense(ctx context.Context, chatID, userID int64, userName, text string) (*Expense, error) {
	l := s.chatLock(chatID)
	l.Lock()
	defer l.Unlock()

	bill, err := s.store.OpenBill(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, ErrNoOpenSession
	}

	parts, err := s.store.Participants(ctx, bill.ID)
	if err != nil {
		return nil, err
	}
	joined := false
	for _, p := range parts {
		if p.UserID == userID {
			joined = true
			break
		}
	}
	if !joined {
		return nil, ErrNotParticipant
	}

	description, amount, err := ParseExpenseLine(text)
	if err != nil {
		return nil, err
	}

	e := &Expense{
		BillID:      bill.ID,
		UserID:      userID,
		UserName:    userName,
		Description: description,
		Amount:      amount,
	}
	if err := s.store.AddExpense(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// CheckReceiptUpload validates a receipt photo before the recognition call:
// the chat must have an open receipt session, the uploader must be its
// creator and no items may exist yet. The caller then runs recognition
// without holding any lock and finishes with IngestReceipt, which
// re-validates everything.
func (s *Service) CheckReceiptUpload(ctx context.Context, chatID, userID int64) (*ReceiptSession, error) {
	l := s.chatLock(chatID)
	l.Lock()
	defer l.Unlock()
	return s.checkReceiptUpload(ctx, chatID, userID)
}

func (s *Service) checkReceiptUpload(ctx context.Context, chatID, userID int64) (*ReceiptSession, error) {
	sess, err := s.store.OpenReceiptSession(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoOpenSession
	}
	if sess.CreatorID != userID {
		return nil, ErrForbidden
	}
	items, err := s.store.Items(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return nil, ErrAlreadyIngested
	}
	return sess, nil
}

// IngestReceipt validates recognized items and bulk-inserts them into the
// chat's open receipt session. Items with an empty name or non-positive
// price are dropped; a quantity below one becomes one. If nothing survives
// the session is left untouched so the creator can retry with another photo.
func (s *Service) IngestReceipt(ctx context.Context, chatID, userID int64, candidates []LineItem) ([]LineItem, error) {
	l := s.chatLock(chatID)
	l.Lock()
	defer l.Unlock()

	sess, err := s.checkReceiptUpload(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	var items []LineItem
	for _, it := range candidates {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" || it.Price <= 0 {
			continue
		}
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, ErrNoValidItems
	}

	return s.store.InsertItems(ctx, sess.ID, items)
}

// ItemState is one line item together with who claimed it.
type ItemState struct {
	Item     LineItem
	Claimers []Claim
}

func (st ItemState) ClaimedBy(userID int64) bool {
	for _, c := range st.Claimers {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// ReceiptView is everything the presentation layer needs to draw the
// per-item choice surface.
type ReceiptView struct {
	Session *ReceiptSession
	Items   []ItemState
}

func (s *Service) ReceiptView(ctx context.Context, sessionID int64) (*ReceiptView, error) {
	sess, err := s.store.ReceiptSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoOpenSession
	}

	items, err := s.store.Items(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	claims, err := s.store.Claims(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	byItem := make(map[int64][]Claim)
	for _, c := range claims {
		byItem[c.ItemID] = append(byItem[c.ItemID], c)
	}

	view := &ReceiptView{Session: sess}
	for _, it := range items {
		view.Items = append(view.Items, ItemState{Item: it, Claimers: byItem[it.ID]})
	}
	return view, nil
}

// ToggleClaim flips the (item, user) claim: absent becomes claimed, present
// becomes unclaimed. Returns the refreshed view and whether the item is now
// claimed by the user.
func (s *Service) ToggleClaim(ctx context.Context, itemID, userID int64, userName string) (*ReceiptView, bool, error) {
	sess, err := s.store.SessionForItem(ctx, itemID)
	if err != nil {
		return nil, false, err
	}
	if sess == nil {
		return nil, false, ErrNoOpenSession
	}

	l := s.chatLock(sess.ChatID)
	l.Lock()
	defer l.Unlock()

	// Re-read under the chat lock; a close may have landed between the
	// lookup and the lock.
	sess, err = s.store.SessionForItem(ctx, itemID)
	if err != nil {
		return nil, false, err
	}
	if sess == nil {
		return nil, false, ErrNoOpenSession
	}
	if sess.Status != StatusOpen {
		return nil, false, ErrSessionClosed
	}

	claimed, err := s.store.ToggleClaim(ctx, itemID, userID, userName)
	if err != nil {
		return nil, false, err
	}
	view, err := s.ReceiptView(ctx, sess.ID)
	if err != nil {
		return nil, false, err
	}
	return view, claimed, nil
}

// BillSummary is the final settlement of a pooled bill.
type BillSummary struct {
	Bill         *Bill
	Total        float64
	Share        float64
	Participants []Participant
	Paid         map[int64]float64
	Transfers    []Transfer
}

// ReceiptSummary is the final cost attribution of an itemized receipt.
// Totals are amounts owed, not net balances: there is no payer in this mode.
type ReceiptSummary struct {
	Session *ReceiptSession
	Total   float64
	Totals  map[int64]float64
	Names   map[int64]string
}

// CloseResult carries whichever summary the closed session produced.
type CloseResult struct {
	Bill    *BillSummary
	Receipt *ReceiptSummary
}

// Close closes the chat's open session, whichever kind it is. Only the
// creator may close; the transition is irreversible and computes the final
// settlement at that instant.
func (s *Service) Close(ctx context.Context, chatID, userID int64) (*CloseResult, error) {
	l := s.chatLock(chatID)
	l.Lock()
	defer l.Unlock()

	bill, err := s.store.OpenBill(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if bill != nil {
		if bill.CreatorID != userID {
			return nil, ErrForbidden
		}
		sum, err := s.closeBill(ctx, bill)
		if err != nil {
			return nil, err
		}
		return &CloseResult{Bill: sum}, nil
	}

	sess, err := s.store.OpenReceiptSession(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoOpenSession
	}
	if sess.CreatorID != userID {
		return nil, ErrForbidden
	}
	sum, err := s.closeReceipt(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &CloseResult{Receipt: sum}, nil
}

func (s *Service) closeBill(ctx context.Context, bill *Bill) (*BillSummary, error) {
	parts, err := s.store.Participants(ctx, bill.ID)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, ErrNoParticipants
	}
	expenses, err := s.store.Expenses(ctx, bill.ID)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, ErrNoExpenses
	}

	var total float64
	paid := make(map[int64]float64)
	for _, e := range expenses {
		total += e.Amount
		paid[e.UserID] += e.Amount
	}

	balances := EqualSplit(parts, expenses)
	txs := MinimizeTransfers(balances)

	closedAt := time.Now()
	if err := s.store.CloseBill(ctx, bill.ID, closedAt); err != nil {
		return nil, err
	}
	bill.Status = StatusClosed
	bill.ClosedAt = &closedAt

	return &BillSummary{
		Bill:         bill,
		Total:        total,
		Share:        total / float64(len(parts)),
		Participants: parts,
		Paid:         paid,
		Transfers:    txs,
	}, nil
}

func (s *Service) closeReceipt(ctx context.Context, sess *ReceiptSession) (*ReceiptSummary, error) {
	items, err := s.store.Items(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	claims, err := s.store.Claims(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	if len(claims) == 0 {
		return nil, ErrNoParticipants
	}

	names := map[int64]string{sess.CreatorID: sess.CreatorName}
	for _, c := range claims {
		names[c.UserID] = c.Name
	}

	totals := ClaimSplit(items, claims, sess.CreatorID)

	var total float64
	for _, v := range totals {
		total += v
	}

	closedAt := time.Now()
	if err := s.store.CloseReceiptSession(ctx, sess.ID, closedAt); err != nil {
		return nil, err
	}
	sess.Status = StatusClosed
	sess.ClosedAt = &closedAt

	return &ReceiptSummary{
		Session: sess,
		Total:   total,
		Totals:  totals,
		Names:   names,
	}, nil
}

// History returns the chat's most recent sessions of both kinds, newest
// first.
func (s *Service) History(ctx context.Context, chatID int64) ([]HistoryEntry, error) {
	return s.store.History(ctx, chatID, 10)
}
