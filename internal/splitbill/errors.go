package splitbill

import "errors"

var (
	ErrAlreadyOpen     = errors.New("a session is already open in this chat")
	ErrNoOpenSession   = errors.New("no open session in this chat")
	ErrNotParticipant  = errors.New("user has not joined the bill")
	ErrInvalidAmount   = errors.New("amount is not a positive number")
	ErrForbidden       = errors.New("only the session creator may do this")
	ErrAlreadyIngested = errors.New("receipt items already uploaded")
	ErrNoValidItems    = errors.New("no valid items in the receipt")
	ErrSessionClosed   = errors.New("session is already closed")
	ErrNoParticipants  = errors.New("session has no participants")
	ErrNoExpenses      = errors.New("bill has no expenses")
)
