// Package ledger tracks borrowed principal per person, accrues simple daily
// interest, and applies repayments.
package ledger

import (
	"time"
)

// TimeLayout is the timestamp format used in the persisted ledger.
const TimeLayout = "2006-01-02 15:04:05"

// TxType distinguishes the entries of the transaction log.
type TxType string

const (
	TxBorrow TxType = "borrow"
	TxRepay  TxType = "repay"
)

// Account is the outstanding position of one borrower.
// An account exists only while its principal is positive.
type Account struct {
	Person     string
	Principal  float64
	DailyRate  float64 // fraction per day, fixed when the account is opened
	LastUpdate time.Time
}

// Transaction is an immutable entry of the append-only log.
type Transaction struct {
	Person    string
	Amount    float64
	Type      TxType
	DailyRate float64 // only meaningful for TxBorrow
	Time      time.Time
}

// Accrual is an account's position evaluated at a point in time.
type Accrual struct {
	Account
	Days     int
	Interest float64
	Total    float64
}

// BorrowResult describes the effect of AddBorrow.
type BorrowResult struct {
	Account Account
	Amount  float64
	TopUp   bool // the person already had an active account
}

// Settlement describes the effect of Repay.
type Settlement struct {
	Person  string
	Paid    float64
	Owed    Accrual // position just before the payment
	Settled bool
	Surplus float64
	// Remaining is the principal left after a partial repayment.
	Remaining float64
}

// epsilon absorbs float noise when comparing money amounts.
const epsilon = 1e-9

// AccrueInterest evaluates acc at the given time using simple interest on
// whole elapsed days. Days are counted on the local wall clock, so a
// daylight-saving shift inside the period does not gain or lose a day.
// It does not modify acc.
func AccrueInterest(acc Account, at time.Time) Accrual {
	days := 0
	if elapsed := wallClock(at).Sub(wallClock(acc.LastUpdate)); elapsed > 0 {
		days = int(elapsed / (24 * time.Hour))
	}
	interest := acc.Principal * acc.DailyRate * float64(days)
	return Accrual{
		Account:  acc,
		Days:     days,
		Interest: interest,
		Total:    acc.Principal + interest,
	}
}

// wallClock drops the zone offset of t, keeping its local date and time.
func wallClock(t time.Time) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	return time.Date(y, m, d, hh, mm, ss, t.Nanosecond(), time.UTC)
}
