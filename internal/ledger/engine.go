package ledger

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/apperr"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/storage"
)

// Engine owns the borrowers mapping and the transaction log of one bot
// instance. Memory is authoritative; every mutation rewrites the document.
type Engine struct {
	mu           sync.Mutex
	doc          *storage.Document
	logger       *slog.Logger
	now          func() time.Time
	borrowers    map[string]*Account
	transactions []Transaction
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now as the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger used for persistence diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine backed by doc and loads its current content.
// A missing or unreadable document yields an empty ledger.
func New(doc *storage.Document, opts ...Option) *Engine {
	e := &Engine{
		doc:       doc,
		logger:    slog.Default(),
		now:       time.Now,
		borrowers: make(map[string]*Account),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.mu.Lock()
	e.load()
	e.mu.Unlock()
	return e
}

// load replaces the in-memory state with the stored document. Callers hold mu.
func (e *Engine) load() {
	var fd fileDoc
	found, err := e.doc.Load(&fd)
	if err != nil {
		e.logger.Error("ledger: load failed, starting empty",
			slog.String("document", e.doc.Name()),
			slog.String("error", err.Error()))
		e.reset()
		return
	}
	if !found {
		e.logger.Info("ledger: no stored data, starting empty", slog.String("document", e.doc.Name()))
		e.reset()
		return
	}
	borrowers, txs, err := decodeState(fd)
	if err != nil {
		e.logger.Error("ledger: decode failed, starting empty",
			slog.String("document", e.doc.Name()),
			slog.String("error", err.Error()))
		e.reset()
		return
	}
	e.borrowers, e.transactions = borrowers, txs
	e.logger.Info("ledger: loaded",
		slog.Int("borrowers", len(borrowers)),
		slog.Int("transactions", len(txs)))
}

func (e *Engine) reset() {
	e.borrowers = make(map[string]*Account)
	e.transactions = nil
}

// persist writes the full state. A failed write is logged and the
// in-memory mutation is kept. Callers hold mu.
func (e *Engine) persist() {
	if err := e.doc.Save(encodeState(e.borrowers, e.transactions)); err != nil {
		e.logger.Error("ledger: save failed, memory and disk diverge",
			slog.String("document", e.doc.Name()),
			slog.String("error", err.Error()))
	}
}

// Reload re-reads the document if it was changed outside this engine and
// reports whether it did.
func (e *Engine) Reload() bool {
	stale, err := e.doc.Stale()
	if err != nil {
		e.logger.Warn("ledger: stale check failed", slog.String("error", err.Error()))
		return false
	}
	if !stale {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.load()
	return true
}

func (e *Engine) clock() time.Time {
	return e.now().Round(0).Truncate(time.Second)
}

// AddBorrow records amount lent to person. The first borrow opens the
// account with dailyRate; later borrows add to the principal and keep the
// account's original rate.
func (e *Engine) AddBorrow(person string, amount, dailyRate float64) (BorrowResult, error) {
	person = strings.TrimSpace(person)
	if person == "" {
		return BorrowResult{}, apperr.New(apperr.ErrInvalidArguments, "person is required")
	}
	if !positive(amount) {
		return BorrowResult{}, apperr.New(apperr.ErrInvalidArguments, "amount must be a positive number")
	}
	if math.IsNaN(dailyRate) || math.IsInf(dailyRate, 0) || dailyRate < 0 {
		return BorrowResult{}, apperr.New(apperr.ErrInvalidArguments, "daily rate must be a non-negative number")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	acc, topUp := e.borrowers[person]
	if topUp {
		acc.Principal += amount
		acc.LastUpdate = now
	} else {
		acc = &Account{
			Person:     person,
			Principal:  amount,
			DailyRate:  dailyRate,
			LastUpdate: now,
		}
		e.borrowers[person] = acc
	}
	e.transactions = append(e.transactions, Transaction{
		Person:    person,
		Amount:    amount,
		Type:      TxBorrow,
		DailyRate: acc.DailyRate,
		Time:      now,
	})
	e.persist()

	return BorrowResult{Account: *acc, Amount: amount, TopUp: topUp}, nil
}

// Query evaluates the active account of person at the current time.
func (e *Engine) Query(person string) (Accrual, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	acc, ok := e.borrowers[strings.TrimSpace(person)]
	if !ok {
		return Accrual{}, apperr.New(apperr.ErrNotFound, "no borrowing record for %s", person)
	}
	return AccrueInterest(*acc, e.clock()), nil
}

// QueryAll evaluates every active account, ordered by person.
func (e *Engine) QueryAll() []Accrual {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	out := make([]Accrual, 0, len(e.borrowers))
	for _, acc := range e.borrowers {
		out = append(out, AccrueInterest(*acc, now))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Person < out[j].Person })
	return out
}

// Repay applies a payment from person against principal plus accrued
// interest. Paying at least the total owed closes the account and reports
// any surplus; a smaller payment reduces the principal.
//
// A partial payment keeps the account's accrual start date, unless it also
// covers part of the accrued interest: then the unpaid remainder becomes
// the new principal and accrual restarts now.
func (e *Engine) Repay(person string, amount float64) (Settlement, error) {
	person = strings.TrimSpace(person)
	if !positive(amount) {
		return Settlement{}, apperr.New(apperr.ErrInvalidArguments, "amount must be a positive number")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	acc, ok := e.borrowers[person]
	if !ok {
		return Settlement{}, apperr.New(apperr.ErrNotFound, "no borrowing record for %s", person)
	}

	now := e.clock()
	owed := AccrueInterest(*acc, now)
	s := Settlement{Person: person, Paid: amount, Owed: owed}

	switch {
	case amount >= owed.Total-epsilon:
		delete(e.borrowers, person)
		s.Settled = true
		if surplus := amount - owed.Total; surplus > epsilon {
			s.Surplus = surplus
		}
	case acc.Principal-amount > epsilon:
		acc.Principal -= amount
		s.Remaining = acc.Principal
	default:
		acc.Principal = owed.Total - amount
		acc.LastUpdate = now
		s.Remaining = acc.Principal
	}

	e.transactions = append(e.transactions, Transaction{
		Person: person,
		Amount: amount,
		Type:   TxRepay,
		Time:   now,
	})
	e.persist()

	return s, nil
}

// Transactions returns a copy of the log in insertion order.
func (e *Engine) Transactions() []Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Transaction, len(e.transactions))
	copy(out, e.transactions)
	return out
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
