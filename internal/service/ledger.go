package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/punchamoorthee/loanops/internal/cache"
	"github.com/punchamoorthee/loanops/internal/domain"
	"github.com/punchamoorthee/loanops/internal/fine"
	"github.com/punchamoorthee/loanops/internal/store"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrLoanNotFound    = errors.New("loan not found")
	ErrNoCopies        = errors.New("no available copies")
	ErrAlreadyReturned = errors.New("already returned")
	ErrAlreadyLost     = errors.New("already reported lost")
)

// Config carries the lending policy knobs; they are supplied from the
// environment, never decided here.
type Config struct {
	LoanPeriodDays int
	FinePerDay     int64
	LostFine       int64
}

// Ledger orchestrates the atomic loan transitions against the store and
// serves the debt views. Each check-then-mutate sequence runs under an
// exclusive per-entity lock: issuance locks the book, return and lost-report
// lock the loan. There is no global lock and no cross-entity ordering.
type Ledger struct {
	store     store.Store
	debtors   *cache.Debtors
	cfg       Config
	log       zerolog.Logger
	now       func() time.Time
	bookLocks *keyedLocks
	loanLocks *keyedLocks
}

type Option func(*Ledger)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func NewLedger(st store.Store, debtors *cache.Debtors, cfg Config, log zerolog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:     st,
		debtors:   debtors,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		bookLocks: newKeyedLocks(),
		loanLocks: newKeyedLocks(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) rates() fine.Rates {
	return fine.Rates{PerDay: l.cfg.FinePerDay, Lost: l.cfg.LostFine}
}

// AddBook registers a new title with all copies available.
func (l *Ledger) AddBook(ctx context.Context, title string, totalCopies int) (int64, error) {
	id, err := l.store.CreateBook(ctx, title, totalCopies)
	if err != nil {
		return 0, fmt.Errorf("create book: %w", err)
	}
	l.log.Info().Int64("book_id", id).Str("title", title).Int("total_copies", totalCopies).Msg("book added")
	return id, nil
}

// IssueBook lends one copy of the book to the student. The availability check
// and the decrement happen under the book's lock, so concurrent issuances can
// never drive available copies below zero.
func (l *Ledger) IssueBook(ctx context.Context, bookID, studentID int64, daysDue int) (int64, error) {
	mu := l.bookLocks.acquire(bookID)
	defer mu.Unlock()

	book, err := l.store.GetBook(ctx, bookID)
	if errors.Is(err, store.ErrBookNotFound) {
		l.log.Warn().Int64("book_id", bookID).Msg("issue rejected: book not found")
		return 0, ErrBookNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("load book: %w", err)
	}
	if book.AvailableCopies <= 0 {
		l.log.Warn().Int64("book_id", bookID).Msg("issue rejected: no available copies")
		return 0, ErrNoCopies
	}

	if _, err := l.store.GetStudent(ctx, studentID); err != nil {
		if errors.Is(err, store.ErrStudentNotFound) {
			l.log.Warn().Int64("student_id", studentID).Msg("issue rejected: student not found")
			return 0, ErrStudentNotFound
		}
		return 0, fmt.Errorf("load student: %w", err)
	}

	days := daysDue
	if days <= 0 {
		days = l.cfg.LoanPeriodDays
	}

	now := l.now().UTC()
	loanID, err := l.store.CreateLoan(ctx, domain.Loan{
		BookID:    bookID,
		StudentID: studentID,
		IssueDate: now,
		DueDate:   now.AddDate(0, 0, days),
	})
	if err != nil {
		if errors.Is(err, store.ErrNoCopies) {
			return 0, ErrNoCopies
		}
		return 0, fmt.Errorf("create loan: %w", err)
	}

	l.log.Info().Int64("loan_id", loanID).Int64("book_id", bookID).Int64("student_id", studentID).
		Time("due_date", now.AddDate(0, 0, days)).Msg("book issued")
	return loanID, nil
}

// ReturnBook closes the loan and restocks the book. Lost loans are terminal
// and cannot be returned. The returned fine is final for this loan.
func (l *Ledger) ReturnBook(ctx context.Context, loanID int64) (int64, error) {
	mu := l.loanLocks.acquire(loanID)
	defer mu.Unlock()

	loan, err := l.store.GetLoan(ctx, loanID)
	if errors.Is(err, store.ErrLoanNotFound) {
		return 0, ErrLoanNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("load loan: %w", err)
	}
	if !loan.Open() {
		return 0, ErrAlreadyReturned
	}
	if loan.Lost {
		return 0, ErrAlreadyLost
	}

	now := l.now().UTC()
	loan.ReturnDate = &now
	fine.Apply(&loan, fine.Assess(loan, now, l.rates()))

	if err := l.store.CompleteLoan(ctx, loan, true); err != nil {
		// Another process may have won the row; surface it as the conflict.
		if errors.Is(err, store.ErrLoanClosed) {
			return 0, ErrAlreadyReturned
		}
		if errors.Is(err, store.ErrLoanLost) {
			return 0, ErrAlreadyLost
		}
		return 0, fmt.Errorf("complete loan: %w", err)
	}

	l.log.Info().Int64("loan_id", loanID).Int64("fine", loan.Fine).Msg("book returned")
	return loan.Fine, nil
}

// ReportLost marks the loan's copy as lost. The book is not restocked: the
// copy is permanently out of circulation. The fine becomes the flat lost fee.
func (l *Ledger) ReportLost(ctx context.Context, loanID int64) (int64, error) {
	mu := l.loanLocks.acquire(loanID)
	defer mu.Unlock()

	loan, err := l.store.GetLoan(ctx, loanID)
	if errors.Is(err, store.ErrLoanNotFound) {
		return 0, ErrLoanNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("load loan: %w", err)
	}
	if loan.Lost {
		return 0, ErrAlreadyLost
	}
	if !loan.Open() {
		return 0, ErrAlreadyReturned
	}

	loan.Lost = true
	fine.Apply(&loan, fine.Assess(loan, l.now().UTC(), l.rates()))

	if err := l.store.MarkLoanLost(ctx, loan); err != nil {
		if errors.Is(err, store.ErrLoanLost) {
			return 0, ErrAlreadyLost
		}
		if errors.Is(err, store.ErrLoanClosed) {
			return 0, ErrAlreadyReturned
		}
		return 0, fmt.Errorf("mark loan lost: %w", err)
	}

	l.log.Info().Int64("loan_id", loanID).Int64("fine", loan.Fine).Msg("book reported lost")
	return loan.Fine, nil
}

// CheckAvailability reports copy counts for the book, zero/zero when the book
// is unknown.
func (l *Ledger) CheckAvailability(ctx context.Context, bookID int64) (available, total int, err error) {
	book, err := l.store.GetBook(ctx, bookID)
	if errors.Is(err, store.ErrBookNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("load book: %w", err)
	}
	return book.AvailableCopies, book.TotalCopies, nil
}

// ViewDebtors serves the debtor listing, preferring the cached snapshot when
// it is still within its TTL. On a miss the full listing is recomputed,
// ordered by fine descending, cached, and only then truncated to limit
// (limit <= 0 means all).
func (l *Ledger) ViewDebtors(ctx context.Context, limit int) ([]domain.Debt, bool, error) {
	if debts, ok := l.debtors.Get(); ok {
		return truncate(debts, limit), true, nil
	}

	open, err := l.refreshOpenLoans(ctx)
	if err != nil {
		return nil, false, err
	}

	debts := debtRows(open)
	sort.SliceStable(debts, func(i, j int) bool { return debts[i].Fine > debts[j].Fine })

	l.debtors.Put(debts)
	return truncate(debts, limit), false, nil
}

// GetAllDebts lists the debt state of every open loan, recomputed at call
// time. It bypasses the cache entirely.
func (l *Ledger) GetAllDebts(ctx context.Context) ([]domain.Debt, error) {
	open, err := l.refreshOpenLoans(ctx)
	if err != nil {
		return nil, err
	}
	return debtRows(open), nil
}

// refreshOpenLoans loads every open loan, re-derives its overdue days and
// fine as of now, and persists whatever changed so the stored derived fields
// never go stale.
func (l *Ledger) refreshOpenLoans(ctx context.Context) ([]domain.OpenLoan, error) {
	open, err := l.store.OpenLoans(ctx)
	if err != nil {
		return nil, fmt.Errorf("load open loans: %w", err)
	}

	now := l.now().UTC()
	var changed []domain.Loan
	for i := range open {
		if fine.Apply(&open[i].Loan, fine.Assess(open[i].Loan, now, l.rates())) {
			changed = append(changed, open[i].Loan)
		}
	}
	if len(changed) > 0 {
		if err := l.store.SaveLoanFines(ctx, changed); err != nil {
			return nil, fmt.Errorf("save fines: %w", err)
		}
	}
	return open, nil
}

func debtRows(open []domain.OpenLoan) []domain.Debt {
	debts := make([]domain.Debt, 0, len(open))
	for _, ol := range open {
		debts = append(debts, domain.Debt{
			LoanID:      ol.ID,
			StudentID:   ol.StudentID,
			StudentName: ol.StudentName,
			BookID:      ol.BookID,
			BookTitle:   ol.BookTitle,
			DueDate:     ol.DueDate,
			OverdueDays: ol.OverdueDays,
			Fine:        ol.Fine,
		})
	}
	return debts
}

func truncate(debts []domain.Debt, limit int) []domain.Debt {
	if limit > 0 && limit < len(debts) {
		return debts[:limit]
	}
	return debts
}
