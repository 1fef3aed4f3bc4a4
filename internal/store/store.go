package store

import (
	"context"
	"errors"

	"github.com/punchamoorthee/loanops/internal/domain"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrLoanNotFound    = errors.New("loan not found")
	ErrNoCopies        = errors.New("no available copies")
	ErrLoanClosed      = errors.New("loan already closed")
	ErrLoanLost        = errors.New("loan reported lost")
)

// Store is the durable record of the catalog and the loan ledger. The
// composite write methods commit as a single unit: either every row change
// they describe is applied, or none is.
type Store interface {
	CreateBook(ctx context.Context, title string, totalCopies int) (int64, error)
	GetBook(ctx context.Context, id int64) (domain.Book, error)
	GetStudent(ctx context.Context, id int64) (domain.Student, error)
	GetLoan(ctx context.Context, id int64) (domain.Loan, error)

	// CreateLoan inserts the loan and decrements the book's available copies.
	// Fails with ErrNoCopies when the book has none left.
	CreateLoan(ctx context.Context, loan domain.Loan) (int64, error)

	// CompleteLoan persists the loan's return fields and, when restock is
	// true, increments the book's available copies. Fails with ErrLoanClosed
	// or ErrLoanLost when the loan already left the open state.
	CompleteLoan(ctx context.Context, loan domain.Loan, restock bool) error

	// MarkLoanLost persists the lost flag and the flat fine. The book's
	// available copies are left untouched: the copy is out of circulation.
	// Fails with ErrLoanLost or ErrLoanClosed when the loan already left the
	// open state.
	MarkLoanLost(ctx context.Context, loan domain.Loan) error

	// SaveLoanFines persists recomputed overdue_days/fine values. A loan
	// that has closed or been reported lost since the recompute is skipped:
	// its stored fine is final and must never drift.
	SaveLoanFines(ctx context.Context, loans []domain.Loan) error

	// OpenLoans returns every loan without a return date, joined with the
	// student name and book title.
	OpenLoans(ctx context.Context) ([]domain.OpenLoan, error)
}
