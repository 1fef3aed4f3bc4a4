// Package fine derives overdue days and fine amounts from a loan's dates and
// its lost flag. The derivation is pure: callers re-run it whenever they need
// a current value instead of trusting a stored one.
package fine

import (
	"time"

	"github.com/punchamoorthee/loanops/internal/domain"
)

// Rates configures the fine formula.
type Rates struct {
	PerDay int64
	Lost   int64
}

// Assessment is the derived debt state of a single loan.
type Assessment struct {
	OverdueDays int
	Amount      int64
}

// Assess computes the overdue days and fine for a loan as of now. The
// reference time is the loan's return date when it is closed, otherwise now.
// A lost loan owes the flat lost fee regardless of dates; an open loan past
// its due date owes PerDay per whole day late.
func Assess(loan domain.Loan, now time.Time, r Rates) Assessment {
	if loan.Lost {
		return Assessment{Amount: r.Lost}
	}

	ref := now
	if loan.ReturnDate != nil {
		ref = *loan.ReturnDate
	}
	if loan.DueDate.IsZero() || !ref.After(loan.DueDate) {
		return Assessment{}
	}

	days := int(ref.Sub(loan.DueDate) / (24 * time.Hour))
	return Assessment{OverdueDays: days, Amount: int64(days) * r.PerDay}
}

// Apply writes the assessment back onto the loan's derived fields and reports
// whether anything changed.
func Apply(loan *domain.Loan, a Assessment) bool {
	if loan.OverdueDays == a.OverdueDays && loan.Fine == a.Amount {
		return false
	}
	loan.OverdueDays = a.OverdueDays
	loan.Fine = a.Amount
	return true
}
