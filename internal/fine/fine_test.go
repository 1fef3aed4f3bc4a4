package fine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/punchamoorthee/loanops/internal/domain"
	"github.com/punchamoorthee/loanops/internal/fine"
)

var rates = fine.Rates{PerDay: 1, Lost: 100}

func ts(day int) time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, day)
}

func Test_Assess(t *testing.T) {
	due := ts(0)
	returnedAt := func(day int) *time.Time {
		v := ts(day)
		return &v
	}

	tests := []struct {
		name        string
		loan        domain.Loan
		now         time.Time
		overdueDays int
		amount      int64
	}{
		{
			name:        "returned_three_days_late",
			loan:        domain.Loan{DueDate: due, ReturnDate: returnedAt(3)},
			now:         ts(10),
			overdueDays: 3,
			amount:      3,
		},
		{
			name:        "open_loan_uses_current_time",
			loan:        domain.Loan{DueDate: due},
			now:         ts(5),
			overdueDays: 5,
			amount:      5,
		},
		{
			name:        "returned_before_due",
			loan:        domain.Loan{DueDate: due, ReturnDate: returnedAt(-1)},
			now:         ts(10),
			overdueDays: 0,
			amount:      0,
		},
		{
			name:        "not_yet_due",
			loan:        domain.Loan{DueDate: due},
			now:         ts(-2),
			overdueDays: 0,
			amount:      0,
		},
		{
			name:        "partial_day_floors_to_zero",
			loan:        domain.Loan{DueDate: due},
			now:         due.Add(23 * time.Hour),
			overdueDays: 0,
			amount:      0,
		},
		{
			name:        "lost_is_flat_fee",
			loan:        domain.Loan{DueDate: due, Lost: true},
			now:         ts(30),
			overdueDays: 0,
			amount:      100,
		},
		{
			name:        "lost_overrides_overdue_formula",
			loan:        domain.Loan{DueDate: due, ReturnDate: returnedAt(50), Lost: true},
			now:         ts(60),
			overdueDays: 0,
			amount:      100,
		},
		{
			name:        "zero_due_date_owes_nothing",
			loan:        domain.Loan{},
			now:         ts(10),
			overdueDays: 0,
			amount:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := fine.Assess(tt.loan, tt.now, rates)
			assert.Equal(t, tt.overdueDays, a.OverdueDays)
			assert.Equal(t, tt.amount, a.Amount)
		})
	}
}

func Test_Assess_PerDayRate(t *testing.T) {
	loan := domain.Loan{DueDate: ts(0)}
	a := fine.Assess(loan, ts(4), fine.Rates{PerDay: 5, Lost: 100})
	assert.Equal(t, 4, a.OverdueDays)
	assert.Equal(t, int64(20), a.Amount)
}

func Test_Apply_ReportsChange(t *testing.T) {
	loan := domain.Loan{DueDate: ts(0)}

	changed := fine.Apply(&loan, fine.Assess(loan, ts(3), rates))
	assert.True(t, changed)
	assert.Equal(t, 3, loan.OverdueDays)
	assert.Equal(t, int64(3), loan.Fine)

	changed = fine.Apply(&loan, fine.Assess(loan, ts(3), rates))
	assert.False(t, changed)
}
