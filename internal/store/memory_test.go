package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/loanops/internal/domain"
	"github.com/punchamoorthee/loanops/internal/store"
)

func seedMemory(t *testing.T) (*store.Memory, int64) {
	t.Helper()
	m := store.NewMemory()
	m.AddStudent(domain.Student{ID: 1, Name: "Ada Lovelace"})
	bookID, err := m.CreateBook(context.Background(), "The Go Programming Language", 2)
	require.NoError(t, err)
	return m, bookID
}

func Test_Memory_BookLifecycle(t *testing.T) {
	m, bookID := seedMemory(t)
	ctx := context.Background()

	book, err := m.GetBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 2, book.TotalCopies)
	assert.Equal(t, 2, book.AvailableCopies)

	_, err = m.GetBook(ctx, 999)
	assert.ErrorIs(t, err, store.ErrBookNotFound)
}

func Test_Memory_CreateLoanDecrements(t *testing.T) {
	m, bookID := seedMemory(t)
	ctx := context.Background()
	now := time.Now().UTC()

	loanID, err := m.CreateLoan(ctx, domain.Loan{BookID: bookID, StudentID: 1, IssueDate: now, DueDate: now.AddDate(0, 0, 14)})
	require.NoError(t, err)

	book, err := m.GetBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.AvailableCopies)

	loan, err := m.GetLoan(ctx, loanID)
	require.NoError(t, err)
	assert.True(t, loan.Open())
	assert.False(t, loan.Lost)
}

func Test_Memory_CreateLoanExhaustsCopies(t *testing.T) {
	m, bookID := seedMemory(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := m.CreateLoan(ctx, domain.Loan{BookID: bookID, StudentID: 1})
		require.NoError(t, err)
	}

	_, err := m.CreateLoan(ctx, domain.Loan{BookID: bookID, StudentID: 1})
	assert.ErrorIs(t, err, store.ErrNoCopies)
}

func Test_Memory_CreateLoanUnknownRefs(t *testing.T) {
	m, bookID := seedMemory(t)
	ctx := context.Background()

	_, err := m.CreateLoan(ctx, domain.Loan{BookID: 999, StudentID: 1})
	assert.ErrorIs(t, err, store.ErrBookNotFound)

	_, err = m.CreateLoan(ctx, domain.Loan{BookID: bookID, StudentID: 999})
	assert.ErrorIs(t, err, store.ErrStudentNotFound)
}

func Test_Memory_CompleteLoanRestocks(t *testing.T) {
	m, bookID := seedMemory(t)
	ctx := context.Background()

	loanID, err := m.CreateLoan(ctx, domain.Loan{BookID: bookID, StudentID: 1})
	require.NoError(t, err)

	loan, err := m.GetLoan(ctx, loanID)
	require.NoError(t, err)

	now := time.Now().UTC()
	loan.ReturnDate = &now
	loan.OverdueDays = 3
	loan.Fine = 3
	require.NoError(t, m.CompleteLoan(ctx, loan, true))

	book, err := m.GetBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 2, book.AvailableCopies)

	got, err := m.GetLoan(ctx, loanID)
	require.NoError(t, err)
	assert.False(t, got.Open())
	assert.Equal(t, int64(3), got.Fine)
}

func Test_Memory_MarkLoanLostKeepsCopyOut(t *testing.T) {
	m, bookID := seedMemory(t)
	ctx := context.Background()

	loanID, err := m.CreateLoan(ctx, domain.Loan{BookID: bookID, StudentID: 1})
	require.NoError(t, err)

	loan, err := m.GetLoan(ctx, loanID)
	require.NoError(t, err)
	loan.Fine = 100
	require.NoError(t, m.MarkLoanLost(ctx, loan))

	book, err := m.GetBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.AvailableCopies)

	got, err := m.GetLoan(ctx, loanID)
	require.NoError(t, err)
	assert.True(t, got.Lost)
	assert.Equal(t, int64(100), got.Fine)
}

func Test_Memory_OpenLoansJoinsReferenceData(t *testing.T) {
	m, bookID := seedMemory(t)
	ctx := context.Background()

	first, err := m.CreateLoan(ctx, domain.Loan{BookID: bookID, StudentID: 1})
	require.NoError(t, err)
	second, err := m.CreateLoan(ctx, domain.Loan{BookID: bookID, StudentID: 1})
	require.NoError(t, err)

	loan, err := m.GetLoan(ctx, second)
	require.NoError(t, err)
	now := time.Now().UTC()
	loan.ReturnDate = &now
	require.NoError(t, m.CompleteLoan(ctx, loan, true))

	open, err := m.OpenLoans(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, first, open[0].ID)
	assert.Equal(t, "Ada Lovelace", open[0].StudentName)
	assert.Equal(t, "The Go Programming Language", open[0].BookTitle)
}

func Test_Memory_SaveLoanFines(t *testing.T) {
	m, bookID := seedMemory(t)
	ctx := context.Background()

	loanID, err := m.CreateLoan(ctx, domain.Loan{BookID: bookID, StudentID: 1})
	require.NoError(t, err)

	require.NoError(t, m.SaveLoanFines(ctx, []domain.Loan{{ID: loanID, OverdueDays: 7, Fine: 7}}))

	got, err := m.GetLoan(ctx, loanID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.OverdueDays)
	assert.Equal(t, int64(7), got.Fine)

	assert.ErrorIs(t, m.SaveLoanFines(ctx, []domain.Loan{{ID: 999}}), store.ErrLoanNotFound)
}

func Test_Memory_CompleteLoanRejectsNonOpenLoans(t *testing.T) {
	m, bookID := seedMemory(t)
	ctx := context.Background()

	returnedID, err := m.CreateLoan(ctx, domain.Loan{BookID: bookID, StudentID: 1})
	require.NoError(t, err)
	loan, err := m.GetLoan(ctx, returnedID)
	require.NoError(t, err)
	now := time.Now().UTC()
	loan.ReturnDate = &now
	require.NoError(t, m.CompleteLoan(ctx, loan, true))

	assert.ErrorIs(t, m.CompleteLoan(ctx, loan, true), store.ErrLoanClosed)
	assert.ErrorIs(t, m.MarkLoanLost(ctx, loan), store.ErrLoanClosed)

	lostID, err := m.CreateLoan(ctx, domain.Loan{BookID: bookID, StudentID: 1})
	require.NoError(t, err)
	lost, err := m.GetLoan(ctx, lostID)
	require.NoError(t, err)
	require.NoError(t, m.MarkLoanLost(ctx, lost))

	assert.ErrorIs(t, m.MarkLoanLost(ctx, lost), store.ErrLoanLost)
	lost.ReturnDate = &now
	assert.ErrorIs(t, m.CompleteLoan(ctx, lost, true), store.ErrLoanLost)
}

func Test_Memory_SaveLoanFinesSkipsSettledLoans(t *testing.T) {
	m, bookID := seedMemory(t)
	ctx := context.Background()

	loanID, err := m.CreateLoan(ctx, domain.Loan{BookID: bookID, StudentID: 1})
	require.NoError(t, err)
	loan, err := m.GetLoan(ctx, loanID)
	require.NoError(t, err)
	now := time.Now().UTC()
	loan.ReturnDate = &now
	loan.OverdueDays = 3
	loan.Fine = 3
	require.NoError(t, m.CompleteLoan(ctx, loan, true))

	// A later recompute based on a stale snapshot must not move the fine.
	require.NoError(t, m.SaveLoanFines(ctx, []domain.Loan{{ID: loanID, OverdueDays: 9, Fine: 9}}))

	got, err := m.GetLoan(ctx, loanID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.OverdueDays)
	assert.Equal(t, int64(3), got.Fine)
}
