package store

import (
	"context"
	"sort"
	"sync"

	"github.com/punchamoorthee/loanops/internal/domain"
)

// Memory is a thread-safe in-memory Store. It backs the test suites and a
// no-database development mode; its composite writes serialize on one mutex,
// which gives the same all-or-nothing behavior the Postgres implementation
// gets from transactions.
type Memory struct {
	mu       sync.RWMutex
	nextBook int64
	nextLoan int64
	books    map[int64]domain.Book
	students map[int64]domain.Student
	loans    map[int64]domain.Loan
}

func NewMemory() *Memory {
	return &Memory{
		nextBook: 1,
		nextLoan: 1,
		books:    make(map[int64]domain.Book),
		students: make(map[int64]domain.Student),
		loans:    make(map[int64]domain.Loan),
	}
}

// AddStudent registers a student; the ledger itself never creates students.
func (m *Memory) AddStudent(st domain.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[st.ID] = st
}

func (m *Memory) CreateBook(_ context.Context, title string, totalCopies int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextBook
	m.nextBook++
	m.books[id] = domain.Book{ID: id, Title: title, TotalCopies: totalCopies, AvailableCopies: totalCopies}
	return id, nil
}

func (m *Memory) GetBook(_ context.Context, id int64) (domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.books[id]
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return b, nil
}

func (m *Memory) GetStudent(_ context.Context, id int64) (domain.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.students[id]
	if !ok {
		return domain.Student{}, ErrStudentNotFound
	}
	return st, nil
}

func (m *Memory) GetLoan(_ context.Context, id int64) (domain.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.loans[id]
	if !ok {
		return domain.Loan{}, ErrLoanNotFound
	}
	return cloneLoan(l), nil
}

func (m *Memory) CreateLoan(_ context.Context, loan domain.Loan) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, ok := m.books[loan.BookID]
	if !ok {
		return 0, ErrBookNotFound
	}
	if _, ok := m.students[loan.StudentID]; !ok {
		return 0, ErrStudentNotFound
	}
	if book.AvailableCopies <= 0 {
		return 0, ErrNoCopies
	}

	book.AvailableCopies--
	m.books[book.ID] = book

	loan.ID = m.nextLoan
	m.nextLoan++
	loan.ReturnDate = nil
	loan.Lost = false
	loan.OverdueDays = 0
	loan.Fine = 0
	m.loans[loan.ID] = loan
	return loan.ID, nil
}

func (m *Memory) CompleteLoan(_ context.Context, loan domain.Loan, restock bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.loans[loan.ID]
	if !ok {
		return ErrLoanNotFound
	}
	if !stored.Open() {
		return ErrLoanClosed
	}
	if stored.Lost {
		return ErrLoanLost
	}

	stored.ReturnDate = loan.ReturnDate
	stored.OverdueDays = loan.OverdueDays
	stored.Fine = loan.Fine
	m.loans[stored.ID] = stored

	if restock {
		book := m.books[stored.BookID]
		book.AvailableCopies++
		m.books[book.ID] = book
	}
	return nil
}

func (m *Memory) MarkLoanLost(_ context.Context, loan domain.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.loans[loan.ID]
	if !ok {
		return ErrLoanNotFound
	}
	if stored.Lost {
		return ErrLoanLost
	}
	if !stored.Open() {
		return ErrLoanClosed
	}

	stored.Lost = true
	stored.OverdueDays = loan.OverdueDays
	stored.Fine = loan.Fine
	m.loans[stored.ID] = stored
	return nil
}

func (m *Memory) SaveLoanFines(_ context.Context, loans []domain.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range loans {
		stored, ok := m.loans[l.ID]
		if !ok {
			return ErrLoanNotFound
		}
		// A loan that closed or went lost since the recompute keeps its
		// final fine.
		if !stored.Open() || stored.Lost {
			continue
		}
		stored.OverdueDays = l.OverdueDays
		stored.Fine = l.Fine
		m.loans[stored.ID] = stored
	}
	return nil
}

func (m *Memory) OpenLoans(_ context.Context) ([]domain.OpenLoan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.OpenLoan
	for _, l := range m.loans {
		if !l.Open() {
			continue
		}
		out = append(out, domain.OpenLoan{
			Loan:        cloneLoan(l),
			StudentName: m.students[l.StudentID].Name,
			BookTitle:   m.books[l.BookID].Title,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneLoan(l domain.Loan) domain.Loan {
	if l.ReturnDate != nil {
		rd := *l.ReturnDate
		l.ReturnDate = &rd
	}
	return l
}
