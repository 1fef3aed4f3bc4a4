package domain

import "time"

// Book is one catalog title and its copy counts. AvailableCopies is mutated
// only by the ledger's issue/return transitions and always stays within
// [0, TotalCopies].
type Book struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

// Student is static reference data; the ledger never mutates it.
type Student struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Loan records the issuance of one book copy to one student. OverdueDays and
// Fine are derived fields: they are recomputed from the dates and the lost
// flag before any read that reports them.
type Loan struct {
	ID          int64      `json:"id"`
	BookID      int64      `json:"book_id"`
	StudentID   int64      `json:"student_id"`
	IssueDate   time.Time  `json:"issue_date"`
	DueDate     time.Time  `json:"due_date"`
	ReturnDate  *time.Time `json:"return_date,omitempty"`
	Lost        bool       `json:"lost"`
	OverdueDays int        `json:"overdue_days"`
	Fine        int64      `json:"fine"`
}

// Open reports whether the loan is still outstanding.
func (l Loan) Open() bool {
	return l.ReturnDate == nil
}

// OpenLoan is a loan joined with the reference data needed for debt rows.
type OpenLoan struct {
	Loan
	StudentName string `json:"student_name"`
	BookTitle   string `json:"book_title"`
}

// Debt is one row of the debtor listing.
type Debt struct {
	LoanID      int64     `json:"loan_id"`
	StudentID   int64     `json:"student_id"`
	StudentName string    `json:"student_name"`
	BookID      int64     `json:"book_id"`
	BookTitle   string    `json:"book_title"`
	DueDate     time.Time `json:"due_date"`
	OverdueDays int       `json:"overdue_days"`
	Fine        int64     `json:"fine"`
}
