package models

import "github.com/punchamoorthee/loanops/internal/domain"

// AddBookRequest is the payload for registering a new title.
type AddBookRequest struct {
	Title       string `json:"title"`
	TotalCopies int    `json:"total_copies"`
}

// AddBookResponse reports the outcome of AddBook.
type AddBookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	BookID  int64  `json:"book_id,omitempty"`
}

// IssueRequest is the payload for issuing a copy to a student.
type IssueRequest struct {
	BookID    int64 `json:"book_id"`
	StudentID int64 `json:"student_id"`
	DaysDue   int   `json:"days_due"`
}

// IssueResponse reports the outcome of IssueBook.
type IssueResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	LoanID  int64  `json:"loan_id,omitempty"`
}

// FineResponse reports the outcome of ReturnBook and ReportLost. Fine is the
// final amount owed for the loan at the moment of the transition.
type FineResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Fine    int64  `json:"fine"`
}

// AvailabilityResponse reports copy counts for one book, zero/zero when the
// book is unknown.
type AvailabilityResponse struct {
	AvailableCopies int `json:"available_copies"`
	TotalCopies     int `json:"total_copies"`
}

// DebtorsResponse is the debtor listing plus its provenance.
type DebtorsResponse struct {
	Debts     []domain.Debt `json:"debts"`
	FromCache bool          `json:"from_cache"`
}

// DebtsResponse is the uncached full debt listing.
type DebtsResponse struct {
	Debts []domain.Debt `json:"debts"`
}
