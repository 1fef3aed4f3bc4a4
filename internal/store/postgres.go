package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/punchamoorthee/loanops/internal/domain"
)

// Postgres implements Store on a pgx connection pool. Composite writes run in
// a transaction and take FOR UPDATE row locks on the rows they mutate, so the
// check-then-mutate sequences stay correct even with multiple API processes
// sharing one database.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Postgres{db: pool}, nil
}

func (s *Postgres) Close() {
	s.db.Close()
}

func (s *Postgres) CreateBook(ctx context.Context, title string, totalCopies int) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		"INSERT INTO books (title, total_copies, available_copies) VALUES ($1, $2, $2) RETURNING id",
		title, totalCopies,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("book insert failed: %w", err)
	}
	return id, nil
}

func (s *Postgres) GetBook(ctx context.Context, id int64) (domain.Book, error) {
	var b domain.Book
	err := s.db.QueryRow(ctx,
		"SELECT id, title, total_copies, available_copies FROM books WHERE id = $1",
		id).Scan(&b.ID, &b.Title, &b.TotalCopies, &b.AvailableCopies)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Book{}, ErrBookNotFound
	}
	if err != nil {
		return domain.Book{}, fmt.Errorf("book query failed: %w", err)
	}
	return b, nil
}

func (s *Postgres) GetStudent(ctx context.Context, id int64) (domain.Student, error) {
	var st domain.Student
	err := s.db.QueryRow(ctx, "SELECT id, name FROM students WHERE id = $1", id).Scan(&st.ID, &st.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Student{}, ErrStudentNotFound
	}
	if err != nil {
		return domain.Student{}, fmt.Errorf("student query failed: %w", err)
	}
	return st, nil
}

func (s *Postgres) GetLoan(ctx context.Context, id int64) (domain.Loan, error) {
	var l domain.Loan
	err := s.db.QueryRow(ctx,
		"SELECT id, book_id, student_id, issue_date, due_date, return_date, lost, overdue_days, fine FROM loans WHERE id = $1",
		id).Scan(&l.ID, &l.BookID, &l.StudentID, &l.IssueDate, &l.DueDate, &l.ReturnDate, &l.Lost, &l.OverdueDays, &l.Fine)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Loan{}, ErrLoanNotFound
	}
	if err != nil {
		return domain.Loan{}, fmt.Errorf("loan query failed: %w", err)
	}
	return l, nil
}

func (s *Postgres) CreateLoan(ctx context.Context, loan domain.Loan) (int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the book row for the check-and-decrement.
	var available int
	err = tx.QueryRow(ctx, "SELECT available_copies FROM books WHERE id = $1 FOR UPDATE", loan.BookID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrBookNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock acquisition failed: %w", err)
	}
	if available <= 0 {
		return 0, ErrNoCopies
	}

	_, err = tx.Exec(ctx, "UPDATE books SET available_copies = available_copies - 1 WHERE id = $1", loan.BookID)
	if err != nil {
		return 0, fmt.Errorf("copy decrement failed: %w", err)
	}

	var id int64
	err = tx.QueryRow(ctx,
		"INSERT INTO loans (book_id, student_id, issue_date, due_date, lost, overdue_days, fine) VALUES ($1, $2, $3, $4, FALSE, 0, 0) RETURNING id",
		loan.BookID, loan.StudentID, loan.IssueDate, loan.DueDate,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("loan insert failed: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("tx commit failed: %w", err)
	}
	return id, nil
}

func (s *Postgres) CompleteLoan(ctx context.Context, loan domain.Loan, restock bool) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the loan row and re-check its state, so a second process racing
	// on the same loan cannot commit a second transition.
	returned, lost, err := lockLoanState(ctx, tx, loan.ID)
	if err != nil {
		return err
	}
	if returned {
		return ErrLoanClosed
	}
	if lost {
		return ErrLoanLost
	}

	_, err = tx.Exec(ctx,
		"UPDATE loans SET return_date = $2, overdue_days = $3, fine = $4 WHERE id = $1",
		loan.ID, loan.ReturnDate, loan.OverdueDays, loan.Fine,
	)
	if err != nil {
		return fmt.Errorf("loan update failed: %w", err)
	}

	if restock {
		_, err = tx.Exec(ctx, "UPDATE books SET available_copies = available_copies + 1 WHERE id = $1", loan.BookID)
		if err != nil {
			return fmt.Errorf("copy increment failed: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

func (s *Postgres) MarkLoanLost(ctx context.Context, loan domain.Loan) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	returned, lost, err := lockLoanState(ctx, tx, loan.ID)
	if err != nil {
		return err
	}
	if lost {
		return ErrLoanLost
	}
	if returned {
		return ErrLoanClosed
	}

	_, err = tx.Exec(ctx,
		"UPDATE loans SET lost = TRUE, overdue_days = $2, fine = $3 WHERE id = $1",
		loan.ID, loan.OverdueDays, loan.Fine,
	)
	if err != nil {
		return fmt.Errorf("loan update failed: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

func lockLoanState(ctx context.Context, tx pgx.Tx, loanID int64) (returned, lost bool, err error) {
	err = tx.QueryRow(ctx,
		"SELECT return_date IS NOT NULL, lost FROM loans WHERE id = $1 FOR UPDATE",
		loanID).Scan(&returned, &lost)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, false, ErrLoanNotFound
	}
	if err != nil {
		return false, false, fmt.Errorf("lock acquisition failed: %w", err)
	}
	return returned, lost, nil
}

func (s *Postgres) SaveLoanFines(ctx context.Context, loans []domain.Loan) error {
	if len(loans) == 0 {
		return nil
	}

	// The write-back only applies while the loan is still open and not
	// lost: a transition that committed since the recompute set the final
	// fine, and that value must not drift.
	batch := &pgx.Batch{}
	for _, l := range loans {
		batch.Queue("UPDATE loans SET overdue_days = $2, fine = $3 WHERE id = $1 AND return_date IS NULL AND NOT lost", l.ID, l.OverdueDays, l.Fine)
	}

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()
	for range loans {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("fine update failed: %w", err)
		}
	}
	return nil
}

func (s *Postgres) OpenLoans(ctx context.Context) ([]domain.OpenLoan, error) {
	rows, err := s.db.Query(ctx, `
		SELECT l.id, l.book_id, l.student_id, l.issue_date, l.due_date, l.lost, l.overdue_days, l.fine, s.name, b.title
		FROM loans l
		JOIN students s ON s.id = l.student_id
		JOIN books b ON b.id = l.book_id
		WHERE l.return_date IS NULL
		ORDER BY l.id`)
	if err != nil {
		return nil, fmt.Errorf("open loans query failed: %w", err)
	}
	defer rows.Close()

	var out []domain.OpenLoan
	for rows.Next() {
		var ol domain.OpenLoan
		if err := rows.Scan(&ol.ID, &ol.BookID, &ol.StudentID, &ol.IssueDate, &ol.DueDate,
			&ol.Lost, &ol.OverdueDays, &ol.Fine, &ol.StudentName, &ol.BookTitle); err != nil {
			return nil, fmt.Errorf("open loans scan failed: %w", err)
		}
		out = append(out, ol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("open loans query failed: %w", err)
	}
	return out, nil
}
