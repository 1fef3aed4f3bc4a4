package store

// Schema is the DDL for the catalog and loan tables. The seeder applies it;
// statements are idempotent so re-running is safe.
const Schema = `
CREATE TABLE IF NOT EXISTS books (
    id               BIGSERIAL PRIMARY KEY,
    title            TEXT NOT NULL,
    total_copies     INT  NOT NULL DEFAULT 1,
    available_copies INT  NOT NULL DEFAULT 1,
    CHECK (available_copies >= 0 AND available_copies <= total_copies)
);

CREATE TABLE IF NOT EXISTS students (
    id   BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS loans (
    id           BIGSERIAL PRIMARY KEY,
    book_id      BIGINT NOT NULL REFERENCES books (id),
    student_id   BIGINT NOT NULL REFERENCES students (id),
    issue_date   TIMESTAMPTZ NOT NULL,
    due_date     TIMESTAMPTZ NOT NULL,
    return_date  TIMESTAMPTZ,
    lost         BOOLEAN NOT NULL DEFAULT FALSE,
    overdue_days INT     NOT NULL DEFAULT 0,
    fine         BIGINT  NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_loans_open ON loans (book_id) WHERE return_date IS NULL;
`
