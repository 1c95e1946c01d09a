package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresSchema creates the books table. It mirrors db/migrations.
const PostgresSchema = `
	CREATE TABLE IF NOT EXISTS books (
		id SERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		author VARCHAR(255) NOT NULL,
		isbn VARCHAR(20) UNIQUE,
		published_year INTEGER,
		genre VARCHAR(100),
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

const bookColumns = `id, title, author, isbn, published_year, genre, description, created_at, updated_at`

// DB is the subset of *pgxpool.Pool used by PostgresRepo.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

var _ Store = (*PostgresRepo)(nil)

type PostgresRepo struct {
	db      DB
	timeout time.Duration
}

func NewPostgresRepo(db DB, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) List(ctx context.Context) ([]Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, `SELECT `+bookColumns+` FROM books ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRow(timeoutCtx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	return scanOne(row)
}

func (r *PostgresRepo) Create(ctx context.Context, in Input) (Book, error) {
	const sql = `
		INSERT INTO books (title, author, isbn, published_year, genre, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + bookColumns

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRow(timeoutCtx, sql,
		in.Title, in.Author, in.ISBN, in.PublishedYear, in.Genre, in.Description,
	)
	return scanOne(row)
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, in Input) (Book, error) {
	const sql = `
		UPDATE books SET
			title = $1,
			author = $2,
			isbn = $3,
			published_year = $4,
			genre = $5,
			description = $6,
			updated_at = NOW()
		WHERE id = $7
		RETURNING ` + bookColumns

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRow(timeoutCtx, sql,
		in.Title, in.Author, in.ISBN, in.PublishedYear, in.Genre, in.Description, id,
	)
	return scanOne(row)
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRow(timeoutCtx, `DELETE FROM books WHERE id = $1 RETURNING `+bookColumns, id)
	return scanOne(row)
}

// Ping runs the liveness query used by the readiness probe.
func (r *PostgresRepo) Ping(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var one int
	return r.db.QueryRow(timeoutCtx, `SELECT 1`).Scan(&one)
}

func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Exec(timeoutCtx, PostgresSchema); err != nil {
		return fmt.Errorf("create books table: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int
	err := r.db.QueryRow(timeoutCtx, `SELECT COUNT(*) FROM books`).Scan(&count)
	return count, err
}

func (r *PostgresRepo) Seed(ctx context.Context, books []Input) (int, error) {
	const sql = `
		INSERT INTO books (title, author, isbn, published_year, genre, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (isbn) DO NOTHING`

	batch := &pgx.Batch{}
	for _, in := range books {
		batch.Queue(sql, in.Title, in.Author, in.ISBN, in.PublishedYear, in.Genre, in.Description)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	results := r.db.SendBatch(timeoutCtx, batch)
	defer results.Close()

	inserted := 0
	for range books {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("seed books: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// BulkInsert loads books with the COPY protocol. Unlike Seed it does not
// skip conflicts: a duplicate isbn aborts the whole copy. The per-call timeout
// is not applied since large loads outlive it.
func (r *PostgresRepo) BulkInsert(ctx context.Context, books []Input) (int64, error) {
	now := time.Now()
	n, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"books"},
		[]string{"title", "author", "isbn", "published_year", "genre", "description", "created_at", "updated_at"},
		pgx.CopyFromSlice(len(books), func(i int) ([]any, error) {
			in := books[i]
			return []any{in.Title, in.Author, in.ISBN, in.PublishedYear, in.Genre, in.Description, now, now}, nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("copy books: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN, &b.PublishedYear, &b.Genre, &b.Description,
		&b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func scanOne(row pgx.Row) (Book, error) {
	b, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}
