package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteSchema creates the books table for the SQLite store. Timestamps are
// stored as RFC 3339 text.
const SQLiteSchema = `
	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		isbn TEXT UNIQUE,
		published_year INTEGER,
		genre TEXT,
		description TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`

var _ Store = (*SQLiteRepo)(nil)

// SQLiteRepo stores books in SQLite. It backs local runs without Postgres
// and the store tests.
type SQLiteRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db, now: time.Now}
}

// WithClock replaces the timestamp source.
func (r *SQLiteRepo) WithClock(now func() time.Time) *SQLiteRepo {
	r.now = now
	return r
}

func (r *SQLiteRepo) timestamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

func (r *SQLiteRepo) List(ctx context.Context) ([]Book, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanSQLiteBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) GetByID(ctx context.Context, id int64) (Book, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	return scanSQLiteOne(row)
}

func (r *SQLiteRepo) Create(ctx context.Context, in Input) (Book, error) {
	const query = `
		INSERT INTO books (title, author, isbn, published_year, genre, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + bookColumns

	ts := r.timestamp()
	row := r.db.QueryRowContext(ctx, query,
		in.Title, in.Author, nullable(in.ISBN), nullable(in.PublishedYear), nullable(in.Genre), nullable(in.Description), ts, ts,
	)
	return scanSQLiteOne(row)
}

func (r *SQLiteRepo) Update(ctx context.Context, id int64, in Input) (Book, error) {
	const query = `
		UPDATE books SET
			title = ?,
			author = ?,
			isbn = ?,
			published_year = ?,
			genre = ?,
			description = ?,
			updated_at = ?
		WHERE id = ?
		RETURNING ` + bookColumns

	row := r.db.QueryRowContext(ctx, query,
		in.Title, in.Author, nullable(in.ISBN), nullable(in.PublishedYear), nullable(in.Genre), nullable(in.Description), r.timestamp(), id,
	)
	return scanSQLiteOne(row)
}

func (r *SQLiteRepo) Delete(ctx context.Context, id int64) (Book, error) {
	row := r.db.QueryRowContext(ctx, `DELETE FROM books WHERE id = ? RETURNING `+bookColumns, id)
	return scanSQLiteOne(row)
}

func (r *SQLiteRepo) Ping(ctx context.Context) error {
	var one int
	return r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
}

func (r *SQLiteRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, SQLiteSchema); err != nil {
		return fmt.Errorf("create books table: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&count)
	return count, err
}

func (r *SQLiteRepo) Seed(ctx context.Context, books []Input) (int, error) {
	const query = `
		INSERT INTO books (title, author, isbn, published_year, genre, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (isbn) DO NOTHING`

	inserted := 0
	for _, in := range books {
		ts := r.timestamp()
		res, err := r.db.ExecContext(ctx, query,
			in.Title, in.Author, nullable(in.ISBN), nullable(in.PublishedYear), nullable(in.Genre), nullable(in.Description), ts, ts,
		)
		if err != nil {
			return inserted, fmt.Errorf("seed books: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("seed books: %w", err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

func scanSQLiteBook(row rowScanner) (Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN, &b.PublishedYear, &b.Genre, &b.Description,
		textTime{&b.CreatedAt}, textTime{&b.UpdatedAt},
	)
	return b, err
}

func scanSQLiteOne(row *sql.Row) (Book, error) {
	b, err := scanSQLiteBook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

// nullable unwraps optional fields into driver values.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// textTime scans an RFC 3339 text column into a time.Time.
type textTime struct {
	t *time.Time
}

func (tt textTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*tt.t = v
		return nil
	case string:
		return tt.parse(v)
	case []byte:
		return tt.parse(string(v))
	case nil:
		*tt.t = time.Time{}
		return nil
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
}

func (tt textTime) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("scan timestamp: %w", err)
	}
	*tt.t = t
	return nil
}
