package book

import (
	"context"
)

//go:generate mockgen -destination=mock_repository.go -package=book bookshelf/internal/book Repository

// Repository defines the contract for book data storage. Each method maps to
// a single SQL statement; absent rows are reported as ErrNotFound.
type Repository interface {
	List(ctx context.Context) ([]Book, error)
	GetByID(ctx context.Context, id int64) (Book, error)
	Create(ctx context.Context, in Input) (Book, error)
	Update(ctx context.Context, id int64, in Input) (Book, error)
	Delete(ctx context.Context, id int64) (Book, error)
}

// SchemaStore is the part of a store used once at startup.
type SchemaStore interface {
	Ping(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	// Seed inserts books, skipping any whose isbn already exists, and
	// reports how many rows were inserted.
	Seed(ctx context.Context, books []Input) (int, error)
}

// Store is implemented by PostgresRepo and SQLiteRepo.
type Store interface {
	Repository
	SchemaStore
}
