package book

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no book matches the requested id.
var ErrNotFound = errors.New("book not found")

// Book represents a row of the books table.
type Book struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	ISBN          *string   `json:"isbn"`
	PublishedYear *int      `json:"published_year"`
	Genre         *string   `json:"genre"`
	Description   *string   `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Input carries the mutable fields of a book for create and update.
// Update replaces every field, so a nil pointer clears the column.
type Input struct {
	Title         string
	Author        string
	ISBN          *string
	PublishedYear *int
	Genre         *string
	Description   *string
}

// InputFrom copies the mutable fields of b.
func InputFrom(b Book) Input {
	return Input{
		Title:         b.Title,
		Author:        b.Author,
		ISBN:          b.ISBN,
		PublishedYear: b.PublishedYear,
		Genre:         b.Genre,
		Description:   b.Description,
	}
}

// Classics are inserted by the schema initializer into an empty table.
var Classics = []Input{
	{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", ISBN: ptr("9780743273565"), PublishedYear: ptr(1925), Genre: ptr("Fiction")},
	{Title: "To Kill a Mockingbird", Author: "Harper Lee", ISBN: ptr("9780061120084"), PublishedYear: ptr(1960), Genre: ptr("Fiction")},
	{Title: "1984", Author: "George Orwell", ISBN: ptr("9780451524935"), PublishedYear: ptr(1949), Genre: ptr("Dystopian Fiction")},
	{Title: "Pride and Prejudice", Author: "Jane Austen", ISBN: ptr("9780141439518"), PublishedYear: ptr(1813), Genre: ptr("Romance")},
}

func ptr[T any](v T) *T { return &v }

// Deref returns the pointed-to value or the zero value for nil. Templates use
// it to print optional columns.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
