package book

import (
	"context"
	"fmt"
)

// Service provides the book operations shared by the web and API handlers.
// Outcomes are a Book, ErrNotFound, a *ValidationError, or a store error.
type Service struct {
	repo Repository
}

// NewService creates a new book service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns every book ordered by id.
func (s *Service) List(ctx context.Context) ([]Book, error) {
	books, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

// Get returns the book with the given id.
func (s *Service) Get(ctx context.Context, id int64) (Book, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Book{}, fmt.Errorf("get book %d: %w", id, err)
	}
	return b, nil
}

// Create validates in against rules and inserts it.
func (s *Service) Create(ctx context.Context, in Input, rules Rules) (Book, error) {
	if err := rules.Validate(in); err != nil {
		return Book{}, err
	}
	b, err := s.repo.Create(ctx, in)
	if err != nil {
		return Book{}, fmt.Errorf("create book: %w", err)
	}
	return b, nil
}

// Update replaces the mutable fields of an existing book. Existence is
// checked before validation, so a missing id wins over bad input. The
// existing row is returned alongside a validation error for re-rendering.
func (s *Service) Update(ctx context.Context, id int64, in Input, rules Rules) (Book, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return Book{}, err
	}
	if err := rules.Validate(in); err != nil {
		return existing, err
	}
	b, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Book{}, fmt.Errorf("update book %d: %w", id, err)
	}
	return b, nil
}

// Delete removes an existing book and returns its last state.
func (s *Service) Delete(ctx context.Context, id int64) (Book, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return Book{}, err
	}
	b, err := s.repo.Delete(ctx, id)
	if err != nil {
		return Book{}, fmt.Errorf("delete book %d: %w", id, err)
	}
	return b, nil
}
