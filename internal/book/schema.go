package book

import (
	"context"
	"fmt"

	"bookshelf/internal/platform/database"

	"go.uber.org/zap"
)

// Initializer prepares the books table at process start: it waits for the
// database, creates the table if absent and seeds it when empty.
//
// The count check and the seed insert are separate statements, so two
// initializers racing on an empty table may both seed; the isbn conflict
// clause keeps that from duplicating rows. One initializer per deployment is
// assumed.
type Initializer struct {
	store  SchemaStore
	policy database.RetryPolicy
	seed   []Input
	logger *zap.Logger
}

func NewInitializer(store SchemaStore, policy database.RetryPolicy, logger *zap.Logger) *Initializer {
	return &Initializer{
		store:  store,
		policy: policy,
		seed:   Classics,
		logger: logger,
	}
}

// Run returns an error wrapping database.ErrNotReady when the database never
// answered, or the first schema/seed failure.
func (i *Initializer) Run(ctx context.Context) error {
	if err := database.WaitReady(ctx, i.store, i.policy, i.logger); err != nil {
		return err
	}

	if err := i.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	i.logger.Info("books table ready")

	count, err := i.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count books: %w", err)
	}
	if count > 0 {
		i.logger.Info("books table already contains data", zap.Int("count", count))
		return nil
	}

	inserted, err := i.store.Seed(ctx, i.seed)
	if err != nil {
		return fmt.Errorf("insert sample data: %w", err)
	}
	i.logger.Info("sample data inserted", zap.Int("inserted", inserted))
	return nil
}
