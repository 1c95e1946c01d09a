package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"bookshelf/internal/book"
	"bookshelf/internal/config"
	"bookshelf/internal/platform/database"
	"bookshelf/internal/platform/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	config.LoadEnvFiles()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	count    int
	classics bool
	dsn      string
	seed     int64
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Load books into the Postgres database",
		Long:         "Bulk-loads synthetic books with COPY, or inserts the four classic sample books with --classics.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVarP(&opts.count, "count", "n", 1000, "number of synthetic books to generate")
	cmd.Flags().BoolVar(&opts.classics, "classics", false, "insert the four classic sample books instead")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "database DSN (defaults to DB_DSN or DB_* settings)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed (0 uses the current time)")
	return cmd
}

func run(ctx context.Context, opts *options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.dsn != "" {
		cfg.DatabaseDSN = opts.dsn
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	pool, err := database.OpenPostgres(ctx, cfg.DatabaseDSN, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := book.NewPostgresRepo(pool, cfg.QueryTimeout)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	if opts.classics {
		inserted, err := repo.Seed(ctx, book.Classics)
		if err != nil {
			return err
		}
		logger.Info("classics inserted", zap.Int("inserted", inserted))
		return nil
	}

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	books := generateBooks(opts.count, rand.New(rand.NewSource(seed)))
	logger.Info("inserting books", zap.Int("count", len(books)), zap.Int64("seed", seed))

	n, err := repo.BulkInsert(ctx, books)
	if err != nil {
		return err
	}

	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info("books inserted", zap.Int64("inserted", n), zap.Int("total", total))
	return nil
}

var (
	genres  = []string{"Fiction", "Science Fiction", "History", "Science", "Technology", "Romance", "Mystery", "Biography", "Philosophy", "Art"}
	authors = []string{"A. Rivera", "B. Okafor", "C. Lindqvist", "D. Tanaka", "E. Moreau", "F. Haddad", "G. Novak", "H. Silva"}
	words   = []string{
		"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
		"Love", "War", "Peace", "Science", "Nature", "Technology", "History", "Future",
		"Past", "Present", "Reality", "Imagination", "Wisdom", "Life", "Death",
		"Light", "Darkness", "World", "Universe", "Time", "Space", "Mind", "Soul",
	}
)

// generateBooks builds n synthetic books. They carry no isbn so repeated runs
// never collide on the unique index.
func generateBooks(n int, rng *rand.Rand) []book.Input {
	books := make([]book.Input, 0, n)
	for i := 0; i < n; i++ {
		year := 1950 + rng.Intn(75)
		genre := genres[rng.Intn(len(genres))]
		topic := words[rng.Intn(len(words))]
		desc := fmt.Sprintf("This is a book about %s. It explores the fundamental concepts and provides insights into the subject matter.", topic)

		books = append(books, book.Input{
			Title:         fmt.Sprintf("Book Title %d - %s", i+1, words[rng.Intn(len(words))]),
			Author:        authors[rng.Intn(len(authors))],
			PublishedYear: &year,
			Genre:         &genre,
			Description:   &desc,
		})
	}
	return books
}
