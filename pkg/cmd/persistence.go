package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bloomcart/marketing-core/pkg/persistence"
	"github.com/bloomcart/marketing-core/pkg/persistence/memory"
	"github.com/bloomcart/marketing-core/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend from the database URL. An empty
// URL or the memory:// scheme selects the in-memory store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case databaseURL == "" || strings.HasPrefix(databaseURL, "memory://"):
		return memory.NewPersistence()
	case strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://"):
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return p
	default:
		panic("unsupported database url: " + databaseURL)
	}
}
