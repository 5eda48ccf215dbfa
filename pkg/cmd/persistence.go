package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lumenlms/approvalflow/pkg/persistence"
	"github.com/lumenlms/approvalflow/pkg/persistence/file"
	"github.com/lumenlms/approvalflow/pkg/persistence/postgresql"
)

// NewPersistence selects the persistence implementation from the database
// URL scheme: postgres:// and postgresql:// go to PostgreSQL, everything
// else is treated as a file root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	scheme, _, _ := strings.Cut(databaseURL, "://")

	switch scheme {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create PostgreSQL persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}
