package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taskweave/taskweave/pkg/history"
	"github.com/taskweave/taskweave/pkg/persistence"
	"github.com/taskweave/taskweave/pkg/persistence/file"
	"github.com/taskweave/taskweave/pkg/persistence/postgresql"
)

// NewPersistence picks the workflow store from the database URL scheme:
// postgres URLs get the SQL store, anything else is treated as a file
// root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

// NewHistoryStore picks the execution history store the same way.
func NewHistoryStore(ctx context.Context, logger *slog.Logger, databaseURL string) (history.Store, error) {
	switch parseProvider(databaseURL) {
	case "postgres":
		return history.NewPostgresStore(ctx, logger, databaseURL)
	default:
		return history.NewFileStore(databaseURL), nil
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	if provider == "postgres" || provider == "postgresql" {
		return "postgres"
	}

	return provider
}
