package memory

import (
	"context"
	"strings"
)

// NewStore picks the backend from configuration: Postgres (native full-text
// ranking) when a database URL is set, otherwise the SQLite file store.
func NewStore(ctx context.Context, databaseURL, sqlitePath string) (Store, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return NewPostgresStore(ctx, databaseURL)
	}
	return NewSQLiteStore(sqlitePath)
}
