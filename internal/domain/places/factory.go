package places

import "log/slog"

// NewRepository selects the store implementation at construction time,
// keyed on the runtime environment. Tests and local runs get the in-memory
// store; everything else talks to Postgres.
func NewRepository(env string, pool PGXPool, logger *slog.Logger) Repository {
	if env == "test" {
		return NewMemoryRepository()
	}
	return NewPostgresRepository(pool, logger)
}
