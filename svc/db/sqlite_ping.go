package db

import (
	"context"

	"github.com/pkg/errors"
)

// Ping verifies the handle can actually run a query, not just that the
// pool is open.
func (s *SQLite) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return errors.Wrap(err, "db ping")
	}
	return nil
}
