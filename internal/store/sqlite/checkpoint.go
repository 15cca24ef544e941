package sqlite

import (
	"context"
	"fmt"
)

// Checkpoint flushes the write-ahead log into the main database file.
func (s *Store) Checkpoint(ctx context.Context) error {
	var busy, logFrames, checkpointed int
	err := s.db.QueryRowContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`).
		Scan(&busy, &logFrames, &checkpointed)
	if err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	if busy != 0 {
		return fmt.Errorf("wal checkpoint: database busy")
	}
	s.logger.Debug("wal checkpoint", "frames", logFrames, "checkpointed", checkpointed)
	return nil
}
