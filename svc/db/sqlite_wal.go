package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pastebox/svc/util"
)

const (
	checkpointInterval = 5 * time.Minute
	// escalate to TRUNCATE once the log grows past this many pages
	checkpointLogPages = 1000
)

// StartWALMaintenance runs periodic WAL checkpoints until quit is closed,
// then runs a final checkpoint and closes the returned channel.
func StartWALMaintenance(db *sql.DB, quit <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(checkpointInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := checkpointWAL(db); err != nil {
					util.Error().Err(err).Msg("WAL checkpoint failed")
				}
			case <-quit:
				if err := checkpointWAL(db); err != nil {
					util.Error().Err(err).Msg("final WAL checkpoint failed")
				}
				return
			}
		}
	}()
	return done
}
func checkpointWAL(db *sql.DB) error {
	start := time.Now()
	var busyPages, logPages, checkpointed int
	err := db.QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busyPages, &logPages, &checkpointed)
	if err != nil {
		return fmt.Errorf("PASSIVE checkpoint failed: %w", err)
	}
	util.Debug().
		Int("busy", busyPages).
		Int("log", logPages).
		Int("checkpointed", checkpointed).
		Msg("PASSIVE checkpoint result")
	if logPages > checkpointLogPages || busyPages > 0 {
		util.Info().Int("log", logPages).Msg("escalating to TRUNCATE checkpoint")
		if err := db.QueryRow("PRAGMA wal_checkpoint(TRUNCATE)").Scan(&busyPages, &logPages, &checkpointed); err != nil {
			return fmt.Errorf("TRUNCATE checkpoint failed: %w", err)
		}
	}
	if err := verifyIntegrity(db); err != nil {
		util.Error().Err(err).Msg("database integrity check failed after checkpoint")
		return err
	}
	util.Debug().Dur("duration", time.Since(start)).Msg("WAL checkpoint completed")
	return nil
}
func verifyIntegrity(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity_check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity_check returned: %s", result)
	}
	return nil
}
