package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// PruneHistory removes journal rows older than the retention window.
func PruneHistory(ctx context.Context, speedtests *SpeedtestRepo, metrics *MetricsRepo, retention time.Duration, logger *slog.Logger) error {
	if retention <= 0 {
		return fmt.Errorf("retention must be positive: %s", retention)
	}

	cutoffMs := journalMillis(time.Now().Add(-retention))

	prunedMetrics, err := metrics.DeleteBefore(ctx, cutoffMs)
	if err != nil {
		return err
	}
	prunedSpeedtests, err := speedtests.DeleteFinishedBefore(ctx, cutoffMs)
	if err != nil {
		return err
	}

	if logger != nil && (prunedMetrics > 0 || prunedSpeedtests > 0) {
		logger.Info("pruned history", "metric_samples", prunedMetrics, "speedtests", prunedSpeedtests)
	}

	return nil
}

//goland:noinspection SqlWithoutWhere
var clearDatabaseStatements = []string{
	`DELETE FROM metric_samples;`,
	`DELETE FROM speedtests;`,
}

func ClearDatabase(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database is not initialized")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear database tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range clearDatabaseStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear database tables: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear database tx: %w", err)
	}

	return nil
}
