package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gatewatch/internal/domain"
)

func openSpeedtestRepo(t *testing.T) *SpeedtestRepo {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return NewSpeedtestRepo(db)
}

func TestSpeedtestRepoUpsert_UpdatesExistingRow(t *testing.T) {
	ctx := context.Background()
	repo := openSpeedtestRepo(t)
	started := time.Now().Add(-time.Minute).Truncate(time.Millisecond)

	if err := repo.Upsert(ctx, domain.SpeedtestResult{
		ID:        "st-1",
		StartedAt: started,
	}); err != nil {
		t.Fatalf("insert pending result: %v", err)
	}
	if err := repo.Upsert(ctx, domain.SpeedtestResult{
		ID:           "st-1",
		DownloadMbps: 940.2,
		UploadMbps:   87.5,
		PingMs:       3.2,
		Server:       "speedtest.local",
		StartedAt:    started,
		FinishedAt:   started.Add(30 * time.Second),
	}); err != nil {
		t.Fatalf("upsert finished result: %v", err)
	}

	results, err := repo.ListNewestFirst(ctx, 10)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result after upsert, got %d", len(results))
	}
	if results[0].DownloadMbps != 940.2 {
		t.Fatalf("expected updated download speed, got %v", results[0].DownloadMbps)
	}
	if results[0].Server != "speedtest.local" {
		t.Fatalf("expected updated server, got %q", results[0].Server)
	}
}

func TestSpeedtestRepoListNewestFirst_OrdersByFinishTime(t *testing.T) {
	ctx := context.Background()
	repo := openSpeedtestRepo(t)
	now := time.Now().Truncate(time.Millisecond)

	for i, finished := range []time.Time{now.Add(-2 * time.Hour), now, now.Add(-time.Hour)} {
		if err := repo.Upsert(ctx, domain.SpeedtestResult{
			ID:         []string{"st-old", "st-new", "st-mid"}[i],
			StartedAt:  finished.Add(-time.Minute),
			FinishedAt: finished,
		}); err != nil {
			t.Fatalf("upsert result: %v", err)
		}
	}

	results, err := repo.ListNewestFirst(ctx, 2)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected limit to apply, got %d results", len(results))
	}
	if results[0].ID != "st-new" || results[1].ID != "st-mid" {
		t.Fatalf("expected newest-first ordering, got %s then %s", results[0].ID, results[1].ID)
	}
}

func TestSpeedtestRepoDeleteFinishedBefore_KeepsRecentResults(t *testing.T) {
	ctx := context.Background()
	repo := openSpeedtestRepo(t)
	now := time.Now().Truncate(time.Millisecond)

	if err := repo.Upsert(ctx, domain.SpeedtestResult{ID: "st-old", FinishedAt: now.Add(-40 * 24 * time.Hour)}); err != nil {
		t.Fatalf("upsert old result: %v", err)
	}
	if err := repo.Upsert(ctx, domain.SpeedtestResult{ID: "st-new", FinishedAt: now}); err != nil {
		t.Fatalf("upsert new result: %v", err)
	}

	pruned, err := repo.DeleteFinishedBefore(ctx, journalMillis(now.Add(-30*24*time.Hour)))
	if err != nil {
		t.Fatalf("delete finished before: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected one pruned result, got %d", pruned)
	}

	results, err := repo.ListNewestFirst(ctx, 10)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(results) != 1 || results[0].ID != "st-new" {
		t.Fatalf("expected only the recent result to remain, got %v", results)
	}
}
