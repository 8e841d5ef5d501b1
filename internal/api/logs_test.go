package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"gatewatch/internal/domain"
)

func TestLogs_PassesCursorAndLimit(t *testing.T) {
	var gotAfter, gotLimit string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAfter = r.URL.Query().Get("after")
		gotLimit = r.URL.Query().Get("limit")
		_ = json.NewEncoder(w).Encode([]domain.LogEntry{{Seq: 43, Message: "dhcp lease renewed"}})
	})
	client, _ := newTestClient(t, handler, "token", nil)

	entries, err := client.Logs(context.Background(), 42, 100)
	if err != nil {
		t.Fatalf("fetch logs: %v", err)
	}
	if gotAfter != "42" || gotLimit != "100" {
		t.Fatalf("expected cursor and limit in query, got after=%q limit=%q", gotAfter, gotLimit)
	}
	if len(entries) != 1 || entries[0].Seq != 43 {
		t.Fatalf("unexpected entries: %v", entries)
	}
}

func TestFollowLogs_AdvancesCursorAcrossPolls(t *testing.T) {
	var mu sync.Mutex
	var afters []string
	pages := [][]domain.LogEntry{
		{{Seq: 1, Message: "one"}, {Seq: 2, Message: "two"}},
		{{Seq: 3, Message: "three"}},
		{},
	}
	var poll int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		afters = append(afters, r.URL.Query().Get("after"))
		page := []domain.LogEntry{}
		if poll < len(pages) {
			page = pages[poll]
		}
		poll++
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(page)
	})
	client, _ := newTestClient(t, handler, "token", nil)

	ctx, cancel := context.WithCancel(context.Background())
	var emitted []int64
	done := make(chan error, 1)
	go func() {
		done <- client.FollowLogs(ctx, 0, 5*time.Millisecond, func(entry domain.LogEntry) {
			mu.Lock()
			emitted = append(emitted, entry.Seq)
			if len(emitted) == 3 {
				cancel()
			}
			mu.Unlock()
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for follow loop to stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(emitted) != 3 {
		t.Fatalf("expected three emitted entries, got %v", emitted)
	}
	if len(afters) < 2 {
		t.Fatalf("expected at least two polls, got %v", afters)
	}
	if afters[0] != "" {
		t.Fatalf("expected first poll without cursor, got %q", afters[0])
	}
	if afters[1] != "2" {
		t.Fatalf("expected cursor to advance to last seq, got %q", afters[1])
	}
}

func TestFollowLogs_StopsOnUnauthorized(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	client, _ := newTestClient(t, handler, "stale", nil)

	err := client.FollowLogs(context.Background(), 0, time.Millisecond, func(domain.LogEntry) {
		t.Fatalf("expected no entries")
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func newPortScanServer(t *testing.T, states []domain.PortScanState) *Client {
	t.Helper()
	var mu sync.Mutex
	var polls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(domain.PortScanStatus{ID: "scan-1", State: domain.PortScanStatePending})

			return
		}
		mu.Lock()
		idx := polls
		if idx >= len(states) {
			idx = len(states) - 1
		}
		polls++
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(domain.PortScanStatus{
			ID:        "scan-1",
			State:     states[idx],
			OpenPorts: []int{22, 443},
		})
	})
	client, _ := newTestClient(t, handler, "token", nil)

	return client
}

func TestWaitForPortScan_PollsUntilTerminalState(t *testing.T) {
	client := newPortScanServer(t, []domain.PortScanState{
		domain.PortScanStatePending,
		domain.PortScanStateRunning,
		domain.PortScanStateDone,
	})

	started, err := client.StartPortScan(context.Background(), "192.168.1.50")
	if err != nil {
		t.Fatalf("start scan: %v", err)
	}
	if started.ID != "scan-1" {
		t.Fatalf("unexpected scan id: %q", started.ID)
	}

	var seen []domain.PortScanState
	status, err := client.WaitForPortScan(context.Background(), started.ID, time.Millisecond, func(s domain.PortScanStatus) {
		seen = append(seen, s.State)
	})
	if err != nil {
		t.Fatalf("wait for scan: %v", err)
	}
	if status.State != domain.PortScanStateDone {
		t.Fatalf("expected done state, got %v", status.State)
	}
	if len(status.OpenPorts) != 2 {
		t.Fatalf("expected open ports in final status, got %v", status.OpenPorts)
	}
	if len(seen) < 3 {
		t.Fatalf("expected progress callbacks for each poll, got %v", seen)
	}
}

func TestWaitForPortScan_StopsOnContextCancel(t *testing.T) {
	client := newPortScanServer(t, []domain.PortScanState{domain.PortScanStateRunning})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.WaitForPortScan(ctx, "scan-1", 5*time.Millisecond, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestStartPortScan_RequiresTarget(t *testing.T) {
	client := newPortScanServer(t, []domain.PortScanState{domain.PortScanStateDone})

	if _, err := client.StartPortScan(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty target")
	}
}
