package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gatewatch/internal/api"
)

func TestIsFirmwareNewer_ComparesSemverWithAndWithoutPrefix(t *testing.T) {
	cases := []struct {
		installed string
		latest    string
		want      bool
	}{
		{"1.2.0", "1.3.0", true},
		{"v1.2.0", "1.3.0", true},
		{"1.3.0", "v1.3.0", false},
		{"2.0.0", "1.9.9", false},
		{"", "1.0.0", true},
		{"garbage", "1.0.0", true},
		{"1.0.0", "garbage", false},
		{"1.0.0", "", false},
	}

	for _, tc := range cases {
		if got := isFirmwareNewer(tc.installed, tc.latest); got != tc.want {
			t.Fatalf("isFirmwareNewer(%q, %q) = %v, want %v", tc.installed, tc.latest, got, tc.want)
		}
	}
}

func TestFetchSnapshot_ReportsUpdateFromFeed(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.SystemInfo{Model: "gw-pro", FirmwareVersion: "1.2.0"})
	}))
	t.Cleanup(backend.Close)

	var requestedPath string
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		_ = json.NewEncoder(w).Encode([]firmwareFeedRelease{
			{Version: "1.4.0", URL: "https://example.test/fw/1.4.0"},
			{Version: "1.3.0"},
		})
	}))
	t.Cleanup(feed.Close)

	client, err := api.NewClient(api.ClientConfig{
		BaseURL: backend.URL,
		Token:   func() string { return "token" },
	})
	if err != nil {
		t.Fatalf("create api client: %v", err)
	}

	checker := NewFirmwareChecker(FirmwareCheckerConfig{
		Endpoint: feed.URL + "/firmware/{model}/releases.json",
		API:      client,
	})

	snapshot, err := checker.fetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if requestedPath != "/firmware/gw-pro/releases.json" {
		t.Fatalf("expected model substituted into feed path, got %q", requestedPath)
	}
	if !snapshot.UpdateAvailable {
		t.Fatalf("expected update to be available")
	}
	if snapshot.Latest.Version != "1.4.0" {
		t.Fatalf("expected first feed entry as latest, got %q", snapshot.Latest.Version)
	}
	if snapshot.InstalledVersion != "1.2.0" {
		t.Fatalf("expected installed version from system info, got %q", snapshot.InstalledVersion)
	}
}

func TestFetchSnapshot_NoUpdateWhenInstalledIsCurrent(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.SystemInfo{Model: "gw-pro", FirmwareVersion: "1.4.0"})
	}))
	t.Cleanup(backend.Close)

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]firmwareFeedRelease{{Version: "1.4.0"}})
	}))
	t.Cleanup(feed.Close)

	client, err := api.NewClient(api.ClientConfig{
		BaseURL: backend.URL,
		Token:   func() string { return "token" },
	})
	if err != nil {
		t.Fatalf("create api client: %v", err)
	}

	checker := NewFirmwareChecker(FirmwareCheckerConfig{Endpoint: feed.URL, API: client})

	snapshot, err := checker.fetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if snapshot.UpdateAvailable {
		t.Fatalf("expected no update when firmware is current")
	}
}

func TestFetchSnapshot_EmptyFeedIsAnError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.SystemInfo{FirmwareVersion: "1.0.0"})
	}))
	t.Cleanup(backend.Close)

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]firmwareFeedRelease{})
	}))
	t.Cleanup(feed.Close)

	client, err := api.NewClient(api.ClientConfig{
		BaseURL: backend.URL,
		Token:   func() string { return "token" },
	})
	if err != nil {
		t.Fatalf("create api client: %v", err)
	}

	checker := NewFirmwareChecker(FirmwareCheckerConfig{Endpoint: feed.URL, API: client})

	if _, err := checker.fetchSnapshot(context.Background()); err == nil {
		t.Fatalf("expected error for empty feed")
	}
}
