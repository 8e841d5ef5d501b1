package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	"gatewatch/internal/api"
	"gatewatch/internal/bus"
	"gatewatch/internal/events"
)

const (
	defaultFirmwareCheckInterval  = 12 * time.Hour
	defaultFirmwareRequestTimeout = 15 * time.Second
)

// FirmwareRelease contains one published firmware release.
type FirmwareRelease struct {
	Version     string
	Notes       string
	URL         string
	PublishedAt time.Time
}

// FirmwareSnapshot stores a single successful firmware check result.
type FirmwareSnapshot struct {
	InstalledVersion string
	Latest           FirmwareRelease
	Releases         []FirmwareRelease
	UpdateAvailable  bool
	CheckedAt        time.Time
}

// FirmwareCheckerConfig customizes firmware checker behavior.
type FirmwareCheckerConfig struct {
	Endpoint   string
	API        *api.Client
	Bus        bus.MessageBus
	HTTPClient *http.Client
	Interval   time.Duration
	Logger     *slog.Logger
}

// FirmwareChecker periodically compares the router firmware version against
// the vendor release feed and publishes snapshots of the result.
type FirmwareChecker struct {
	endpoint string
	api      *api.Client
	bus      bus.MessageBus
	client   *http.Client
	interval time.Duration
	logger   *slog.Logger

	snapshots chan FirmwareSnapshot

	mu          sync.RWMutex
	latest      FirmwareSnapshot
	latestKnown bool

	startOnce sync.Once
}

type firmwareFeedRelease struct {
	Version     string    `json:"version"`
	Notes       string    `json:"notes"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

func NewFirmwareChecker(cfg FirmwareCheckerConfig) *FirmwareChecker {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultFirmwareRequestTimeout}
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultFirmwareCheckInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "app.firmware_checker")
	}

	return &FirmwareChecker{
		endpoint:  strings.TrimSpace(cfg.Endpoint),
		api:       cfg.API,
		bus:       cfg.Bus,
		client:    client,
		interval:  interval,
		logger:    logger,
		snapshots: make(chan FirmwareSnapshot, 1),
	}
}

func (c *FirmwareChecker) Start(ctx context.Context) {
	if c == nil || c.api == nil || c.endpoint == "" {
		return
	}

	c.startOnce.Do(func() {
		go c.run(ctx)
	})
}

func (c *FirmwareChecker) Snapshots() <-chan FirmwareSnapshot {
	if c == nil {
		return nil
	}

	return c.snapshots
}

func (c *FirmwareChecker) CurrentSnapshot() (FirmwareSnapshot, bool) {
	if c == nil {
		return FirmwareSnapshot{}, false
	}

	c.mu.RLock()
	snapshot := c.latest
	known := c.latestKnown
	c.mu.RUnlock()

	return snapshot, known
}

func (c *FirmwareChecker) run(ctx context.Context) {
	c.logger.Info("firmware checker started", "endpoint", c.endpoint, "interval", c.interval.String())

	if err := c.checkAndPublish(ctx); err != nil {
		c.logger.Warn("check for firmware updates", "error", err)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("firmware checker stopped")

			return
		case <-ticker.C:
			if err := c.checkAndPublish(ctx); err != nil {
				c.logger.Warn("check for firmware updates", "error", err)
			}
		}
	}
}

func (c *FirmwareChecker) checkAndPublish(ctx context.Context) error {
	snapshot, err := c.fetchSnapshot(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.latest = snapshot
	c.latestKnown = true
	c.mu.Unlock()

	c.publish(snapshot)
	if snapshot.UpdateAvailable && c.bus != nil {
		c.bus.Publish(events.TopicFirmwareUpdate, events.FirmwareUpdate{
			CurrentVersion: snapshot.InstalledVersion,
			LatestVersion:  snapshot.Latest.Version,
			ReleaseURL:     snapshot.Latest.URL,
			CheckedAt:      snapshot.CheckedAt,
		})
	}
	c.logger.Info(
		"firmware check completed",
		"checked_at", snapshot.CheckedAt.Format(time.RFC3339),
		"installed_version", snapshot.InstalledVersion,
		"latest_version", snapshot.Latest.Version,
		"update_available", snapshot.UpdateAvailable,
	)

	return nil
}

func (c *FirmwareChecker) publish(snapshot FirmwareSnapshot) {
	select {
	case c.snapshots <- snapshot:
		return
	default:
	}

	select {
	case <-c.snapshots:
	default:
	}

	select {
	case c.snapshots <- snapshot:
	default:
		c.logger.Debug("skipped firmware snapshot publish after replace attempt")
	}
}

func (c *FirmwareChecker) fetchSnapshot(ctx context.Context) (FirmwareSnapshot, error) {
	info, err := c.api.SystemInfo(ctx)
	if err != nil {
		return FirmwareSnapshot{}, fmt.Errorf("fetch system info: %w", err)
	}

	releases, err := c.fetchReleases(ctx, info.Model)
	if err != nil {
		return FirmwareSnapshot{}, err
	}
	if len(releases) == 0 {
		return FirmwareSnapshot{}, fmt.Errorf("firmware feed response is empty")
	}

	latest := releases[0]
	updateAvailable := isFirmwareNewer(info.FirmwareVersion, latest.Version)

	return FirmwareSnapshot{
		InstalledVersion: strings.TrimSpace(info.FirmwareVersion),
		Latest:           latest,
		Releases:         releases,
		UpdateAvailable:  updateAvailable,
		CheckedAt:        time.Now().UTC(),
	}, nil
}

func (c *FirmwareChecker) fetchReleases(ctx context.Context, model string) ([]FirmwareRelease, error) {
	endpoint := c.endpoint
	if model = strings.TrimSpace(model); model != "" {
		endpoint = strings.ReplaceAll(endpoint, "{model}", model)
	}
	c.logger.Debug("requesting firmware releases", "endpoint", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create firmware feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request firmware feed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		trimmedBody := strings.TrimSpace(string(body))
		if trimmedBody == "" {
			return nil, fmt.Errorf("request firmware feed: unexpected status %d", resp.StatusCode)
		}

		return nil, fmt.Errorf("request firmware feed: unexpected status %d: %s", resp.StatusCode, trimmedBody)
	}

	var payload []firmwareFeedRelease
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode firmware feed response: %w", err)
	}

	releases := make([]FirmwareRelease, 0, len(payload))
	for _, item := range payload {
		version := strings.TrimSpace(item.Version)
		if version == "" {
			continue
		}
		releases = append(releases, FirmwareRelease{
			Version:     version,
			Notes:       strings.TrimSpace(item.Notes),
			URL:         strings.TrimSpace(item.URL),
			PublishedAt: item.PublishedAt,
		})
	}

	return releases, nil
}

func isFirmwareNewer(installedVersion string, latestVersion string) bool {
	installed := normalizeSemver(installedVersion)
	latest := normalizeSemver(latestVersion)

	if !semver.IsValid(latest) {
		return false
	}
	if !semver.IsValid(installed) {
		return true
	}

	return semver.Compare(installed, latest) < 0
}

func normalizeSemver(version string) string {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "v") {
		return "v" + trimmed
	}

	return trimmed
}
