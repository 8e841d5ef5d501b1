package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gatewatch/internal/api"
	"gatewatch/internal/app"
	"gatewatch/internal/bus"
	"gatewatch/internal/channel"
	"gatewatch/internal/config"
	"gatewatch/internal/domain"
	"gatewatch/internal/events"
	"gatewatch/internal/logging"
	"gatewatch/internal/metrics"
	"gatewatch/internal/notifications"
	"gatewatch/internal/persistence"
	"gatewatch/internal/session"
	"gatewatch/internal/transport"
)

const (
	writerQueueCapacity    = 256
	defaultFirmwareFeedURL = "https://updates.gatewatch.dev/firmware/{model}/releases.json"
)

func main() {
	if err := run(); err != nil {
		slog.Error("run gatewatch", "error", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "", "router backend base URL, e.g. http://192.168.1.1")
	username := flag.String("username", "", "login and store a fresh session before watching")
	password := flag.String("password", "", "password for --username")
	logout := flag.Bool("logout", false, "revoke the stored session and exit")
	resetHistory := flag.Bool("reset-history", false, "drop the local metrics/speedtest journal and exit")
	runSpeedtest := flag.Bool("speedtest", false, "trigger a speedtest after connecting")
	blockMAC := flag.String("block", "", "MAC of a device to block after the inventory loads")
	unblockMAC := flag.String("unblock", "", "MAC of a device to unblock after the inventory loads")
	favoriteMAC := flag.String("favorite", "", "MAC of a device to mark favorite after the inventory loads")
	listenFor := flag.Duration("listen-for", 0, "watch duration, e.g. 30s (default: until interrupt)")
	logNotifications := flag.Bool("log-notifications", false, "write notifications to the log instead of the desktop")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, err := app.ResolvePaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(*server) != "" {
		cfg.Server.BaseURL = strings.TrimSpace(*server)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: set --server or save server.base_url in config: %w", err)
	}

	logMgr := logging.NewManager()
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer func() {
		if closeErr := logMgr.Close(); closeErr != nil {
			slog.Warn("close log manager", "error", closeErr)
		}
	}()
	logger := logMgr.Logger("cli")
	logger.Info("starting gatewatch", "version", app.BuildVersion(), "build_date", app.BuildDateYMD(), "server", cfg.Server.BaseURL)

	db, err := persistence.Open(ctx, paths.DBFile)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("close sqlite", "error", closeErr)
		}
	}()

	if *resetHistory {
		if err := persistence.ClearDatabase(ctx, db); err != nil {
			return fmt.Errorf("reset history: %w", err)
		}
		logger.Info("history cleared")

		return nil
	}

	speedtestRepo := persistence.NewSpeedtestRepo(db)
	metricsRepo := persistence.NewMetricsRepo(db)
	retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
	if err := persistence.PruneHistory(ctx, speedtestRepo, metricsRepo, retention, logMgr.Logger("persistence")); err != nil {
		logger.Warn("prune history", "error", err)
	}

	b := bus.New(logMgr.Logger("bus"))
	defer b.Close()

	sessions := session.NewStore(logMgr.Logger("session"), b, paths.SessionFile)
	if err := sessions.Load(); err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	client, err := api.NewClient(api.ClientConfig{
		BaseURL:            cfg.Server.BaseURL,
		Token:              sessions.Token,
		OnUnauthorized:     func() { sessions.Clear(session.ReasonUnauthorized) },
		InsecureSkipVerify: cfg.Server.InsecureSkipVerify,
		Logger:             logMgr.Logger("api"),
	})
	if err != nil {
		return fmt.Errorf("create api client: %w", err)
	}

	if *logout {
		return doLogout(ctx, logger, client, sessions)
	}

	if strings.TrimSpace(*username) != "" {
		result, err := client.Login(ctx, *username, *password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		if err := sessions.Set(session.Credentials{Token: result.Token, Username: result.Username}); err != nil {
			return fmt.Errorf("store session: %w", err)
		}
		client.ResetSession()
		logger.Info("logged in", "username", result.Username)
	}
	if !sessions.LoggedIn() {
		return fmt.Errorf("no stored session: pass --username and --password to log in")
	}

	writer := persistence.NewWriterQueue(logMgr.Logger("persistence"), writerQueueCapacity)
	writer.Start(ctx)
	domain.StartPersistenceProjection(ctx, b, writer, speedtestRepo, metricsRepo)

	deviceStore := domain.NewDeviceStore()
	deviceStore.Start(ctx, b)
	discovery := app.NewDeviceDiscoveryProjection(deviceStore, logMgr.Logger("app.device_discovery"))
	discovery.Start(ctx, b)

	projection := metrics.NewProjection(logMgr.Logger("metrics"), b)
	projection.Start(ctx)

	var sender notifications.Sender
	if *logNotifications {
		sender = notifications.NewLogSender(logMgr.Logger("notifications"))
	} else {
		sender = notifications.NewDesktopSender(app.Name, logMgr.Logger("notifications"))
	}
	notifier := app.NewNotificationService(b, func() config.AppConfig { return cfg }, sender, logMgr.Logger("app.notifications"))
	notifier.Start(ctx)

	firmware := app.NewFirmwareChecker(app.FirmwareCheckerConfig{
		Endpoint: defaultFirmwareFeedURL,
		API:      client,
		Bus:      b,
		Logger:   logMgr.Logger("app.firmware_checker"),
	})
	firmware.Start(ctx)

	channelURL, err := cfg.ChannelURL()
	if err != nil {
		return fmt.Errorf("resolve channel url: %w", err)
	}
	tr := transport.NewWebSocketTransport(channelURL, cfg.Server.InsecureSkipVerify)
	live := channel.NewService(logMgr.Logger("channel"), b, tr, sessions.Token)

	expiredSub := b.Subscribe(events.TopicSessionExpired)
	defer b.Unsubscribe(expiredSub, events.TopicSessionExpired)

	live.Start(ctx)

	if err := bootstrapInventory(ctx, logger, client, deviceStore, discovery); err != nil {
		return err
	}
	logSystemSummary(ctx, logger, client)
	logNetworkSummary(ctx, logger, client)

	toggler := app.NewDeviceToggler(logMgr.Logger("app.devices"), deviceStore, client)
	applyDeviceFlags(ctx, logger, toggler, *blockMAC, *unblockMAC, *favoriteMAC)

	if *runSpeedtest {
		id, err := client.StartSpeedtest(ctx)
		if err != nil {
			logger.Warn("start speedtest", "error", err)
		} else {
			logger.Info("speedtest started", "id", id)
		}
	}

	watch(ctx, b, logger)

	if *listenFor > 0 {
		logger.Info("listen mode", "duration", *listenFor)
		select {
		case <-ctx.Done():
		case <-expiredSub:
			logger.Info("session expired, exiting")
		case <-time.After(*listenFor):
		}

		return nil
	}

	logger.Info("watching until interrupt")
	select {
	case <-ctx.Done():
	case <-expiredSub:
		logger.Info("session expired, exiting")
	}

	return nil
}

func doLogout(ctx context.Context, logger *slog.Logger, client *api.Client, sessions *session.Store) error {
	if !sessions.LoggedIn() {
		logger.Info("no stored session to revoke")

		return nil
	}
	if err := client.Logout(ctx); err != nil {
		logger.Warn("revoke session on backend", "error", err)
	}
	sessions.Clear(session.ReasonLogout)

	return nil
}

func bootstrapInventory(ctx context.Context, logger *slog.Logger, client *api.Client, store *domain.DeviceStore, discovery *app.DeviceDiscoveryProjection) error {
	devices, err := client.Devices(ctx)
	if err != nil {
		return fmt.Errorf("fetch device inventory: %w", err)
	}
	store.Load(devices)
	discovery.ArmFromInventory(store)
	logger.Info("device inventory loaded", "count", len(devices))

	online := 0
	for i, device := range store.SnapshotSorted() {
		if device.Online {
			online++
		}
		if i >= 10 {
			continue
		}
		name := strings.TrimSpace(device.Hostname)
		if name == "" {
			name = device.MAC
		}
		logger.Info("device item", "mac", device.MAC, "name", name, "ip", device.IP, "online", device.Online)
	}
	logger.Info("device summary", "total", len(devices), "online", online)

	return nil
}

func applyDeviceFlags(ctx context.Context, logger *slog.Logger, toggler *app.DeviceToggler, block, unblock, favorite string) {
	if mac := strings.TrimSpace(block); mac != "" {
		if err := toggler.SetBlocked(ctx, mac, true); err != nil {
			logger.Warn("block device", "mac", mac, "error", err)
		} else {
			logger.Info("device blocked", "mac", mac)
		}
	}
	if mac := strings.TrimSpace(unblock); mac != "" {
		if err := toggler.SetBlocked(ctx, mac, false); err != nil {
			logger.Warn("unblock device", "mac", mac, "error", err)
		} else {
			logger.Info("device unblocked", "mac", mac)
		}
	}
	if mac := strings.TrimSpace(favorite); mac != "" {
		if err := toggler.SetFavorite(ctx, mac, true); err != nil {
			logger.Warn("favorite device", "mac", mac, "error", err)
		} else {
			logger.Info("device favorited", "mac", mac)
		}
	}
}

func logSystemSummary(ctx context.Context, logger *slog.Logger, client *api.Client) {
	info, err := client.SystemInfo(ctx)
	if err != nil {
		logger.Warn("fetch system info", "error", err)

		return
	}
	logger.Info(
		"router",
		"model", info.Model,
		"firmware", info.FirmwareVersion,
		"hostname", info.Hostname,
		"uptime", (time.Duration(info.UptimeSeconds) * time.Second).String(),
	)
}

func logNetworkSummary(ctx context.Context, logger *slog.Logger, client *api.Client) {
	if leases, err := client.DHCPLeases(ctx); err != nil {
		logger.Warn("fetch dhcp leases", "error", err)
	} else {
		logger.Info("dhcp leases", "count", len(leases))
	}
	if cfg, err := client.DNSConfig(ctx); err != nil {
		logger.Warn("fetch dns config", "error", err)
	} else {
		logger.Info("dns", "upstreams", len(cfg.Upstreams), "local_records", len(cfg.LocalRecords))
	}
	if cfg, err := client.CakeConfig(ctx); err != nil {
		logger.Warn("fetch cake config", "error", err)
	} else {
		logger.Info("cake", "enabled", cfg.Enabled, "download_mbit", cfg.DownloadMbit, "upload_mbit", cfg.UploadMbit)
	}
	if samples, err := client.MetricsHistory(ctx, time.Hour); err != nil {
		logger.Warn("fetch metrics history", "error", err)
	} else {
		logger.Info("metrics history", "samples", len(samples))
	}
	if results, err := client.SpeedtestHistory(ctx, 5); err != nil {
		logger.Warn("fetch speedtest history", "error", err)
	} else {
		logger.Info("speedtest history", "results", len(results))
	}
}

func watch(ctx context.Context, b bus.MessageBus, logger *slog.Logger) {
	connSub := b.Subscribe(events.TopicConnStatus)
	metricsSub := b.Subscribe(events.TopicMetricsSnapshot)
	deviceSub := b.Subscribe(events.TopicDeviceUpdate)
	discoveredSub := b.Subscribe(events.TopicDeviceDiscovered)
	speedtestSub := b.Subscribe(events.TopicSpeedtestResult)
	logSub := b.Subscribe(events.TopicLogLine)
	noticeSub := b.Subscribe(events.TopicNotice)
	firmwareSub := b.Subscribe(events.TopicFirmwareUpdate)

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.Unsubscribe(connSub, events.TopicConnStatus)
				b.Unsubscribe(metricsSub, events.TopicMetricsSnapshot)
				b.Unsubscribe(deviceSub, events.TopicDeviceUpdate)
				b.Unsubscribe(discoveredSub, events.TopicDeviceDiscovered)
				b.Unsubscribe(speedtestSub, events.TopicSpeedtestResult)
				b.Unsubscribe(logSub, events.TopicLogLine)
				b.Unsubscribe(noticeSub, events.TopicNotice)
				b.Unsubscribe(firmwareSub, events.TopicFirmwareUpdate)

				return
			case raw := <-connSub:
				if status, ok := raw.(events.ConnectionStatus); ok {
					logger.Info("conn", "state", status.State, "endpoint", status.Endpoint, "error", status.Err)
				}
			case raw := <-metricsSub:
				if snapshot, ok := raw.(domain.MetricsSnapshot); ok {
					logger.Info(
						"metrics",
						"cpu", snapshot.System.CPUPercent,
						"mem_used", snapshot.System.MemoryUsedBytes,
						"interfaces", len(snapshot.Interfaces),
						"at", snapshot.At.Format(time.RFC3339),
					)
				}
			case raw := <-deviceSub:
				if update, ok := raw.(domain.DeviceUpdate); ok {
					logger.Info("device", "mac", update.Device.MAC, "hostname", update.Device.Hostname, "online", update.Device.Online)
				}
			case raw := <-discoveredSub:
				if event, ok := raw.(domain.DeviceDiscovered); ok {
					logger.Info("device-discovered", "mac", event.MAC, "hostname", event.Device.Hostname)
				}
			case raw := <-speedtestSub:
				if result, ok := raw.(domain.SpeedtestResult); ok {
					logger.Info(
						"speedtest",
						"id", result.ID,
						"down_mbps", result.DownloadMbps,
						"up_mbps", result.UploadMbps,
						"ping_ms", result.PingMs,
						"error", result.Err,
					)
				}
			case raw := <-logSub:
				if entry, ok := raw.(domain.LogEntry); ok {
					logger.Info("router-log", "seq", entry.Seq, "level", entry.Level, "message", entry.Message)
				}
			case raw := <-noticeSub:
				if notice, ok := raw.(events.Notice); ok {
					logger.Info("notice", "severity", notice.Severity, "title", notice.Title, "body", notice.Body)
				}
			case raw := <-firmwareSub:
				if update, ok := raw.(events.FirmwareUpdate); ok {
					logger.Info("firmware-update", "installed", update.CurrentVersion, "latest", update.LatestVersion, "url", update.ReleaseURL)
				}
			}
		}
	}()
}
