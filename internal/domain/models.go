package domain

import "time"

// Device is a client known to the router: DHCP client, static host, or
// anything seen on the local network.
type Device struct {
	MAC        string    `json:"mac"`
	Hostname   string    `json:"hostname"`
	IP         string    `json:"ip"`
	Vendor     string    `json:"vendor"`
	Interface  string    `json:"interface"`
	Online     bool      `json:"online"`
	Blocked    bool      `json:"blocked"`
	Favorite   bool      `json:"favorite"`
	RxBytes    int64     `json:"rx_bytes"`
	TxBytes    int64     `json:"tx_bytes"`
	LastSeenAt time.Time `json:"last_seen_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DeviceUpdateType tells consumers where a device snapshot came from.
type DeviceUpdateType string

const (
	DeviceUpdateTypeInventory DeviceUpdateType = "inventory"
	DeviceUpdateTypePush      DeviceUpdateType = "push"
)

// DeviceUpdate is a bus event carrying a (possibly sparse) device snapshot.
type DeviceUpdate struct {
	Device Device           `json:"device"`
	Type   DeviceUpdateType `json:"type"`
}

// DeviceDiscovered is published the first time a device appears after startup.
type DeviceDiscovered struct {
	Device       Device    `json:"device"`
	MAC          string    `json:"mac"`
	DiscoveredAt time.Time `json:"discovered_at"`
	Source       string    `json:"source"`
}

// DHCPLease is a single active or static lease on the router.
type DHCPLease struct {
	MAC       string    `json:"mac"`
	IP        string    `json:"ip"`
	Hostname  string    `json:"hostname"`
	Static    bool      `json:"static"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DHCPConfig mirrors the router's DHCP server settings.
type DHCPConfig struct {
	Enabled      bool        `json:"enabled"`
	Subnet       string      `json:"subnet"`
	Gateway      string      `json:"gateway"`
	RangeStart   string      `json:"range_start"`
	RangeEnd     string      `json:"range_end"`
	LeaseSeconds int         `json:"lease_seconds"`
	StaticLeases []DHCPLease `json:"static_leases"`
}

// DNSRecord is a local DNS override served by the router.
type DNSRecord struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// DNSConfig mirrors the router's DNS resolver settings.
type DNSConfig struct {
	Upstreams        []string    `json:"upstreams"`
	BlocklistEnabled bool        `json:"blocklist_enabled"`
	BlocklistURL     string      `json:"blocklist_url"`
	CacheSize        int         `json:"cache_size"`
	LocalRecords     []DNSRecord `json:"local_records"`
}

// CakeConfig mirrors the router's CAKE traffic shaping settings.
type CakeConfig struct {
	Enabled      bool    `json:"enabled"`
	DownloadMbit float64 `json:"download_mbit"`
	UploadMbit   float64 `json:"upload_mbit"`
	RTT          string  `json:"rtt"`
	DiffServ     string  `json:"diffserv"`
	NAT          bool    `json:"nat"`
	Wash         bool    `json:"wash"`
}

// SpeedtestResult is one completed (or failed) speedtest run.
type SpeedtestResult struct {
	ID           string    `json:"id"`
	DownloadMbps float64   `json:"download_mbps"`
	UploadMbps   float64   `json:"upload_mbps"`
	PingMs       float64   `json:"ping_ms"`
	Server       string    `json:"server"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Err          string    `json:"error"`
}

// LogEntry is a single backend log line.
type LogEntry struct {
	Seq      int64     `json:"seq"`
	Level    string    `json:"level"`
	Facility string    `json:"facility"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// SystemLoad is the router's instantaneous system health sample.
type SystemLoad struct {
	Load1            float64 `json:"load1"`
	Load5            float64 `json:"load5"`
	Load15           float64 `json:"load15"`
	CPUPercent       float64 `json:"cpu_percent"`
	MemoryUsedBytes  int64   `json:"memory_used_bytes"`
	MemoryTotalBytes int64   `json:"memory_total_bytes"`
	UptimeSeconds    int64   `json:"uptime_seconds"`
}

// InterfaceStats is per-interface throughput at sample time.
type InterfaceStats struct {
	Name          string  `json:"name"`
	Up            bool    `json:"up"`
	RxBytesPerSec float64 `json:"rx_bytes_per_sec"`
	TxBytesPerSec float64 `json:"tx_bytes_per_sec"`
	RxTotalBytes  int64   `json:"rx_total_bytes"`
	TxTotalBytes  int64   `json:"tx_total_bytes"`
}

// ServiceStatus reports whether a router-managed service is running.
type ServiceStatus struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
	Detail  string `json:"detail"`
}

// MetricsSnapshot is the typed projection of one live metrics push.
type MetricsSnapshot struct {
	System     SystemLoad       `json:"system"`
	Interfaces []InterfaceStats `json:"interfaces"`
	Services   []ServiceStatus  `json:"services"`
	At         time.Time        `json:"at"`
}

// PortScanState enumerates the lifecycle of a port scan job.
type PortScanState string

const (
	PortScanStatePending  PortScanState = "pending"
	PortScanStateRunning  PortScanState = "running"
	PortScanStateDone     PortScanState = "done"
	PortScanStateFailed   PortScanState = "failed"
	PortScanStateCanceled PortScanState = "canceled"
)

// PortScanStatus is the polled status of a port scan job on the backend.
type PortScanStatus struct {
	ID         string        `json:"id"`
	Target     string        `json:"target"`
	State      PortScanState `json:"state"`
	Progress   float64       `json:"progress"`
	OpenPorts  []int         `json:"open_ports"`
	Err        string        `json:"error"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Terminal reports whether the scan finished, successfully or not.
func (s PortScanStatus) Terminal() bool {
	switch s.State {
	case PortScanStateDone, PortScanStateFailed, PortScanStateCanceled:
		return true
	default:
		return false
	}
}
