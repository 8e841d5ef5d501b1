package events

import "time"

// ConnectionState describes the live channel lifecycle state shown to consumers.
type ConnectionState string

const (
	ConnectionStateConnecting   ConnectionState = "connecting"
	ConnectionStateConnected    ConnectionState = "connected"
	ConnectionStateDisconnected ConnectionState = "disconnected"
	ConnectionStateError        ConnectionState = "error"
)

// ConnectionStatus is a bus event snapshot of the live channel status.
type ConnectionStatus struct {
	State     ConnectionState
	Err       string
	Endpoint  string
	Timestamp time.Time
}

// RawMessage is an undecoded payload received on the live channel.
// The channel layer publishes these in arrival order without interpreting them.
type RawMessage struct {
	Payload    []byte
	ReceivedAt time.Time
}

// Notice is a server-issued announcement pushed over the live channel.
type Notice struct {
	Severity string    `json:"severity"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	At       time.Time `json:"at"`
}

// FirmwareUpdate reports that the router firmware is behind the latest
// published release.
type FirmwareUpdate struct {
	CurrentVersion string
	LatestVersion  string
	ReleaseURL     string
	CheckedAt      time.Time
}

// SessionExpired signals that stored credentials were invalidated.
type SessionExpired struct {
	Reason string
	At     time.Time
}
