package transport

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by frame operations while no transport is open.
var ErrNotConnected = errors.New("transport is not connected")

// Transport is a framed bidirectional link to the backend's live channel.
type Transport interface {
	Name() string
	// Connect opens the link, authenticating with the given credential token.
	// Implementations must treat Connect as a no-op when already open.
	Connect(ctx context.Context, token string) error
	Connected() bool
	Close() error
	ReadFrame(ctx context.Context) ([]byte, error)
	WriteFrame(ctx context.Context, payload []byte) error
}

// StatusTargetResolver exposes a display string for the connected endpoint.
type StatusTargetResolver interface {
	StatusTarget() string
}

// Pinger is implemented by transports with a link-level keepalive.
// Ping keeps an idle but healthy link from hitting the caller's read timeout.
type Pinger interface {
	Ping(ctx context.Context) error
}
