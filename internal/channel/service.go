package channel

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gatewatch/internal/bus"
	"gatewatch/internal/events"
	"gatewatch/internal/transport"
)

const (
	defaultBackoffBase  = time.Second
	defaultBackoffCap   = 30 * time.Second
	defaultIdleWait     = time.Second
	defaultReadTimeout  = 90 * time.Second
	defaultPingInterval = 30 * time.Second
	sendTimeout         = 8 * time.Second
)

// TokenSource supplies the current credential token. An empty string means
// the client stays idle and no connection attempt is made.
type TokenSource func() string

// Service owns the live channel to the backend: it dials, authenticates,
// republishes inbound payloads on the bus, and recovers from drops with
// capped exponential backoff. Connection failures never surface as errors
// to callers; they only appear as ConnectionStatus events.
type Service struct {
	logger    *slog.Logger
	bus       bus.MessageBus
	transport transport.Transport
	token     TokenSource

	backoffBase  time.Duration
	backoffCap   time.Duration
	idleWait     time.Duration
	readTimeout  time.Duration
	pingInterval time.Duration
	sleep        func(context.Context, time.Duration) bool
}

func NewService(logger *slog.Logger, b bus.MessageBus, tr transport.Transport, token TokenSource) *Service {
	if logger == nil {
		logger = slog.Default().With("component", "channel")
	}

	return &Service{
		logger:       logger,
		bus:          b,
		transport:    tr,
		token:        token,
		backoffBase:  defaultBackoffBase,
		backoffCap:   defaultBackoffCap,
		idleWait:     defaultIdleWait,
		readTimeout:  defaultReadTimeout,
		pingInterval: defaultPingInterval,
		sleep:        sleepWithContext,
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.run(ctx)
}

// Send transmits a payload if the channel is currently open. Payloads sent
// while the channel is not open are dropped without error or queuing.
func (s *Service) Send(payload []byte) {
	if !s.transport.Connected() {
		s.logger.Debug("send dropped: channel not open")

		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := s.transport.WriteFrame(writeCtx, payload); err != nil {
		s.logger.Debug("channel write failed", "error", err)
	}
}

// run is the single driving loop: idle -> connecting -> open -> backoff.
// Retries are unbounded while a token is present; cancelling ctx stops any
// pending backoff timer and closes the transport.
func (s *Service) run(ctx context.Context) {
	defer func() {
		_ = s.transport.Close()
	}()

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return
		}

		token := strings.TrimSpace(s.token())
		if token == "" {
			attempt = 0
			if !s.sleep(ctx, s.idleWait) {
				return
			}

			continue
		}

		s.publishStatus(events.ConnectionStateConnecting, nil)
		if err := s.transport.Connect(ctx, token); err != nil {
			s.logger.Error("channel connect failed", "error", err)
			s.publishStatus(events.ConnectionStateError, err)
			s.publishStatus(events.ConnectionStateDisconnected, nil)

			delay := s.reconnectDelay(attempt)
			attempt++
			if !s.sleep(ctx, delay) {
				return
			}

			continue
		}

		attempt = 0
		s.publishStatus(events.ConnectionStateConnected, nil)

		stopKeepalive := s.startKeepalive(ctx)
		err := s.runReader(ctx)
		stopKeepalive()
		_ = s.transport.Close()
		if ctx.Err() != nil {
			s.publishStatus(events.ConnectionStateDisconnected, nil)

			return
		}
		s.logger.Warn("channel closed", "error", err)
		s.publishStatus(events.ConnectionStateError, err)
		s.publishStatus(events.ConnectionStateDisconnected, nil)

		delay := s.reconnectDelay(attempt)
		attempt++
		if !s.sleep(ctx, delay) {
			return
		}
	}
}

// startKeepalive pings the link on a ticker while the channel is open, so an
// idle but healthy connection is not torn down by the read timeout. Transports
// without ping support rely on pushes arriving inside the read timeout.
func (s *Service) startKeepalive(ctx context.Context) func() {
	pinger, ok := s.transport.(transport.Pinger)
	if !ok || s.pingInterval <= 0 {
		return func() {}
	}

	pingCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				if err := pinger.Ping(pingCtx); err != nil {
					s.logger.Debug("channel ping failed", "error", err)
				}
			}
		}
	}()

	return cancel
}

func (s *Service) runReader(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		readCtx, cancel := context.WithTimeout(ctx, s.readTimeout)
		payload, err := s.transport.ReadFrame(readCtx)
		cancel()
		if err != nil {
			return err
		}

		s.bus.Publish(events.TopicChannelMessage, events.RawMessage{
			Payload:    payload,
			ReceivedAt: time.Now(),
		})
	}
}

// reconnectDelay returns min(base * 2^attempt, cap).
func (s *Service) reconnectDelay(attempt int) time.Duration {
	delay := s.backoffBase
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= s.backoffCap {
			return s.backoffCap
		}
	}
	if delay > s.backoffCap {
		return s.backoffCap
	}

	return delay
}

func (s *Service) publishStatus(state events.ConnectionState, err error) {
	status := events.ConnectionStatus{
		State:     state,
		Timestamp: time.Now(),
	}
	if resolver, ok := s.transport.(transport.StatusTargetResolver); ok {
		status.Endpoint = resolver.StatusTarget()
	}
	if err != nil {
		status.Err = err.Error()
	}
	s.bus.Publish(events.TopicConnStatus, status)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
