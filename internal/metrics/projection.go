package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"gatewatch/internal/bus"
	"gatewatch/internal/domain"
	"gatewatch/internal/events"
)

// Envelope is the framing the backend uses for every live channel push.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	messageTypeMetrics   = "metrics"
	messageTypeDevice    = "device"
	messageTypeSpeedtest = "speedtest"
	messageTypeLog       = "log"
	messageTypeNotice    = "notice"
)

// Projection decodes raw live channel payloads into typed snapshots and
// republishes them on dedicated topics. It retains only the latest metrics
// snapshot and connection status, with no history or replay: a consumer that
// subscribes after a push sees nothing until the next one.
type Projection struct {
	logger *slog.Logger
	bus    bus.MessageBus

	mu            sync.RWMutex
	latest        domain.MetricsSnapshot
	latestKnown   bool
	connStatus    events.ConnectionStatus
	connStatusSet bool
}

func NewProjection(logger *slog.Logger, b bus.MessageBus) *Projection {
	if logger == nil {
		logger = slog.Default().With("component", "metrics")
	}

	return &Projection{
		logger: logger,
		bus:    b,
	}
}

func (p *Projection) Start(ctx context.Context) {
	msgSub := p.bus.Subscribe(events.TopicChannelMessage)
	connSub := p.bus.Subscribe(events.TopicConnStatus)

	go func() {
		defer p.bus.Unsubscribe(msgSub, events.TopicChannelMessage)
		defer p.bus.Unsubscribe(connSub, events.TopicConnStatus)
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-msgSub:
				if !ok {
					return
				}
				msg, ok := raw.(events.RawMessage)
				if !ok {
					continue
				}
				p.handleMessage(msg)
			case raw, ok := <-connSub:
				if !ok {
					return
				}
				status, ok := raw.(events.ConnectionStatus)
				if !ok {
					continue
				}
				p.mu.Lock()
				p.connStatus = status
				p.connStatusSet = true
				p.mu.Unlock()
			}
		}
	}()
}

// Latest returns the most recent metrics snapshot, if any arrived yet.
func (p *Projection) Latest() (domain.MetricsSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.latest, p.latestKnown
}

// ConnectionStatus re-exposes the live channel status for consumers that
// render a status badge next to projected data.
func (p *Projection) ConnectionStatus() (events.ConnectionStatus, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.connStatus, p.connStatusSet
}

func (p *Projection) handleMessage(msg events.RawMessage) {
	var envelope Envelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		p.logger.Warn("decode channel envelope failed", "error", err)

		return
	}

	switch envelope.Type {
	case messageTypeMetrics:
		p.handleMetrics(envelope.Data, msg.ReceivedAt)
	case messageTypeDevice:
		p.handleDevice(envelope.Data)
	case messageTypeSpeedtest:
		p.handleSpeedtest(envelope.Data)
	case messageTypeLog:
		p.handleLog(envelope.Data)
	case messageTypeNotice:
		p.handleNotice(envelope.Data, msg.ReceivedAt)
	default:
		p.logger.Debug("ignoring unknown channel message", "type", envelope.Type)
	}
}

func (p *Projection) handleMetrics(data json.RawMessage, receivedAt time.Time) {
	var snapshot domain.MetricsSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		p.logger.Warn("decode metrics payload failed", "error", err)

		return
	}
	if snapshot.At.IsZero() {
		snapshot.At = receivedAt
	}

	p.mu.Lock()
	p.latest = snapshot
	p.latestKnown = true
	p.mu.Unlock()

	p.bus.Publish(events.TopicMetricsSnapshot, snapshot)
}

func (p *Projection) handleDevice(data json.RawMessage) {
	var device domain.Device
	if err := json.Unmarshal(data, &device); err != nil {
		p.logger.Warn("decode device payload failed", "error", err)

		return
	}
	if device.MAC == "" {
		return
	}

	p.bus.Publish(events.TopicDeviceUpdate, domain.DeviceUpdate{
		Device: device,
		Type:   domain.DeviceUpdateTypePush,
	})
}

func (p *Projection) handleSpeedtest(data json.RawMessage) {
	var result domain.SpeedtestResult
	if err := json.Unmarshal(data, &result); err != nil {
		p.logger.Warn("decode speedtest payload failed", "error", err)

		return
	}

	p.bus.Publish(events.TopicSpeedtestResult, result)
}

func (p *Projection) handleLog(data json.RawMessage) {
	var entry domain.LogEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		p.logger.Warn("decode log payload failed", "error", err)

		return
	}

	p.bus.Publish(events.TopicLogLine, entry)
}

func (p *Projection) handleNotice(data json.RawMessage, receivedAt time.Time) {
	var notice events.Notice
	if err := json.Unmarshal(data, &notice); err != nil {
		p.logger.Warn("decode notice payload failed", "error", err)

		return
	}
	if notice.At.IsZero() {
		notice.At = receivedAt
	}

	p.bus.Publish(events.TopicNotice, notice)
}
