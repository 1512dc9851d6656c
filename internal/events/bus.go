package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"jobtracker-engine/internal/telemetry"
)

const connectTimeout = 10 * time.Second

// Connect dials NATS with reconnects enabled. token may be empty.
func Connect(natsURL, token string, logger *zap.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("jobtracker"),
		nats.Timeout(connectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return nc, nil
}

// Bus publishes application events to SSE subscribers and, when a NATS
// connection is present, to <prefix>.<type>.
type Bus struct {
	hub    *Hub
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
	tracer trace.Tracer
}

func NewBus(hub *Hub, nc *nats.Conn, prefix string, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		hub:    hub,
		nc:     nc,
		prefix: prefix,
		logger: logger,
		tracer: telemetry.GetTracer("jobtracker/events"),
	}
}

func (b *Bus) Hub() *Hub { return b.hub }

func (b *Bus) Subject(typ string) string {
	if b.prefix == "" {
		return typ
	}
	return b.prefix + "." + typ
}

// Emit never fails the caller: NATS errors are logged.
func (b *Bus) Emit(ctx context.Context, reqID, typ string, data any) {
	evt := NewEvent(reqID, typ, data)
	payload, err := json.Marshal(evt)
	if err != nil {
		b.logger.Error("failed to marshal event", zap.String("type", typ), zap.Error(err))
		return
	}

	if b.hub != nil {
		b.hub.Publish(string(payload))
	}
	if b.nc == nil {
		return
	}

	subject := b.Subject(typ)
	_, span := b.tracer.Start(ctx, "Bus.Publish")
	defer span.End()
	span.SetAttributes(
		telemetry.String("nats.subject", subject),
		telemetry.Int("message.size", len(payload)),
	)

	if err := b.nc.Publish(subject, payload); err != nil {
		span.RecordError(err)
		b.logger.Error("failed to publish event",
			zap.String("subject", subject),
			zap.String("request_id", reqID),
			zap.Error(err))
		return
	}
	b.logger.Debug("published event", zap.String("subject", subject))
}

func (b *Bus) Close() error {
	if b.nc != nil {
		return b.nc.Drain()
	}
	return nil
}
