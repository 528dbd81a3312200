// Package nats publishes serialized batches to a NATS subject.
package nats

import (
	"context"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/logger"
	"github.com/ajitpratap0/docarrow/pkg/observability"
)

// Publisher is the part of *nats.Conn the destination needs
type Publisher interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// Destination publishes each object as one message
type Destination struct {
	conn      Publisher
	subject   string
	published int
	logger    *zap.Logger
}

// New connects to cfg.URL
func New(ctx context.Context, cfg config.DestinationConfig, log *zap.Logger) (core.Destination, error) {
	l := logger.OrNop(log)
	conn, err := nats.Connect(cfg.URL,
		nats.Name("docarrow"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn("nats disconnected", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to NATS")
	}
	if maxPayload := conn.MaxPayload(); maxPayload > 0 {
		l.Debug("nats connected", zap.String("url", conn.ConnectedUrl()), zap.Int64("max_payload", maxPayload))
	}
	return NewWithPublisher(conn, cfg, log), nil
}

// NewWithPublisher creates a destination around an existing connection
func NewWithPublisher(conn Publisher, cfg config.DestinationConfig, log *zap.Logger) *Destination {
	return &Destination{
		conn:    conn,
		subject: cfg.Subject,
		logger:  logger.OrNop(log).With(zap.String("component", "nats_destination"), zap.String("subject", cfg.Subject)),
	}
}

// Write implements core.Destination
func (d *Destination) Write(ctx context.Context, obj core.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := nats.NewMsg(d.subject)
	msg.Data = obj.Data

	headers := obj.Header()
	headers["docarrow-name"] = obj.Name
	observability.InjectContext(ctx, headers)
	for k, v := range headers {
		msg.Header.Set(k, v)
	}

	if err := d.conn.PublishMsg(msg); err != nil {
		return errors.Wrap(err, errors.ErrorTypeDestination, "failed to publish to NATS").
			WithDetail("subject", d.subject).
			WithDetail("name", obj.Name)
	}

	d.published++
	d.logger.Debug("batch published", zap.String("name", obj.Name), zap.Int("bytes", len(obj.Data)))
	return nil
}

// Close implements core.Destination. Pending messages are flushed first.
func (d *Destination) Close(ctx context.Context) error {
	defer d.conn.Close()
	d.logger.Info("nats destination closed", zap.Int("messages", d.published))
	if err := d.conn.FlushWithContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to flush NATS connection")
	}
	return nil
}
