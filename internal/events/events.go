package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/metal-toolbox/bootline/internal/metrics"
	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const (
	pkgName = "internal/events"

	DefaultSubjectPrefix = "bootline.lifecycle"

	defaultConnectTimeout = 10 * time.Second
)

var (
	ErrPublish = errors.New("error publishing lifecycle event")
	ErrConnect = errors.New("error connecting to NATS")
)

// Publisher publishes server lifecycle changes.
type Publisher interface {
	Publish(ctx context.Context, event *model.LifecycleEvent) error
	Close()
}

// NewLifecycleEvent returns an event for the changed field with a new ID and the current time.
func NewLifecycleEvent(number model.ServerNumber, field, value string) *model.LifecycleEvent {
	return &model.LifecycleEvent{
		ID:           uuid.New().String(),
		ServerNumber: number,
		Field:        field,
		Value:        value,
		Timestamp:    time.Now().UTC(),
	}
}

// Options configures the NATS lifecycle publisher.
type Options struct {
	URL            string        `mapstructure:"nats_url"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	CredsFile      string        `mapstructure:"creds_file"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// NATS publishes lifecycle events on <prefix>.<field> subjects.
type NATS struct {
	conn          *nats.Conn
	subjectPrefix string
	logger        *logrus.Logger
}

// NewNATSPublisher connects to the NATS server.
func NewNATSPublisher(opts Options, logger *logrus.Logger) (*NATS, error) {
	if opts.URL == "" {
		return nil, errors.Wrap(ErrConnect, "expected a nats_url parameter")
	}

	timeout := opts.ConnectTimeout
	if timeout == 0 {
		timeout = defaultConnectTimeout
	}

	natsOpts := []nats.Option{
		nats.Name(model.AppName),
		nats.Timeout(timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.WithError(err).Warn("NATS connection lost")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("NATS connection restored")
		}),
	}

	if opts.CredsFile != "" {
		natsOpts = append(natsOpts, nats.UserCredentials(opts.CredsFile))
	}

	conn, err := nats.Connect(opts.URL, natsOpts...)
	if err != nil {
		return nil, errors.Wrap(ErrConnect, err.Error())
	}

	prefix := opts.SubjectPrefix
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	return &NATS{conn: conn, subjectPrefix: prefix, logger: logger}, nil
}

// Subject returns the subject events for the field are published on.
func (n *NATS) Subject(field string) string {
	return n.subjectPrefix + "." + field
}

func (n *NATS) Publish(ctx context.Context, event *model.LifecycleEvent) error {
	_, span := otel.Tracer(pkgName).Start(ctx, "NATS.Publish")
	defer span.End()

	b, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(ErrPublish, err.Error())
	}

	if err := n.conn.Publish(n.Subject(event.Field), b); err != nil {
		metrics.EventsPublished.With(prometheus.Labels{"field": event.Field, "state": "failed"}).Inc()
		return errors.Wrap(ErrPublish, err.Error())
	}

	metrics.EventsPublished.With(prometheus.Labels{"field": event.Field, "state": "published"}).Inc()

	n.logger.WithFields(logrus.Fields{
		"id":           event.ID,
		"serverNumber": event.ServerNumber,
		"field":        event.Field,
	}).Trace("lifecycle event published")

	return nil
}

// Close drains the connection, pending events are flushed.
func (n *NATS) Close() {
	if err := n.conn.Drain(); err != nil {
		n.logger.WithError(err).Warn("NATS connection drain error")
	}
}

// Noop discards events, it is used when no NATS server is configured.
type Noop struct{}

func NewNoopPublisher() *Noop { return &Noop{} }

func (n *Noop) Publish(_ context.Context, _ *model.LifecycleEvent) error { return nil }

func (n *Noop) Close() {}
