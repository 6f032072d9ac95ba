package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

// Subjects carried by the event streams.
const (
	SubjectHazardZoneUpdated        = "hazard.zone.updated"
	SubjectWildfireTimelineLoaded   = "wildfire.timeline.loaded"
	SubjectWildfireTimelineIngested = "wildfire.timeline.ingested"
)

// Streams lists the JetStream streams the services rely on. Only the latest
// message per subject is retained: consumers care about the current zone and
// the current timeline, never the history.
func Streams() []nats.StreamConfig {
	return []nats.StreamConfig{
		{
			Name:              "HAZARD_EVENTS",
			Subjects:          []string{"hazard.zone.>"},
			Retention:         nats.LimitsPolicy,
			MaxMsgsPerSubject: 1,
			MaxAge:            24 * time.Hour,
			Storage:           nats.FileStorage,
		},
		{
			Name:              "WILDFIRE_EVENTS",
			Subjects:          []string{"wildfire.timeline.>"},
			Retention:         nats.LimitsPolicy,
			MaxMsgsPerSubject: 1,
			MaxAge:            24 * time.Hour,
			Storage:           nats.FileStorage,
		},
	}
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := attachJetStream(conn, ensureStreams)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, js: js}, nil
}

// jetStreamConn is the part of *nats.Conn needed to bring up JetStream.
type jetStreamConn interface {
	JetStream(opts ...nats.JSOpt) (nats.JetStreamContext, error)
	Close()
}

// attachJetStream enables JetStream on conn and runs setup. conn is closed
// when either step fails.
func attachJetStream(conn jetStreamConn, setup func(nats.JetStreamContext) error) (nats.JetStreamContext, error) {
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if setup != nil {
		if err := setup(js); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return js, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	for _, cfg := range Streams() {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

func (p *Publisher) PublishHazardZone(ctx context.Context, zone *domain.HazardZone) error {
	return p.publish(ctx, SubjectHazardZoneUpdated, zone, nats.MsgId(zone.ID))
}

func (p *Publisher) PublishTimelineLoaded(ctx context.Context, event *domain.TimelineEvent) error {
	return p.publish(ctx, SubjectWildfireTimelineLoaded, event)
}

// PublishTimelineIngested publishes the reference only; subscribers fetch the
// timeline from event.Location.
func (p *Publisher) PublishTimelineIngested(ctx context.Context, event *domain.TimelineIngested) error {
	return p.publish(ctx, SubjectWildfireTimelineIngested, event, nats.MsgId(event.SHA256))
}

// publish marshals v and sends it on subject. A message over the server's
// max payload can never be delivered and is reported as
// domain.ErrInvalidArgument.
func (p *Publisher) publish(ctx context.Context, subject string, v any, opts ...nats.PubOpt) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	if err := checkPayload(subject, len(data), p.conn.MaxPayload()); err != nil {
		return err
	}
	_, err = p.js.Publish(subject, data, append(opts, nats.Context(ctx))...)
	return err
}

func checkPayload(subject string, size int, max int64) error {
	if max > 0 && int64(size) > max {
		return fmt.Errorf("%w: %s message is %d bytes, broker max payload is %d", domain.ErrInvalidArgument, subject, size, max)
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection (e.g. for the WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("evacguide"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
