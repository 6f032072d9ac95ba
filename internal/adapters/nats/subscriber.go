package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
// Every API process needs every event, so consumers are ephemeral and start
// from the last retained message.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS and enables JetStream.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := attachJetStream(conn, nil)
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

func (s *Subscriber) SubscribeHazardZones(ctx context.Context, handler func(ctx context.Context, zone *domain.HazardZone) error) error {
	return s.subscribe(SubjectHazardZoneUpdated, func(msg *nats.Msg) error {
		var zone domain.HazardZone
		if err := json.Unmarshal(msg.Data, &zone); err != nil {
			slog.Warn("dropping malformed hazard event", "error", err)
			return nil
		}
		return handler(ctx, &zone)
	})
}

func (s *Subscriber) SubscribeTimelineIngested(ctx context.Context, handler func(ctx context.Context, event *domain.TimelineIngested) error) error {
	return s.subscribe(SubjectWildfireTimelineIngested, func(msg *nats.Msg) error {
		var event domain.TimelineIngested
		if err := json.Unmarshal(msg.Data, &event); err != nil || event.Location == "" {
			slog.Warn("dropping malformed timeline event", "error", err)
			return nil
		}
		return handler(ctx, &event)
	})
}

func (s *Subscriber) subscribe(subject string, handle func(msg *nats.Msg) error) error {
	sub, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handle(msg); err != nil {
			slog.Warn("event handler failed", "subject", subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverLast(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
