package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/evacguide/internal/adapters/nats"
	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/pkg/metrics"
)

const (
	wsPingInterval = 30 * time.Second
	wsSendBuffer   = 32
)

// wsEvent is every server-to-client message.
type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// wsCommand is a client playback control:
// {"action":"play"} {"action":"pause"} {"action":"seek","index":12}
type wsCommand struct {
	Action string `json:"action"`
	Index  *int   `json:"index"`
}

// WebSocketHandler pushes wildfire playback snapshots and relays hazard and
// timeline events from NATS. Clients may drive playback over the socket.
//
// Event types: "wildfire.status" (on connect), "wildfire.playback",
// "hazard.zone.updated", "wildfire.timeline.loaded", "ack", "error".
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		logger := slog.Default().With("remote_addr", remoteAddr)
		logger.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Snapshots arrive on the player goroutine, which must not block on a
		// slow client. A full buffer drops the snapshot; the next one
		// supersedes it.
		out := make(chan wsEvent, wsSendBuffer)
		done := make(chan struct{})
		enqueue := func(ev wsEvent) {
			select {
			case out <- ev:
			case <-done:
			default:
			}
		}

		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case ev := <-out:
					if err := writeJSON(ev); err != nil {
						return
					}
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		if deps.Wildfire != nil {
			enqueue(wsEvent{Type: "wildfire.status", Data: deps.Wildfire.Status()})
			cancel := deps.Wildfire.Subscribe(func(snap domain.PlaybackSnapshot) {
				enqueue(wsEvent{Type: "wildfire.playback", Data: snap})
			})
			defer cancel()
		}

		var subs []*nats.Subscription
		if deps.NATS != nil {
			relay := []struct{ subject, eventType string }{
				{"hazard.zone.>", natsadapter.SubjectHazardZoneUpdated},
				{natsadapter.SubjectWildfireTimelineLoaded, natsadapter.SubjectWildfireTimelineLoaded},
			}
			for _, r := range relay {
				sub, err := deps.NATS.Subscribe(r.subject, func(msg *nats.Msg) {
					enqueue(wsEvent{Type: r.eventType, Data: json.RawMessage(msg.Data)})
				})
				if err != nil {
					logger.Warn("ws relay subscribe", "subject", r.subject, "error", err)
					continue
				}
				subs = append(subs, sub)
			}
		}

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var cmd wsCommand
			if err := json.Unmarshal(msg, &cmd); err != nil {
				enqueue(wsEvent{Type: "error", Data: "invalid JSON"})
				continue
			}
			if deps.Wildfire == nil {
				enqueue(wsEvent{Type: "error", Data: "wildfire playback unavailable"})
				continue
			}
			snap, err := applyPlayback(deps.Wildfire, playbackRequest{Action: cmd.Action, Index: cmd.Index})
			if err != nil {
				enqueue(wsEvent{Type: "error", Data: err.Error()})
				continue
			}
			enqueue(wsEvent{Type: "ack", Data: snap})
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		logger.Info("ws client disconnected")
	}
}
