package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/aristath/liquidity-sentinel/internal/events"
)

const (
	// streamBuffer is the per-subscriber event buffer. Publishing never
	// blocks: events beyond the buffer are dropped with a warning.
	streamBuffer = 100

	streamWriteWait   = 10 * time.Second
	heartbeatInterval = 30 * time.Second
)

// handleEventsStream upgrades to a WebSocket and forwards every bus
// event to the client as a JSON envelope. The stream is write-only;
// a heartbeat ping detects dead peers.
func (s *Server) handleEventsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	// The stream outlives the request timeout, so it manages its own
	// lifetime: it ends when the peer goes away or a write fails.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := make(chan *events.Event, streamBuffer)
	subID := s.bus.SubscribeAll(func(e *events.Event) {
		select {
		case queue <- e:
		default:
			s.log.Warn().Str("type", string(e.Type)).Msg("Slow event stream subscriber, dropping event")
		}
	})
	defer s.bus.UnsubscribeAll(subID)

	s.log.Info().Str("remote", r.RemoteAddr).Msg("Event stream subscriber connected")

	// The client never sends application messages; CloseRead surfaces
	// disconnects as context cancellation.
	readCtx := conn.CloseRead(ctx)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-readCtx.Done():
			s.log.Info().Str("remote", r.RemoteAddr).Msg("Event stream subscriber disconnected")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event := <-queue:
			if err := s.writeEvent(ctx, conn, event); err != nil {
				s.log.Debug().Err(err).Msg("Event stream write failed, closing")
				return
			}

		case <-heartbeat.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, streamWriteWait)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				s.log.Debug().Err(err).Msg("Event stream heartbeat failed, closing")
				return
			}
		}
	}
}

// writeEvent serializes one event envelope onto the socket.
func (s *Server) writeEvent(ctx context.Context, conn *websocket.Conn, event *events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Str("type", string(event.Type)).Msg("Failed to marshal event")
		return nil // skip the event, keep the stream
	}

	writeCtx, writeCancel := context.WithTimeout(ctx, streamWriteWait)
	defer writeCancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
