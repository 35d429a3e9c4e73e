// Package display pushes signal frames to an optional external ticker
// display over UDP. Frames are msgpack-encoded and fire-and-forget: a
// dead or absent display must never slow down or fail the pipeline.
package display

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/liquidity-sentinel/internal/domain"
)

// Frame is the wire format consumed by the display.
type Frame struct {
	Code        string  `msgpack:"code"`
	Level       string  `msgpack:"level"`
	Probability float64 `msgpack:"probability"`
	TradeDate   string  `msgpack:"trade_date"`
	Timestamp   int64   `msgpack:"ts"` // Unix seconds
}

// Broadcaster sends signal frames to the configured UDP address. A
// broadcaster created with an empty address is disabled and all sends
// are no-ops.
type Broadcaster struct {
	conn *net.UDPConn
	addr string
	log  zerolog.Logger
}

// NewBroadcaster creates a broadcaster for the given UDP address
// ("host:port"). An empty address yields a disabled broadcaster and no
// error; a malformed address is a configuration error and fails.
func NewBroadcaster(addr string, log zerolog.Logger) (*Broadcaster, error) {
	b := &Broadcaster{
		addr: addr,
		log:  log.With().Str("component", "display").Logger(),
	}
	if addr == "" {
		return b, nil
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("invalid display address %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial display at %s: %w", addr, err)
	}

	b.conn = conn
	b.log.Info().Str("addr", addr).Msg("Display broadcaster enabled")
	return b, nil
}

// Enabled reports whether frames are actually sent anywhere.
func (b *Broadcaster) Enabled() bool {
	return b.conn != nil
}

// Send broadcasts one signal. Failures are logged at warn and swallowed.
func (b *Broadcaster) Send(sig domain.Signal) {
	if b.conn == nil {
		return
	}

	frame := Frame{
		Code:        sig.Code,
		Level:       string(sig.RiskLevel),
		Probability: sig.RiskProbability,
		TradeDate:   sig.TradeDate,
		Timestamp:   sig.CreatedAt.Unix(),
	}

	payload, err := msgpack.Marshal(frame)
	if err != nil {
		b.log.Warn().Err(err).Msg("Failed to encode display frame")
		return
	}

	if _, err := b.conn.Write(payload); err != nil {
		b.log.Warn().Err(err).Str("addr", b.addr).Msg("Failed to send display frame")
	}
}

// Close releases the UDP socket. Safe on a disabled broadcaster.
func (b *Broadcaster) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
