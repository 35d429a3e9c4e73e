package display

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/liquidity-sentinel/internal/domain"
	testingpkg "github.com/aristath/liquidity-sentinel/internal/testing"
)

func TestBroadcaster_Disabled(t *testing.T) {
	b, err := NewBroadcaster("", zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, b.Enabled())

	// Sends and Close are no-ops, not panics
	b.Send(testingpkg.SignalFixture("2024-03-15", 0.3, domain.RiskLevelGreen))
	assert.NoError(t, b.Close())
}

func TestBroadcaster_InvalidAddress(t *testing.T) {
	_, err := NewBroadcaster("not a valid addr::::", zerolog.Nop())
	assert.Error(t, err)
}

func TestBroadcaster_SendFrame(t *testing.T) {
	// Listen on an ephemeral loopback port
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer listener.Close()

	b, err := NewBroadcaster(listener.LocalAddr().String(), zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()
	assert.True(t, b.Enabled())

	sig := testingpkg.SignalFixture("2024-03-15", 0.87, domain.RiskLevelRed)
	sig.Code = "LIQ_RISK RED 87%"
	sig.CreatedAt = time.Date(2024, 3, 15, 17, 30, 0, 0, time.UTC)
	b.Send(sig)

	require.NoError(t, listener.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1024)
	n, _, err := listener.ReadFromUDP(buf)
	require.NoError(t, err)

	var frame Frame
	require.NoError(t, msgpack.Unmarshal(buf[:n], &frame))
	assert.Equal(t, "LIQ_RISK RED 87%", frame.Code)
	assert.Equal(t, "RED", frame.Level)
	assert.Equal(t, 0.87, frame.Probability)
	assert.Equal(t, "2024-03-15", frame.TradeDate)
	assert.Equal(t, sig.CreatedAt.Unix(), frame.Timestamp)
}
