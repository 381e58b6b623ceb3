package stream

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/bounce-go/common"
	"github.com/Carmen-Shannon/bounce-go/engine/particle"
	"github.com/Carmen-Shannon/bounce-go/engine/scheduler"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(generation uint64, count int) scheduler.Frame {
	particles := make([]particle.Particle, count)
	for i := range particles {
		particles[i] = particle.Particle{
			Position: common.Vec2{X: float32(i) * 10, Y: float32(i) * 5},
			Velocity: common.Vec2{X: 1, Y: -2},
			Radius:   4 + float32(i),
			Color:    [4]float32{0.2, 0.4, 0.6, 1},
		}
	}
	return scheduler.Frame{
		Particles:  particles,
		Generation: generation,
		Overlaps:   count / 2,
	}
}

// TestFrameEncodeDecodeRoundTrip verifies the binary wire format: the header
// carries generation, count, overlaps, and domain size, and every particle
// field survives the trip through the little-endian encoding.
func TestFrameEncodeDecodeRoundTrip(t *testing.T) {
	s := NewStream(WithDomain(1024, 768)).(*stream)
	frame := testFrame(42, 7)

	gpu := particle.ToGPU(nil, frame.Particles)
	var buf bytes.Buffer
	s.encodeFrame(&buf, frame.Generation, uint32(frame.Overlaps), gpu)

	header, decoded, err := DecodeFrame(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), header.Generation)
	assert.Equal(t, uint32(7), header.Count)
	assert.Equal(t, uint32(3), header.Overlaps)
	assert.Equal(t, float32(1024), header.Width)
	assert.Equal(t, float32(768), header.Height)

	require.Len(t, decoded, 7)
	for i, p := range decoded {
		assert.Equal(t, gpu[i].Position, p.Position, "particle %d position", i)
		assert.Equal(t, gpu[i].Velocity, p.Velocity, "particle %d velocity", i)
		assert.Equal(t, gpu[i].Radius, p.Radius, "particle %d radius", i)
		assert.Equal(t, gpu[i].Color, p.Color, "particle %d color", i)
	}
}

// TestDecodeFrameRejectsTruncatedPayload verifies that a frame whose payload
// does not match the advertised particle count is rejected rather than
// decoded into garbage.
func TestDecodeFrameRejectsTruncatedPayload(t *testing.T) {
	s := NewStream().(*stream)
	frame := testFrame(1, 3)

	gpu := particle.ToGPU(nil, frame.Particles)
	var buf bytes.Buffer
	s.encodeFrame(&buf, frame.Generation, 0, gpu)

	data := buf.Bytes()

	_, _, err := DecodeFrame(data[:frameHeaderSize-1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")

	_, _, err = DecodeFrame(data[:len(data)-4])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected")
}

// TestConsumeWithoutClientsIsCheap verifies that broadcasting with no viewers
// connected is a no-op that never errors.
func TestConsumeWithoutClientsIsCheap(t *testing.T) {
	s := NewStream()
	require.NoError(t, s.Consume(testFrame(1, 100)))
	assert.Equal(t, 0, s.Clients())
}

// TestLiveBroadcast connects a real websocket client to the stream endpoint
// and verifies that consumed frames arrive as decodable binary messages in
// generation order.
func TestLiveBroadcast(t *testing.T) {
	s := NewStream(WithDomain(200, 100)).(*stream)

	server := httptest.NewServer(http.HandlerFunc(s.handleWebsocket))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return s.Clients() == 1
	}, 2*time.Second, 5*time.Millisecond)

	for generation := uint64(1); generation <= 3; generation++ {
		require.NoError(t, s.Consume(testFrame(generation, 5)))
	}

	for generation := uint64(1); generation <= 3; generation++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		messageType, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, websocket.BinaryMessage, messageType)

		header, particles, err := DecodeFrame(data)
		require.NoError(t, err)
		assert.Equal(t, generation, header.Generation)
		assert.Equal(t, uint32(5), header.Count)
		assert.Equal(t, float32(200), header.Width)
		assert.Equal(t, float32(100), header.Height)
		assert.Len(t, particles, 5)
	}
}

// TestClientDisconnectIsObserved verifies that a closed client is removed
// from the broadcast set.
func TestClientDisconnectIsObserved(t *testing.T) {
	s := NewStream().(*stream)

	server := httptest.NewServer(http.HandlerFunc(s.handleWebsocket))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return s.Clients() == 1
	}, 2*time.Second, 5*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return s.Clients() == 0
	}, 2*time.Second, 5*time.Millisecond)
}
