// package stream broadcasts each published generation to websocket viewers as
// a compact binary frame. The stream is an alternate render consumer: it
// plugs into the scheduler's render loop exactly like the GPU renderer and
// never mutates the snapshot it is handed.
package stream

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/Carmen-Shannon/bounce-go/common"
	"github.com/Carmen-Shannon/bounce-go/engine/particle"
	"github.com/Carmen-Shannon/bounce-go/engine/scheduler"
	"github.com/gorilla/websocket"
)

// frameHeaderSize is the fixed binary header preceding the particle array:
// generation uint64, count uint32, overlaps uint32, width float32,
// height float32 — all little-endian.
const frameHeaderSize = 8 + 4 + 4 + 4 + 4

// DefaultWriteTimeout bounds how long a broadcast waits on one client before
// evicting it. A stalled viewer must never stall the render loop.
const DefaultWriteTimeout = 2 * time.Second

// FrameHeader is the decoded fixed portion of a wire frame.
type FrameHeader struct {
	// Generation is the snapshot's generation number.
	Generation uint64
	// Count is the number of particles following the header.
	Count uint32
	// Overlaps is the overlapping-pair count for the generation.
	Overlaps uint32
	// Width is the domain rectangle width.
	Width float32
	// Height is the domain rectangle height.
	Height float32
}

// stream implements the Stream interface.
type stream struct {
	addr         string
	path         string
	writeTimeout time.Duration

	server   *http.Server
	upgrader websocket.Upgrader

	// clientsMu guards the clients set; handler goroutines add clients while
	// the render loop broadcasts to them.
	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}

	// staging is the reusable GPU-layout conversion buffer for the render
	// loop; bufferPool recycles encoded wire frames across generations.
	staging    []particle.GPUParticle
	bufferPool sync.Pool

	domainWidth  float32
	domainHeight float32
}

// Stream broadcasts generation snapshots to connected websocket clients. It
// implements scheduler.Consumer, so it can be attached to the render loop
// directly or fanned out after the GPU renderer.
type Stream interface {
	// Consume encodes one generation as a binary frame and writes it to every
	// connected client. Clients that cannot keep up within the write timeout
	// are evicted. Never blocks on a stalled client beyond the timeout.
	//
	// Parameters:
	//   - frame: the generation snapshot (valid only during the call)
	//
	// Returns:
	//   - error: error if encoding fails; per-client write failures only evict
	Consume(frame scheduler.Frame) error

	// ListenAndServe starts the websocket endpoint and blocks until the
	// server stops. Run it on its own goroutine.
	//
	// Returns:
	//   - error: the terminal server error (http.ErrServerClosed after Shutdown)
	ListenAndServe() error

	// Shutdown stops the server and disconnects all clients.
	//
	// Parameters:
	//   - ctx: deadline for the graceful drain
	//
	// Returns:
	//   - error: error if the server could not shut down within the deadline
	Shutdown(ctx context.Context) error

	// Clients returns the number of currently connected viewers.
	//
	// Returns:
	//   - int: the connected client count
	Clients() int

	// Addr returns the listen address the stream serves on.
	//
	// Returns:
	//   - string: the listen address
	Addr() string
}

// Ensure stream implements Stream and the scheduler's Consumer.
var (
	_ Stream             = &stream{}
	_ scheduler.Consumer = &stream{}
)

// NewStream creates a Stream with the provided options. Defaults: listen on
// :8080, serve the websocket at /ws, 2 s write timeout, 800×600 domain.
//
// Parameters:
//   - options: functional options for stream configuration
//
// Returns:
//   - Stream: the newly created stream
func NewStream(options ...StreamBuilderOption) Stream {
	s := &stream{
		addr:         ":8080",
		path:         "/ws",
		writeTimeout: DefaultWriteTimeout,
		clients:      make(map[*websocket.Conn]struct{}),
		domainWidth:  particle.DefaultDomainWidth,
		domainHeight: particle.DefaultDomainHeight,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Demo viewer endpoint: any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.bufferPool.New = func() any { return &bytes.Buffer{} }

	for _, opt := range options {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleWebsocket)
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	return s
}

func (s *stream) ListenAndServe() error {
	log.Printf("[Stream] serving websocket frames on %s%s", s.addr, s.path)
	return s.server.ListenAndServe()
}

func (s *stream) Shutdown(ctx context.Context) error {
	s.clientsMu.Lock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	return s.server.Shutdown(ctx)
}

func (s *stream) Clients() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

func (s *stream) Addr() string {
	return s.addr
}

func (s *stream) Consume(frame scheduler.Frame) error {
	s.clientsMu.Lock()
	if len(s.clients) == 0 {
		s.clientsMu.Unlock()
		return nil
	}
	s.clientsMu.Unlock()

	s.staging = particle.ToGPU(s.staging, frame.Particles)

	buf := s.bufferPool.Get().(*bytes.Buffer)
	defer s.bufferPool.Put(buf)
	buf.Reset()
	s.encodeFrame(buf, frame.Generation, uint32(frame.Overlaps), s.staging)

	data := buf.Bytes()

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			// Slow or gone: evict so one stalled viewer cannot hold the
			// render loop beyond the deadline.
			log.Printf("[Stream] evicting client %s: %v", conn.RemoteAddr(), err)
			conn.Close()
			delete(s.clients, conn)
		}
	}
	return nil
}

// encodeFrame appends the wire encoding of one generation to buf: the fixed
// header followed by the raw GPU-layout particle array.
func (s *stream) encodeFrame(buf *bytes.Buffer, generation uint64, overlaps uint32, particles []particle.GPUParticle) {
	var header [frameHeaderSize]byte
	binary.LittleEndian.PutUint64(header[0:8], generation)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(particles)))
	binary.LittleEndian.PutUint32(header[12:16], overlaps)
	binary.LittleEndian.PutUint32(header[16:20], math.Float32bits(s.domainWidth))
	binary.LittleEndian.PutUint32(header[20:24], math.Float32bits(s.domainHeight))
	buf.Write(header[:])
	buf.Write(common.SliceToBytes(particles))
}

// handleWebsocket upgrades the connection, registers the client, and drains
// inbound messages until the peer disconnects. Frames flow strictly
// server-to-client; inbound payloads are discarded.
func (s *stream) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Stream] upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	total := len(s.clients)
	s.clientsMu.Unlock()
	log.Printf("[Stream] client connected: %s (%d total)", conn.RemoteAddr(), total)

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
		conn.Close()
		log.Printf("[Stream] client disconnected: %s", conn.RemoteAddr())
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// DecodeFrame parses a wire frame produced by Consume back into its header
// and particle array. Intended for Go viewer clients and tests; browser
// viewers typically parse the same layout with a DataView.
//
// Parameters:
//   - data: one complete binary websocket message
//
// Returns:
//   - FrameHeader: the decoded header
//   - []particle.GPUParticle: the decoded particle array
//   - error: error if the payload is truncated or inconsistent
func DecodeFrame(data []byte) (FrameHeader, []particle.GPUParticle, error) {
	if len(data) < frameHeaderSize {
		return FrameHeader{}, nil, fmt.Errorf("frame too short: %d bytes", len(data))
	}

	header := FrameHeader{
		Generation: binary.LittleEndian.Uint64(data[0:8]),
		Count:      binary.LittleEndian.Uint32(data[8:12]),
		Overlaps:   binary.LittleEndian.Uint32(data[12:16]),
		Width:      math.Float32frombits(binary.LittleEndian.Uint32(data[16:20])),
		Height:     math.Float32frombits(binary.LittleEndian.Uint32(data[20:24])),
	}

	payload := data[frameHeaderSize:]
	expected := int(header.Count) * particle.GPUParticleSize
	if len(payload) != expected {
		return FrameHeader{}, nil, fmt.Errorf("frame payload is %d bytes, expected %d for %d particles", len(payload), expected, header.Count)
	}

	particles := make([]particle.GPUParticle, header.Count)
	for i := range particles {
		rec := payload[i*particle.GPUParticleSize:]
		particles[i] = particle.GPUParticle{
			Position: [2]float32{
				math.Float32frombits(binary.LittleEndian.Uint32(rec[0:4])),
				math.Float32frombits(binary.LittleEndian.Uint32(rec[4:8])),
			},
			Velocity: [2]float32{
				math.Float32frombits(binary.LittleEndian.Uint32(rec[8:12])),
				math.Float32frombits(binary.LittleEndian.Uint32(rec[12:16])),
			},
			Radius: math.Float32frombits(binary.LittleEndian.Uint32(rec[16:20])),
			Color: [4]float32{
				math.Float32frombits(binary.LittleEndian.Uint32(rec[32:36])),
				math.Float32frombits(binary.LittleEndian.Uint32(rec[36:40])),
				math.Float32frombits(binary.LittleEndian.Uint32(rec[40:44])),
				math.Float32frombits(binary.LittleEndian.Uint32(rec[44:48])),
			},
		}
	}

	return header, particles, nil
}
