package telemetry

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a command to the bridge.
	writeWait = 5 * time.Second

	// Time allowed between two frames before the link is considered dead.
	readWait = 30 * time.Second

	// Maximum frame size accepted from the bridge. Session info for a full
	// grid with camera groups stays well below this.
	maxFrameSize = 4 * 1024 * 1024
)

// BridgeSource reads telemetry from a websocket bridge running next to the
// simulator. The bridge pushes one frame per simulator tick, either as JSON
// text or as zstd-compressed JSON in a binary message, and accepts camera
// commands as JSON text.
type BridgeSource struct {
	url       string
	dialer    *websocket.Dialer
	validator *FrameValidator
	decoder   *zstd.Decoder
	logger    *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connID    string
	connected bool
	dialing   bool
	// epoch changes on Shutdown so a dial started before it is discarded.
	epoch uint64

	writeMu sync.Mutex
	snap    pinnedSnapshot
}

// BridgeOptions configures a BridgeSource.
type BridgeOptions struct {
	URL              string
	HandshakeTimeout time.Duration
	// Validator is optional; nil skips schema validation of frames.
	Validator *FrameValidator
}

// NewBridgeSource constructs the adapter. It does not dial; Startup does.
// Construction failure is the only fatal telemetry error.
func NewBridgeSource(opts BridgeOptions, logger *zap.Logger) (*BridgeSource, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("telemetry bridge url is required")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &BridgeSource{
		url: opts.URL,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
		validator: opts.Validator,
		decoder:   dec,
		logger:    logger,
	}, nil
}

// Startup reports whether the link is up. Without a link it starts a
// background dial and returns false; a later call sees the outcome.
func (b *BridgeSource) Startup() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		return true
	}
	if !b.dialing {
		b.dialing = true
		go b.dial(b.epoch)
	}
	return false
}

func (b *BridgeSource) dial(epoch uint64) {
	conn, _, err := b.dialer.Dial(b.url, nil)

	b.mu.Lock()
	b.dialing = false
	if err != nil {
		b.mu.Unlock()
		b.logger.Debug("telemetry bridge not reachable",
			zap.String("url", b.url),
			zap.Error(err),
		)
		return
	}
	if epoch != b.epoch {
		b.mu.Unlock()
		conn.Close()
		return
	}

	connID := uuid.New().String()
	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(readWait))
	b.conn = conn
	b.connID = connID
	b.mu.Unlock()

	b.logger.Info("telemetry bridge attached",
		zap.String("url", b.url),
		zap.String("connID", connID),
	)

	go b.readPump(conn, connID)
}

// readPump keeps the latest frame until the link drops.
func (b *BridgeSource) readPump(conn *websocket.Conn, connID string) {
	defer b.detach(conn)

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Warn("telemetry bridge read error",
					zap.String("connID", connID),
					zap.Error(err),
				)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readWait))

		if msgType == websocket.BinaryMessage {
			message, err = b.decoder.DecodeAll(message, nil)
			if err != nil {
				b.logger.Warn("dropping undecodable frame",
					zap.String("connID", connID),
					zap.Error(err),
				)
				continue
			}
		}

		frame, err := DecodeFrame(message, b.validator)
		if err != nil {
			b.logger.Warn("dropping invalid frame",
				zap.String("connID", connID),
				zap.Error(err),
			)
			continue
		}
		b.apply(frame)
	}
}

func (b *BridgeSource) apply(f *Frame) {
	b.mu.Lock()
	b.connected = f.Connected
	b.mu.Unlock()
	if f.Data != nil {
		b.snap.store(f.Data)
	}
}

// detach forgets conn if it is still the active link.
func (b *BridgeSource) detach(conn *websocket.Conn) {
	conn.Close()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != conn {
		return
	}
	b.conn = nil
	b.connected = false
	b.snap.reset()
}

func (b *BridgeSource) IsInitialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

func (b *BridgeSource) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.connected
}

func (b *BridgeSource) Freeze()  { b.snap.freeze() }
func (b *BridgeSource) Release() { b.snap.release() }

func (b *BridgeSource) Snapshot() *Snapshot { return b.snap.get() }

// SwitchCamera writes a camera command to the bridge.
func (b *BridgeSource) SwitchCamera(carNumber string, group, mode int) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	cmd := Command{
		Type:      CommandCameraSwitch,
		CarNumber: carNumber,
		Group:     group,
		Mode:      mode,
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("write camera command: %w", err)
	}
	return nil
}

// Shutdown closes the link. The read pump clears the cached snapshot.
func (b *BridgeSource) Shutdown() {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.connected = false
	b.epoch++
	b.mu.Unlock()

	b.snap.reset()
	if conn == nil {
		return
	}

	b.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	b.writeMu.Unlock()
	conn.Close()
}
