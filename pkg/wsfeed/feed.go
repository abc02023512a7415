// Package wsfeed maintains a venue WebSocket connection: dialing, keepalive
// pings, jittered-backoff reconnection and raw frame delivery. Frame payloads
// are venue-specific; decoding happens in the venue adapters.
package wsfeed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Feed manages a single WebSocket connection to one venue.
type Feed struct {
	venue           string
	url             string
	conn            *websocket.Conn
	logger          *zap.Logger
	reconnectMgr    *ReconnectManager
	config          Config
	frameChan       chan []byte
	onReconnect     func(context.Context) error
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.RWMutex
	connected       atomic.Bool
	connectionStart atomic.Int64 // Unix timestamp of connection start
	bytesReceived   atomic.Int64
	bytesSent       atomic.Int64
	reconnects      atomic.Int64
}

// Config holds WebSocket feed configuration.
type Config struct {
	Venue                string
	URL                  string
	DialTimeout          time.Duration
	PingInterval         time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	FrameBufferSize      int
	Logger               *zap.Logger
}

// Stats is a point-in-time snapshot of the feed's transport counters.
type Stats struct {
	Connected     bool
	BytesReceived int64
	BytesSent     int64
	Reconnects    int64
}

// New creates a new WebSocket feed. The feed does not connect until Start.
func New(cfg Config) *Feed {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.FrameBufferSize <= 0 {
		cfg.FrameBufferSize = 1000
	}

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectDelay,
		MaxDelay:          8 * cfg.ReconnectDelay,
		BackoffMultiplier: 2.0,
		JitterPercent:     0.2,
		MaxAttempts:       cfg.MaxReconnectAttempts,
	}

	return &Feed{
		venue:        cfg.Venue,
		url:          cfg.URL,
		logger:       cfg.Logger,
		reconnectMgr: NewReconnectManager(cfg.Venue, reconnectCfg, cfg.Logger),
		config:       cfg,
		frameChan:    make(chan []byte, cfg.FrameBufferSize),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// SetOnReconnect registers a hook invoked after every successful reconnect,
// before the read loop restarts. Venue adapters use it to resubscribe.
// Must be called before Start.
func (f *Feed) SetOnReconnect(hook func(context.Context) error) {
	f.onReconnect = hook
}

// Start establishes the initial connection and starts the feed goroutines.
func (f *Feed) Start() error {
	f.logger.Info("websocket-feed-starting",
		zap.String("venue", f.venue),
		zap.String("url", f.url))

	err := f.connect(f.ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	f.wg.Add(3)
	go f.readLoop()
	go f.pingLoop()
	go f.reconnectLoop()

	return nil
}

// connect establishes a WebSocket connection.
func (f *Feed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: f.config.DialTimeout,
	}

	f.logger.Info("connecting-to-websocket",
		zap.String("venue", f.venue),
		zap.String("url", f.url))

	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	f.connected.Store(true)
	f.connectionStart.Store(time.Now().Unix())
	ActiveConnections.WithLabelValues(f.venue).Set(1)

	f.logger.Info("websocket-connected", zap.String("venue", f.venue))

	return nil
}

// Send marshals payload as JSON and writes it as a single text frame.
func (f *Feed) Send(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	f.mu.RLock()
	conn := f.conn
	f.mu.RUnlock()

	if conn == nil || !f.connected.Load() {
		return fmt.Errorf("venue %s: not connected", f.venue)
	}

	err = conn.WriteMessage(websocket.TextMessage, data)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	f.bytesSent.Add(int64(len(data)))
	BytesSentTotal.WithLabelValues(f.venue).Add(float64(len(data)))

	return nil
}

// readLoop reads frames from the WebSocket and delivers them to Frames().
func (f *Feed) readLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		f.mu.RLock()
		conn := f.conn
		f.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-f.ctx.Done():
				return
			default:
			}

			f.logger.Warn("read-error",
				zap.String("venue", f.venue),
				zap.Error(err))

			startTime := f.connectionStart.Load()
			if startTime > 0 {
				duration := time.Since(time.Unix(startTime, 0)).Seconds()
				ConnectionDuration.WithLabelValues(f.venue).Observe(duration)
			}

			f.connected.Store(false)
			ActiveConnections.WithLabelValues(f.venue).Set(0)
			return
		}

		f.bytesReceived.Add(int64(len(message)))
		BytesReceivedTotal.WithLabelValues(f.venue).Add(float64(len(message)))
		FramesReceivedTotal.WithLabelValues(f.venue).Inc()

		select {
		case f.frameChan <- message:
		default:
			f.logger.Warn("frame-channel-full", zap.String("venue", f.venue))
			FramesDroppedTotal.WithLabelValues(f.venue, "channel_full").Inc()
		}
	}
}

// pingLoop sends periodic PING control frames.
func (f *Feed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			if !f.connected.Load() {
				continue
			}

			f.mu.RLock()
			conn := f.conn
			f.mu.RUnlock()

			if conn == nil {
				continue
			}

			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
			if err != nil {
				f.logger.Warn("ping-error",
					zap.String("venue", f.venue),
					zap.Error(err))
			}
		}
	}
}

// reconnectLoop re-establishes the connection whenever it drops.
func (f *Feed) reconnectLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		if f.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		f.logger.Warn("connection-lost-initiating-reconnect", zap.String("venue", f.venue))

		err := f.reconnectMgr.Reconnect(f.ctx, f.connect)
		if err != nil {
			if f.ctx.Err() != nil {
				return
			}
			f.logger.Error("reconnection-failed",
				zap.String("venue", f.venue),
				zap.Error(err))
			continue
		}

		f.reconnects.Add(1)

		if f.onReconnect != nil {
			err = f.onReconnect(f.ctx)
			if err != nil {
				f.logger.Error("resubscribe-failed",
					zap.String("venue", f.venue),
					zap.Error(err))
				f.connected.Store(false)
				continue
			}
		}

		f.logger.Info("reconnection-complete-restarting-read-loop", zap.String("venue", f.venue))

		f.wg.Add(1)
		go f.readLoop()
	}
}

// Frames returns the channel of raw inbound frames.
func (f *Feed) Frames() <-chan []byte {
	return f.frameChan
}

// Connected reports whether the feed currently has a live connection.
func (f *Feed) Connected() bool {
	return f.connected.Load()
}

// Stats returns a snapshot of the feed's transport counters.
func (f *Feed) Stats() Stats {
	return Stats{
		Connected:     f.connected.Load(),
		BytesReceived: f.bytesReceived.Load(),
		BytesSent:     f.bytesSent.Load(),
		Reconnects:    f.reconnects.Load(),
	}
}

// Close gracefully closes the feed.
func (f *Feed) Close() error {
	f.logger.Info("closing-websocket-feed", zap.String("venue", f.venue))

	f.cancel()

	f.mu.RLock()
	if f.conn != nil {
		f.conn.Close()
	}
	f.mu.RUnlock()

	f.wg.Wait()

	close(f.frameChan)

	ActiveConnections.WithLabelValues(f.venue).Set(0)

	f.logger.Info("websocket-feed-closed", zap.String("venue", f.venue))

	return nil
}
