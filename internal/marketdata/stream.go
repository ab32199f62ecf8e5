package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"kinkong/internal/domain"
)

// StreamConfig configures the live price stream.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// PriceStream receives live price pushes over WebSocket and fans them
// out on a channel. It reconnects with exponential backoff and
// resubscribes the tracked mints after every reconnect.
type PriceStream struct {
	endpoint string
	config   StreamConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// mints tracked for resubscription after reconnect
	mints   map[string]struct{}
	mintsMu sync.RWMutex

	out chan domain.TokenSnapshot

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewPriceStream connects to the endpoint and starts the reader.
func NewPriceStream(ctx context.Context, endpoint string, logger *log.Logger, config *StreamConfig) (*PriceStream, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &PriceStream{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		mints:    make(map[string]struct{}),
		out:      make(chan domain.TokenSnapshot, 1024),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// Updates returns the snapshot channel. It is closed on Close.
func (s *PriceStream) Updates() <-chan domain.TokenSnapshot {
	return s.out
}

// Subscribe starts price pushes for a mint.
func (s *PriceStream) Subscribe(mint string) error {
	if s.closed.Load() {
		return fmt.Errorf("stream closed")
	}

	s.mintsMu.Lock()
	s.mints[mint] = struct{}{}
	s.mintsMu.Unlock()

	return s.writeSubscribe(mint)
}

func (s *PriceStream) writeSubscribe(mint string) error {
	msg := streamSubscribeMsg{
		Type: "SUBSCRIBE_PRICE",
		Data: streamSubscribeData{Address: mint, ChartType: "1m", Currency: "usd"},
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Close closes the connection and the updates channel.
func (s *PriceStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.out)
	return nil
}

func (s *PriceStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

func (s *PriceStream) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = s.config.ReconnectDelay

		s.handleMessage(message)
	}
}

func (s *PriceStream) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		s.logger.Printf("[marketdata] stream reconnect failed: %v", err)
		return
	}

	// Resubscribe everything tracked before the drop.
	s.mintsMu.RLock()
	mints := make([]string, 0, len(s.mints))
	for mint := range s.mints {
		mints = append(mints, mint)
	}
	s.mintsMu.RUnlock()

	for _, mint := range mints {
		if err := s.writeSubscribe(mint); err != nil {
			s.logger.Printf("[marketdata] resubscribe %s failed: %v", mint, err)
		}
	}
}

func (s *PriceStream) handleMessage(message []byte) {
	var msg streamPriceMsg
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if msg.Type != "PRICE_DATA" || msg.Data == nil {
		return
	}

	snap := domain.TokenSnapshot{
		Mint:        msg.Data.Address,
		TimestampMs: msg.Data.UnixTime * 1000,
		Price:       msg.Data.Close,
		Volume24h:   msg.Data.Volume,
	}

	// Block until we can send, never drop updates.
	select {
	case s.out <- snap:
	case <-s.done:
	}
}

func (s *PriceStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}

// WebSocket message types

type streamSubscribeMsg struct {
	Type string              `json:"type"`
	Data streamSubscribeData `json:"data"`
}

type streamSubscribeData struct {
	Address   string `json:"address"`
	ChartType string `json:"chartType"`
	Currency  string `json:"currency"`
}

type streamPriceMsg struct {
	Type string           `json:"type"`
	Data *streamPriceData `json:"data"`
}

type streamPriceData struct {
	Address  string  `json:"address"`
	UnixTime int64   `json:"unixTime"`
	Close    float64 `json:"c"`
	Volume   float64 `json:"v"`
}
