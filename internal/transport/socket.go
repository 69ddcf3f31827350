package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rentnest/nestchat/internal/core"
	"github.com/rentnest/nestchat/internal/types"
)

const (
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	readLimit    = 32 << 20
	eventBuffer  = 256
)

// Options configures a Socket.
type Options struct {
	URL            string
	UserID         types.ID
	Token          string
	ReconnectDelay time.Duration
	Logger         *zap.SugaredLogger
	Dialer         *websocket.Dialer
}

// Socket is a websocket Transport that redials after a fixed delay whenever
// the connection drops.
type Socket struct {
	opts   Options
	url    string
	header http.Header
	events chan any

	mu   sync.Mutex
	conn *websocket.Conn

	writeMu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// Dial starts the connection loop and returns immediately. The first
// types.Connected event reports a successful handshake.
func Dial(ctx context.Context, opts Options) (*Socket, error) {
	endpoint, err := socketURL(opts.URL, opts.UserID)
	if err != nil {
		return nil, err
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = core.DefaultReconnectDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Socket{
		opts:   opts,
		url:    endpoint,
		header: header,
		events: make(chan any, eventBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx)
	return s, nil
}

// socketURL converts http(s) URLs to ws(s) and adds the userId parameter.
func socketURL(raw string, userID types.ID) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("socket url cannot be empty")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid socket url: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("socket url must use ws:// or wss://")
	}
	if !userID.IsZero() {
		query := parsed.Query()
		query.Set("userId", string(userID))
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}

func (s *Socket) Events() <-chan any {
	return s.events
}

func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Send writes one intent. It does not wait for any acknowledgement.
func (s *Socket) Send(event string, payload any) error {
	frame, err := encodeEnvelope(event, payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

// Close stops the connection loop and closes the events channel.
func (s *Socket) Close() error {
	s.cancel()
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = s.conn.Close()
	}
	s.mu.Unlock()
	<-s.done
	return nil
}

func (s *Socket) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)

	for {
		conn, _, err := s.opts.Dialer.DialContext(ctx, s.url, s.header)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.opts.Logger.Debugw("socket dial failed", "url", s.url, "error", err)
		} else {
			s.setConn(conn)
			if !s.emit(ctx, types.Connected{}) {
				s.setConn(nil)
				_ = conn.Close()
				return
			}
			s.opts.Logger.Infow("socket connected", "url", s.url)

			err = s.readLoop(ctx, conn)
			s.setConn(nil)
			_ = conn.Close()
			if ctx.Err() != nil {
				return
			}
			s.opts.Logger.Warnw("socket disconnected", "error", err)
			if !s.emit(ctx, types.Disconnected{Err: err}) {
				return
			}
		}

		timer := time.NewTimer(s.opts.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Socket) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

func (s *Socket) emit(ctx context.Context, event any) bool {
	select {
	case s.events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Socket) readLoop(ctx context.Context, conn *websocket.Conn) error {
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	stop := make(chan struct{})
	defer close(stop)
	go s.keepalive(ctx, conn, stop)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("closed by server")
			}
			return err
		}
		event, err := decodeFrame(raw)
		if err != nil {
			var unknown *unknownEventError
			if errors.As(err, &unknown) {
				s.opts.Logger.Debugw("ignoring socket event", "event", unknown.name)
			} else {
				s.opts.Logger.Warnw("skipping malformed socket frame", "error", err)
			}
			continue
		}
		if !s.emit(ctx, event) {
			return ctx.Err()
		}
	}
}

func (s *Socket) keepalive(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				s.opts.Logger.Debugw("socket ping failed", "error", err)
				_ = conn.Close()
				return
			}
		}
	}
}
