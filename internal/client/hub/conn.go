package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const writeTimeout = 10 * time.Second

type completion struct {
	msg inMessage
	err error
}

// conn is one established WebSocket link. A reconnect replaces it with a new
// conn; pending invocations never survive a drop.
type conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	pendMu  sync.Mutex
	pending map[string]chan completion
	closed  bool

	closeOnce sync.Once
}

// dial opens the socket and completes the protocol handshake. Records that
// arrived in the same frame as the handshake response are returned so they
// can be dispatched once the read loop starts.
func dial(ctx context.Context, cfg Config, sessionID, token string) (*conn, [][]byte, error) {
	target, err := hubURL(cfg.URL, sessionID, token)
	if err != nil {
		return nil, nil, err
	}

	ws, resp, err := cfg.Dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, nil, fmt.Errorf("dial hub: %w (status %d)", err, resp.StatusCode)
		}
		return nil, nil, fmt.Errorf("dial hub: %w", err)
	}

	rest, err := doHandshake(ws, cfg.HandshakeTimeout)
	if err != nil {
		_ = ws.Close()
		return nil, nil, err
	}

	return &conn{ws: ws, pending: make(map[string]chan completion)}, rest, nil
}

func hubURL(base, sessionID, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse hub url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("hub url %q: unsupported scheme", base)
	}

	q := u.Query()
	q.Set("sessionId", sessionID)
	if token != "" {
		q.Set(common.AccessTokenQueryParam, token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func doHandshake(ws *websocket.Conn, timeout time.Duration) ([][]byte, error) {
	record, err := encodeRecord(handshake)
	if err != nil {
		return nil, err
	}

	_ = ws.SetWriteDeadline(time.Now().Add(timeout))
	if err := ws.WriteMessage(websocket.TextMessage, record); err != nil {
		return nil, fmt.Errorf("send handshake: %w", err)
	}

	_ = ws.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read handshake response: %w", err)
	}

	records := splitRecords(data)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrHandshake)
	}
	var resp handshakeResponse
	if err := json.Unmarshal(records[0], &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrHandshake, resp.Error)
	}

	_ = ws.SetReadDeadline(time.Time{})
	_ = ws.SetWriteDeadline(time.Time{})
	return records[1:], nil
}

// run serves the link until it fails or ctx is cancelled. Every pending
// invocation is failed before run returns.
func (cn *conn) run(ctx context.Context, cfg Config, handle func(inMessage) error) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			_ = cn.ws.SetReadDeadline(time.Now().Add(cfg.ServerTimeout))
			_, data, err := cn.ws.ReadMessage()
			if err != nil {
				return readError(err)
			}
			for _, record := range splitRecords(data) {
				m, err := decodeMessage(record)
				if err != nil {
					return err
				}
				if err := handle(m); err != nil {
					return err
				}
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.KeepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := cn.write(pingMessage{Type: typePing}); err != nil {
					return fmt.Errorf("send ping: %w", err)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		cn.close()
		return nil
	})

	err := g.Wait()
	cn.failPending(ErrConnectionClosed)
	return err
}

func readError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrServerTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
}

func (cn *conn) write(m any) error {
	record, err := encodeRecord(m)
	if err != nil {
		return err
	}

	cn.writeMu.Lock()
	defer cn.writeMu.Unlock()
	_ = cn.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return cn.ws.WriteMessage(websocket.TextMessage, record)
}

// close sends a close frame and releases the socket. Safe to call more
// than once and concurrently with reads and writes.
func (cn *conn) close() {
	cn.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = cn.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = cn.ws.Close()
	})
}

// addPending registers an invocation id. ok is false once the link is down.
func (cn *conn) addPending(id string) (ch chan completion, ok bool) {
	cn.pendMu.Lock()
	defer cn.pendMu.Unlock()
	if cn.closed {
		return nil, false
	}
	ch = make(chan completion, 1)
	cn.pending[id] = ch
	return ch, true
}

func (cn *conn) removePending(id string) {
	cn.pendMu.Lock()
	delete(cn.pending, id)
	cn.pendMu.Unlock()
}

func (cn *conn) complete(m inMessage) bool {
	cn.pendMu.Lock()
	ch, ok := cn.pending[m.InvocationID]
	delete(cn.pending, m.InvocationID)
	cn.pendMu.Unlock()

	if ok {
		ch <- completion{msg: m}
	}
	return ok
}

func (cn *conn) failPending(err error) {
	cn.pendMu.Lock()
	defer cn.pendMu.Unlock()
	cn.closed = true
	for id, ch := range cn.pending {
		ch <- completion{err: err}
		delete(cn.pending, id)
	}
}
