// Package hub is a client for the live-session hub, a SignalR endpoint
// reached over a plain WebSocket with negotiation skipped and the JSON hub
// protocol.
//
// A Client holds at most one connection, bound to one live session. After a
// successful start a dropped link is re-established automatically until
// MaxReconnectAttempts is exhausted. Invocations are not queued while the
// link is down: they fail with ErrNotConnected.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/logging"
	"github.com/google/uuid"
)

// State is the position in the connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TokenFunc supplies the access token for each connection attempt. An empty
// token connects anonymously.
type TokenFunc func(ctx context.Context) (string, error)

// Handler receives the raw arguments of a server-to-client invocation.
// Handlers run on the connection's read goroutine and must not block on
// other hub calls.
type Handler func(args []json.RawMessage)

// run is one connection lifetime, from StartConnection until StopConnection
// or giving up.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc
}

type Client struct {
	cfg    Config
	token  TokenFunc
	logger logging.Logger

	mu        sync.Mutex
	state     State
	sessionID string
	conn      *conn
	run       *run
	wg        sync.WaitGroup

	handlersMu sync.RWMutex
	handlers   map[string]map[int]Handler
	nextID     int

	onReconnecting func(error)
	onReconnected  func()
	onClose        func(error)
}

func NewClient(cfg Config, token TokenFunc, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.Nop()
	}
	if token == nil {
		token = func(context.Context) (string, error) { return "", nil }
	}
	return &Client{
		cfg:      cfg.withDefaults(),
		token:    token,
		logger:   logger.With("component", "hub"),
		handlers: make(map[string]map[int]Handler),
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the session the client is bound to, "" when stopped.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// OnReconnecting is called with the cause when a live link drops.
func (c *Client) OnReconnecting(f func(err error)) {
	c.mu.Lock()
	c.onReconnecting = f
	c.mu.Unlock()
}

// OnReconnected is called after a dropped link is re-established, on its own
// goroutine while the connection is already serving. It may invoke hub
// methods, for example to rejoin the session, but must not call
// StopConnection.
func (c *Client) OnReconnected(f func()) {
	c.mu.Lock()
	c.onReconnected = f
	c.mu.Unlock()
}

// OnClose is called once per connection lifetime: with nil after
// StopConnection, or with the cause when the link is given up.
func (c *Client) OnClose(f func(err error)) {
	c.mu.Lock()
	c.onClose = f
	c.mu.Unlock()
}

// StartConnection connects to the hub for sessionID. Starting the session
// that is already live is a no-op.
func (c *Client) StartConnection(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	switch c.state {
	case StateConnected, StateReconnecting:
		same := c.sessionID == sessionID
		c.mu.Unlock()
		if same {
			return nil
		}
		return ErrAlreadyConnected
	case StateConnecting:
		c.mu.Unlock()
		return ErrStartInProgress
	}
	r := &run{}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	c.state = StateConnecting
	c.sessionID = sessionID
	c.run = r
	c.mu.Unlock()

	cn, rest, err := c.start(ctx, r, sessionID)
	if err != nil {
		r.cancel()
		c.mu.Lock()
		if c.run == r {
			c.run = nil
			c.state = StateDisconnected
			c.sessionID = ""
		}
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if c.run != r {
		// stopped while the handshake was in flight
		c.mu.Unlock()
		cn.close()
		return ErrConnectionClosed
	}
	c.conn = cn
	c.state = StateConnected
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Info(ctx, "hub connected", "session_id", sessionID)
	go c.supervise(r, cn, rest, sessionID)
	return nil
}

func (c *Client) start(ctx context.Context, r *run, sessionID string) (*conn, [][]byte, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.ctx, cancel)
	defer stop()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.StartAttempts; attempt++ {
		cn, rest, err := c.connect(ctx, sessionID)
		if err == nil {
			return cn, rest, nil
		}
		lastErr = err
		c.logger.Warn(ctx, "hub start attempt failed",
			"session_id", sessionID, "attempt", attempt, "error", err)

		if attempt == c.cfg.StartAttempts {
			break
		}
		if err := sleep(ctx, c.cfg.StartRetryDelay); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrStartFailed, err)
		}
	}
	return nil, nil, fmt.Errorf("%w after %d attempts: %w", ErrStartFailed, c.cfg.StartAttempts, lastErr)
}

func (c *Client) connect(ctx context.Context, sessionID string) (*conn, [][]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("access token: %w", err)
	}
	return dial(ctx, c.cfg, sessionID, token)
}

// supervise serves cn and, when it drops, drives the reconnect loop.
func (c *Client) supervise(r *run, cn *conn, rest [][]byte, sessionID string) {
	defer c.wg.Done()
	runCtx := r.ctx

	for {
		err := c.serve(runCtx, cn, rest)
		if runCtx.Err() != nil {
			return
		}

		var closeErr *CloseError
		if errors.As(err, &closeErr) && !closeErr.AllowReconnect {
			c.logger.Info(runCtx, "hub closed the connection", "session_id", sessionID, "error", err)
			c.giveUp(r, StateDisconnected, err)
			return
		}

		if cn, rest = c.reconnect(r, sessionID, err); cn == nil {
			return
		}
	}
}

// serve handles the records that came with the handshake response and then
// runs cn until it drops. A Close among the early records ends cn without
// starting the read loop.
func (c *Client) serve(ctx context.Context, cn *conn, rest [][]byte) error {
	for _, record := range rest {
		m, err := decodeMessage(record)
		if err != nil {
			c.logger.Debug(ctx, "skipping malformed hub record", "error", err)
			continue
		}
		if err := c.handle(cn, m); err != nil {
			cn.close()
			cn.failPending(ErrConnectionClosed)
			return err
		}
	}
	return cn.run(ctx, c.cfg, func(m inMessage) error { return c.handle(cn, m) })
}

func (c *Client) reconnect(r *run, sessionID string, cause error) (*conn, [][]byte) {
	runCtx := r.ctx

	c.mu.Lock()
	if c.run != r {
		c.mu.Unlock()
		return nil, nil
	}
	c.conn = nil
	c.state = StateReconnecting
	onReconnecting := c.onReconnecting
	c.mu.Unlock()

	c.logger.Warn(runCtx, "hub connection lost", "session_id", sessionID, "error", cause)
	if onReconnecting != nil {
		onReconnecting(cause)
	}

	down := time.Now()
	lastErr := cause
	for attempt := 1; attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		if sleep(runCtx, c.cfg.reconnectDelay(time.Since(down))) != nil {
			return nil, nil
		}

		cn, rest, err := c.connect(runCtx, sessionID)
		if err != nil {
			lastErr = err
			c.logger.Warn(runCtx, "hub reconnect attempt failed",
				"session_id", sessionID, "attempt", attempt, "error", err)
			continue
		}

		c.mu.Lock()
		if c.run != r {
			c.mu.Unlock()
			cn.close()
			return nil, nil
		}
		c.conn = cn
		c.state = StateConnected
		onReconnected := c.onReconnected
		c.mu.Unlock()

		c.logger.Info(runCtx, "hub reconnected", "session_id", sessionID, "attempt", attempt)
		if onReconnected != nil {
			// The caller restarts the read loop, so the callback runs on its
			// own goroutine and may invoke hub methods.
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				onReconnected()
			}()
		}
		return cn, rest
	}

	c.giveUp(r, StateFailed, fmt.Errorf("%w: %w", ErrReconnectFailed, lastErr))
	return nil, nil
}

// giveUp ends the connection lifetime unless StopConnection got there first.
func (c *Client) giveUp(r *run, state State, err error) {
	c.mu.Lock()
	if c.run != r {
		c.mu.Unlock()
		return
	}
	c.run = nil
	c.conn = nil
	c.state = state
	c.sessionID = ""
	onClose := c.onClose
	c.mu.Unlock()

	r.cancel()
	c.logger.Error(r.ctx, "hub connection given up", "state", state, "error", err)
	if onClose != nil {
		onClose(err)
	}
}

// StopConnection closes the connection and cancels any start or reconnect in
// progress. It is safe to call at any time and more than once. It must not
// be called from a Handler.
func (c *Client) StopConnection() {
	c.mu.Lock()
	r, cn, prev := c.run, c.conn, c.state
	c.run = nil
	c.conn = nil
	c.state = StateDisconnected
	c.sessionID = ""
	onClose := c.onClose
	c.mu.Unlock()

	if r != nil {
		r.cancel()
	}
	if cn != nil {
		cn.close()
	}
	c.wg.Wait()

	if prev == StateConnected || prev == StateReconnecting {
		c.logger.Info(context.Background(), "hub disconnected")
		if onClose != nil {
			onClose(nil)
		}
	}
}

// live returns the open connection or ErrNotConnected.
func (c *Client) live() (*conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// Invoke calls a hub method and waits for its completion. The result is the
// raw JSON value the method returned, nil for void methods.
func (c *Client) Invoke(ctx context.Context, target string, args ...any) (json.RawMessage, error) {
	cn, err := c.live()
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = []any{}
	}

	id := uuid.NewString()
	ch, ok := cn.addPending(id)
	if !ok {
		return nil, ErrNotConnected
	}
	defer cn.removePending(id)

	msg := outMessage{Type: typeInvocation, InvocationID: id, Target: target, Arguments: args}
	if err := cn.write(msg); err != nil {
		return nil, fmt.Errorf("invoke %s: %w", target, err)
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("invoke %s: %w", target, res.err)
		}
		if res.msg.Error != "" {
			return nil, &InvocationError{Target: target, Message: res.msg.Error}
		}
		return res.msg.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// On registers h for a server-to-client method. Method names match
// case-insensitively.
func (c *Client) On(target string, h Handler) (remove func()) {
	key := strings.ToLower(target)

	c.handlersMu.Lock()
	id := c.nextID
	c.nextID++
	if c.handlers[key] == nil {
		c.handlers[key] = make(map[int]Handler)
	}
	c.handlers[key][id] = h
	c.handlersMu.Unlock()

	return func() {
		c.handlersMu.Lock()
		delete(c.handlers[key], id)
		c.handlersMu.Unlock()
	}
}

func (c *Client) handle(cn *conn, m inMessage) error {
	switch m.Type {
	case typeInvocation:
		c.dispatch(m)
	case typeCompletion:
		if !cn.complete(m) {
			c.logger.Debug(context.Background(), "completion for unknown invocation", "invocation_id", m.InvocationID)
		}
	case typePing:
	case typeClose:
		return &CloseError{Message: m.Error, AllowReconnect: m.AllowReconnect}
	default:
		c.logger.Debug(context.Background(), "ignoring hub message", "type", m.Type)
	}
	return nil
}

func (c *Client) dispatch(m inMessage) {
	c.handlersMu.RLock()
	registered := c.handlers[strings.ToLower(m.Target)]
	hs := make([]Handler, 0, len(registered))
	for _, h := range registered {
		hs = append(hs, h)
	}
	c.handlersMu.RUnlock()

	if len(hs) == 0 {
		c.logger.Debug(context.Background(), "no handler for hub method", "target", m.Target)
		return
	}
	for _, h := range hs {
		h(m.Arguments)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
