package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/client/models"
)

// Hub method names.
const (
	methodJoinSession    = "JoinSession"
	methodLeaveSession   = "LeaveSession"
	methodSendSignal     = "SendSignal"
	methodRequestHistory = "RequestHistory"
	methodSendMessage    = "SendMessage"

	eventReceiveMessage = "ReceiveMessage"
	eventReceiveSignal  = "ReceiveSignal"
	eventUserJoined     = "UserJoined"
	eventUserLeft       = "UserLeft"
)

// JoinSession announces userID in the live session.
func (c *Client) JoinSession(ctx context.Context, sessionID string, userID int64) error {
	_, err := c.Invoke(ctx, methodJoinSession, sessionID, userID)
	return err
}

// LeaveSession announces that userID left. On a connection that is not open
// there is nobody to tell, so it returns nil.
func (c *Client) LeaveSession(ctx context.Context, sessionID string, userID int64) error {
	_, err := c.Invoke(ctx, methodLeaveSession, sessionID, userID)
	if errors.Is(err, ErrNotConnected) || errors.Is(err, ErrConnectionClosed) {
		return nil
	}
	return err
}

// SendSignal relays payload to one participant. Signals are never queued:
// without an open connection it fails with ErrNotConnected.
func (c *Client) SendSignal(ctx context.Context, sessionID string, targetUserID int64, payload any) error {
	_, err := c.Invoke(ctx, methodSendSignal, sessionID, targetUserID, payload)
	return err
}

// RequestHistory asks for the chat lines sent so far in the session.
func (c *Client) RequestHistory(ctx context.Context) ([]models.ChatMessage, error) {
	raw, err := c.Invoke(ctx, methodRequestHistory)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var history []models.ChatMessage
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return history, nil
}

func (c *Client) SendMessage(ctx context.Context, content string) error {
	_, err := c.Invoke(ctx, methodSendMessage, content)
	return err
}

// OnReceiveMessage decodes ReceiveMessage(userName, userId, content,
// profilePictureUrl, timestamp).
func (c *Client) OnReceiveMessage(f func(models.ChatMessage)) (remove func()) {
	return c.On(eventReceiveMessage, func(args []json.RawMessage) {
		var (
			m       models.ChatMessage
			picture *string
			ts      string
		)
		if err := decodeArgs(args, &m.UserName, &m.UserID, &m.Content, &picture, &ts); err != nil {
			c.logger.Warn(context.Background(), "bad ReceiveMessage arguments", "error", err)
			return
		}
		if picture != nil {
			m.ProfilePictureURL = *picture
		}
		m.Timestamp = parseTimestamp(ts)
		f(m)
	})
}

// OnSignal decodes ReceiveSignal(fromUserId, payload).
func (c *Client) OnSignal(f func(models.Signal)) (remove func()) {
	return c.On(eventReceiveSignal, func(args []json.RawMessage) {
		var s models.Signal
		if err := decodeArgs(args, &s.FromUserID, &s.Payload); err != nil {
			c.logger.Warn(context.Background(), "bad ReceiveSignal arguments", "error", err)
			return
		}
		f(s)
	})
}

// OnUserJoined decodes UserJoined(sessionId, userId).
func (c *Client) OnUserJoined(f func(models.Participant)) (remove func()) {
	return c.On(eventUserJoined, c.participantHandler(eventUserJoined, f))
}

// OnUserLeft decodes UserLeft(sessionId, userId).
func (c *Client) OnUserLeft(f func(models.Participant)) (remove func()) {
	return c.On(eventUserLeft, c.participantHandler(eventUserLeft, f))
}

func (c *Client) participantHandler(event string, f func(models.Participant)) Handler {
	return func(args []json.RawMessage) {
		var p models.Participant
		if err := decodeArgs(args, &p.SessionID, &p.UserID); err != nil {
			c.logger.Warn(context.Background(), "bad "+event+" arguments", "error", err)
			return
		}
		f(p)
	}
}

// decodeArgs unmarshals args positionally into dst. Missing trailing
// arguments leave their targets untouched.
func decodeArgs(args []json.RawMessage, dst ...any) error {
	if len(args) == 0 && len(dst) > 0 {
		return errors.New("no arguments")
	}
	for i, d := range dst {
		if i >= len(args) {
			break
		}
		if err := json.Unmarshal(args[i], d); err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
	}
	return nil
}

// Server timestamps may omit the zone; those are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
