package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/client/hub"
	"github.com/dmitrijs2005/learnhub/internal/client/models"
)

var ErrNotInSession = errors.New("not in a live session, use: live <sessionId>")

const rejoinTimeout = 10 * time.Second

func (a *App) registerHubHandlers() {
	a.hub.OnReceiveMessage(func(m models.ChatMessage) {
		a.printChat(m)
	})
	a.hub.OnUserJoined(func(p models.Participant) {
		fmt.Fprintf(a.out, "* user %d joined\n", p.UserID)
	})
	a.hub.OnUserLeft(func(p models.Participant) {
		fmt.Fprintf(a.out, "* user %d left\n", p.UserID)
	})
	a.hub.OnReconnecting(func(err error) {
		fmt.Fprintln(a.out, "* connection lost, reconnecting...")
	})
	a.hub.OnReconnected(func() {
		fmt.Fprintln(a.out, "* reconnected")
		a.rejoin()
	})
	a.hub.OnClose(func(err error) {
		if err != nil {
			fmt.Fprintf(a.out, "* live session closed: %v\n", err)
		}
	})
}

// rejoin restores membership of the live session after the hub reconnected
// and replays the history missed while the link was down.
func (a *App) rejoin() {
	ctx, cancel := context.WithTimeout(context.Background(), rejoinTimeout)
	defer cancel()

	sessionID := a.hub.SessionID()
	u := a.session.User()
	if sessionID == "" || u == nil {
		return
	}
	if err := a.hub.JoinSession(ctx, sessionID, u.UserID); err != nil {
		fmt.Fprintf(a.out, "* could not rejoin %s: %v\n", sessionID, err)
		return
	}
	history, err := a.hub.RequestHistory(ctx)
	if err != nil {
		a.logger.Warn(ctx, "chat history unavailable after reconnect", "session_id", sessionID, "error", err)
		return
	}
	for _, m := range history {
		a.printChat(m)
	}
}

func (a *App) printChat(m models.ChatMessage) {
	ts := ""
	if !m.Timestamp.IsZero() {
		ts = m.Timestamp.Local().Format("15:04") + " "
	}
	fmt.Fprintf(a.out, "%s%s: %s\n", ts, m.UserName, m.Content)
}

// Live joins the chat of sessionID and prints its history.
func (a *App) Live(ctx context.Context, sessionID string) error {
	u := a.session.User()
	if u == nil {
		return fmt.Errorf("not signed in")
	}
	if a.liveSession != "" && a.liveSession != sessionID {
		return fmt.Errorf("already in session %s, leave it first", a.liveSession)
	}

	if err := a.hub.StartConnection(ctx, sessionID); err != nil {
		return err
	}
	if err := a.hub.JoinSession(ctx, sessionID, u.UserID); err != nil {
		a.hub.StopConnection()
		return err
	}
	a.liveSession = sessionID
	fmt.Fprintf(a.out, "Joined live session %s\n", sessionID)

	history, err := a.hub.RequestHistory(ctx)
	if err != nil {
		a.logger.Warn(ctx, "chat history unavailable", "session_id", sessionID, "error", err)
		return nil
	}
	for _, m := range history {
		a.printChat(m)
	}
	return nil
}

func (a *App) Say(ctx context.Context, text string) error {
	if a.liveSession == "" {
		return ErrNotInSession
	}
	err := a.hub.SendMessage(ctx, text)
	if errors.Is(err, hub.ErrNotConnected) {
		return fmt.Errorf("message not sent: %w", err)
	}
	return err
}

// Leave announces departure and closes the hub connection. It is a no-op
// outside a live session.
func (a *App) Leave(ctx context.Context) error {
	if a.liveSession == "" {
		return nil
	}
	id := a.liveSession
	a.liveSession = ""

	var userID int64
	if u := a.session.User(); u != nil {
		userID = u.UserID
	}
	err := a.hub.LeaveSession(ctx, id, userID)
	a.hub.StopConnection()
	if err != nil {
		a.logger.Warn(ctx, "leave announcement failed", "session_id", id, "error", err)
	}
	fmt.Fprintf(a.out, "Left live session %s\n", id)
	return nil
}
