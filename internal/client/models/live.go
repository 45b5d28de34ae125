package models

import (
	"encoding/json"
	"time"
)

// ChatMessage is a broadcast chat line received from the live-session hub.
type ChatMessage struct {
	UserName          string    `json:"userName"`
	UserID            int64     `json:"userId"`
	Content           string    `json:"content"`
	ProfilePictureURL string    `json:"profilePictureUrl,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Signal carries an opaque WebRTC negotiation payload (offer, answer or ICE
// candidate) between two participants.
type Signal struct {
	FromUserID int64           `json:"fromUserId"`
	Payload    json.RawMessage `json:"payload"`
}

// Participant is announced when someone joins or leaves a live session.
type Participant struct {
	SessionID string `json:"sessionId"`
	UserID    int64  `json:"userId"`
}
