package events

import "time"

type SessionRevoked struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

func (SessionRevoked) Name() string { return "session.revoked" }
