package events

import "time"

type InviteCreated struct {
	Code     string    `json:"code"`
	IssuerID string    `json:"issuerId"`
	At       time.Time `json:"at"`
}

func (InviteCreated) Name() string { return "invite.created" }

type InviteConsumed struct {
	Code   string    `json:"code"`
	UserID string    `json:"userId"`
	At     time.Time `json:"at"`
}

func (InviteConsumed) Name() string { return "invite.consumed" }
