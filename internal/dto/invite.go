package dto

import (
	"time"

	"cardauth/internal/domain"
)

type InviteCodeResponse struct {
	Code      string     `json:"code"`
	IsUsed    bool       `json:"isUsed"`
	UsedBy    *string    `json:"usedBy,omitempty"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt"`
	CreatedAt time.Time  `json:"createdAt"`
}

func NewInviteCodeResponse(c *domain.InviteCode) InviteCodeResponse {
	out := InviteCodeResponse{
		Code:      c.Code,
		IsUsed:    c.IsUsed,
		UsedAt:    c.UsedAt,
		ExpiresAt: c.ExpiresAt,
		CreatedAt: c.CreatedAt,
	}
	if c.UsedByUserID != nil {
		id := formatID(*c.UsedByUserID)
		out.UsedBy = &id
	}
	return out
}

// InviteCreated is the result of issuing a code. Remaining is nil for
// unlimited issuers.
type InviteCreated struct {
	InviteCode InviteCodeResponse `json:"inviteCode"`
	Remaining  *int               `json:"remaining"`
	Unlimited  bool               `json:"unlimited"`
}

// InviteList mirrors the quota arithmetic of InviteCreated. Limit and
// Remaining are nil for unlimited issuers.
type InviteList struct {
	Codes     []InviteCodeResponse `json:"codes"`
	Limit     *int                 `json:"limit"`
	Remaining *int                 `json:"remaining"`
	Unlimited bool                 `json:"unlimited"`
}

type ValidateInviteRequest struct {
	Code string `json:"code"`
}

type ValidateInviteResponse struct {
	Valid bool `json:"valid"`
}
