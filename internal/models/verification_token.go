package models

import (
	"time"

	"github.com/google/uuid"
)

type VerificationToken struct {
	ID         uuid.UUID `json:"id"`
	Token      string    `json:"-"`
	AccountID  uuid.UUID `json:"account_id"`
	ExpiryDate time.Time `json:"expiry_date"`
	Used       bool      `json:"used"`
	Version    int64     `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Expired reports whether the token is past its expiry at now.
func (t *VerificationToken) Expired(now time.Time) bool {
	return t.ExpiryDate.Before(now)
}
