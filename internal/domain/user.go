package domain

import "time"

// SubscriptionTier enumerates billing tiers.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPremium SubscriptionTier = "premium"
	TierPro     SubscriptionTier = "pro"
)

// User represents a registered account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Verified     bool
	Tier         SubscriptionTier
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthContext carries the fields authorization decisions depend on.
// It is resolved from a session token and never includes credentials.
type AuthContext struct {
	UserID   int64
	Email    string
	Name     string
	Tier     SubscriptionTier
	Verified bool
}
