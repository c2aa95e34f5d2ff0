package domain

import "time"

// Action tags a billable operation in the usage ledger.
type Action string

const ActionBackgroundRemoval Action = "background_removal"

// UsageEvent is an immutable record of one successfully completed
// billable action. Events are only ever inserted.
type UsageEvent struct {
	ID         string
	UserID     int64
	Action     Action
	OccurredAt time.Time
}

// Unlimited is the allowance sentinel for tiers without a monthly cap.
const Unlimited = -1

// QuotaPolicy maps a subscription tier to its monthly allowance.
type QuotaPolicy struct {
	Tier        SubscriptionTier
	MaxPerMonth int
}

// IsUnlimited reports whether the policy has no monthly cap.
func (p QuotaPolicy) IsUnlimited() bool {
	return p.MaxPerMonth == Unlimited
}
