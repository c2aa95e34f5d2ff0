package quota

import (
	"context"
	"fmt"
	"time"

	"backdrop/internal/domain"
	"backdrop/internal/infra"
	"backdrop/internal/sqlinline"
)

// DenyQuotaExceeded is the stable reason carried by a denying decision.
const DenyQuotaExceeded = "quota_exceeded"

// PolicyFor maps a subscription tier to its monthly allowance. Unknown
// tiers get a zero allowance, which makes tier gating a special case of
// quota enforcement.
func PolicyFor(tier domain.SubscriptionTier) domain.QuotaPolicy {
	switch tier {
	case domain.TierFree:
		return domain.QuotaPolicy{Tier: tier, MaxPerMonth: 3}
	case domain.TierPremium:
		return domain.QuotaPolicy{Tier: tier, MaxPerMonth: 100}
	case domain.TierPro:
		return domain.QuotaPolicy{Tier: tier, MaxPerMonth: domain.Unlimited}
	default:
		return domain.QuotaPolicy{Tier: tier, MaxPerMonth: 0}
	}
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
	Limit   int
}

// Status is the read-only usage summary for display.
type Status struct {
	Used      int
	Max       int
	Remaining int
	Month     string
}

// Ledger computes calendar-month usage per user and action and applies
// tier allowances. Two concurrent checks near the boundary may both pass;
// the check is advisory-then-enforced and takes no locks.
type Ledger struct {
	sql infra.SQLExecutor
	now func() time.Time
}

// NewLedger constructs a ledger. The clock defaults to time.Now.
func NewLedger(sql infra.SQLExecutor, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{sql: sql, now: now}
}

// MonthKey formats t's calendar month as YYYY-MM in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// CurrentUsage counts usage events for the user and action whose
// occurred_at falls inside the month identified by monthKey.
func (l *Ledger) CurrentUsage(ctx context.Context, userID int64, action domain.Action, monthKey string) (int, error) {
	start, end, err := monthWindow(monthKey)
	if err != nil {
		return 0, err
	}
	row := l.sql.QueryRow(ctx, sqlinline.QCountUsageEvents, userID, string(action), start, end)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count usage events: %w", err)
	}
	return count, nil
}

// Authorize decides whether the user may perform one more action this
// month. It must run before any external submission.
func (l *Ledger) Authorize(ctx context.Context, ac *domain.AuthContext, action domain.Action) (*Decision, error) {
	policy := PolicyFor(ac.Tier)
	if policy.IsUnlimited() {
		return &Decision{Allowed: true, Limit: domain.Unlimited}, nil
	}
	used, err := l.CurrentUsage(ctx, ac.UserID, action, MonthKey(l.now()))
	if err != nil {
		return nil, err
	}
	if used < policy.MaxPerMonth {
		return &Decision{Allowed: true, Limit: policy.MaxPerMonth}, nil
	}
	return &Decision{Allowed: false, Reason: DenyQuotaExceeded, Limit: policy.MaxPerMonth}, nil
}

// Remaining reports the non-authorizing usage summary for display.
func (l *Ledger) Remaining(ctx context.Context, ac *domain.AuthContext, action domain.Action) (*Status, error) {
	month := MonthKey(l.now())
	used, err := l.CurrentUsage(ctx, ac.UserID, action, month)
	if err != nil {
		return nil, err
	}
	policy := PolicyFor(ac.Tier)
	st := &Status{Used: used, Max: policy.MaxPerMonth, Month: month}
	if policy.IsUnlimited() {
		st.Remaining = domain.Unlimited
		return st, nil
	}
	st.Remaining = policy.MaxPerMonth - used
	if st.Remaining < 0 {
		st.Remaining = 0
	}
	return st, nil
}

func monthWindow(monthKey string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", monthKey)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month key %q: %w", monthKey, err)
	}
	start = start.UTC()
	return start, start.AddDate(0, 1, 0), nil
}
