// Package periods owns the administrative period registry. At most one
// period is active system-wide; leave entitlements and balances are
// tracked against the active period.
package periods

import "time"

// Period represents an administrative time window.
type Period struct {
	ID            int64
	Name          string
	StartDate     time.Time
	EndDate       time.Time
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeactivatedAt *time.Time
}

// DaysRemaining reports whole days until the period ends, never negative.
func (p Period) DaysRemaining(now time.Time) int {
	days := int(p.EndDate.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Expired reports whether the period's end date has passed.
func (p Period) Expired(now time.Time) bool {
	return p.EndDate.Before(truncateToDay(now)) || p.EndDate.Equal(truncateToDay(now))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
