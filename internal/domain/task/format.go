package task

import (
	"fmt"
	"time"
)

// FormatDeadline renders the time remaining until deadline as seen at now.
func FormatDeadline(deadline, now time.Time) string {
	d := deadline.Sub(now)
	switch {
	case d < 0:
		return "Expired"
	case d < time.Hour:
		return fmt.Sprintf("%dm left", int64(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh left", int64(d/time.Hour))
	default:
		return fmt.Sprintf("%dd left", int64(d/(24*time.Hour)))
	}
}

// FormatDate renders a ledger timestamp as "Jan 2, 2006".
func FormatDate(ts time.Time) string {
	return ts.UTC().Format("Jan 2, 2006")
}

// MaxDeadlineDays bounds how far out a creation deadline may be set.
const MaxDeadlineDays = 3650

// DeadlineFromDays computes a creation deadline days whole days after now.
// Values below one day are raised to one and values above MaxDeadlineDays
// are lowered to it.
func DeadlineFromDays(now time.Time, days int) time.Time {
	days = max(1, min(days, MaxDeadlineDays))
	return now.Add(time.Duration(days) * 24 * time.Hour).Truncate(time.Second)
}
