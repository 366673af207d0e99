package util //nolint:revive // package name util hosts shared formatting helpers used by the CLI

import "time"

// FormatSessionAge formats how long ago a session was established, handling
// edge cases. Returns "—" for zero or future timestamps, truncates coarse
// ages to the minute for readability.
func FormatSessionAge(loginAt, now time.Time) string {
	if loginAt.IsZero() {
		return "—"
	}
	age := now.Sub(loginAt)
	switch {
	case age < 0:
		return "—"
	case age < time.Minute:
		return age.Truncate(time.Second).String()
	default:
		return age.Truncate(time.Minute).String()
	}
}
