package clock

import "time"

func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// AgeHours returns the account age in hours at the given moment, never
// negative (platform clocks occasionally report creation times in the
// future).
func AgeHours(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt).Hours()
	if age < 0 {
		return 0
	}
	return age
}

// Round4 rounds to 4 decimal places, the precision fraud scores are stored
// with.
func Round4(v float64) float64 {
	return float64(int(v*10000+0.5)) / 10000
}
