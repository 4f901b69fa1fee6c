package badger

import "fmt"

// Key prefixes for different data types
const (
	usagePrefix = "liveusage"
)

// makeUsageKey generates a key for the daily live source usage counter.
// One key per calendar date; a date rollover lands on a fresh key, which is
// how the counter resets without any explicit delete.
func makeUsageKey(date string) []byte {
	return []byte(fmt.Sprintf("%s:%s", usagePrefix, date))
}
