package contents

import (
	"math/rand/v2"
	"strconv"
	"time"
)

const maxIDAttempts = 100

// NewRangedID picks a random free id inside the range. After 100 colliding
// attempts (only plausible near range exhaustion) it falls back to a
// timestamp-modulo slot, trading a small residual collision risk for
// guaranteed termination.
func NewRangedID(idRange IDRange, taken map[string]struct{}, now time.Time) string {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate := strconv.Itoa(idRange.Base + rand.IntN(idRange.Size()))
		if _, collides := taken[candidate]; !collides {
			return candidate
		}
	}
	return strconv.Itoa(idRange.Base + int(now.UnixMilli())%idRange.Size())
}

// takenIDs indexes the ids already present in a list.
func takenIDs(records []Content) map[string]struct{} {
	taken := make(map[string]struct{}, len(records))
	for _, record := range records {
		taken[record.ID] = struct{}{}
	}
	return taken
}
