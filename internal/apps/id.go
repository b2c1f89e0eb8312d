package apps

import (
	"math/rand/v2"
	"strconv"
	"time"
)

// NewID issues a modern app identifier: unix milliseconds joined with a short
// random base36 suffix. No range constraint applies; uniqueness comes from the
// millisecond timestamp plus suffix entropy.
func NewID(now time.Time) string {
	suffix := strconv.FormatUint(rand.Uint64()%(36*36*36*36*36*36), 36)
	return strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}
