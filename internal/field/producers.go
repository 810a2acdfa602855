package field

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NextID produces a 50 character, time-ordered identifier: a zero padded
// millisecond timestamp, a random uuid in hex, and a "000" suffix.
func NextID() interface{} {
	return fmt.Sprintf("%015d%s000", time.Now().UnixMilli(), strings.ReplaceAll(uuid.New().String(), "-", ""))
}

// Now produces the current time as float seconds since the epoch.
func Now() interface{} {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
