package pipeline

import (
	"time"

	"github.com/roomline/chatgate/internal/ratelimit"
)

// timeUntilReset converts a rate-limit Result's absolute reset_at (unix
// seconds) into the retry-after duration the client should wait.
func timeUntilReset(r ratelimit.Result) time.Duration {
	return time.Until(time.Unix(r.ResetAt, 0))
}
