package diagnostics

import (
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// throttler rate-limits one log key so a hot failure loop (a futex post
// failing on every iteration of a remote-trigger server, say) produces a
// bounded log volume instead of flooding output. This is the Go analogue
// of the original's log-throttled error macro used in Lockstep::Cancel
// and the remote-trigger client/server.
type throttler struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var globalThrottle = &throttler{limiters: make(map[string]*rate.Limiter)}

// defaultThrottleRate permits one log line per key per second, with a
// burst of one — enough to see that a condition is occurring without
// drowning in it.
const defaultThrottleRate = 1.0

func (t *throttler) allow(key string) bool {
	t.mu.Lock()
	l, ok := t.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(defaultThrottleRate), 1)
		t.limiters[key] = l
	}
	t.mu.Unlock()
	return l.Allow()
}

// LogThrottled logs msg (with err, if any) at most once per second per
// key. Safe to call from a hot loop on any failure path; callers pass a
// stable key identifying the call site so independent failure paths
// throttle independently.
func LogThrottled(key, msg string, err error) {
	if !globalThrottle.allow(key) {
		return
	}
	event := log.Error()
	if err != nil {
		event = event.Err(err)
	}
	event.Str("throttle_key", key).Msg(msg)
}
