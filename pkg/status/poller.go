package status

import (
	"context"
	"time"
)

const DefaultPollInterval = 2 * time.Second

// StartPoller refreshes c immediately and then every interval until ctx is
// cancelled. A failed refresh is logged by the client and the next tick
// runs as usual. The returned channel closes once the poller has exited.
func StartPoller(ctx context.Context, c *Client, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			_, _ = c.Refresh(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return done
}
