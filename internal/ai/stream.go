package ai

import "context"

// Stream runs a lookup in the background and returns a channel that carries
// its events. The channel is closed after the terminal event, or early if
// ctx is cancelled. The session summary is delivered on the second channel
// once the events channel is closed.
func (c *Client) Stream(ctx context.Context, req LookupRequest) (<-chan Event, <-chan Summary) {
	ch := make(chan Event, 16)
	done := make(chan Summary, 1)
	go func() {
		summary := c.Lookup(ctx, req, func(ev Event) {
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		})
		close(ch)
		done <- summary
	}()
	return ch, done
}
