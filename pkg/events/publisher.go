package events

import "context"

// Publisher delivers events to an external bus. Implementations must treat
// delivery as best-effort; the request path never fails on a publish error.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
