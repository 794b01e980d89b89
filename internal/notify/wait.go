package notify

import "context"

// WaitForChange blocks until a change notification arrives or ctx is
// done, returning nil in the first case and ctx.Err() in the second.
func (w *Watcher) WaitForChange(ctx context.Context) error {
	select {
	case <-w.events:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
