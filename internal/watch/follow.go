package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Follow prints a snapshot of the remote model followed by every
// notification, one JSON document per line, until ctx is done or the client
// is closed. Notifications received before the snapshot with a sequence
// number it already covers are skipped.
func Follow(ctx context.Context, c *Client, out io.Writer) error {
	snap, err := c.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	enc := json.NewEncoder(out)
	if err := enc.Encode(snap); err != nil {
		return err
	}
	c.logger.Info("Following model.", "model", snap.Model, "count", snap.Count, "seq", snap.Seq)

	next := snap.Seq + 1
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-c.Events():
			if !ok {
				return nil
			}
			if n.Seq < next {
				continue
			}
			if n.Seq > next {
				c.logger.Warn("Missed notifications.", "expected", next, "got", n.Seq)
			}
			next = n.Seq + 1
			if err := enc.Encode(n); err != nil {
				return err
			}
		}
	}
}
