// Package watch is the client side of the feed: it mirrors a remote model's
// events and sends it requests.
package watch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/listmodel/internal/ctxlog"
	"github.com/vk/listmodel/internal/feed"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// ErrRequestFailed wraps the error message of a negative reply.
var ErrRequestFailed = errors.New("request failed")

// Options configure Dial.
type Options struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	// Buffer is the capacity of the Events channel. Notifications that do not
	// fit are dropped with a warning. It also bounds how many out-of-order
	// batches are held back waiting for a missing one.
	Buffer int
}

// Client is a connected watcher.
//
// The socket.io client hands every packet to its own goroutine, so batches
// can arrive out of order. They are held back and released strictly by
// sequence number.
type Client struct {
	io     *socket.Socket
	logger *slog.Logger
	events chan feed.Notification
	limit  int

	mu       sync.Mutex
	pending  map[string]chan []any
	held     map[uint64]feed.Batch
	next     uint64
	synced   bool
	progress chan struct{}
	closed   bool
}

// Dial connects to the feed at rawURL and waits for the connection to be
// established.
func Dial(ctx context.Context, rawURL string, o Options) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("component", "watch", "url", rawURL)
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.Buffer <= 0 {
		o.Buffer = 256
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)

	c := &Client{
		io:      io,
		logger:  logger,
		events:   make(chan feed.Notification, o.Buffer),
		limit:    o.Buffer,
		pending:  make(map[string]chan []any),
		held:     make(map[uint64]feed.Batch),
		progress: make(chan struct{}),
	}
	io.On(types.EventName(feed.EventName), c.onEvent)
	io.On(types.EventName(feed.ReplyName), c.onResponse)
	io.On(types.EventName(feed.SnapshotName), c.onResponse)

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	logger.Debug("Initiating connection...")
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		syncCtx, cancel := context.WithTimeout(ctx, o.Timeout)
		defer cancel()
		if err := c.sync(syncCtx); err != nil {
			c.Close()
			return nil, err
		}
		return c, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(o.Timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %v waiting for socket.io connection", o.Timeout)
	}
}

// sync learns the sequence number the feed is at, so that events are only
// released from the one after it.
func (c *Client) sync(ctx context.Context) error {
	snap, err := c.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to sync with feed: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = snap.Seq + 1
	c.synced = true
	c.logger.Debug("Synced with feed.", "model", snap.Model, "seq", snap.Seq)
	c.release()
	return nil
}

// Events delivers notifications in the order the server sent them.
func (c *Client) Events() <-chan feed.Notification { return c.events }

// Fetch requests a snapshot of the whole model.
func (c *Client) Fetch(ctx context.Context) (feed.Snapshot, error) {
	var snap feed.Snapshot
	data, err := c.roundTrip(ctx, feed.FetchRequest, feed.Request{})
	if err != nil {
		return snap, err
	}
	// A failed fetch is answered with a Reply rather than a Snapshot.
	var reply feed.Reply
	if feed.Decode(data, &reply) == nil && reply.Error != "" {
		return snap, fmt.Errorf("%w: %s", ErrRequestFailed, reply.Error)
	}
	if err := feed.Decode(data, &snap); err != nil {
		return snap, err
	}
	return snap, nil
}

// Call sends a mutation request and waits for its reply. When Call returns,
// the notifications the request caused have been delivered to Events.
func (c *Client) Call(ctx context.Context, name string, req feed.Request) error {
	data, err := c.roundTrip(ctx, name, req)
	if err != nil {
		return err
	}
	var reply feed.Reply
	if err := feed.Decode(data, &reply); err != nil {
		return err
	}
	if !reply.OK {
		return fmt.Errorf("%w: %s", ErrRequestFailed, reply.Error)
	}
	return c.waitFor(ctx, reply.Seq)
}

// waitFor blocks until every notification up to seq has been released.
func (c *Client) waitFor(ctx context.Context, seq uint64) error {
	for {
		c.mu.Lock()
		if c.closed || c.next > seq {
			c.mu.Unlock()
			return nil
		}
		progress := c.progress
		c.mu.Unlock()

		select {
		case <-progress:
		case <-ctx.Done():
			return fmt.Errorf("waiting for notification %d: %w", seq, ctx.Err())
		}
	}
}

func (c *Client) roundTrip(ctx context.Context, name string, req feed.Request) ([]any, error) {
	req.ID = uuid.NewString()
	done := make(chan []any, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("watch client closed")
	}
	c.pending[req.ID] = done
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	c.logger.Debug("Emitting request", "request", name, "id", req.ID)
	if err := c.io.Emit(name, req); err != nil {
		return nil, fmt.Errorf("failed to emit %s: %w", name, err)
	}

	select {
	case data := <-done:
		return data, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for reply to %s: %w", name, ctx.Err())
	}
}

func (c *Client) onResponse(data ...any) {
	var head struct {
		ID string `json:"id"`
	}
	if err := feed.Decode(data, &head); err != nil {
		c.logger.Warn("Malformed response.", "error", err)
		return
	}
	c.mu.Lock()
	done, ok := c.pending[head.ID]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("Response for an unknown request.", "id", head.ID)
		return
	}
	select {
	case done <- data:
	default:
	}
}

func (c *Client) onEvent(data ...any) {
	var b feed.Batch
	if err := feed.Decode(data, &b); err != nil {
		c.logger.Warn("Malformed notification batch.", "error", err)
		return
	}
	if len(b.Events) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.synced && b.Last() < c.next {
		return
	}
	c.held[b.First()] = b
	c.release()
}

// release delivers held batches in sequence order. When more batches are
// held than the buffer allows, the missing ones are given up on. Callers
// hold c.mu.
func (c *Client) release() {
	if !c.synced {
		return
	}
	for {
		b, ok := c.take()
		if !ok {
			if len(c.held) <= c.limit {
				return
			}
			resume := c.oldestHeld()
			c.logger.Warn("Gave up on missing notifications.", "expected", c.next, "resume", resume)
			c.next = resume
			continue
		}
		for _, n := range b.Events {
			if n.Seq < c.next {
				continue
			}
			select {
			case c.events <- n:
			default:
				c.logger.Warn("Event buffer full, dropping notification.", "seq", n.Seq)
			}
		}
		c.next = b.Last() + 1
		close(c.progress)
		c.progress = make(chan struct{})
	}
}

// take removes and returns the held batch containing c.next, discarding
// batches that are already behind it.
func (c *Client) take() (feed.Batch, bool) {
	for first, b := range c.held {
		if b.Last() < c.next {
			delete(c.held, first)
			continue
		}
		if first <= c.next {
			delete(c.held, first)
			return b, true
		}
	}
	return feed.Batch{}, false
}

func (c *Client) oldestHeld() uint64 {
	var oldest uint64
	for first := range c.held {
		if oldest == 0 || first < oldest {
			oldest = first
		}
	}
	return oldest
}

// Close disconnects and closes the Events channel.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.events)
	close(c.progress)
	clear(c.held)
	c.mu.Unlock()

	c.logger.Debug("Disconnecting socket client")
	c.io.Disconnect()
}
