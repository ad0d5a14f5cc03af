// Package status talks to the swim timer service and mirrors its readings
// into display slots.
package status

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"swimstatus/pkg/display"
	"swimstatus/pkg/pool"
)

const (
	PathReset      = "/r"
	PathStop       = "/stop"
	PathSignalStop = "/signal_stop"
	PathData       = "/data"
)

// Client issues reset, stop, refresh and signal-stop requests. Each call is
// an independent round trip; when calls overlap, the last response to
// arrive decides what the slots show.
//
// Slot.SetText may call Display, which then still reports the previous
// state. It must not start another Client operation.
type Client struct {
	http  pool.Client
	slots display.Slots
	log   *zap.Logger

	// applyMu serializes slot writes; mu guards last only.
	applyMu sync.Mutex
	mu      sync.Mutex
	last    display.State
}

// New wires a Client to its HTTP capability and display slots. A nil
// logger discards output.
func New(httpClient pool.Client, slots display.Slots, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:  httpClient,
		slots: slots,
		log:   logger.Named("status"),
	}
}

// Reset asks the service to reset (GET /r) and shows the returned reading.
// On failure the slots keep their previous text.
func (c *Client) Reset(ctx context.Context) (Reading, error) {
	return c.fetch(ctx, PathReset)
}

// Stop asks the service to stop (GET /stop) and shows the returned reading.
func (c *Client) Stop(ctx context.Context) (Reading, error) {
	return c.fetch(ctx, PathStop)
}

// Refresh shows the current reading (GET /data).
func (c *Client) Refresh(ctx context.Context) (Reading, error) {
	return c.fetch(ctx, PathData)
}

// SignalStop posts {"id": id} to /signal_stop. The response body is not
// read and the slots are never touched. Failures are logged and returned.
func (c *Client) SignalStop(ctx context.Context, id any) error {
	resp, err := c.http.Post(ctx, PathSignalStop, StopSignal{ID: id})
	if err != nil {
		err = &RequestError{Path: PathSignalStop, Err: err}
		c.log.Error("signal stop failed", zap.Any("id", id), zap.Error(err))
		return err
	}
	if !success(resp.StatusCode()) {
		err = &RequestError{Path: PathSignalStop, Status: resp.StatusCode(), Body: snippet(resp.Body())}
		c.log.Error("signal stop rejected", zap.Any("id", id), zap.Error(err))
		return err
	}
	c.log.Debug("signal stop sent", zap.Any("id", id))
	return nil
}

// Display returns the text most recently applied to the slots.
func (c *Client) Display() display.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Client) fetch(ctx context.Context, path string) (Reading, error) {
	resp, err := c.http.Get(ctx, path)
	if err != nil {
		return Reading{}, c.fail(&RequestError{Path: path, Err: err})
	}
	if !success(resp.StatusCode()) {
		return Reading{}, c.fail(&RequestError{Path: path, Status: resp.StatusCode(), Body: snippet(resp.Body())})
	}

	reading, err := decodeReading(resp.Body())
	if err != nil {
		return Reading{}, c.fail(&ParseError{Path: path, Err: err})
	}

	st := reading.State()
	c.applyMu.Lock()
	c.slots.Apply(st)
	c.mu.Lock()
	c.last = st
	c.mu.Unlock()
	c.applyMu.Unlock()

	c.log.Debug("display updated",
		zap.String("path", path),
		zap.String(display.SlotA, st.A),
		zap.String(display.SlotB, st.B),
		zap.String(display.SlotY, st.Y))
	return reading, nil
}

func (c *Client) fail(err error) error {
	c.log.Warn("status request failed", zap.Error(err))
	return err
}

func success(code int) bool {
	return code >= 200 && code < 300
}
