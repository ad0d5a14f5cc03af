package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"swimstatus/pkg/config"
	"swimstatus/pkg/display"
	"swimstatus/pkg/fiberpool"
	"swimstatus/pkg/pool"
	"swimstatus/pkg/restypool"
)

// fakeHTTP answers from per-path canned bodies and records POSTs.
type fakeHTTP struct {
	mu     sync.Mutex
	bodies map[string]string
	codes  map[string]int
	err    error
	posts  []any
	closed bool
}

func (f *fakeHTTP) Get(_ context.Context, path string) (pool.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	code := f.codes[path]
	if code == 0 {
		code = http.StatusOK
	}
	return pool.NewResponse(code, []byte(f.bodies[path])), nil
}

func (f *fakeHTTP) Post(_ context.Context, path string, body any) (pool.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, body)
	if f.err != nil {
		return nil, f.err
	}
	code := f.codes[path]
	if code == 0 {
		code = http.StatusOK
	}
	return pool.NewResponse(code, []byte(f.bodies[path])), nil
}

func (f *fakeHTTP) Close() { f.closed = true }

func newTestClient(t *testing.T, hc pool.Client) (*Client, *display.Board) {
	t.Helper()
	board := display.NewBoard()
	return New(hc, board.Slots(), zaptest.NewLogger(t)), board
}

func TestClient_ResetShowsReading(t *testing.T) {
	hc := &fakeHTTP{bodies: map[string]string{PathReset: `{"a":1,"b":2,"y":3}`}}
	c, board := newTestClient(t, hc)

	r, err := c.Reset(context.Background())
	require.NoError(t, err)

	want := display.State{A: "1", B: "2", Y: "3"}
	assert.Equal(t, want, board.State())
	assert.Equal(t, want, c.Display())
	assert.Equal(t, "3", r.Y.Text())
}

func TestClient_StopShowsReading(t *testing.T) {
	hc := &fakeHTTP{bodies: map[string]string{PathStop: `{"a":"00:31.20","b":0,"y":null,"t1":31.2}`}}
	c, board := newTestClient(t, hc)

	r, err := c.Stop(context.Background())
	require.NoError(t, err)

	assert.Equal(t, display.State{A: "00:31.20", B: "0", Y: ""}, board.State())
	assert.Equal(t, "31.2", r.T1.Text())
}

func TestClient_RefreshShowsReading(t *testing.T) {
	hc := &fakeHTTP{bodies: map[string]string{PathData: `{"a":7,"b":8,"y":9,"t1":0,"t2":0}`}}
	c, board := newTestClient(t, hc)

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, display.State{A: "7", B: "8", Y: "9"}, board.State())
}

func TestClient_FailuresKeepPreviousDisplay(t *testing.T) {
	hc := &fakeHTTP{bodies: map[string]string{
		PathReset: `{"a":1,"b":2,"y":3}`,
		PathStop:  `<!doctype html><title>500 Internal Server Error</title>`,
	}}
	c, board := newTestClient(t, hc)

	_, err := c.Reset(context.Background())
	require.NoError(t, err)
	before := board.State()

	t.Run("malformed body", func(t *testing.T) {
		_, err := c.Stop(context.Background())
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, PathStop, perr.Path)
		assert.Equal(t, before, board.State())
	})

	t.Run("error status", func(t *testing.T) {
		hc.mu.Lock()
		hc.codes = map[string]int{PathReset: http.StatusInternalServerError}
		hc.mu.Unlock()

		_, err := c.Reset(context.Background())
		var rerr *RequestError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, http.StatusInternalServerError, rerr.Status)
		assert.Equal(t, before, board.State())
	})

	t.Run("transport failure", func(t *testing.T) {
		boom := errors.New("connection refused")
		hc.mu.Lock()
		hc.err = boom
		hc.mu.Unlock()

		_, err := c.Refresh(context.Background())
		var rerr *RequestError
		require.ErrorAs(t, err, &rerr)
		assert.Zero(t, rerr.Status)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, before, board.State())
		assert.Equal(t, before, c.Display())
	})
}

func TestClient_SignalStopPostsID(t *testing.T) {
	hc := &fakeHTTP{bodies: map[string]string{PathSignalStop: `{"a":9,"b":9,"y":9}`}}
	c, board := newTestClient(t, hc)

	require.NoError(t, c.SignalStop(context.Background(), 42))

	require.Len(t, hc.posts, 1)
	body, err := json.Marshal(hc.posts[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":42}`, string(body))
	// the response is ignored
	assert.Equal(t, display.State{}, board.State())
}

func TestClient_SignalStopFailureIsLoggedAndReturned(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	hc := &fakeHTTP{err: errors.New("dial tcp: connection refused")}
	board := display.NewBoard()
	board.Slots().Apply(display.State{A: "1", B: "2", Y: "3"})
	c := New(hc, board.Slots(), zap.New(core))

	var err error
	assert.NotPanics(t, func() { err = c.SignalStop(context.Background(), "4") })

	var rerr *RequestError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, PathSignalStop, rerr.Path)
	assert.Equal(t, display.State{A: "1", B: "2", Y: "3"}, board.State())

	entries := logs.FilterMessage("signal stop failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestClient_SignalStopRejectedStatus(t *testing.T) {
	hc := &fakeHTTP{codes: map[string]int{PathSignalStop: http.StatusBadRequest}, bodies: map[string]string{PathSignalStop: "missing id"}}
	c, _ := newTestClient(t, hc)

	err := c.SignalStop(context.Background(), nil)
	var rerr *RequestError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusBadRequest, rerr.Status)
	assert.Contains(t, err.Error(), "missing id")
}

// sequencedHTTP returns a distinct reading per call so concurrent updates can
// be told apart.
type sequencedHTTP struct{ n atomic.Int64 }

func (s *sequencedHTTP) Get(_ context.Context, _ string) (pool.Response, error) {
	n := s.n.Add(1)
	return pool.NewResponse(http.StatusOK, []byte(fmt.Sprintf(`{"a":%d,"b":%d,"y":%d}`, n, n, n))), nil
}

func (s *sequencedHTTP) Post(context.Context, string, any) (pool.Response, error) {
	return pool.NewResponse(http.StatusOK, nil), nil
}

func (s *sequencedHTTP) Close() {}

func TestClient_ConcurrentUpdatesNeverMix(t *testing.T) {
	c, board := newTestClient(t, &sequencedHTTP{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _, _ = c.Reset(context.Background()) }()
		go func() { defer wg.Done(); _, _ = c.Stop(context.Background()) }()
	}
	wg.Wait()

	st := board.State()
	assert.Equal(t, st.A, st.B)
	assert.Equal(t, st.A, st.Y)
	assert.Equal(t, st, c.Display())
}

// readingSlot reads the client's display from inside SetText.
type readingSlot struct {
	c    *Client
	seen []display.State
}

func (r *readingSlot) SetText(string) {
	r.seen = append(r.seen, r.c.Display())
}

func TestClient_SlotMayReadDisplay(t *testing.T) {
	hc := &fakeHTTP{bodies: map[string]string{
		PathReset: `{"a":1,"b":2,"y":3}`,
		PathStop:  `{"a":4,"b":5,"y":6}`,
	}}
	slot := &readingSlot{}
	c := New(hc, display.Slots{A: slot}, zaptest.NewLogger(t))
	slot.c = c

	done := make(chan error, 1)
	go func() {
		_, err := c.Reset(context.Background())
		if err == nil {
			_, err = c.Stop(context.Background())
		}
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("slot write blocked on Display")
	}
	assert.Equal(t, []display.State{{}, {A: "1", B: "2", Y: "3"}}, slot.seen)
	assert.Equal(t, display.State{A: "4", B: "5", Y: "6"}, c.Display())
}

// The remaining tests run the client over both real transports against a
// plain HTTP server.

type recordedPost struct {
	contentType string
	body        []byte
}

func newTimerServer(t *testing.T, posts chan<- recordedPost) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == PathReset:
			_, _ = io.WriteString(w, `{"a":1,"b":2,"y":3}`)
		case r.Method == http.MethodGet && r.URL.Path == PathStop:
			_, _ = io.WriteString(w, `{"a":4,"b":5,"y":6,"t1":12.5,"t2":13}`)
		case r.Method == http.MethodPost && r.URL.Path == PathSignalStop:
			b, _ := io.ReadAll(r.Body)
			posts <- recordedPost{contentType: r.Header.Get("Content-Type"), body: b}
			_, _ = io.WriteString(w, `{"a":0,"b":0,"y":0}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func transports() map[string]func(config.Config) pool.Client {
	return map[string]func(config.Config) pool.Client{
		config.TransportResty: func(cfg config.Config) pool.Client { return restypool.New(cfg) },
		config.TransportFiber: func(cfg config.Config) pool.Client { return fiberpool.New(cfg) },
	}
}

func TestClient_OverTransports(t *testing.T) {
	for name, mk := range transports() {
		t.Run(name, func(t *testing.T) {
			posts := make(chan recordedPost, 4)
			srv := newTimerServer(t, posts)

			cfg := config.DefaultConfig()
			cfg.BaseURL = srv.URL
			cfg.RequestTimeout = 2 * time.Second
			hc := mk(cfg)
			t.Cleanup(hc.Close)

			c, board := newTestClient(t, hc)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			_, err := c.Reset(ctx)
			require.NoError(t, err)
			assert.Equal(t, display.State{A: "1", B: "2", Y: "3"}, board.State())

			r, err := c.Stop(ctx)
			require.NoError(t, err)
			assert.Equal(t, display.State{A: "4", B: "5", Y: "6"}, board.State())
			assert.Equal(t, "13", r.T2.Text())

			require.NoError(t, c.SignalStop(ctx, 42))
			select {
			case p := <-posts:
				assert.Equal(t, pool.ContentTypeJSON, p.contentType)
				assert.JSONEq(t, `{"id":42}`, string(p.body))
				assert.Equal(t, `{"id":42}`, string(trimNewline(p.body)))
			case <-time.After(2 * time.Second):
				t.Fatal("server never saw the signal_stop POST")
			}
			assert.Empty(t, posts, "exactly one POST expected")
			assert.Equal(t, display.State{A: "4", B: "5", Y: "6"}, board.State())
		})
	}
}

func TestClient_MalformedBodyOverTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.BaseURL = srv.URL
	hc := restypool.New(cfg)
	t.Cleanup(hc.Close)

	c, board := newTestClient(t, hc)
	board.Slots().Apply(display.State{A: "old", B: "old", Y: "old"})

	_, err := c.Reset(context.Background())
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, display.State{A: "old", B: "old", Y: "old"}, board.State())
}

func TestClient_SignalStopUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := config.DefaultConfig()
	cfg.BaseURL = url
	cfg.RequestTimeout = time.Second
	hc := restypool.New(cfg)
	t.Cleanup(hc.Close)

	c, board := newTestClient(t, hc)
	err := c.SignalStop(context.Background(), 1)

	var rerr *RequestError
	require.ErrorAs(t, err, &rerr)
	assert.Zero(t, rerr.Status)
	assert.Equal(t, display.State{}, board.State())
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
