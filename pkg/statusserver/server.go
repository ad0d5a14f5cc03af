// Package statusserver is a development stand-in for the swim timer
// service. It keeps lane stop times in memory and answers the routes the
// status client calls.
package statusserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"swimstatus/pkg/status"
)

const (
	DefaultLanes = 2
	// MaxLaneID bounds the ids /signal_stop accepts.
	MaxLaneID = math.MaxInt32
)

// Reading is the body every route answers with.
type Reading struct {
	A  int     `json:"a"`
	B  int     `json:"b"`
	Y  int     `json:"y"`
	T1 float64 `json:"t1"`
	T2 float64 `json:"t2"`
}

type Option func(*Server)

// WithLanes sets how many lanes /stop marks as stopped.
func WithLanes(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.lanes = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

type Server struct {
	log   *zap.Logger
	app   *fiber.App
	now   func() time.Time
	lanes int

	mu      sync.Mutex
	started time.Time
	stopped map[int]float64 // lane -> elapsed seconds when it stopped
}

func New(logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		log:     logger.Named("statusserver"),
		now:     time.Now,
		lanes:   DefaultLanes,
		stopped: make(map[int]float64),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()

	s.app = fiber.New(fiber.Config{
		AppName:      "swimstatus",
		ErrorHandler: s.handleError,
	})
	s.app.Get(status.PathData, s.handleData)
	s.app.Get(status.PathReset, s.handleReset)
	s.app.Get(status.PathStop, s.handleStop)
	s.app.Post(status.PathSignalStop, s.handleSignalStop)
	return s
}

// App exposes the fiber app, e.g. for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Serve answers on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	s.log.Info("serving", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// ListenAndServe is Serve on a fresh TCP listener.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) handleData(c fiber.Ctx) error {
	return c.JSON(s.reading())
}

func (s *Server) handleReset(c fiber.Ctx) error {
	s.mu.Lock()
	s.started = s.now()
	clear(s.stopped)
	s.mu.Unlock()

	s.log.Info("timer reset")
	return c.JSON(s.reading())
}

func (s *Server) handleStop(c fiber.Ctx) error {
	s.mu.Lock()
	for lane := 1; lane <= s.lanes; lane++ {
		s.stopLocked(lane)
	}
	s.mu.Unlock()

	s.log.Info("all lanes stopped", zap.Int("lanes", s.lanes))
	return c.JSON(s.reading())
}

func (s *Server) handleSignalStop(c fiber.Ctx) error {
	var sig status.StopSignal
	if err := json.Unmarshal(c.Body(), &sig); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "body must be a JSON object")
	}
	lane, err := laneID(sig.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	s.mu.Lock()
	s.stopLocked(lane)
	s.mu.Unlock()

	s.log.Info("lane stopped", zap.Int("lane", lane))
	return c.JSON(s.reading())
}

func (s *Server) handleError(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// stopLocked records the first stop of a lane; repeats keep the first time.
func (s *Server) stopLocked(lane int) {
	if _, ok := s.stopped[lane]; ok {
		return
	}
	s.stopped[lane] = s.now().Sub(s.started).Seconds()
}

func (s *Server) reading() Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := Reading{Y: len(s.stopped)}
	if t, ok := s.stopped[1]; ok {
		r.A, r.T1 = 1, round2(t)
	}
	if t, ok := s.stopped[2]; ok {
		r.B, r.T2 = 1, round2(t)
	}
	return r
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// laneID accepts 3, 3.0 and "3" in the range 1..MaxLaneID.
func laneID(v any) (int, error) {
	switch id := v.(type) {
	case float64:
		if id != math.Trunc(id) || id < 1 || id > MaxLaneID {
			return 0, fmt.Errorf("id %v is not a lane number", id)
		}
		return int(id), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil || n < 1 || n > MaxLaneID {
			return 0, fmt.Errorf("id %q is not a lane number", id)
		}
		return n, nil
	case nil:
		return 0, errors.New("id is required")
	default:
		return 0, fmt.Errorf("id of type %T is not a lane number", v)
	}
}
