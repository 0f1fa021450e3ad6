// ABOUTME: Unix-socket control plane for the recorder daemon
// ABOUTME: Delivers pause/resume/stop/status commands as JSON request/response pairs

package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mcmeister/gpstrack/internal/geo"
	"github.com/mcmeister/gpstrack/internal/recorder"
	"github.com/mcmeister/gpstrack/internal/storage"
)

// Recording host commands.
const (
	CommandPause  = "pause"
	CommandResume = "resume"
	CommandStop   = "stop"
	CommandStatus = "status"
)

// Request is one command sent to the daemon.
type Request struct {
	Command string `json:"command"`
}

// Response reports the daemon state after handling a command.
type Response struct {
	OK         bool    `json:"ok"`
	Error      string  `json:"error,omitempty"`
	State      string  `json:"state"`
	RouteID    int64   `json:"route_id,omitempty"`
	Points     int     `json:"points,omitempty"`
	DistanceKm float64 `json:"distance_km,omitempty"`
}

// Server accepts control connections on a unix socket. One request and one
// response per connection keeps the protocol trivially ordered.
type Server struct {
	coord *recorder.Coordinator
	store storage.Repository
	path  string
	log   *log.Logger
}

// NewServer creates a control server for the given coordinator.
func NewServer(coord *recorder.Coordinator, store storage.Repository, socketPath string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{coord: coord, store: store, path: socketPath, log: logger}
}

// Serve listens until the context ends. A stale socket file from a previous
// run is removed before binding.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}
	_ = os.Remove(s.path)

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.path, err)
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
		_ = os.Remove(s.path)
	}()

	s.log.Info("control socket ready", "path", s.path)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		s.log.Warn("bad control request", "err", err)
		return
	}

	resp := s.dispatch(ctx, req)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.log.Warn("write control response", "err", err)
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	var err error
	switch req.Command {
	case CommandPause:
		err = s.coord.PauseRecording()
	case CommandResume:
		err = s.coord.ResumeRecording()
	case CommandStop:
		_, err = s.coord.StopRecording(ctx)
	case CommandStatus:
		// Status is read-only.
	default:
		err = fmt.Errorf("unknown command %q", req.Command)
	}

	resp := s.status()
	if err != nil {
		resp.OK = false
		resp.Error = err.Error()
	}
	return resp
}

func (s *Server) status() Response {
	resp := Response{OK: true, State: s.coord.State().String()}

	routeID := s.coord.CurrentRouteID()
	if routeID == 0 {
		routeID = s.coord.LastViewedRouteID()
	}
	if routeID == 0 {
		return resp
	}

	resp.RouteID = routeID
	if points, err := s.store.PointsForRoute(routeID); err == nil {
		resp.Points = len(points)
		resp.DistanceKm = geo.PathDistance(points) / 1000
	}
	return resp
}

// Send delivers one command to a running daemon and returns its response.
func Send(socketPath, command string) (*Response, error) {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon (is 'gpstrack record' running?): %w", err)
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	if err := json.NewEncoder(conn).Encode(Request{Command: command}); err != nil {
		return nil, fmt.Errorf("send command: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &resp, nil
}
