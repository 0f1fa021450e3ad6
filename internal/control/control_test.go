// ABOUTME: Tests for the unix-socket control plane
// ABOUTME: Runs a real server against a real coordinator and temp store

package control

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mcmeister/gpstrack/internal/models"
	"github.com/mcmeister/gpstrack/internal/recorder"
	"github.com/mcmeister/gpstrack/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	mu    sync.Mutex
	last  models.Fix
	has   bool
	fixes chan models.Fix
}

func (s *stubSource) Start(ctx context.Context) error { return nil }
func (s *stubSource) Fixes() <-chan models.Fix        { return s.fixes }
func (s *stubSource) Close() error                    { return nil }
func (s *stubSource) Last() (models.Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.has
}

func startTestServer(t *testing.T) (string, *recorder.Coordinator, *stubSource) {
	t.Helper()
	tmp := t.TempDir()

	db, err := storage.NewSQLiteDB(filepath.Join(tmp, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	src := &stubSource{fixes: make(chan models.Fix)}
	coord, err := recorder.New(context.Background(), db, src, recorder.Options{})
	require.NoError(t, err)
	t.Cleanup(coord.Close)

	socket := filepath.Join(tmp, "gpstrack.sock")
	srv := NewServer(coord, db, socket, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Serve(ctx) }()

	// Wait for the socket to appear.
	require.Eventually(t, func() bool {
		_, err := Send(socket, CommandStatus)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	return socket, coord, src
}

func TestStatus_Idle(t *testing.T) {
	socket, _, _ := startTestServer(t)

	resp, err := Send(socket, CommandStatus)
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "idle", resp.State)
	assert.Zero(t, resp.RouteID)
}

func TestPauseResumeStop_Cycle(t *testing.T) {
	socket, coord, src := startTestServer(t)

	src.mu.Lock()
	src.last = models.Fix{Latitude: 1, Longitude: 2, Time: time.Now()}
	src.has = true
	src.mu.Unlock()

	_, err := coord.StartRecording(context.Background())
	require.NoError(t, err)

	resp, err := Send(socket, CommandPause)
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "paused", resp.State)

	resp, err = Send(socket, CommandResume)
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "recording", resp.State)

	resp, err = Send(socket, CommandStop)
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "idle", resp.State)
	assert.NotZero(t, resp.RouteID, "stop reports the finalized route")
}

func TestPause_WhenIdleFails(t *testing.T) {
	socket, _, _ := startTestServer(t)

	resp, err := Send(socket, CommandPause)
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, "idle", resp.State)
}

func TestUnknownCommand(t *testing.T) {
	socket, _, _ := startTestServer(t)

	resp, err := Send(socket, "selfdestruct")
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "unknown command")
}

func TestSend_NoDaemon(t *testing.T) {
	_, err := Send(filepath.Join(t.TempDir(), "absent.sock"), CommandStatus)
	require.Error(t, err)
}
