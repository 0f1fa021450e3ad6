// ABOUTME: gpsd client source speaking the JSON watch protocol over TCP
// ABOUTME: Reconnects on failure and throttles reports to the sample interval

package sampler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mcmeister/gpstrack/internal/models"
)

// watchCommand enables JSON position reports from gpsd.
const watchCommand = `?WATCH={"enable":true,"json":true};` + "\n"

// reconnectDelay is how long to wait before re-dialing a lost gpsd.
const reconnectDelay = 5 * time.Second

// GPSD is a Source backed by a gpsd daemon.
type GPSD struct {
	addr     string
	interval time.Duration
	log      *log.Logger

	mu      sync.RWMutex
	last    models.Fix
	hasLast bool

	fixes  chan models.Fix
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Source = (*GPSD)(nil)

// NewGPSD creates a gpsd-backed source. interval throttles how often fixes
// are forwarded regardless of how fast gpsd reports.
func NewGPSD(addr string, interval time.Duration, logger *log.Logger) *GPSD {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &GPSD{
		addr:     addr,
		interval: interval,
		log:      logger,
		fixes:    make(chan models.Fix, 16),
		done:     make(chan struct{}),
	}
}

// tpvReport is the subset of a gpsd TPV report the sampler consumes.
type tpvReport struct {
	Class string  `json:"class"`
	Mode  int     `json:"mode"`
	Time  string  `json:"time"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Alt   float64 `json:"alt"`
	EPX   float64 `json:"epx"`
	EPY   float64 `json:"epy"`
}

// Start begins sampling in the background.
func (g *GPSD) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	go g.run(ctx)
	return nil
}

func (g *GPSD) run(ctx context.Context) {
	defer close(g.done)
	defer close(g.fixes)

	for {
		if err := g.watch(ctx); err != nil && ctx.Err() == nil {
			g.log.Warn("gpsd connection lost", "addr", g.addr, "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// watch holds one gpsd connection open and forwards throttled fixes.
func (g *GPSD) watch(ctx context.Context) error {
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", g.addr)
	if err != nil {
		return fmt.Errorf("dial gpsd: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Tear the blocking read down when the context ends.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	if _, err := conn.Write([]byte(watchCommand)); err != nil {
		return fmt.Errorf("enable watch: %w", err)
	}

	var lastEmit time.Time
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)

	for scanner.Scan() {
		var report tpvReport
		if err := json.Unmarshal(scanner.Bytes(), &report); err != nil {
			continue
		}
		if report.Class != "TPV" || report.Mode < 2 {
			continue
		}

		fix := models.Fix{
			Latitude:  report.Lat,
			Longitude: report.Lon,
			Altitude:  report.Alt,
			Accuracy:  maxFloat(report.EPX, report.EPY),
			Time:      time.Now(),
		}
		if t, err := time.Parse(time.RFC3339, report.Time); err == nil {
			fix.Time = t
		}

		g.mu.Lock()
		g.last = fix
		g.hasLast = true
		g.mu.Unlock()

		if time.Since(lastEmit) < g.interval {
			continue
		}
		lastEmit = time.Now()
		deliver(g.fixes, fix)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read gpsd: %w", err)
	}
	return nil
}

// Fixes returns the live fix sequence.
func (g *GPSD) Fixes() <-chan models.Fix {
	return g.fixes
}

// Last returns the most recent fix received from gpsd.
func (g *GPSD) Last() (models.Fix, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.last, g.hasLast
}

// Close stops sampling and waits for the background reader to exit.
func (g *GPSD) Close() error {
	if g.cancel != nil {
		g.cancel()
		<-g.done
	}
	return nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
