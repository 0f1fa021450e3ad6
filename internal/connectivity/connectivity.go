// ABOUTME: Network reachability monitor with became-online events
// ABOUTME: Probes the tile provider host on a timer, no external dependencies on state

package connectivity

import (
	"context"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Monitor tracks whether the network is reachable by periodically dialing a
// probe address. Transitions from offline to online are surfaced as events
// so stored routes can be prefetched opportunistically.
type Monitor struct {
	addr     string
	interval time.Duration
	timeout  time.Duration
	log      *log.Logger

	online atomic.Bool
	events chan struct{}
	done   chan struct{}
}

// NewMonitor creates a monitor probing addr (host:port) every interval.
func NewMonitor(addr string, interval, timeout time.Duration, logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Monitor{
		addr:     addr,
		interval: interval,
		timeout:  timeout,
		log:      logger,
		events:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start runs the probe loop until the context ends. The first probe happens
// immediately so Online is meaningful right after startup.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		defer close(m.done)

		m.probe()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.probe()
			}
		}
	}()
}

func (m *Monitor) probe() {
	conn, err := net.DialTimeout("tcp", m.addr, m.timeout)
	reachable := err == nil
	if conn != nil {
		_ = conn.Close()
	}

	was := m.online.Swap(reachable)
	if reachable && !was {
		m.log.Info("network became reachable", "addr", m.addr)
		select {
		case m.events <- struct{}{}:
		default:
		}
	}
	if !reachable && was {
		m.log.Info("network lost", "addr", m.addr)
	}
}

// Online reports the result of the most recent probe.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// BecameOnline returns a channel that receives an event on every
// offline-to-online transition. Events are coalesced, not queued.
func (m *Monitor) BecameOnline() <-chan struct{} {
	return m.events
}

// Wait blocks until the probe loop has exited.
func (m *Monitor) Wait() {
	<-m.done
}
