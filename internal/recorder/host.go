// ABOUTME: Recording host, the long-lived background loop for one route
// ABOUTME: Accepts sampled fixes into the store unless paused; single command queue

package recorder

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/mcmeister/gpstrack/internal/models"
	"github.com/mcmeister/gpstrack/internal/storage"
)

type hostCommand int

const (
	hostPause hostCommand = iota
	hostResume
	hostStop
)

// host runs the sample-acceptance loop for exactly one route. Commands and
// fixes funnel through one goroutine, so they are processed strictly in the
// order issued and no shared mutable state needs locking. Pausing keeps the
// loop alive and discards fixes; only stop tears the loop down.
type host struct {
	routeID int64
	store   storage.Repository
	fixes   <-chan models.Fix
	log     *log.Logger

	count   int
	onCount func(routeID int64, count int)

	cmds   chan hostCommand
	cancel context.CancelFunc
	done   chan struct{}
}

// startHost launches the acceptance loop. initialCount seeds the point
// counter from the store so the snapshot edge trigger is not re-armed after
// crash recovery.
func startHost(ctx context.Context, routeID int64, store storage.Repository, fixes <-chan models.Fix, initialCount int, logger *log.Logger, onCount func(int64, int)) *host {
	ctx, cancel := context.WithCancel(ctx)
	h := &host{
		routeID: routeID,
		store:   store,
		fixes:   fixes,
		log:     logger,
		count:   initialCount,
		onCount: onCount,
		cmds:    make(chan hostCommand, 4),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.run(ctx)
	return h
}

func (h *host) run(ctx context.Context) {
	defer close(h.done)
	defer h.cancel()

	paused := false
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-h.cmds:
			switch cmd {
			case hostPause:
				paused = true
			case hostResume:
				paused = false
			case hostStop:
				return
			}
		case fix, ok := <-h.fixes:
			if !ok {
				h.log.Warn("fix stream ended", "route", h.routeID)
				return
			}
			if paused {
				// Dropped, not buffered.
				continue
			}
			h.accept(fix)
		}
	}
}

func (h *host) accept(fix models.Fix) {
	point := models.NewRoutePoint(h.routeID, fix.Latitude, fix.Longitude)
	if _, err := h.store.InsertPoint(point); err != nil {
		h.log.Error("append point", "route", h.routeID, "err", err)
		return
	}
	h.count++
	if h.onCount != nil {
		h.onCount(h.routeID, h.count)
	}
}

// send enqueues a command. Commands are processed in the order issued; a
// host that already stopped ignores them.
func (h *host) send(cmd hostCommand) {
	select {
	case h.cmds <- cmd:
	case <-h.done:
	}
}

// stop terminates the loop and waits for it to drain.
func (h *host) stop() {
	h.send(hostStop)
	<-h.done
}

// wait blocks until the loop has exited, without requesting a stop.
func (h *host) wait() {
	<-h.done
}
