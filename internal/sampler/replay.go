// ABOUTME: Replay source that walks a GPX file on a timer
// ABOUTME: Serves as the simulated device for development and testing

package sampler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcmeister/gpstrack/internal/models"
	"github.com/tkrajina/gpxgo/gpx"
)

// Replay is a Source that emits the points of a GPX file at a fixed
// interval, looping back to the start when it runs out.
type Replay struct {
	points   []models.Fix
	interval time.Duration

	mu      sync.RWMutex
	last    models.Fix
	hasLast bool

	fixes  chan models.Fix
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Source = (*Replay)(nil)

// NewReplay loads a GPX file into a replay source.
func NewReplay(path string, interval time.Duration) (*Replay, error) {
	doc, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}

	var points []models.Fix
	for _, track := range doc.Tracks {
		for _, segment := range track.Segments {
			for _, pt := range segment.Points {
				points = append(points, models.Fix{
					Latitude:  pt.Latitude,
					Longitude: pt.Longitude,
					Altitude:  pt.Elevation.Value(),
					Time:      pt.Timestamp,
				})
			}
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("gpx file %s contains no track points", path)
	}

	return &Replay{
		points:   points,
		interval: interval,
		fixes:    make(chan models.Fix, 16),
		done:     make(chan struct{}),
	}, nil
}

// Start begins replaying in the background.
func (r *Replay) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	go r.run(ctx)
	return nil
}

func (r *Replay) run(ctx context.Context) {
	defer close(r.done)
	defer close(r.fixes)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	i := 0
	for {
		fix := r.points[i%len(r.points)]
		fix.Time = time.Now()
		i++

		r.mu.Lock()
		r.last = fix
		r.hasLast = true
		r.mu.Unlock()

		deliver(r.fixes, fix)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Fixes returns the live fix sequence.
func (r *Replay) Fixes() <-chan models.Fix {
	return r.fixes
}

// Last returns the most recently replayed fix.
func (r *Replay) Last() (models.Fix, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.hasLast
}

// Close stops the replay and waits for the background loop to exit.
func (r *Replay) Close() error {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
	return nil
}
