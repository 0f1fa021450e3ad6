// ABOUTME: Location source abstraction producing a live sequence of fixes
// ABOUTME: Sources run independently of recording state and cache the last fix

package sampler

import (
	"context"
	"errors"

	"github.com/mcmeister/gpstrack/internal/models"
)

// ErrNoFix is returned by sources that cannot supply a current position.
var ErrNoFix = errors.New("no location fix available")

// Source produces position fixes at a configured interval. Sources start
// delivering on Start and keep running until Close or context cancellation;
// consumers that fall behind miss fixes rather than blocking the source.
type Source interface {
	// Start begins sampling. It returns once the source is running.
	Start(ctx context.Context) error
	// Fixes returns the live fix sequence. The channel is closed when the
	// source stops.
	Fixes() <-chan models.Fix
	// Last returns the most recent fix, if any has been received yet.
	Last() (models.Fix, bool)
	Close() error
}

// deliver sends a fix without blocking, dropping it when the consumer lags.
func deliver(ch chan models.Fix, fix models.Fix) {
	select {
	case ch <- fix:
	default:
	}
}
