// ABOUTME: Tests for core data models
// ABOUTME: Covers validation and constructor behavior

package models

import (
	"math"
	"testing"
	"time"
)

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{"valid", 41.8781, -87.6298, false},
		{"zero zero", 0, 0, false},
		{"lat too high", 90.1, 0, true},
		{"lat too low", -90.1, 0, true},
		{"lon too high", 0, 180.1, true},
		{"lon too low", 0, -180.1, true},
		{"lat NaN", math.NaN(), 0, true},
		{"lon inf", 0, math.Inf(1), true},
		{"boundary lat", 90, 0, false},
		{"boundary lon", 0, -180, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.lat, tt.lon)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoordinates(%v, %v) error = %v, wantErr %v", tt.lat, tt.lon, err, tt.wantErr)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("morning ride"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ValidateName("   "); err == nil {
		t.Error("whitespace-only name accepted")
	}
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateName(string(long)); err == nil {
		t.Error("over-long name accepted")
	}
}

func TestNewRoute(t *testing.T) {
	fix := Fix{Latitude: 59.33, Longitude: 18.07, Time: time.Now()}
	route := NewRoute(fix, 11, 512, 512)

	if route.CenterLat != fix.Latitude || route.CenterLon != fix.Longitude {
		t.Error("route center does not match anchor fix")
	}
	if route.EndTime != nil {
		t.Error("new route must be unfinished")
	}
	if route.Zoom != 11 || route.Width != 512 || route.Height != 512 {
		t.Error("zoom/size not carried")
	}
	if route.StartTime == 0 {
		t.Error("start time not set")
	}
	if route.Finished() {
		t.Error("Finished() true for unfinished route")
	}
}

func TestNewRoutePoint(t *testing.T) {
	before := NowMillis()
	pt := NewRoutePoint(7, 1.5, 2.5)
	after := NowMillis()

	if pt.RouteID != 7 {
		t.Errorf("got route id %d, want 7", pt.RouteID)
	}
	if pt.Timestamp < before || pt.Timestamp > after {
		t.Errorf("timestamp %d outside [%d, %d]", pt.Timestamp, before, after)
	}
}

func TestNewRoutePointAt(t *testing.T) {
	pt := NewRoutePointAt(3, 1, 2, 42000)
	if pt.Timestamp != 42000 {
		t.Errorf("got timestamp %d, want 42000", pt.Timestamp)
	}
}
