// ABOUTME: Terminal UI formatting utilities
// ABOUTME: Provides human-readable output for routes and recording status

package ui

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/mcmeister/gpstrack/internal/models"
)

// RouteDisplayName returns the route's name or a numbered fallback.
func RouteDisplayName(route *models.Route) string {
	if route.Name != nil && *route.Name != "" {
		return *route.Name
	}
	return fmt.Sprintf("route %d", route.ID)
}

// FormatRoute formats a route for terminal list display.
func FormatRoute(route *models.Route, pointCount int, distanceKm float64) string {
	if route == nil {
		return color.New(color.Faint).Sprint("(invalid route)")
	}

	name := color.GreenString(RouteDisplayName(route))
	started := FormatRelativeTime(time.UnixMilli(route.StartTime))

	if !route.Finished() {
		return fmt.Sprintf("%s - %s, %d points - %s",
			name,
			color.YellowString("recording"),
			pointCount,
			color.New(color.Faint).Sprint("started "+started))
	}

	dur := FormatDuration(time.Duration(*route.EndTime-route.StartTime) * time.Millisecond)
	summary := fmt.Sprintf("%s, %s, %d points", FormatDistance(distanceKm), dur, pointCount)
	if route.AverageSpeed != nil {
		summary += fmt.Sprintf(", %.1f km/h", *route.AverageSpeed)
	}
	return fmt.Sprintf("%s - %s (%s)",
		name,
		summary,
		color.New(color.Faint).Sprint(started))
}

// FormatDistance formats a distance in kilometers for display.
func FormatDistance(km float64) string {
	if km < 1.0 {
		return fmt.Sprintf("%.0f m", km*1000)
	}
	return fmt.Sprintf("%.2f km", km)
}

// FormatDuration formats a duration as a compact h/m/s string.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatRelativeTime formats a time as relative to now.
func FormatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	// Handle future times (clock skew, bad data)
	if diff < 0 {
		return color.YellowString("in the future")
	}

	if diff < time.Minute {
		return "just now"
	}
	if diff < time.Hour {
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	}
	if diff < 24*time.Hour {
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := int(diff.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
