// ABOUTME: On-disk cache of map tiles with opportunistic HTTP fetch
// ABOUTME: Skip-if-present, idempotent, best-effort batch prefetch

package tilecache

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mcmeister/gpstrack/internal/geo"
)

// Cache fetches and stores map tiles under dir as
// tiles/<zoom>/<x>-<y>.png. The directory is append-only: a tile on disk is
// never invalidated, and concurrent fetches of the same tile are safe
// because writes are idempotent and keyed by immutable coordinates.
type Cache struct {
	dir         string
	urlTemplate string
	apiKey      string
	client      *http.Client
	log         *log.Logger
}

// AreaResult reports the outcome of a best-effort area prefetch.
type AreaResult struct {
	Fetched int
	Skipped int
	Failed  int
}

// New creates a tile cache rooted at dir. urlTemplate embeds {z}, {x}, {y},
// and optionally {key}; timeout bounds both connect and read per tile.
func New(dir, urlTemplate, apiKey string, timeout time.Duration, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Cache{
		dir:         dir,
		urlTemplate: urlTemplate,
		apiKey:      apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: timeout}).DialContext,
			},
		},
		log: logger,
	}
}

// TilePath returns the on-disk path for a tile.
func (c *Cache) TilePath(zoom, x, y int) string {
	return filepath.Join(c.dir, "tiles", strconv.Itoa(zoom), fmt.Sprintf("%d-%d.png", x, y))
}

// Has reports whether a tile is already cached.
func (c *Cache) Has(zoom, x, y int) bool {
	_, err := os.Stat(c.TilePath(zoom, x, y))
	return err == nil
}

// tileURL expands the provider template for one tile.
func (c *Cache) tileURL(zoom, x, y int) string {
	url := strings.Replace(c.urlTemplate, "{z}", strconv.Itoa(zoom), 1)
	url = strings.Replace(url, "{x}", strconv.Itoa(x), 1)
	url = strings.Replace(url, "{y}", strconv.Itoa(y), 1)
	url = strings.Replace(url, "{key}", c.apiKey, 1)
	return url
}

// EnsureTile makes sure one tile exists on disk, fetching it if missing.
// Returns true if a network fetch happened.
func (c *Cache) EnsureTile(ctx context.Context, zoom, x, y int) (bool, error) {
	if c.Has(zoom, x, y) {
		return false, nil
	}

	url := c.tileURL(zoom, x, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "gpstrack/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("fetch tile %d/%d/%d: %w", zoom, x, y, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("fetch tile %d/%d/%d: status %d", zoom, x, y, resp.StatusCode)
	}

	if err := c.writeTile(zoom, x, y, resp.Body); err != nil {
		return false, err
	}
	return true, nil
}

// writeTile streams the body to disk. The write goes to a temp file first
// and is renamed into place so readers never observe a partial tile.
func (c *Cache) writeTile(zoom, x, y int, body io.Reader) error {
	path := c.TilePath(zoom, x, y)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create tile directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tile-*")
	if err != nil {
		return fmt.Errorf("create temp tile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write tile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close tile: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename tile: %w", err)
	}
	return nil
}

// EnsureArea makes sure the (2·radius+1)² tile square around the given
// coordinate exists on disk. Individual tile failures are logged and
// counted; the batch always runs to completion.
func (c *Cache) EnsureArea(ctx context.Context, lat, lon float64, zoom, radius int) AreaResult {
	var res AreaResult

	centerX, centerY := geo.TileXY(lat, lon, zoom)
	max := 1<<uint(zoom) - 1

	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			x := clamp(centerX+dx, max)
			y := clamp(centerY+dy, max)

			fetched, err := c.EnsureTile(ctx, zoom, x, y)
			switch {
			case err != nil:
				res.Failed++
				c.log.Warn("tile fetch failed", "zoom", zoom, "x", x, "y", y, "err", err)
			case fetched:
				res.Fetched++
			default:
				res.Skipped++
			}
		}
	}

	c.log.Debug("area prefetch done",
		"lat", lat, "lon", lon, "zoom", zoom, "radius", radius,
		"fetched", res.Fetched, "skipped", res.Skipped, "failed", res.Failed)
	return res
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
