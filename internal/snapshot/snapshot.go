// ABOUTME: Static map snapshot generation for recorded routes
// ABOUTME: Composes cached tiles, rotates to the route bearing, overlays the path

package snapshot

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/mcmeister/gpstrack/internal/geo"
	"github.com/mcmeister/gpstrack/internal/models"
	"github.com/mcmeister/gpstrack/internal/tilecache"
	"golang.org/x/image/font/gofont/goregular"
)

const tileSize = 256

// Generator produces one PNG per route from the tile cache. Generation is
// offline-capable: missing tiles are fetched through the cache first when
// the network allows, and whatever is on disk afterwards gets composed.
type Generator struct {
	tiles  *tilecache.Cache
	dir    string
	radius int
	log    *log.Logger
}

// NewGenerator creates a snapshot generator writing PNGs under dir.
func NewGenerator(tiles *tilecache.Cache, dir string, radius int, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Generator{tiles: tiles, dir: dir, radius: radius, log: logger}
}

// SnapshotPath returns where the snapshot for a route is written.
func (g *Generator) SnapshotPath(routeID int64) string {
	return filepath.Join(g.dir, fmt.Sprintf("route_%d.png", routeID))
}

// Generate renders the route snapshot and returns its path. The image is
// centered on the route anchor, rotated so the given bearing points up, and
// overlaid with the recorded path.
func (g *Generator) Generate(ctx context.Context, route *models.Route, points []*models.RoutePoint, bearing float64) (string, error) {
	if len(points) < 2 {
		return "", fmt.Errorf("route %d has %d points, need at least 2", route.ID, len(points))
	}
	if err := os.MkdirAll(g.dir, 0750); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}

	// Opportunistic: pull in whatever tiles are still missing.
	g.tiles.EnsureArea(ctx, route.CenterLat, route.CenterLon, route.Zoom, g.radius)

	dc := gg.NewContext(route.Width, route.Height)
	dc.SetRGB(0.92, 0.92, 0.92)
	dc.Clear()

	if bearing != 0 {
		dc.RotateAbout(gg.Radians(-bearing), float64(route.Width)/2, float64(route.Height)/2)
	}

	if err := g.drawTiles(dc, route); err != nil {
		return "", err
	}
	g.drawPath(dc, route, points)

	dc.Identity()
	g.drawLabel(dc, route)

	path := g.SnapshotPath(route.ID)
	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	g.log.Info("snapshot generated", "route", route.ID, "path", path)
	return path, nil
}

// drawTiles composes cached tiles covering the image window. Missing tiles
// leave their area blank; having no tiles at all is an error.
func (g *Generator) drawTiles(dc *gg.Context, route *models.Route) error {
	cx, cy := geo.TileFloat(route.CenterLat, route.CenterLon, route.Zoom)
	originX := cx*tileSize - float64(route.Width)/2
	originY := cy*tileSize - float64(route.Height)/2

	// One extra ring so rotation does not expose blank corners.
	minX := int(math.Floor(originX/tileSize)) - 1
	maxX := int(math.Floor((originX+float64(route.Width))/tileSize)) + 1
	minY := int(math.Floor(originY/tileSize)) - 1
	maxY := int(math.Floor((originY+float64(route.Height))/tileSize)) + 1

	maxTile := 1<<uint(route.Zoom) - 1
	drawn := 0
	for tx := minX; tx <= maxX; tx++ {
		for ty := minY; ty <= maxY; ty++ {
			if tx < 0 || tx > maxTile || ty < 0 || ty > maxTile {
				continue
			}
			img, err := gg.LoadImage(g.tiles.TilePath(route.Zoom, tx, ty))
			if err != nil {
				continue
			}
			dc.DrawImage(img, int(float64(tx)*tileSize-originX), int(float64(ty)*tileSize-originY))
			drawn++
		}
	}
	if drawn == 0 {
		return fmt.Errorf("no cached tiles for route %d at zoom %d", route.ID, route.Zoom)
	}
	return nil
}

func (g *Generator) drawPath(dc *gg.Context, route *models.Route, points []*models.RoutePoint) {
	dc.SetRGBA(0.85, 0.2, 0.2, 0.9)
	dc.SetLineWidth(4)
	for i, pt := range points {
		px, py := geo.LatLonToPixel(
			pt.Latitude, pt.Longitude,
			route.CenterLat, route.CenterLon,
			route.Zoom, route.Width, route.Height,
		)
		if i == 0 {
			dc.MoveTo(px, py)
		} else {
			dc.LineTo(px, py)
		}
	}
	dc.Stroke()
}

func (g *Generator) drawLabel(dc *gg.Context, route *models.Route) {
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return
	}
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: 13}))

	label := fmt.Sprintf("route %d", route.ID)
	if route.Name != nil && *route.Name != "" {
		label = *route.Name
	}

	w := float64(route.Width)
	h := float64(route.Height)
	dc.SetRGBA(1, 1, 1, 0.7)
	dc.DrawRectangle(0, h-24, w, 24)
	dc.Fill()
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored(label, w/2, h-12, 0.5, 0.35)
}
