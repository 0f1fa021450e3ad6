// ABOUTME: Tests for MCP server, tools, and resources
// ABOUTME: Verifies tool handlers against a real SQLite store

package mcp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mcmeister/gpstrack/internal/models"
	"github.com/mcmeister/gpstrack/internal/storage"
)

func testStore(t *testing.T) *storage.SQLiteDB {
	t.Helper()
	store, err := storage.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDB failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedRoute(t *testing.T, store *storage.SQLiteDB) int64 {
	t.Helper()
	route := models.NewRoute(models.Fix{Latitude: 41.8781, Longitude: -87.6298, Time: time.UnixMilli(1700000000000)}, 11, 512, 512)
	id, err := store.InsertRoute(route)
	if err != nil {
		t.Fatalf("InsertRoute failed: %v", err)
	}
	coords := [][2]float64{
		{41.8781, -87.6298},
		{41.8900, -87.6200},
		{41.9000, -87.6100},
	}
	for i, c := range coords {
		pt := models.NewRoutePointAt(id, c[0], c[1], 1700000000000+int64(i)*60000)
		if _, err := store.InsertPoint(pt); err != nil {
			t.Fatalf("InsertPoint failed: %v", err)
		}
	}
	return id
}

func TestNewServer(t *testing.T) {
	store := testStore(t)
	server, err := NewServer(store)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if server == nil {
		t.Fatal("expected non-nil server")
	}
	if server.mcp == nil {
		t.Error("expected non-nil mcp server")
	}
}

func TestNewServer_NilStore(t *testing.T) {
	_, err := NewServer(nil)
	if err == nil {
		t.Error("expected error for nil store")
	}
}

func TestHandleListRoutes(t *testing.T) {
	store := testStore(t)
	id := seedRoute(t, store)
	server, _ := NewServer(store)

	result, output, err := server.handleListRoutes(context.Background(), nil, ListRoutesInput{})
	if err != nil {
		t.Fatalf("handleListRoutes failed: %v", err)
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if output.Count != 1 {
		t.Fatalf("expected 1 route, got %d", output.Count)
	}
	if output.Routes[0].ID != id {
		t.Errorf("expected route id %d, got %d", id, output.Routes[0].ID)
	}
	if output.Routes[0].PointCount != 3 {
		t.Errorf("expected 3 points, got %d", output.Routes[0].PointCount)
	}
	if output.Routes[0].DistanceKm <= 0 {
		t.Errorf("expected positive distance, got %f", output.Routes[0].DistanceKm)
	}
}

func TestHandleListRoutes_Empty(t *testing.T) {
	server, _ := NewServer(testStore(t))

	_, output, err := server.handleListRoutes(context.Background(), nil, ListRoutesInput{})
	if err != nil {
		t.Fatalf("handleListRoutes failed: %v", err)
	}
	if output.Count != 0 {
		t.Errorf("expected 0 routes, got %d", output.Count)
	}
}

func TestHandleGetRoute(t *testing.T) {
	store := testStore(t)
	id := seedRoute(t, store)
	server, _ := NewServer(store)

	_, output, err := server.handleGetRoute(context.Background(), nil, GetRouteInput{ID: id})
	if err != nil {
		t.Fatalf("handleGetRoute failed: %v", err)
	}
	if output.ID != id {
		t.Errorf("expected id %d, got %d", id, output.ID)
	}
	if output.EndedAt != nil {
		t.Error("expected unfinished route to have no end time")
	}
}

func TestHandleGetRoute_NotFound(t *testing.T) {
	server, _ := NewServer(testStore(t))

	_, _, err := server.handleGetRoute(context.Background(), nil, GetRouteInput{ID: 999})
	if err == nil {
		t.Error("expected error for missing route")
	}
}

func TestHandleGetRoutePoints(t *testing.T) {
	store := testStore(t)
	id := seedRoute(t, store)
	server, _ := NewServer(store)

	_, output, err := server.handleGetRoutePoints(context.Background(), nil, GetRouteInput{ID: id})
	if err != nil {
		t.Fatalf("handleGetRoutePoints failed: %v", err)
	}
	if output.Count != 3 {
		t.Fatalf("expected 3 points, got %d", output.Count)
	}
	// Chronological order
	if output.Points[0].Latitude != 41.8781 {
		t.Errorf("unexpected first point latitude: %f", output.Points[0].Latitude)
	}
	if output.Points[2].Latitude != 41.9000 {
		t.Errorf("unexpected last point latitude: %f", output.Points[2].Latitude)
	}
}

func TestHandleRenameRoute(t *testing.T) {
	store := testStore(t)
	id := seedRoute(t, store)
	server, _ := NewServer(store)

	_, output, err := server.handleRenameRoute(context.Background(), nil, RenameRouteInput{ID: id, Name: "lakefront loop"})
	if err != nil {
		t.Fatalf("handleRenameRoute failed: %v", err)
	}
	if !output.Success {
		t.Error("expected success")
	}

	route, err := store.GetRoute(id)
	if err != nil {
		t.Fatalf("GetRoute failed: %v", err)
	}
	if route.Name == nil || *route.Name != "lakefront loop" {
		t.Errorf("rename not persisted: %v", route.Name)
	}
}

func TestHandleRenameRoute_InvalidName(t *testing.T) {
	store := testStore(t)
	id := seedRoute(t, store)
	server, _ := NewServer(store)

	_, _, err := server.handleRenameRoute(context.Background(), nil, RenameRouteInput{ID: id, Name: ""})
	if err == nil {
		t.Error("expected error for empty name")
	}
}

func TestHandleRenameRoute_NotFound(t *testing.T) {
	server, _ := NewServer(testStore(t))

	_, _, err := server.handleRenameRoute(context.Background(), nil, RenameRouteInput{ID: 42, Name: "ghost"})
	if err == nil {
		t.Error("expected error for missing route")
	}
}

func TestHandleRoutesResource(t *testing.T) {
	store := testStore(t)
	seedRoute(t, store)
	server, _ := NewServer(store)

	result, err := server.handleRoutesResource(context.Background(), nil)
	if err != nil {
		t.Fatalf("handleRoutesResource failed: %v", err)
	}
	if len(result.Contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(result.Contents))
	}
	if !strings.Contains(result.Contents[0].Text, "LineString") {
		t.Error("expected LineString geometry in resource output")
	}
}
