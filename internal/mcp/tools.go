// ABOUTME: MCP tool definitions and handlers
// ABOUTME: Provides route query and rename operations for AI agents

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcmeister/gpstrack/internal/geo"
	"github.com/mcmeister/gpstrack/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	s.registerListRoutesTool()
	s.registerGetRouteTool()
	s.registerGetRoutePointsTool()
	s.registerRenameRouteTool()
}

// RouteOutput defines output for route tools.
type RouteOutput struct {
	ID           int64    `json:"id"`
	Name         *string  `json:"name,omitempty"`
	StartedAt    string   `json:"started_at"`
	EndedAt      *string  `json:"ended_at,omitempty"`
	PointCount   int      `json:"point_count"`
	DistanceKm   float64  `json:"distance_km"`
	AverageSpeed *float64 `json:"avg_speed_kmh,omitempty"`
	SnapshotPath *string  `json:"snapshot_path,omitempty"`
}

func (s *Server) routeOutput(route *models.Route) (RouteOutput, error) {
	points, err := s.store.PointsForRoute(route.ID)
	if err != nil {
		return RouteOutput{}, fmt.Errorf("failed to load points: %w", err)
	}

	out := RouteOutput{
		ID:           route.ID,
		Name:         route.Name,
		StartedAt:    time.UnixMilli(route.StartTime).UTC().Format(time.RFC3339),
		PointCount:   len(points),
		DistanceKm:   geo.PathDistance(points) / 1000.0,
		AverageSpeed: route.AverageSpeed,
		SnapshotPath: route.SnapshotPath,
	}
	if route.EndTime != nil {
		ended := time.UnixMilli(*route.EndTime).UTC().Format(time.RFC3339)
		out.EndedAt = &ended
	}
	return out, nil
}

// ListRoutesInput is empty but required for type.
type ListRoutesInput struct{}

// ListRoutesOutput defines output for list_routes tool.
type ListRoutesOutput struct {
	Routes []RouteOutput `json:"routes"`
	Count  int           `json:"count"`
}

func (s *Server) registerListRoutesTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_routes",
		Description: "List all recorded routes with their stats, newest first.",
		InputSchema: map[string]interface{}{
			"type": "object",
		},
	}, s.handleListRoutes)
}

func (s *Server) handleListRoutes(_ context.Context, req *mcp.CallToolRequest, input ListRoutesInput) (*mcp.CallToolResult, ListRoutesOutput, error) {
	routes, err := s.store.AllRoutes()
	if err != nil {
		return nil, ListRoutesOutput{}, fmt.Errorf("failed to list routes: %w", err)
	}

	routeOutputs := make([]RouteOutput, len(routes))
	for i, route := range routes {
		routeOutputs[i], err = s.routeOutput(route)
		if err != nil {
			return nil, ListRoutesOutput{}, err
		}
	}

	output := ListRoutesOutput{
		Routes: routeOutputs,
		Count:  len(routeOutputs),
	}

	jsonBytes, _ := json.MarshalIndent(output, "", "  ") //nolint:errchkjson // output is always serializable
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
	}, output, nil
}

// GetRouteInput defines input for get_route tool.
type GetRouteInput struct {
	ID int64 `json:"id"`
}

func (s *Server) registerGetRouteTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_route",
		Description: "Get a single route by id, including distance and speed stats.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Route id",
				},
			},
			"required": []string{"id"},
		},
	}, s.handleGetRoute)
}

func (s *Server) handleGetRoute(_ context.Context, req *mcp.CallToolRequest, input GetRouteInput) (*mcp.CallToolResult, RouteOutput, error) {
	route, err := s.store.GetRoute(input.ID)
	if err != nil {
		return nil, RouteOutput{}, fmt.Errorf("route %d not found", input.ID)
	}

	output, err := s.routeOutput(route)
	if err != nil {
		return nil, RouteOutput{}, err
	}

	jsonBytes, _ := json.MarshalIndent(output, "", "  ") //nolint:errchkjson // output is always serializable
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
	}, output, nil
}

// PointOutput defines output for route point tools.
type PointOutput struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	RecordedAt string  `json:"recorded_at"`
}

// RoutePointsOutput defines output for get_route_points tool.
type RoutePointsOutput struct {
	RouteID int64         `json:"route_id"`
	Points  []PointOutput `json:"points"`
	Count   int           `json:"count"`
}

func (s *Server) registerGetRoutePointsTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_route_points",
		Description: "Get the recorded GPS points of a route in chronological order.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Route id",
				},
			},
			"required": []string{"id"},
		},
	}, s.handleGetRoutePoints)
}

func (s *Server) handleGetRoutePoints(_ context.Context, req *mcp.CallToolRequest, input GetRouteInput) (*mcp.CallToolResult, RoutePointsOutput, error) {
	if _, err := s.store.GetRoute(input.ID); err != nil {
		return nil, RoutePointsOutput{}, fmt.Errorf("route %d not found", input.ID)
	}

	points, err := s.store.PointsForRoute(input.ID)
	if err != nil {
		return nil, RoutePointsOutput{}, fmt.Errorf("failed to get points: %w", err)
	}

	pointOutputs := make([]PointOutput, len(points))
	for i, pt := range points {
		pointOutputs[i] = PointOutput{
			Latitude:   pt.Latitude,
			Longitude:  pt.Longitude,
			RecordedAt: time.UnixMilli(pt.Timestamp).UTC().Format(time.RFC3339),
		}
	}

	output := RoutePointsOutput{
		RouteID: input.ID,
		Points:  pointOutputs,
		Count:   len(pointOutputs),
	}

	jsonBytes, _ := json.MarshalIndent(output, "", "  ") //nolint:errchkjson // output is always serializable
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
	}, output, nil
}

// RenameRouteInput defines input for rename_route tool.
type RenameRouteInput struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RenameRouteOutput defines output for rename_route tool.
type RenameRouteOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) registerRenameRouteTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "rename_route",
		Description: "Set or change the display name of a route.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Route id",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "New route name",
				},
			},
			"required": []string{"id", "name"},
		},
	}, s.handleRenameRoute)
}

func (s *Server) handleRenameRoute(_ context.Context, req *mcp.CallToolRequest, input RenameRouteInput) (*mcp.CallToolResult, RenameRouteOutput, error) {
	if err := models.ValidateName(input.Name); err != nil {
		return nil, RenameRouteOutput{}, err
	}

	if _, err := s.store.GetRoute(input.ID); err != nil {
		return nil, RenameRouteOutput{}, fmt.Errorf("route %d not found", input.ID)
	}

	if err := s.store.UpdateRouteName(input.ID, input.Name); err != nil {
		return nil, RenameRouteOutput{}, fmt.Errorf("failed to rename route: %w", err)
	}

	output := RenameRouteOutput{
		Success: true,
		Message: fmt.Sprintf("Renamed route %d to '%s'", input.ID, input.Name),
	}

	jsonBytes, _ := json.MarshalIndent(output, "", "  ") //nolint:errchkjson // output is always serializable
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
	}, output, nil
}
