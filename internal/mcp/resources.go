// ABOUTME: MCP resource definitions
// ABOUTME: Provides read-only GeoJSON views for AI agents

package mcp

import (
	"context"
	"fmt"

	"github.com/mcmeister/gpstrack/internal/geojson"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        "gpstrack://routes",
		Description: "All recorded routes as a GeoJSON FeatureCollection of LineStrings",
		URI:         "gpstrack://routes",
		MIMEType:    "application/geo+json",
	}, s.handleRoutesResource)
}

func (s *Server) handleRoutesResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	routes, err := s.store.AllRoutes()
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}

	collection := &geojson.FeatureCollection{
		Type:     "FeatureCollection",
		Features: []geojson.Feature{},
	}
	for _, route := range routes {
		points, err := s.store.PointsForRoute(route.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load points for route %d: %w", route.ID, err)
		}
		fc := geojson.ToLineFeatureCollection(route, points)
		collection.Features = append(collection.Features, fc.Features...)
	}

	jsonBytes, err := collection.ToJSONIndent()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize routes: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      "gpstrack://routes",
				MIMEType: "application/geo+json",
				Text:     string(jsonBytes),
			},
		},
	}, nil
}
