// ABOUTME: MCP resource implementations for healthsync.
// ABOUTME: Provides health://summary, health://today, and health://sync resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/healthsync/internal/clock"
	"github.com/harperreed/healthsync/internal/models"
)

const recentSyncRuns = 20

func (s *Server) registerResources() {
	// health://summary - every aggregate plus the active fast
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "health://summary",
		Name:        "Health Summary Dashboard",
		Description: "Streaks, rolling averages, sync state, and the fast in progress",
		MIMEType:    "application/json",
	}, s.handleSummaryResource)

	// health://today - entries recorded since local midnight
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "health://today",
		Name:        "Today's Health Data",
		Description: "Every entry recorded today, by domain",
		MIMEType:    "application/json",
	}, s.handleTodayResource)

	// health://sync - recent sync runs
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "health://sync",
		Name:        "Sync Log",
		Description: "Most recent sync runs across all domains",
		MIMEType:    "application/json",
	}, s.handleSyncResource)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// Resource handlers

func (s *Server) handleSummaryResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResource("health://summary", s.set.Summarize(s.clock.Now()))
}

func (s *Server) handleTodayResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	now := s.clock.Now()
	todayStart := clock.StartOfDay(now)

	entries := make(map[models.Domain][]models.Entry)
	counts := make(map[models.Domain]int)
	for _, m := range s.set.All() {
		var today []models.Entry
		for _, e := range m.List() {
			if !e.Timestamp().Before(todayStart) {
				today = append(today, e)
			}
		}
		entries[m.Domain()] = today
		counts[m.Domain()] = len(today)
	}

	return jsonResource("health://today", map[string]interface{}{
		"date":    todayStart.Format("2006-01-02"),
		"entries": entries,
		"counts":  counts,
	})
}

func (s *Server) handleSyncResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	runs, err := s.repo.ListSyncRuns(nil, recentSyncRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	prefs := make(map[models.Domain]models.SyncPreference)
	for _, m := range s.set.All() {
		prefs[m.Domain()] = m.Preference()
	}
	return jsonResource("health://sync", map[string]interface{}{
		"preferences": prefs,
		"runs":        runs,
	})
}
