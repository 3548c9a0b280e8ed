// ABOUTME: MCP tool implementations for fasting, manual entries, deletion, and sync control.
// ABOUTME: Each tool maps onto one command surface operation.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/sync"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "start_fast",
		Description: "Start a fast now with an optional goal in hours",
	}, s.handleStartFast)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "stop_fast",
		Description: "End the fast in progress and record it",
	}, s.handleStopFast)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "cancel_fast",
		Description: "Discard the fast in progress without recording it",
	}, s.handleCancelFast)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_weight",
		Description: "Record a body weight in kilograms",
	}, s.handleAddWeight)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_water",
		Description: "Record water intake in milliliters",
	}, s.handleAddWater)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_sleep",
		Description: "Record a sleep period with optional 1-5 quality",
	}, s.handleAddSleep)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_mood",
		Description: "Record mood and energy on a 1-10 scale",
	}, s.handleAddMood)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_entries",
		Description: "List recent entries for a domain (fasting, weight, hydration, sleep, mood)",
	}, s.handleListEntries)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_entry",
		Description: "Delete an entry by ID or ID prefix, including its synced copy",
	}, s.handleDeleteEntry)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "sync_domain",
		Description: "Sync a domain with the health store (observer, historical, or reset)",
	}, s.handleSyncDomain)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "set_sync",
		Description: "Enable or disable health store sync for a domain",
	}, s.handleSetSync)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_stats",
		Description: "Get streaks, averages, and today's totals for every domain",
	}, s.handleGetStats)
}

// Tool input/output types

type startFastInput struct {
	GoalHours float64 `json:"goal_hours,omitempty" jsonschema:"Fasting goal in hours, defaults to the configured goal"`
}

type fastOutput struct {
	ID        string  `json:"id"`
	Start     string  `json:"start"`
	End       string  `json:"end,omitempty"`
	GoalHours float64 `json:"goal_hours"`
	Hours     float64 `json:"hours"`
	MetGoal   bool    `json:"met_goal"`
	Message   string  `json:"message"`
}

type emptyInput struct{}

type addWeightInput struct {
	Kilograms  float64 `json:"kg" jsonschema:"Weight in kilograms"`
	RecordedAt string  `json:"recorded_at,omitempty" jsonschema:"Timestamp (ISO 8601), defaults to now"`
}

type addWaterInput struct {
	Milliliters float64 `json:"ml" jsonschema:"Amount in milliliters"`
	RecordedAt  string  `json:"recorded_at,omitempty" jsonschema:"Timestamp (ISO 8601), defaults to now"`
}

type addSleepInput struct {
	Start   string `json:"start" jsonschema:"When sleep began (ISO 8601)"`
	End     string `json:"end,omitempty" jsonschema:"When sleep ended (ISO 8601), defaults to now"`
	Quality int    `json:"quality,omitempty" jsonschema:"Quality rating 1-5"`
}

type addMoodInput struct {
	Mood       int    `json:"mood" jsonschema:"Mood rating 1-10"`
	Energy     int    `json:"energy" jsonschema:"Energy rating 1-10"`
	Notes      string `json:"notes,omitempty" jsonschema:"Optional notes, kept locally"`
	RecordedAt string `json:"recorded_at,omitempty" jsonschema:"Timestamp (ISO 8601), defaults to now"`
}

type entryOutput struct {
	ID      string `json:"id"`
	Domain  string `json:"domain"`
	Message string `json:"message"`
}

type listEntriesInput struct {
	Domain string `json:"domain" jsonschema:"Domain to list"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max results (default 20)"`
}

type deleteEntryInput struct {
	Domain string `json:"domain" jsonschema:"Domain the entry belongs to"`
	ID     string `json:"id" jsonschema:"Entry ID or prefix"`
}

type syncDomainInput struct {
	Domain   string `json:"domain" jsonschema:"Domain to sync"`
	Strategy string `json:"strategy,omitempty" jsonschema:"observer (default), historical, or reset"`
	Since    string `json:"since,omitempty" jsonschema:"Range start (ISO 8601) for historical and reset syncs"`
}

type syncOutput struct {
	Domain  string      `json:"domain"`
	Result  sync.Result `json:"result"`
	Message string      `json:"message"`
}

type setSyncInput struct {
	Domain  string `json:"domain" jsonschema:"Domain to configure"`
	Enabled bool   `json:"enabled" jsonschema:"Whether sync is enabled"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

// parseTime accepts RFC 3339 or "2006-01-02 15:04" in local time. Empty means now.
func parseTime(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: use ISO 8601", value)
	}
	return t, nil
}

func shortID(e models.Entry) string {
	return e.Base().ID.String()[:8]
}

// platformNote explains a write-through failure after a local success.
func platformNote(msg string, err error) (string, error) {
	if err == nil {
		return msg, nil
	}
	if errors.Is(err, sync.ErrPlatform) {
		return fmt.Sprintf("%s (saved locally; %v)", msg, err), nil
	}
	return "", err
}

// Tool handlers

func (s *Server) handleStartFast(ctx context.Context, req *mcp.CallToolRequest, input startFastInput) (*mcp.CallToolResult, fastOutput, error) {
	session, err := s.set.Fasting.Start(ctx, input.GoalHours)
	if err != nil {
		return nil, fastOutput{}, fmt.Errorf("failed to start fast: %w", err)
	}
	out := s.fastOutput(session)
	out.Message = fmt.Sprintf("Started a %.0fh fast (ID: %s)", session.GoalHours, shortID(session))
	return nil, out, nil
}

func (s *Server) handleStopFast(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, fastOutput, error) {
	session, err := s.set.Fasting.Stop(ctx)
	if session == nil {
		return nil, fastOutput{}, fmt.Errorf("failed to stop fast: %w", err)
	}
	out := s.fastOutput(session)
	msg := fmt.Sprintf("Fasted %.1fh of %.0fh goal", out.Hours, session.GoalHours)
	if out.MetGoal {
		msg += " - goal met"
	}
	if out.Message, err = platformNote(msg, err); err != nil {
		return nil, fastOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) handleCancelFast(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, simpleOutput, error) {
	session, err := s.set.Fasting.Cancel()
	if err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to cancel fast: %w", err)
	}
	return nil, simpleOutput{Message: fmt.Sprintf("Cancelled fast started %s", session.Start.Format(time.Kitchen))}, nil
}

func (s *Server) fastOutput(session *models.FastingSession) fastOutput {
	now := s.clock.Now()
	out := fastOutput{
		ID:        shortID(session),
		Start:     session.Start.Format(time.RFC3339),
		GoalHours: session.GoalHours,
		Hours:     session.Duration(now).Hours(),
		MetGoal:   session.MetGoal(),
	}
	if session.End != nil {
		out.End = session.End.Format(time.RFC3339)
	}
	return out
}

func (s *Server) handleAddWeight(ctx context.Context, req *mcp.CallToolRequest, input addWeightInput) (*mcp.CallToolResult, entryOutput, error) {
	at, err := parseTime(input.RecordedAt, s.clock.Now())
	if err != nil {
		return nil, entryOutput{}, err
	}
	entry := models.NewWeightEntry(at, input.Kilograms)
	msg, err := platformNote(fmt.Sprintf("Added weight: %.1f kg (ID: %s)", input.Kilograms, shortID(entry)), s.set.Weight.AddManual(ctx, entry))
	if err != nil {
		return nil, entryOutput{}, fmt.Errorf("failed to add weight: %w", err)
	}
	return nil, entryOutput{ID: shortID(entry), Domain: string(models.DomainWeight), Message: msg}, nil
}

func (s *Server) handleAddWater(ctx context.Context, req *mcp.CallToolRequest, input addWaterInput) (*mcp.CallToolResult, entryOutput, error) {
	at, err := parseTime(input.RecordedAt, s.clock.Now())
	if err != nil {
		return nil, entryOutput{}, err
	}
	entry := models.NewHydrationEntry(at, input.Milliliters)
	msg, err := platformNote(fmt.Sprintf("Added water: %.0f ml (ID: %s)", input.Milliliters, shortID(entry)), s.set.Hydration.AddManual(ctx, entry))
	if err != nil {
		return nil, entryOutput{}, fmt.Errorf("failed to add water: %w", err)
	}
	return nil, entryOutput{ID: shortID(entry), Domain: string(models.DomainHydration), Message: msg}, nil
}

func (s *Server) handleAddSleep(ctx context.Context, req *mcp.CallToolRequest, input addSleepInput) (*mcp.CallToolResult, entryOutput, error) {
	now := s.clock.Now()
	if input.Start == "" {
		return nil, entryOutput{}, fmt.Errorf("start is required")
	}
	start, err := parseTime(input.Start, now)
	if err != nil {
		return nil, entryOutput{}, err
	}
	end, err := parseTime(input.End, now)
	if err != nil {
		return nil, entryOutput{}, err
	}
	entry := models.NewSleepEntry(start, end).WithQuality(input.Quality)
	msg, err := platformNote(fmt.Sprintf("Added sleep: %.1fh (ID: %s)", entry.Duration().Hours(), shortID(entry)), s.set.Sleep.AddManual(ctx, entry))
	if err != nil {
		return nil, entryOutput{}, fmt.Errorf("failed to add sleep: %w", err)
	}
	return nil, entryOutput{ID: shortID(entry), Domain: string(models.DomainSleep), Message: msg}, nil
}

func (s *Server) handleAddMood(ctx context.Context, req *mcp.CallToolRequest, input addMoodInput) (*mcp.CallToolResult, entryOutput, error) {
	at, err := parseTime(input.RecordedAt, s.clock.Now())
	if err != nil {
		return nil, entryOutput{}, err
	}
	entry := models.NewMoodEntry(at, input.Mood, input.Energy)
	if input.Notes != "" {
		entry.WithNotes(input.Notes)
	}
	msg, err := platformNote(fmt.Sprintf("Added mood %d, energy %d (ID: %s)", input.Mood, input.Energy, shortID(entry)), s.set.Mood.AddManual(ctx, entry))
	if err != nil {
		return nil, entryOutput{}, fmt.Errorf("failed to add mood: %w", err)
	}
	return nil, entryOutput{ID: shortID(entry), Domain: string(models.DomainMood), Message: msg}, nil
}

func (s *Server) handleListEntries(ctx context.Context, req *mcp.CallToolRequest, input listEntriesInput) (*mcp.CallToolResult, any, error) {
	d, err := models.ParseDomain(input.Domain)
	if err != nil {
		return nil, nil, err
	}
	m, err := s.set.Get(d)
	if err != nil {
		return nil, nil, err
	}
	if input.Limit <= 0 {
		input.Limit = 20
	}

	entries := m.List()
	if len(entries) == 0 {
		return nil, map[string]interface{}{"message": fmt.Sprintf("No %s entries found.", d)}, nil
	}
	if len(entries) > input.Limit {
		entries = entries[:input.Limit]
	}
	return nil, map[string]interface{}{"domain": d, "entries": entries}, nil
}

func (s *Server) handleDeleteEntry(ctx context.Context, req *mcp.CallToolRequest, input deleteEntryInput) (*mcp.CallToolResult, simpleOutput, error) {
	d, err := models.ParseDomain(input.Domain)
	if err != nil {
		return nil, simpleOutput{}, err
	}
	m, err := s.set.Get(d)
	if err != nil {
		return nil, simpleOutput{}, err
	}
	removed, err := m.Remove(ctx, input.ID)
	if removed == nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to delete %s entry: %w", d, err)
	}
	msg, err := platformNote(fmt.Sprintf("Deleted %s entry: %s", d, shortID(removed)), err)
	if err != nil {
		return nil, simpleOutput{}, err
	}
	return nil, simpleOutput{Message: msg}, nil
}

func (s *Server) handleSyncDomain(ctx context.Context, req *mcp.CallToolRequest, input syncDomainInput) (*mcp.CallToolResult, syncOutput, error) {
	d, err := models.ParseDomain(input.Domain)
	if err != nil {
		return nil, syncOutput{}, err
	}
	m, err := s.set.Get(d)
	if err != nil {
		return nil, syncOutput{}, err
	}
	strategy := models.StrategyObserver
	if input.Strategy != "" {
		strategy = models.SyncStrategy(input.Strategy)
	}
	var since time.Time
	if input.Since != "" {
		if since, err = parseTime(input.Since, s.clock.Now()); err != nil {
			return nil, syncOutput{}, err
		}
	}

	res, err := m.Run(ctx, strategy, since)
	if err != nil {
		return nil, syncOutput{}, err
	}
	msg := sync.StatusMessage(res, nil)
	if res.Skipped != "" {
		msg = "skipped: " + res.Skipped
	}
	return nil, syncOutput{Domain: string(d), Result: res, Message: msg}, nil
}

func (s *Server) handleSetSync(ctx context.Context, req *mcp.CallToolRequest, input setSyncInput) (*mcp.CallToolResult, simpleOutput, error) {
	d, err := models.ParseDomain(input.Domain)
	if err != nil {
		return nil, simpleOutput{}, err
	}
	m, err := s.set.Get(d)
	if err != nil {
		return nil, simpleOutput{}, err
	}
	if err := m.SetSyncPreference(ctx, input.Enabled); err != nil {
		return nil, simpleOutput{}, err
	}
	state := "disabled"
	if input.Enabled {
		state = "enabled"
	}
	return nil, simpleOutput{Message: fmt.Sprintf("%s sync %s", d, state)}, nil
}

func (s *Server) handleGetStats(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	return nil, s.set.Summarize(s.clock.Now()), nil
}
