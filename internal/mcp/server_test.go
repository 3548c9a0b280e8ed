// ABOUTME: Tests for MCP server, tools, and resources.
// ABOUTME: Covers NewServer, tool handlers, and resource handlers.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/healthsync/internal/clock"
	"github.com/harperreed/healthsync/internal/healthstore"
	"github.com/harperreed/healthsync/internal/logging"
	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/storage"
	"github.com/harperreed/healthsync/internal/sync"
	"github.com/harperreed/healthsync/internal/tracker"
)

var testNow = time.Date(2026, 8, 3, 12, 0, 0, 0, time.Local)

type testEnv struct {
	server *Server
	store  *healthstore.Memory
	repo   *storage.Memory
	clock  *clock.FakeClock
}

// setupTestServer builds a server over in-memory storage and platform.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store: healthstore.NewMemory(),
		repo:  storage.NewMemory(),
		clock: clock.NewFakeClock(testNow),
	}
	for _, d := range models.AllDomains {
		if err := env.store.RequestAuthorization(context.Background(), d); err != nil {
			t.Fatalf("RequestAuthorization failed: %v", err)
		}
	}
	set, err := tracker.NewSet(sync.Options{
		Store:            env.store,
		Repo:             env.repo,
		Clock:            env.clock,
		Logger:           logging.Discard(),
		SuppressionDelay: time.Hour,
	}, tracker.Goals{})
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}
	t.Cleanup(func() { _ = set.Close() })

	server, err := NewServer(set, env.repo, env.clock)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	env.server = server
	return env
}

func readJSON(t *testing.T, res *mcp.ReadResourceResult) map[string]interface{} {
	t.Helper()
	if res == nil || len(res.Contents) != 1 {
		t.Fatalf("Expected one content block, got %+v", res)
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &out); err != nil {
		t.Fatalf("Resource is not JSON: %v", err)
	}
	return out
}

func TestNewServer(t *testing.T) {
	env := setupTestServer(t)

	if env.server.mcpServer == nil {
		t.Error("Expected non-nil mcpServer")
	}
	if env.server.set == nil {
		t.Error("Expected non-nil domain set")
	}
}

func TestNewServerRequiresDependencies(t *testing.T) {
	if _, err := NewServer(nil, storage.NewMemory(), nil); err == nil {
		t.Error("Expected error without domain managers")
	}
}

func TestFastTools(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	_, started, err := env.server.handleStartFast(ctx, nil, startFastInput{GoalHours: 16})
	if err != nil {
		t.Fatalf("start_fast failed: %v", err)
	}
	if started.GoalHours != 16 || started.End != "" {
		t.Errorf("Unexpected start output: %+v", started)
	}

	if _, _, err := env.server.handleStartFast(ctx, nil, startFastInput{}); !errors.Is(err, tracker.ErrSessionActive) {
		t.Errorf("Expected ErrSessionActive, got %v", err)
	}

	env.clock.Advance(17 * time.Hour)
	_, stopped, err := env.server.handleStopFast(ctx, nil, emptyInput{})
	if err != nil {
		t.Fatalf("stop_fast failed: %v", err)
	}
	if !stopped.MetGoal {
		t.Errorf("Expected goal met, got %+v", stopped)
	}
	if !strings.Contains(stopped.Message, "goal met") {
		t.Errorf("Expected goal message, got %q", stopped.Message)
	}

	if _, _, err := env.server.handleStopFast(ctx, nil, emptyInput{}); !errors.Is(err, tracker.ErrNoActiveSession) {
		t.Errorf("Expected ErrNoActiveSession, got %v", err)
	}
}

func TestCancelFast(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	if _, _, err := env.server.handleStartFast(ctx, nil, startFastInput{}); err != nil {
		t.Fatalf("start_fast failed: %v", err)
	}
	if _, _, err := env.server.handleCancelFast(ctx, nil, emptyInput{}); err != nil {
		t.Fatalf("cancel_fast failed: %v", err)
	}
	if n := len(env.server.set.Fasting.Entries()); n != 0 {
		t.Errorf("Expected no fasting entries after cancel, got %d", n)
	}
}

func TestAddTools(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		call    func() (entryOutput, error)
		domain  models.Domain
		wantErr bool
	}{
		{
			name: "weight",
			call: func() (entryOutput, error) {
				_, out, err := env.server.handleAddWeight(ctx, nil, addWeightInput{Kilograms: 82.5})
				return out, err
			},
			domain: models.DomainWeight,
		},
		{
			name: "weight with RFC3339 timestamp",
			call: func() (entryOutput, error) {
				_, out, err := env.server.handleAddWeight(ctx, nil, addWeightInput{Kilograms: 82, RecordedAt: "2026-08-01T08:00:00Z"})
				return out, err
			},
			domain: models.DomainWeight,
		},
		{
			name: "invalid weight",
			call: func() (entryOutput, error) {
				_, out, err := env.server.handleAddWeight(ctx, nil, addWeightInput{Kilograms: -1})
				return out, err
			},
			wantErr: true,
		},
		{
			name: "invalid timestamp",
			call: func() (entryOutput, error) {
				_, out, err := env.server.handleAddWeight(ctx, nil, addWeightInput{Kilograms: 80, RecordedAt: "yesterday"})
				return out, err
			},
			wantErr: true,
		},
		{
			name: "water",
			call: func() (entryOutput, error) {
				_, out, err := env.server.handleAddWater(ctx, nil, addWaterInput{Milliliters: 500})
				return out, err
			},
			domain: models.DomainHydration,
		},
		{
			name: "sleep",
			call: func() (entryOutput, error) {
				_, out, err := env.server.handleAddSleep(ctx, nil, addSleepInput{Start: "2026-08-02 23:00", End: "2026-08-03 07:00", Quality: 4})
				return out, err
			},
			domain: models.DomainSleep,
		},
		{
			name: "sleep without start",
			call: func() (entryOutput, error) {
				_, out, err := env.server.handleAddSleep(ctx, nil, addSleepInput{})
				return out, err
			},
			wantErr: true,
		},
		{
			name: "mood",
			call: func() (entryOutput, error) {
				_, out, err := env.server.handleAddMood(ctx, nil, addMoodInput{Mood: 7, Energy: 6, Notes: "good run"})
				return out, err
			},
			domain: models.DomainMood,
		},
		{
			name: "mood out of range",
			call: func() (entryOutput, error) {
				_, out, err := env.server.handleAddMood(ctx, nil, addMoodInput{Mood: 11, Energy: 6})
				return out, err
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.call()
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if out.Domain != string(tt.domain) {
				t.Errorf("Domain = %q, want %q", out.Domain, tt.domain)
			}
			if len(out.ID) != 8 {
				t.Errorf("Expected 8-char ID, got %q", out.ID)
			}
		})
	}
}

func TestAddDuplicateIsRejected(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	if _, _, err := env.server.handleAddWater(ctx, nil, addWaterInput{Milliliters: 250}); err != nil {
		t.Fatalf("add_water failed: %v", err)
	}
	_, _, err := env.server.handleAddWater(ctx, nil, addWaterInput{Milliliters: 250})
	if !errors.Is(err, sync.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestListAndDeleteEntries(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	_, empty, err := env.server.handleListEntries(ctx, nil, listEntriesInput{Domain: "weight"})
	if err != nil {
		t.Fatalf("list_entries failed: %v", err)
	}
	if m, ok := empty.(map[string]interface{}); !ok || m["message"] == nil {
		t.Errorf("Expected empty message, got %v", empty)
	}

	_, added, err := env.server.handleAddWeight(ctx, nil, addWeightInput{Kilograms: 80})
	if err != nil {
		t.Fatalf("add_weight failed: %v", err)
	}

	_, listed, err := env.server.handleListEntries(ctx, nil, listEntriesInput{Domain: "weight", Limit: 5})
	if err != nil {
		t.Fatalf("list_entries failed: %v", err)
	}
	entries := listed.(map[string]interface{})["entries"].([]models.Entry)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	if _, _, err := env.server.handleDeleteEntry(ctx, nil, deleteEntryInput{Domain: "weight", ID: added.ID}); err != nil {
		t.Fatalf("delete_entry failed: %v", err)
	}
	if _, _, err := env.server.handleDeleteEntry(ctx, nil, deleteEntryInput{Domain: "weight", ID: added.ID}); err == nil {
		t.Error("Expected error deleting missing entry")
	}
	if _, _, err := env.server.handleListEntries(ctx, nil, listEntriesInput{Domain: "steps"}); err == nil {
		t.Error("Expected error for unknown domain")
	}
}

func TestSetSyncAndSyncDomain(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	_, out, err := env.server.handleSyncDomain(ctx, nil, syncDomainInput{Domain: "water"})
	if err != nil {
		t.Fatalf("sync_domain failed: %v", err)
	}
	if out.Result.Skipped != sync.SkipDisabled {
		t.Errorf("Expected skipped run, got %+v", out.Result)
	}

	if _, _, err := env.server.handleSetSync(ctx, nil, setSyncInput{Domain: "hydration", Enabled: true}); err != nil {
		t.Fatalf("set_sync failed: %v", err)
	}
	if err := env.server.set.Hydration.Observer().Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if _, err := env.store.Write(ctx, healthstore.Item{Domain: models.DomainHydration, Start: testNow.Add(-time.Hour), Value: 300}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	_, out, err = env.server.handleSyncDomain(ctx, nil, syncDomainInput{Domain: "hydration"})
	if err != nil {
		t.Fatalf("sync_domain failed: %v", err)
	}
	if out.Result.Added != 1 || out.Message != "1 entry synced" {
		t.Errorf("Unexpected sync output: %+v", out)
	}

	_, out, err = env.server.handleSyncDomain(ctx, nil, syncDomainInput{Domain: "hydration", Strategy: "reset", Since: "2026-08-01T00:00:00Z"})
	if err != nil {
		t.Fatalf("reset sync failed: %v", err)
	}
	if out.Result.Added != 0 || out.Result.Removed != 0 {
		t.Errorf("Reset should find nothing new: %+v", out.Result)
	}
}

func TestGetStats(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	if _, _, err := env.server.handleAddWater(ctx, nil, addWaterInput{Milliliters: 2500}); err != nil {
		t.Fatalf("add_water failed: %v", err)
	}
	_, out, err := env.server.handleGetStats(ctx, nil, emptyInput{})
	if err != nil {
		t.Fatalf("get_stats failed: %v", err)
	}
	sum, ok := out.(tracker.Summary)
	if !ok {
		t.Fatalf("Expected tracker.Summary, got %T", out)
	}
	hyd := sum.Domains[models.DomainHydration].Aggregate
	if hyd.Today != 2500 {
		t.Errorf("Today = %v, want 2500", hyd.Today)
	}
	if hyd.Streak == nil || hyd.Streak.Current != 1 {
		t.Errorf("Expected a one-day streak, got %+v", hyd.Streak)
	}
}

func TestHandleSummaryResource(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	if _, _, err := env.server.handleStartFast(ctx, nil, startFastInput{GoalHours: 12}); err != nil {
		t.Fatalf("start_fast failed: %v", err)
	}
	res, err := env.server.handleSummaryResource(ctx, nil)
	if err != nil {
		t.Fatalf("summary resource failed: %v", err)
	}
	out := readJSON(t, res)
	fasting := out["fasting"].(map[string]interface{})
	if fasting["state"] != "active" {
		t.Errorf("Expected active fast, got %v", fasting["state"])
	}
	domains := out["domains"].(map[string]interface{})
	if len(domains) != len(models.AllDomains) {
		t.Errorf("Expected %d domains, got %d", len(models.AllDomains), len(domains))
	}
}

func TestHandleTodayResourceFiltersOldData(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	if _, _, err := env.server.handleAddWeight(ctx, nil, addWeightInput{Kilograms: 80}); err != nil {
		t.Fatalf("add_weight failed: %v", err)
	}
	old := testNow.Add(-48 * time.Hour).Format(time.RFC3339)
	if _, _, err := env.server.handleAddWeight(ctx, nil, addWeightInput{Kilograms: 81, RecordedAt: old}); err != nil {
		t.Fatalf("add_weight failed: %v", err)
	}

	res, err := env.server.handleTodayResource(ctx, nil)
	if err != nil {
		t.Fatalf("today resource failed: %v", err)
	}
	out := readJSON(t, res)
	counts := out["counts"].(map[string]interface{})
	if counts["weight"] != float64(1) {
		t.Errorf("Expected 1 weight entry today, got %v", counts["weight"])
	}
	if out["date"] != "2026-08-03" {
		t.Errorf("Unexpected date %v", out["date"])
	}
}

func TestHandleSyncResource(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	if _, _, err := env.server.handleSetSync(ctx, nil, setSyncInput{Domain: "mood", Enabled: true}); err != nil {
		t.Fatalf("set_sync failed: %v", err)
	}
	if _, _, err := env.server.handleSyncDomain(ctx, nil, syncDomainInput{Domain: "mood"}); err != nil {
		t.Fatalf("sync_domain failed: %v", err)
	}

	res, err := env.server.handleSyncResource(ctx, nil)
	if err != nil {
		t.Fatalf("sync resource failed: %v", err)
	}
	out := readJSON(t, res)
	runs := out["runs"].([]interface{})
	if len(runs) != 1 {
		t.Errorf("Expected 1 sync run, got %d", len(runs))
	}
	prefs := out["preferences"].(map[string]interface{})
	mood := prefs["mood"].(map[string]interface{})
	if mood["sync_enabled"] != true {
		t.Errorf("Expected mood sync enabled, got %v", mood)
	}
}

func TestParseTime(t *testing.T) {
	now := testNow
	if got, err := parseTime("", now); err != nil || !got.Equal(now) {
		t.Errorf("parseTime(\"\") = %v, %v", got, err)
	}
	if _, err := parseTime("2026-08-03 07:30", now); err != nil {
		t.Errorf("parseTime local layout failed: %v", err)
	}
	if _, err := parseTime("nope", now); err == nil {
		t.Error("Expected error for invalid timestamp")
	}
}
