// ABOUTME: Tests for CLI helper functions and command execution.
// ABOUTME: Runs commands end to end against sqlite storage and a journal platform in temp dirs.
package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/healthsync/internal/app"
	"github.com/harperreed/healthsync/internal/clock"
	"github.com/harperreed/healthsync/internal/config"
	"github.com/harperreed/healthsync/internal/healthstore"
	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/storage"
	"github.com/harperreed/healthsync/internal/tracker"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"date and time with space", "2025-01-31 08:30", false},
		{"date and time with T", "2025-01-31T08:30", false},
		{"date only", "2025-01-31", false},
		{"RFC3339", "2025-01-31T08:30:00Z", false},
		{"RFC3339 with offset", "2025-01-31T08:30:00+05:00", false},
		{"invalid format", "31-01-2025", true},
		{"invalid random string", "not a date", true},
		{"empty string", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseTime(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Errorf("parseTime(%q) expected error, got nil", tt.input)
				}
				return
			}

			if err != nil {
				t.Errorf("parseTime(%q) unexpected error: %v", tt.input, err)
				return
			}

			if result.IsZero() {
				t.Errorf("parseTime(%q) returned zero time", tt.input)
			}
		})
	}
}

func TestParseTimeIsLocal(t *testing.T) {
	result, err := parseTime("2025-06-15 21:30")
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}

	if result.Location() != time.Local {
		t.Errorf("expected local time, got %v", result.Location())
	}
	if result.Year() != 2025 || result.Month() != time.June || result.Day() != 15 || result.Hour() != 21 {
		t.Errorf("parseTime returned wrong time: got %v", result)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string no truncation", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"needs truncation", "hello world this is a long string", 10, "hello w..."},
		{"empty string", "", 10, ""},
		{"very short maxLen", "hello", 3, "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		length int
		want   string
	}{
		{"needs padding", "hi", 5, "hi   "},
		{"exact length", "hello", 5, "hello"},
		{"longer than length", "hello world", 5, "hello world"},
		{"empty string", "", 5, "     "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := padRight(tt.input, tt.length)
			if got != tt.want {
				t.Errorf("padRight(%q, %d) = %q, want %q", tt.input, tt.length, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{16*time.Hour + 5*time.Minute, "16h05m"},
		{45 * time.Minute, "0h45m"},
		{90*time.Second + 29*time.Second, "0h02m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	at := time.Date(2026, 8, 3, 7, 0, 0, 0, time.Local)
	session := models.NewFastingSession(at, 16).WithEnd(at.Add(17 * time.Hour))
	tests := []struct {
		entry models.Entry
		want  string
	}{
		{models.NewWeightEntry(at, 80.5), "80.5 kg"},
		{models.NewHydrationEntry(at, 500), "500 ml"},
		{models.NewSleepEntry(at, at.Add(7*time.Hour)).WithQuality(4), "7h00m quality 4"},
		{models.NewMoodEntry(at, 7, 5).WithNotes("fine"), "mood 7 energy 5 (fine)"},
		{session, "17h00m of 16h"},
		{models.NewFastingSession(at, 18), "active, goal 18h"},
	}
	for _, tt := range tests {
		if got := describe(tt.entry); got != tt.want {
			t.Errorf("describe(%T) = %q, want %q", tt.entry, got, tt.want)
		}
	}
}

func TestRootCmd(t *testing.T) {
	if rootCmd.Use != "healthsync" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "healthsync")
	}
	if rootCmd.Short == "" {
		t.Error("Expected rootCmd.Short to be non-empty")
	}

	want := []string{"fast", "add", "list", "delete", "stats", "sync", "watch", "export", "migrate", "platform", "mcp"}
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range want {
		if !names[name] {
			t.Errorf("Expected command %q on root", name)
		}
	}
}

func TestSubcommands(t *testing.T) {
	tests := []struct {
		parent interface{ Name() string }
		got    []string
		want   []string
	}{
		{fastCmd, commandNames(fastCmd.Commands()), []string{"cancel", "start", "status", "stop"}},
		{addCmd, commandNames(addCmd.Commands()), []string{"mood", "sleep", "water", "weight"}},
		{syncCmd, commandNames(syncCmd.Commands()), []string{"cloud", "disable", "enable", "run", "status"}},
		{cloudCmd, commandNames(cloudCmd.Commands()), []string{"link", "repair", "reset", "status", "unlink", "wipe"}},
		{platformCmd, commandNames(platformCmd.Commands()), []string{"add", "delete", "grant", "list", "revoke"}},
	}
	for _, tt := range tests {
		if strings.Join(tt.got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("%s subcommands = %v, want %v", tt.parent.Name(), tt.got, tt.want)
		}
	}
}

func TestAddCmdFlags(t *testing.T) {
	if addCmd.PersistentFlags().Lookup("at") == nil {
		t.Error("Expected --at flag on add command")
	}
	if addCmd.PersistentFlags().Lookup("notes") == nil {
		t.Error("Expected --notes flag on add command")
	}
	if addSleepCmd.Flags().Lookup("quality") == nil {
		t.Error("Expected --quality flag on add sleep command")
	}
}

func TestListCmdFlags(t *testing.T) {
	limitFlag := listCmd.Flags().Lookup("limit")
	if limitFlag == nil {
		t.Fatal("Expected --limit flag on list command")
	}
	if limitFlag.DefValue != "20" {
		t.Errorf("Expected default limit 20, got %s", limitFlag.DefValue)
	}
}

func TestCmdAliases(t *testing.T) {
	tests := []struct {
		name    string
		aliases []string
		want    []string
	}{
		{"add", addCmd.Aliases, []string{"a"}},
		{"list", listCmd.Aliases, []string{"ls", "l"}},
		{"delete", deleteCmd.Aliases, []string{"del", "rm"}},
		{"sync", syncCmd.Aliases, []string{"s"}},
	}
	for _, tt := range tests {
		have := make(map[string]bool)
		for _, a := range tt.aliases {
			have[a] = true
		}
		for _, a := range tt.want {
			if !have[a] {
				t.Errorf("Expected alias %q for %s", a, tt.name)
			}
		}
	}
}

func TestOwnStorageCommandsSkipApp(t *testing.T) {
	if !skipsApp(migrateCmd) || !skipsApp(cloudResetCmd) {
		t.Error("Expected migrate and cloud reset to manage storage themselves")
	}
	if skipsApp(cloudStatusCmd) || skipsApp(addWeightCmd) {
		t.Error("Expected cloud status and add weight to open the app")
	}
}

// testNow is the fake clock's start.
var testNow = time.Date(2026, 8, 3, 7, 0, 0, 0, time.Local)

func setupTestCLI(t *testing.T) *clock.FakeClock {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	t.Setenv("HEALTHSYNC_DATA_DIR", filepath.Join(tmpDir, "data"))
	t.Setenv("HEALTHSYNC_BACKEND", config.BackendSQLite)

	clk := clock.NewFakeClock(testNow)
	appOptions = app.Options{Clock: clk, Stderr: io.Discard}
	t.Cleanup(func() {
		_ = closeApp()
		appOptions = app.Options{}
	})
	return clk
}

func resetFlags() {
	addAt, addNotes, addQuality = "", "", 0
	fastGoal = 0
	listLimit = 20
	syncHistorical, syncReset, syncSince, syncNoImport = false, false, "", false
	exportOutput = ""
	migrateFrom, migrateTo, migrateForce = "sqlite", "", false
	platformAt, platformEnd, platformSecondary, platformSource = "", "", 0, "platform-cli"
	watchCatchUp, mcpObserve = true, true
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	resetFlags()
	rootCmd.SetArgs(args)
	return Execute()
}

func mustRun(t *testing.T, args ...string) {
	t.Helper()
	if err := runCLI(t, args...); err != nil {
		t.Fatalf("healthsync %s: %v", strings.Join(args, " "), err)
	}
}

// withApp opens the app the way commands do, for inspecting state between runs.
func withApp(t *testing.T, fn func(a *app.App)) {
	t.Helper()
	if err := openApp(); err != nil {
		t.Fatalf("openApp failed: %v", err)
	}
	defer func() {
		if err := closeApp(); err != nil {
			t.Errorf("closeApp failed: %v", err)
		}
	}()
	fn(application)
}

func TestFastLifecycle(t *testing.T) {
	clk := setupTestCLI(t)

	mustRun(t, "fast", "start", "--goal", "16")
	withApp(t, func(a *app.App) {
		state, s := a.Fasting.State()
		if state != tracker.Active || s == nil {
			t.Fatalf("expected active fast, got %v", state)
		}
		if s.GoalHours != 16 {
			t.Errorf("GoalHours = %v, want 16", s.GoalHours)
		}
	})

	if err := runCLI(t, "fast", "start"); err == nil {
		t.Error("expected error starting a second fast")
	}

	clk.Advance(17 * time.Hour)
	mustRun(t, "fast", "status")
	mustRun(t, "fast", "stop")

	withApp(t, func(a *app.App) {
		state, _ := a.Fasting.State()
		if state != tracker.Idle {
			t.Errorf("expected idle after stop, got %v", state)
		}
		sessions := a.Fasting.Entries()
		if len(sessions) != 1 || !sessions[0].MetGoal() {
			t.Fatalf("expected one completed session meeting its goal, got %+v", sessions)
		}
	})

	if err := runCLI(t, "fast", "cancel"); err == nil {
		t.Error("expected error cancelling with no fast in progress")
	}
}

func TestFastCancelRecordsNothing(t *testing.T) {
	setupTestCLI(t)

	mustRun(t, "fast", "start")
	mustRun(t, "fast", "cancel")

	withApp(t, func(a *app.App) {
		if n := len(a.Fasting.Entries()); n != 0 {
			t.Errorf("expected no sessions after cancel, got %d", n)
		}
	})
}

func TestAddListDelete(t *testing.T) {
	setupTestCLI(t)

	mustRun(t, "add", "weight", "80.5", "--at", "2026-08-03 06:30")
	mustRun(t, "add", "water", "500")
	mustRun(t, "add", "sleep", "2026-08-02 23:00", "2026-08-03 06:45", "--quality", "4")
	mustRun(t, "add", "mood", "7", "6", "--notes", "rested")
	mustRun(t, "list", "water")
	mustRun(t, "stats")

	if err := runCLI(t, "add", "weight", "80.5", "--at", "2026-08-03 06:30"); err == nil {
		t.Error("expected duplicate weight to be rejected")
	}
	if err := runCLI(t, "list", "steps"); err == nil {
		t.Error("expected unknown domain to fail")
	}

	var prefix string
	withApp(t, func(a *app.App) {
		weights := a.Weight.Entries()
		if len(weights) != 1 || weights[0].Kilograms != 80.5 {
			t.Fatalf("unexpected weights: %+v", weights)
		}
		prefix = weights[0].ID.String()[:8]

		sleeps := a.Sleep.Entries()
		if len(sleeps) != 1 || sleeps[0].Quality != 4 {
			t.Errorf("unexpected sleep entries: %+v", sleeps)
		}
		moods := a.Mood.Entries()
		if len(moods) != 1 || moods[0].Notes == nil || *moods[0].Notes != "rested" {
			t.Errorf("unexpected mood entries: %+v", moods)
		}
		if n := len(a.Hydration.Entries()); n != 1 {
			t.Errorf("expected 1 hydration entry, got %d", n)
		}
	})

	mustRun(t, "delete", "weight", prefix)
	if err := runCLI(t, "delete", "weight", prefix); err == nil {
		t.Error("expected deleting a missing entry to fail")
	}

	withApp(t, func(a *app.App) {
		if n := len(a.Weight.Entries()); n != 0 {
			t.Errorf("expected no weights after delete, got %d", n)
		}
	})
}

func TestPlatformSyncRoundTrip(t *testing.T) {
	setupTestCLI(t)

	mustRun(t, "platform", "grant", "weight")
	mustRun(t, "platform", "add", "weight", "81.2", "--at", "2026-08-03 06:00", "--source", "scale")
	mustRun(t, "sync", "enable", "weight")

	var identifier string
	withApp(t, func(a *app.App) {
		entries := a.Weight.Entries()
		if len(entries) != 1 {
			t.Fatalf("expected imported weight, got %d entries", len(entries))
		}
		if entries[0].Source != models.SourceExternal || entries[0].Kilograms != 81.2 {
			t.Errorf("unexpected imported entry: %+v", entries[0])
		}
		if !a.Weight.Preference().Enabled || !a.Weight.Preference().InitialImportComplete {
			t.Errorf("unexpected preference: %+v", a.Weight.Preference())
		}
		identifier = entries[0].ExternalID
	})

	// Incremental sync sees nothing new.
	mustRun(t, "sync", "run", "weight")

	mustRun(t, "platform", "delete", "weight", identifier)
	mustRun(t, "sync", "run", "weight", "--reset")

	withApp(t, func(a *app.App) {
		if n := len(a.Weight.Entries()); n != 0 {
			t.Errorf("expected reset to drop the deleted sample, got %d entries", n)
		}
		runs, err := a.Repo.ListSyncRuns(nil, 0)
		if err != nil {
			t.Fatalf("ListSyncRuns failed: %v", err)
		}
		if len(runs) < 3 {
			t.Errorf("expected at least 3 recorded runs, got %d", len(runs))
		}
	})

	mustRun(t, "sync", "status")
}

func TestEnableNoImportIsRemembered(t *testing.T) {
	setupTestCLI(t)

	mustRun(t, "platform", "grant", "mood")
	mustRun(t, "platform", "add", "mood", "7", "--secondary", "6", "--at", "2026-08-02 20:00")
	mustRun(t, "sync", "enable", "mood", "--no-import")
	mustRun(t, "sync", "disable", "mood")
	mustRun(t, "sync", "enable", "mood")

	withApp(t, func(a *app.App) {
		if n := len(a.Mood.Entries()); n != 0 {
			t.Errorf("expected declined import to stay declined, got %d entries", n)
		}
		pref := a.Mood.Preference()
		if !pref.Enabled || !pref.InitialImportComplete {
			t.Errorf("unexpected preference: %+v", pref)
		}
	})
}

func TestManualEntryWritesThrough(t *testing.T) {
	setupTestCLI(t)

	mustRun(t, "sync", "enable", "hydration", "--no-import")
	mustRun(t, "add", "water", "750")

	withApp(t, func(a *app.App) {
		j, ok := a.Store.(*healthstore.Journal)
		if !ok {
			t.Fatalf("expected journal platform, got %T", a.Store)
		}
		items, err := j.Items(models.DomainHydration)
		if err != nil {
			t.Fatalf("Items failed: %v", err)
		}
		if len(items) != 1 || items[0].Value != 750 {
			t.Fatalf("expected written-through sample, got %+v", items)
		}
		entries := a.Hydration.Entries()
		if len(entries) != 1 || entries[0].ExternalID != items[0].Identifier {
			t.Errorf("expected entry to record the sample identifier, got %+v", entries)
		}
	})

	// The device's own sample is not imported again.
	mustRun(t, "sync", "run", "hydration")
	withApp(t, func(a *app.App) {
		if n := len(a.Hydration.Entries()); n != 1 {
			t.Errorf("expected 1 hydration entry, got %d", n)
		}
	})
}

func TestSyncRunRejectsBothStrategies(t *testing.T) {
	setupTestCLI(t)

	if err := runCLI(t, "sync", "run", "--historical", "--reset"); err == nil {
		t.Error("expected --historical with --reset to fail")
	}
}

func TestRevokedDomainFailsReset(t *testing.T) {
	setupTestCLI(t)

	mustRun(t, "platform", "revoke", "all")
	if err := runCLI(t, "sync", "run", "mood", "--reset"); err == nil {
		t.Error("expected reset on a denied domain to fail")
	}
	if err := runCLI(t, "sync", "enable", "mood"); err == nil {
		t.Error("expected enabling a denied domain to fail")
	}
}

func TestPlatformRequiresJournal(t *testing.T) {
	setupTestCLI(t)

	c := &config.Config{Platform: config.Platform{Kind: config.PlatformMemory}}
	if err := c.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	err := runCLI(t, "platform", "grant", "weight")
	if err == nil || !strings.Contains(err.Error(), "journal") {
		t.Errorf("expected journal requirement error, got %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	setupTestCLI(t)

	mustRun(t, "add", "water", "300")
	out := filepath.Join(t.TempDir(), "export.json")
	mustRun(t, "export", "json", "-o", out)

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	export, err := storage.DecodeExport(data)
	if err != nil {
		t.Fatalf("DecodeExport failed: %v", err)
	}
	if len(export.Hydration) != 1 || export.Hydration[0].Milliliters != 300 {
		t.Errorf("unexpected hydration export: %+v", export.Hydration)
	}
	if export.Tool != "healthsync" {
		t.Errorf("Tool = %q, want healthsync", export.Tool)
	}

	if err := runCLI(t, "export", "csv"); err == nil {
		t.Error("expected unknown format to fail")
	}
}

func TestMigrateSQLiteToBadger(t *testing.T) {
	setupTestCLI(t)

	mustRun(t, "add", "weight", "79.9")
	mustRun(t, "migrate", "--from", "sqlite", "--to", "badger")

	if err := runCLI(t, "migrate", "--from", "sqlite", "--to", "badger"); err == nil {
		t.Error("expected migrating into a non-empty destination to fail")
	}
	mustRun(t, "migrate", "--from", "sqlite", "--to", "badger", "--force")

	loaded, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	dst, err := loaded.OpenBackend(config.BackendBadger, nil)
	if err != nil {
		t.Fatalf("OpenBackend failed: %v", err)
	}
	defer dst.Close()
	if _, err := dst.Get(storage.KindHistory, models.DomainWeight); err != nil {
		t.Errorf("expected migrated weight history: %v", err)
	}
}

func commandNames[T interface{ Name() string }](cmds []T) []string {
	var names []string
	for _, c := range cmds {
		names = append(names, c.Name())
	}
	return names
}
