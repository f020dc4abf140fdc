package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/daily-docket/internal/credential"
	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/planner"
	"github.com/nhle/daily-docket/internal/store"
)

// writeConfig points storage at a fresh database under a temp dir and
// sends logs to stderr.
func writeConfig(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := model.DefaultAppConfig()
	cfg.Storage.Backend = backend
	cfg.Storage.Path = filepath.Join(dir, "docket.db")
	cfg.Log.Path = ""
	cfg.Mail.From = "me@example.com"
	cfg.Mail.To = "me@example.com"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, model.SaveConfig(path, cfg))
	return path
}

func run(t *testing.T, cfgPath, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("test")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	out, err := run(t, cfgPath, "", args...)
	require.NoError(t, err, "docket %s", strings.Join(args, " "))
	return out
}

func listJSON(t *testing.T, cfgPath string, args ...string) []model.Task {
	t.Helper()
	out := mustRun(t, cfgPath, append([]string{"list", "--json"}, args...)...)
	var tasks []model.Task
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	return tasks
}

func TestAddAndListPersist(t *testing.T) {
	cfg := writeConfig(t, model.BackendSQLite)

	out := mustRun(t, cfg, "add", "Write", "report", "-p", "high", "-d", "50")
	assert.Contains(t, out, "Task added successfully! task_")
	mustRun(t, cfg, "add", "Groceries", "--priority", "low")

	tasks := listJSON(t, cfg)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Write report", tasks[0].Title)
	assert.Equal(t, model.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, 45, tasks[0].Duration, "durations snap to 15 minutes")
	assert.False(t, tasks[0].Scheduled)

	table := mustRun(t, cfg, "list")
	assert.Contains(t, table, "Write report")
	assert.Contains(t, table, "PRIORITY")

	low := listJSON(t, cfg, "--priority", "low")
	require.Len(t, low, 1)
	assert.Equal(t, "Groceries", low[0].Title)
}

func TestAddRejectsBadInput(t *testing.T) {
	cfg := writeConfig(t, model.BackendSQLite)

	_, err := run(t, cfg, "", "add", "   ")
	require.Error(t, err)
	assert.True(t, planner.IsValidation(err))

	_, err = run(t, cfg, "", "add", "Thing", "-p", "urgent")
	assert.ErrorContains(t, err, "unknown priority")

	_, err = run(t, cfg, "", "add", "Thing", "--at", "3am")
	assert.ErrorContains(t, err, "outside the schedule")

	assert.Empty(t, listJSON(t, cfg))
}

func TestScheduleByIndexAndOccupancy(t *testing.T) {
	cfg := writeConfig(t, model.BackendBolt)

	mustRun(t, cfg, "add", "Standup", "--at", "9am")
	mustRun(t, cfg, "add", "Deep work")

	_, err := run(t, cfg, "", "schedule", "2", "09:00")
	assert.ErrorContains(t, err, "time slot 9:00 AM is already occupied")

	out := mustRun(t, cfg, "schedule", "2", "2pm")
	assert.Equal(t, "Task scheduled for 2:00 PM\n", out)

	out = mustRun(t, cfg, "schedule", "2", "14")
	assert.Equal(t, "Task is already at 2:00 PM\n", out)

	out = mustRun(t, cfg, "schedule", "2", "10")
	assert.Equal(t, "Task rescheduled to 10:00 AM\n", out)

	scheduled := listJSON(t, cfg, "--scheduled")
	require.Len(t, scheduled, 2)
	assert.Equal(t, "10:00", *scheduled[1].ScheduledTime)

	out = mustRun(t, cfg, "unschedule", "1")
	assert.Equal(t, "Task moved to unscheduled\n", out)
	assert.Len(t, listJSON(t, cfg, "--pool"), 1)
}

func TestCompletedOccupantIsReplaced(t *testing.T) {
	cfg := writeConfig(t, model.BackendSQLite)

	mustRun(t, cfg, "add", "Old meeting", "--at", "11")
	mustRun(t, cfg, "done", "1")
	mustRun(t, cfg, "add", "New meeting")

	out := mustRun(t, cfg, "schedule", "2", "11")
	assert.Equal(t, "Task scheduled for 11:00 AM (replaced completed \"Old meeting\")\n", out)

	tasks := listJSON(t, cfg)
	require.Len(t, tasks, 1)
	assert.Equal(t, "New meeting", tasks[0].Title)
}

func TestDoneUndoAndStats(t *testing.T) {
	cfg := writeConfig(t, model.BackendSQLite)

	mustRun(t, cfg, "add", "One")
	mustRun(t, cfg, "add", "Two")

	out := mustRun(t, cfg, "done", "1")
	assert.Equal(t, "Task completed: One\n", out)
	out = mustRun(t, cfg, "done", "1")
	assert.Equal(t, "Task \"One\" is already completed\n", out)

	stats := mustRun(t, cfg, "stats")
	assert.Contains(t, stats, "Total:      2")
	assert.Contains(t, stats, "Completed:  1")
	assert.Contains(t, stats, "50%")
	assert.Contains(t, stats, "Great progress! Keep it up!")

	out = mustRun(t, cfg, "done", "--undo", "1")
	assert.Equal(t, "Task reopened: One\n", out)
	assert.Len(t, listJSON(t, cfg, "--open"), 2)
}

func TestRmAndUnknownTask(t *testing.T) {
	cfg := writeConfig(t, model.BackendSQLite)
	mustRun(t, cfg, "add", "Disposable")

	_, err := run(t, cfg, "", "rm", "7")
	assert.ErrorIs(t, err, planner.ErrTaskNotFound)

	out := mustRun(t, cfg, "rm", "1")
	assert.Equal(t, "Task deleted: Disposable\n", out)
	assert.Empty(t, listJSON(t, cfg))
}

func TestClearAsksFirst(t *testing.T) {
	cfg := writeConfig(t, model.BackendSQLite)
	mustRun(t, cfg, "add", "Keep me")

	out, err := run(t, cfg, "n\n", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Are you sure you want to clear all tasks for today?")
	assert.Contains(t, out, "Cancelled")
	assert.Len(t, listJSON(t, cfg), 1)

	out, err = run(t, cfg, "y\n", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "All tasks cleared")
	assert.Empty(t, listJSON(t, cfg))
}

func TestExportThenImport(t *testing.T) {
	src := writeConfig(t, model.BackendSQLite)
	mustRun(t, src, "add", "Standup", "--at", "9", "-p", "high")
	mustRun(t, src, "add", "Errands", "-p", "low")
	mustRun(t, src, "done", "2")

	dir := t.TempDir()
	out := mustRun(t, src, "export", "--out", dir)
	assert.Contains(t, out, "Daily plan exported!")

	files, err := filepath.Glob(filepath.Join(dir, "daily-docket-*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	var doc model.ExportDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 2, doc.Stats.Total)
	assert.Equal(t, 1, doc.Stats.Completed)
	assert.Equal(t, 1, doc.Stats.ByPriority.High)

	dst := writeConfig(t, model.BackendBolt)
	mustRun(t, dst, "add", "Will be replaced")

	out, err = run(t, dst, "n\n", "import", files[0])
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")

	out = mustRun(t, dst, "import", "--yes", files[0])
	assert.Contains(t, out, "Imported 2 tasks")

	tasks := listJSON(t, dst)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Standup", tasks[0].Title)
	hour, ok := tasks[0].Slot()
	require.True(t, ok)
	assert.Equal(t, 9, hour)
	assert.True(t, tasks[1].Completed)
}

func TestExportToStdout(t *testing.T) {
	cfg := writeConfig(t, model.BackendSQLite)
	mustRun(t, cfg, "add", "Only")

	out := mustRun(t, cfg, "export", "-o", "-")
	doc, err := planner.DecodeExport(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, doc.Tasks, 1)
	assert.Equal(t, "Only", doc.Tasks[0].Title)
}

func TestMailToFileRoundTrips(t *testing.T) {
	cfg := writeConfig(t, model.BackendSQLite)
	mustRun(t, cfg, "add", "Review PR", "--at", "15")

	eml := filepath.Join(t.TempDir(), "plan.eml")
	out := mustRun(t, cfg, "mail", "--eml", eml)
	assert.Contains(t, out, "Message written to")

	dst := writeConfig(t, model.BackendSQLite)
	out = mustRun(t, dst, "import", eml)
	assert.Contains(t, out, "Imported 1 tasks")

	tasks := listJSON(t, dst, "--scheduled")
	require.Len(t, tasks, 1)
	assert.Equal(t, "Review PR", tasks[0].Title)
}

func TestMailWithoutHost(t *testing.T) {
	cfg := writeConfig(t, model.BackendSQLite)
	_, err := run(t, cfg, "", "mail")
	assert.ErrorContains(t, err, "mail.imap_host is not set")
}

func TestEphemeralLeavesDatabaseAlone(t *testing.T) {
	cfg := writeConfig(t, model.BackendSQLite)
	mustRun(t, cfg, "--ephemeral", "add", "Scratch")
	assert.Empty(t, listJSON(t, cfg))
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out := mustRun(t, path, "config", "path")
	assert.Equal(t, path+"\n", out)

	out = mustRun(t, path, "config", "init")
	assert.Contains(t, out, "Wrote "+path)
	_, err := run(t, path, "", "config", "init")
	assert.ErrorContains(t, err, "already exists")
	mustRun(t, path, "config", "init", "--force")

	out = mustRun(t, path, "config", "show")
	assert.Contains(t, out, "backend: sqlite")
	assert.Contains(t, out, "mailbox: Drafts")
}

func TestCredentialCommands(t *testing.T) {
	stored := map[string]string{}
	origSet, origDel := storeCredential, removeCredential
	storeCredential = func(k, v string) error { stored[k] = v; return nil }
	removeCredential = func(k string) error { delete(stored, k); return nil }
	t.Cleanup(func() { storeCredential, removeCredential = origSet, origDel })

	cfg := writeConfig(t, model.BackendMemory)

	out, err := run(t, cfg, "s3cret\n", "config", "set-credential", credential.IMAPPassword)
	require.NoError(t, err)
	assert.Equal(t, "Stored imap-password\n", out)
	assert.Equal(t, "s3cret", stored[credential.IMAPPassword])

	mustRun(t, cfg, "config", "set-credential", credential.WebhookToken, "--value", "tok")
	assert.Equal(t, "tok", stored[credential.WebhookToken])

	_, err = run(t, cfg, "x\n", "config", "set-credential", "aws-key")
	assert.ErrorContains(t, err, "unknown credential")

	mustRun(t, cfg, "config", "delete-credential", credential.WebhookToken)
	assert.NotContains(t, stored, credential.WebhookToken)
}

func TestVersion(t *testing.T) {
	out := mustRun(t, writeConfig(t, model.BackendMemory), "version")
	assert.True(t, strings.HasPrefix(out, "docket test ("))
}

func TestParseHour(t *testing.T) {
	cases := map[string]int{
		"9":     9,
		"09":    9,
		"09:00": 9,
		"9am":   9,
		"9 AM":  9,
		"12pm":  12,
		"2pm":   14,
		"14":    14,
		"23":    23,
		"6":     6,
	}
	for in, want := range cases {
		got, err := parseHour(in)
		if assert.NoError(t, err, in) {
			assert.Equal(t, want, got, in)
		}
	}

	for _, bad := range []string{"", "noon", "5", "24", "12am", "13pm", "9:30"} {
		_, err := parseHour(bad)
		assert.Error(t, err, bad)
	}
}

func TestResolveTask(t *testing.T) {
	ctx := context.Background()
	s, err := planner.NewTaskStore(ctx, store.NewMemoryBlob())
	require.NoError(t, err)
	require.NoError(t, s.Replace(ctx, []model.Task{
		{ID: "task_1_aaaa", Title: "A", Priority: model.PriorityLow, Duration: 30},
		{ID: "task_1_aabb", Title: "B", Priority: model.PriorityLow, Duration: 30},
	}))
	e := &env{store: s}

	got, err := e.resolveTask("task_1_aabb")
	require.NoError(t, err)
	assert.Equal(t, "B", got.Title)

	got, err = e.resolveTask("#1")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)

	got, err = e.resolveTask("bb")
	require.NoError(t, err)
	assert.Equal(t, "B", got.Title)

	_, err = e.resolveTask("aa")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = e.resolveTask("zz")
	assert.ErrorIs(t, err, planner.ErrTaskNotFound)
}

func TestResolveTask_ByTitle(t *testing.T) {
	ctx := context.Background()
	s, err := planner.NewTaskStore(ctx, store.NewMemoryBlob())
	require.NoError(t, err)
	require.NoError(t, s.Replace(ctx, []model.Task{
		{ID: "task_1_aaaa", Title: "Write report", Priority: model.PriorityHigh, Duration: 60},
		{ID: "task_1_bbbb", Title: "Gym", Priority: model.PriorityLow, Duration: 30},
		{ID: "task_1_cccc", Title: "Gym bag", Priority: model.PriorityLow, Duration: 15},
	}))
	e := &env{store: s}

	got, err := e.resolveTask("report")
	require.NoError(t, err)
	assert.Equal(t, "task_1_aaaa", got.ID)

	got, err = e.resolveTask("WRITE")
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Title)

	got, err = e.resolveTask("gym")
	require.NoError(t, err, "an exact title beats a longer one containing it")
	assert.Equal(t, "task_1_bbbb", got.ID)

	got, err = e.resolveTask("bag")
	require.NoError(t, err)
	assert.Equal(t, "task_1_cccc", got.ID)

	_, err = e.resolveTask("y")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = e.resolveTask("  ")
	assert.ErrorIs(t, err, planner.ErrTaskNotFound)
}

func TestDoneByTitle(t *testing.T) {
	cfg := writeConfig(t, model.BackendSQLite)
	mustRun(t, cfg, "add", "Write", "report")
	mustRun(t, cfg, "add", "Gym")

	out := mustRun(t, cfg, "done", "report")
	assert.Contains(t, out, "Task completed: Write report")
}
