package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hitoshi/weeklynews/internal/calendar"
)

func TestNewRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})

	for _, name := range []Command{CommandServe, CommandMigrate, CommandWeek, CommandHealthcheck} {
		cmd, _, err := root.Find([]string{string(name)})
		if err != nil {
			t.Errorf("Find(%q) error: %v", name, err)
			continue
		}
		if cmd.Name() != string(name) {
			t.Errorf("Find(%q) = %q", name, cmd.Name())
		}
	}
}

// writeArchive はdir/data/<year>/<year>-W<week>.json にダイジェストを書き出す。
func writeArchive(t *testing.T, dir string, year, week int, body string) {
	t.Helper()
	name := filepath.Join(dir, "data", fmt.Sprintf("%d/%d-W%02d.json", year, year, week))
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(name, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWeekCommand_PrintsFilteredPage(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, dir, 2025, 34, `{
		"week": "2025-W34", "year": 2025,
		"items": [
			{"url": "https://example.com/a", "title": "Funding round", "category": "Funding", "significance": 2},
			{"url": "https://example.com/b", "title": "New model", "category": "Models", "significance": 5},
			{"url": "https://example.com/c", "title": "Big funding", "category": "Funding", "significance": 4}
		]}`)
	t.Setenv("ARCHIVE_ROOT", dir)

	var logs, out bytes.Buffer
	root := NewRootCommand(&logs)
	root.SetOut(&out)
	root.SetArgs([]string{"week", "--date", "2025-08-23", "--category", "Funding"})
	if err := root.Execute(); err != nil {
		t.Fatalf("week command failed: %v\nlogs: %s", err, logs.String())
	}

	var got weekOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if got.ISOYear != 2025 || got.ISOWeek != 34 {
		t.Errorf("week = %d-W%d, want 2025-W34", got.ISOYear, got.ISOWeek)
	}
	if got.Total != 2 || len(got.Items) != 2 {
		t.Fatalf("total = %d items = %d, want 2", got.Total, len(got.Items))
	}
	if got.Items[0].Title != "Big funding" {
		t.Errorf("first item = %q, want the more significant one", got.Items[0].Title)
	}
	if len(got.Categories) != 2 {
		t.Errorf("categories = %v, want both categories of the week", got.Categories)
	}
}

func TestWeekCommand_MissingArchive_PrintsNotice(t *testing.T) {
	t.Setenv("ARCHIVE_ROOT", t.TempDir())

	var logs, out bytes.Buffer
	root := NewRootCommand(&logs)
	root.SetOut(&out)
	root.SetArgs([]string{"week", "--year", "2021", "--week", "1"})
	if err := root.Execute(); err != nil {
		t.Fatalf("week command failed: %v", err)
	}

	var got weekOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.Notice == "" || got.Total != 0 || got.TotalPages != 1 {
		t.Errorf("output = %+v, want empty page with notice", got)
	}
	if got.Key != "data/2021/2021-W01.json" {
		t.Errorf("key = %q", got.Key)
	}
}

func TestWeekCommand_InvalidSelectors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad date", []string{"week", "--date", "2025-13-01"}},
		{"week 53 in a 52-week year", []string{"week", "--year", "2025", "--week", "53"}},
		{"year without week", []string{"week", "--year", "2025"}},
		{"date with year", []string{"week", "--date", "2025-08-23", "--year", "2025", "--week", "34"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ARCHIVE_ROOT", t.TempDir())
			root := NewRootCommand(&bytes.Buffer{})
			root.SetOut(&bytes.Buffer{})
			root.SetArgs(tt.args)
			if err := root.Execute(); err == nil {
				t.Errorf("args %v: expected error", tt.args)
			}
		})
	}
}

func TestWeekOptions_Resolve_DefaultsToToday(t *testing.T) {
	clock := calendar.NewFixedClock(time.Date(2021, 1, 3, 12, 0, 0, 0, time.UTC))

	y, w, err := weekOptions{}.resolve(clock)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if y != 2020 || w != 53 {
		t.Errorf("resolve() = %d-W%d, want 2020-W53", y, w)
	}
}
