package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/tuipesync/internal/model"
)

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{10, 20, 30, 40}, 2)
	want := []float64{10, 15, 25, 35}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
	same := MovingAverage([]float64{1, 2}, 1)
	if same[0] != 1 || same[1] != 2 {
		t.Fatalf("window 1 should copy, got %v", same)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{1, 5, 9}); got != " +@" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{3, 3}); got != "++" {
		t.Fatalf("flat series should be mid-level, got %q", got)
	}
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]model.Score{
		{WPM: 60, Accuracy: 90, Synced: true},
		{WPM: 80, Accuracy: 100},
	})
	if s.Count != 2 || s.BestWPM != 80 || s.AvgWPM != 70 || s.AvgAccuracy != 95 || s.Unsynced != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestRenderLeaderboardMarksViewer(t *testing.T) {
	var buf bytes.Buffer
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := RenderLeaderboard(&buf, []model.Score{
		{ID: 1, Origin: model.OriginRemote, Owner: model.Owner{UserID: "ada"}, WPM: 120, Accuracy: 99, WordCount: 25, Date: when, Synced: true},
		{ID: 4, Origin: model.OriginLocal, Owner: model.Owner{AnonymousID: "0123456789abcdef"}, WPM: 80, Accuracy: 95, WordCount: 25, Date: when},
	}, model.Identity{AnonymousID: "0123456789abcdef"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", buf.String())
	}
	if !strings.Contains(lines[1], "ada") || !strings.Contains(lines[1], "remote") {
		t.Fatalf("unexpected first row %q", lines[1])
	}
	if !strings.Contains(lines[2], "you") || !strings.Contains(lines[2], "local*") {
		t.Fatalf("viewer row should be marked: %q", lines[2])
	}
}

func TestRenderHistory(t *testing.T) {
	var buf bytes.Buffer
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := RenderHistory(&buf, []model.Score{
		{WPM: 90, Accuracy: 98, WordCount: 25, DurationSeconds: 20, Date: base.Add(2 * time.Hour), Synced: true},
		{WPM: 50, Accuracy: 90, WordCount: 25, DurationSeconds: 30, Date: base},
		{WPM: 70, Accuracy: 94, WordCount: 25, DurationSeconds: 25, Date: base.Add(time.Hour)},
	}, 1)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Scores: 3  Best WPM: 90") {
		t.Fatalf("missing summary: %s", out)
	}
	if !strings.Contains(out, "Trend:  +@") {
		t.Fatalf("trend should rise chronologically: %s", out)
	}
	if !strings.Contains(out, "Unsynced: 2") {
		t.Fatalf("unexpected unsynced count: %s", out)
	}
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderHistory(&buf, nil, 3); err != nil {
		t.Fatalf("render: %v", err)
	}
	if err := RenderLeaderboard(&buf, nil, model.Identity{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Count(buf.String(), "No scores yet.") != 2 {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
