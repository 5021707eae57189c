// Package stats renders score views for the command line.
package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/verte-zerg/tuipesync/internal/model"
)

const sparkChars = " .:-=+*#%@"

var ownRowStyle = lipgloss.NewStyle().Bold(true)

// Summary aggregates a list of scores.
type Summary struct {
	Count       int
	BestWPM     float64
	AvgWPM      float64
	AvgAccuracy float64
	Unsynced    int
}

// Summarize computes aggregate numbers for scores.
func Summarize(scores []model.Score) Summary {
	s := Summary{Count: len(scores)}
	if len(scores) == 0 {
		return s
	}
	var totalWPM, totalAcc float64
	for _, sc := range scores {
		totalWPM += sc.WPM
		totalAcc += sc.Accuracy
		if sc.WPM > s.BestWPM {
			s.BestWPM = sc.WPM
		}
		if !sc.Synced {
			s.Unsynced++
		}
	}
	s.AvgWPM = totalWPM / float64(len(scores))
	s.AvgAccuracy = totalAcc / float64(len(scores))
	return s
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		den := float64(i + 1)
		if i >= window {
			sum -= values[i-window]
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderLeaderboard prints ranked scores. Rows owned by viewer are marked
// and, on a colour terminal, drawn bold.
func RenderLeaderboard(w io.Writer, scores []model.Score, viewer model.Identity) error {
	if len(scores) == 0 {
		_, err := fmt.Fprintln(w, "No scores yet.")
		return err
	}
	color := useColor(w)
	headers := []string{"#", "Player", "WPM", "Accuracy", "Words", "Date", "Source"}
	rows := make([][]string, 0, len(scores))
	own := make(map[int]bool)
	for i, s := range scores {
		player := ownerLabel(s.Owner)
		if viewer.Owns(s) {
			player = "you"
			own[i+1] = true
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			player,
			fmt.Sprintf("%.0f", s.WPM),
			fmt.Sprintf("%.2f%%", s.Accuracy),
			fmt.Sprintf("%d", s.WordCount),
			s.Date.Local().Format("2006-01-02 15:04"),
			sourceLabel(s),
		})
	}
	lines := formatTable(headers, rows, map[int]bool{0: true, 2: true, 3: true, 4: true})
	for i, line := range lines {
		if color && own[i] {
			line = ownRowStyle.Render(line)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderHistory prints a personal history table newest first, followed by a
// summary and a smoothed WPM trend in chronological order.
func RenderHistory(w io.Writer, scores []model.Score, window int) error {
	if len(scores) == 0 {
		_, err := fmt.Fprintln(w, "No scores yet.")
		return err
	}
	byDate := make([]model.Score, len(scores))
	copy(byDate, scores)
	sort.SliceStable(byDate, func(i, j int) bool {
		return byDate[i].Date.After(byDate[j].Date)
	})

	headers := []string{"Date", "WPM", "Accuracy", "Words", "Time", "Synced"}
	rows := make([][]string, 0, len(byDate))
	for _, s := range byDate {
		synced := "no"
		if s.Synced {
			synced = "yes"
		}
		rows = append(rows, []string{
			s.Date.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%.0f", s.WPM),
			fmt.Sprintf("%.2f%%", s.Accuracy),
			fmt.Sprintf("%d", s.WordCount),
			fmt.Sprintf("%.1fs", s.DurationSeconds),
			synced,
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	sum := Summarize(scores)
	if _, err := fmt.Fprintf(w, "\nScores: %d  Best WPM: %.0f  Avg WPM: %.2f  Avg Accuracy: %.2f%%  Unsynced: %d\n",
		sum.Count, sum.BestWPM, sum.AvgWPM, sum.AvgAccuracy, sum.Unsynced); err != nil {
		return err
	}

	wpms := make([]float64, 0, len(byDate))
	for i := len(byDate) - 1; i >= 0; i-- {
		wpms = append(wpms, byDate[i].WPM)
	}
	_, err := fmt.Fprintf(w, "Trend: %s\n", Sparkline(MovingAverage(wpms, window)))
	return err
}

func ownerLabel(o model.Owner) string {
	switch {
	case o.UserID != "":
		return o.UserID
	case o.AnonymousID != "":
		id := o.AnonymousID
		if len(id) > 8 {
			id = id[:8]
		}
		return "anon:" + id
	default:
		return "-"
	}
}

func sourceLabel(s model.Score) string {
	if s.Origin == model.OriginRemote {
		return "remote"
	}
	if s.Synced {
		return "local"
	}
	return "local*"
}

func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
