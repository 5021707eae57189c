// Package session implements the typing session state machine.
package session

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/tuipesync/internal/model"
)

// State is the lifecycle stage of a session.
type State int

const (
	StateIdle State = iota
	StateTyping
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTyping:
		return "typing"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Session tracks one run over a fixed word sequence.
type Session struct {
	words     []string
	index     int
	input     string
	startedAt time.Time
	completed bool

	// committed words
	frozenCorrect   int
	frozenIncorrect int
	// current word, recomputed on every input
	curCorrect   int
	curIncorrect int

	incorrectPositions map[int]map[int]struct{}
	judged             map[int]int

	correctWords int
	wpm          float64
}

// New returns an idle session over words.
func New(words []string) *Session {
	w := make([]string, len(words))
	copy(w, words)
	return &Session{
		words:              w,
		incorrectPositions: map[int]map[int]struct{}{},
		judged:             map[int]int{},
	}
}

// State reports the lifecycle stage.
func (s *Session) State() State {
	switch {
	case s.completed:
		return StateCompleted
	case s.startedAt.IsZero():
		return StateIdle
	default:
		return StateTyping
	}
}

// HandleInput replaces the in-progress text for the current word and
// rechecks it against the target from scratch.
func (s *Session) HandleInput(text string, now time.Time) {
	if s.completed || s.index >= len(s.words) {
		return
	}
	if s.startedAt.IsZero() {
		if text == "" {
			return
		}
		s.startedAt = now
	}
	s.input = text
	s.recheck([]rune(text), false)
}

// HandleBoundary judges the current word and advances the cursor. When the
// last word is judged the session completes and the finalized score is
// returned with ok set.
func (s *Session) HandleBoundary(now time.Time) (score model.Score, ok bool) {
	if s.completed || s.index >= len(s.words) {
		return model.Score{}, false
	}
	if s.startedAt.IsZero() {
		return model.Score{}, false
	}
	typed := strings.TrimSpace(s.input)
	matched := typed == s.words[s.index]
	s.recheck([]rune(typed), !matched)
	if matched {
		s.correctWords++
	}

	s.frozenCorrect += s.curCorrect
	s.frozenIncorrect += s.curIncorrect
	s.curCorrect = 0
	s.curIncorrect = 0
	s.input = ""
	s.index++
	s.wpm = s.computeWPM(now)

	if s.index < len(s.words) {
		return model.Score{}, false
	}
	s.completed = true
	return s.finalize(now), true
}

// recheck recomputes the current word's tallies and mistyped offsets.
// With padMissing set, untyped trailing target characters count as incorrect.
func (s *Session) recheck(typed []rune, padMissing bool) {
	target := []rune(s.words[s.index])
	span := len(typed)
	if padMissing && span < len(target) {
		span = len(target)
	}
	positions := map[int]struct{}{}
	correct := 0
	for i := 0; i < span; i++ {
		if i < len(typed) && i < len(target) && typed[i] == target[i] {
			correct++
			continue
		}
		positions[i] = struct{}{}
	}
	s.curCorrect = correct
	s.curIncorrect = len(positions)
	s.judged[s.index] = span
	if len(positions) == 0 {
		delete(s.incorrectPositions, s.index)
	} else {
		s.incorrectPositions[s.index] = positions
	}
}

func (s *Session) computeWPM(now time.Time) float64 {
	if s.startedAt.IsZero() {
		return 0
	}
	minutes := now.Sub(s.startedAt).Minutes()
	if minutes <= 0 {
		return 0
	}
	return math.Round(float64(s.correctWords) / minutes)
}

func (s *Session) finalize(now time.Time) model.Score {
	duration := now.Sub(s.startedAt).Seconds()
	if duration <= 0 {
		duration = time.Millisecond.Seconds()
	}
	return model.Score{
		Origin:          model.OriginLocal,
		WPM:             s.wpm,
		Accuracy:        s.Accuracy(),
		WordCount:       len(s.words),
		DurationSeconds: duration,
		Date:            now,
	}
}

// Accuracy returns the percentage of correct characters, or 0 before typing.
func (s *Session) Accuracy() float64 {
	return accuracy(s.CorrectChars(), s.IncorrectChars())
}

// RecomputedAccuracy derives accuracy from the recorded mistyped offsets
// alone. It always agrees with Accuracy.
func (s *Session) RecomputedAccuracy() float64 {
	correct, incorrect := 0, 0
	for idx, span := range s.judged {
		bad := len(s.incorrectPositions[idx])
		incorrect += bad
		correct += span - bad
	}
	return accuracy(correct, incorrect)
}

func accuracy(correct, incorrect int) float64 {
	total := correct + incorrect
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// Elapsed returns active session time as of now.
func (s *Session) Elapsed(now time.Time) time.Duration {
	if s.startedAt.IsZero() {
		return 0
	}
	return now.Sub(s.startedAt)
}

func (s *Session) Words() []string      { return s.words }
func (s *Session) Index() int           { return s.index }
func (s *Session) CurrentInput() string { return s.input }
func (s *Session) StartedAt() time.Time { return s.startedAt }
func (s *Session) Completed() bool      { return s.completed }
func (s *Session) WPM() float64         { return s.wpm }
func (s *Session) CorrectWords() int    { return s.correctWords }
func (s *Session) CorrectChars() int    { return s.frozenCorrect + s.curCorrect }
func (s *Session) IncorrectChars() int  { return s.frozenIncorrect + s.curIncorrect }

// CurrentWord returns the target at the cursor, or "" once completed.
func (s *Session) CurrentWord() string {
	if s.index >= len(s.words) {
		return ""
	}
	return s.words[s.index]
}

// IncorrectPositions returns a copy of the mistyped offsets per word index.
func (s *Session) IncorrectPositions() map[int][]int {
	out := make(map[int][]int, len(s.incorrectPositions))
	for idx, set := range s.incorrectPositions {
		offsets := make([]int, 0, len(set))
		for off := range set {
			offsets = append(offsets, off)
		}
		sort.Ints(offsets)
		out[idx] = offsets
	}
	return out
}
