package session

import (
	"time"

	"github.com/verte-zerg/tuipesync/internal/generator"
	"github.com/verte-zerg/tuipesync/internal/model"
)

// Engine owns the live session and replaces it on reset.
// It is driven by a single event stream and is not safe for concurrent use.
type Engine struct {
	gen   *generator.Generator
	pool  []string
	count int
	now   func() time.Time

	current     *Session
	onCompleted []func(model.Score)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine constructs an engine sampling count words from pool per session.
func NewEngine(gen *generator.Generator, pool []string, count int, opts ...Option) *Engine {
	if count <= 0 {
		count = generator.DefaultCount
	}
	e := &Engine{
		gen:   gen,
		pool:  pool,
		count: count,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Reset()
	return e
}

// OnCompleted registers a callback invoked with each finalized score.
func (e *Engine) OnCompleted(fn func(model.Score)) {
	e.onCompleted = append(e.onCompleted, fn)
}

// Session returns the live session.
func (e *Engine) Session() *Session {
	return e.current
}

// Input forwards the in-progress text to the live session.
func (e *Engine) Input(text string) {
	e.current.HandleInput(text, e.now())
}

// Boundary judges the current word. On completion the score is handed to
// every registered callback and returned.
func (e *Engine) Boundary() (model.Score, bool) {
	score, ok := e.current.HandleBoundary(e.now())
	if !ok {
		return model.Score{}, false
	}
	for _, fn := range e.onCompleted {
		fn(score)
	}
	return score, true
}

// Elapsed returns active time of the live session.
func (e *Engine) Elapsed() time.Duration {
	return e.current.Elapsed(e.now())
}

// Reset discards the live session and starts a fresh idle one.
func (e *Engine) Reset() {
	e.current = New(e.gen.Sample(e.pool, e.count))
}
