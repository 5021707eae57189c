// Package generator builds typing word sequences.
package generator

import (
	"math/rand"
	"time"
)

// DefaultCount is the number of words in a session.
const DefaultCount = 25

// Generator produces randomized word sequences.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Sample draws count words from pool without replacement, in random order.
// When the pool is smaller than count the whole pool is returned shuffled.
func (g *Generator) Sample(pool []string, count int) []string {
	if count <= 0 || len(pool) == 0 {
		return nil
	}
	shuffled := make([]string, len(pool))
	copy(shuffled, pool)
	g.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if count > len(shuffled) {
		count = len(shuffled)
	}
	return shuffled[:count]
}
