package mocks

import (
	"fmt"

	"github.com/mcoot/rpsduel-go/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing
type MockRandom struct {
	// TokenResults is a queue of results to return from Token
	TokenResults []string
	tokenIndex   int

	// counter backs deterministic fallback tokens when the queue is empty
	counter int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Token returns the next queued result, or a deterministic sequential token
func (r *MockRandom) Token(prefix string) string {
	if r.tokenIndex < len(r.TokenResults) {
		result := r.TokenResults[r.tokenIndex]
		r.tokenIndex++
		return result
	}
	r.counter++
	return fmt.Sprintf("%s%08d", prefix, r.counter)
}

// QueueToken adds values to the Token result queue
func (r *MockRandom) QueueToken(values ...string) {
	r.TokenResults = append(r.TokenResults, values...)
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.TokenResults = nil
	r.tokenIndex = 0
	r.counter = 0
}
