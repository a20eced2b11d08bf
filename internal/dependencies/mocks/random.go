package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/gamehost/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing.
// Queued tokens are returned first; afterwards it counts upwards so that
// successive tokens still differ.
type MockRandom struct {
	mu      sync.Mutex
	queued  []string
	counter int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Token returns the next queued token or a sequential one
func (r *MockRandom) Token(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queued) > 0 {
		t := r.queued[0]
		r.queued = r.queued[1:]
		return t
	}
	r.counter++
	return fmt.Sprintf("mock-%d", r.counter)
}

// QueueToken adds values to the Token result queue
func (r *MockRandom) QueueToken(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, values...)
}
