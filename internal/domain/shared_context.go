package domain

import (
	"sync"
	"time"
)

// SharedContext is the per-request state passed by reference to every tool in
// a coordination run. Parallel stage members run on separate goroutines, so
// all access goes through the mutex.
type SharedContext struct {
	RequestID   string
	UserRequest string
	SessionID   string

	mu        sync.RWMutex
	state     map[string]any
	results   map[string]ExecutionResult
	toolChain []string
	createdAt time.Time
	updatedAt time.Time
}

// NewSharedContext creates an empty context for one request.
func NewSharedContext(requestID, userRequest string) *SharedContext {
	now := time.Now()
	return &SharedContext{
		RequestID:   requestID,
		UserRequest: userRequest,
		state:       make(map[string]any),
		results:     make(map[string]ExecutionResult),
		createdAt:   now,
		updatedAt:   now,
	}
}

// Set stores a shared value.
func (c *SharedContext) Set(key string, value any) {
	c.mu.Lock()
	c.state[key] = value
	c.updatedAt = time.Now()
	c.mu.Unlock()
}

// Get returns a shared value.
func (c *SharedContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.state[key]
	return value, ok
}

// State returns a copy of the shared key/value store.
func (c *SharedContext) State() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.state))
	for k, v := range c.state {
		out[k] = v
	}
	return out
}

// SetResult records the result of a tool and appends it to the tool chain.
func (c *SharedContext) SetResult(result ExecutionResult) {
	c.mu.Lock()
	c.results[result.ToolName] = result
	c.toolChain = append(c.toolChain, result.ToolName)
	c.updatedAt = time.Now()
	c.mu.Unlock()
}

// Result returns the prior result for a tool.
func (c *SharedContext) Result(toolName string) (ExecutionResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.results[toolName]
	return result, ok
}

// ToolChain returns the tools recorded so far, in completion order.
func (c *SharedContext) ToolChain() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.toolChain...)
}

// UpdatedAt reports the last mutation time.
func (c *SharedContext) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}
