// Package oracle is the LLM integration layer. Agents, the resolver and
// meetings all speak to a model through the same provider-agnostic
// interface, so Anthropic and OpenAI backends are interchangeable.
package oracle

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotConfigured means the selected provider has no API key.
	ErrNotConfigured = errors.New("oracle: provider not configured")
	// ErrBudgetExhausted means the token budget gate refused the call.
	ErrBudgetExhausted = errors.New("oracle: token budget exhausted")
	// ErrEmptyResponse means the model returned no usable content.
	ErrEmptyResponse = errors.New("oracle: empty response")
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// CompletionRequest is the input for one model call.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Model       string    `json:"model,omitempty"` // override the provider default
}

// CompletionResponse is the output of one model call.
type CompletionResponse struct {
	Content      string        `json:"content"`
	Model        string        `json:"model"`
	PromptTokens int           `json:"prompt_tokens"`
	OutputTokens int           `json:"output_tokens"`
	TotalTokens  int           `json:"total_tokens"`
	Latency      time.Duration `json:"latency"`
}

// Provider is the backend-agnostic model interface.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
	IsAvailable() bool
}

// BudgetGate enforces a total token budget across the whole run. A budget
// of zero disables the gate.
type BudgetGate struct {
	mu     sync.Mutex
	limit  int
	spent  int
	denied int
}

// NewBudgetGate creates a gate with the given token limit.
func NewBudgetGate(limit int) *BudgetGate {
	return &BudgetGate{limit: limit}
}

// Allow reports whether another call fits the budget.
func (bg *BudgetGate) Allow() bool {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	if bg.limit <= 0 {
		return true
	}
	if bg.spent >= bg.limit {
		bg.denied++
		return false
	}
	return true
}

// Record adds consumed tokens to the running total.
func (bg *BudgetGate) Record(tokens int) {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	bg.spent += tokens
}

// Status returns spent tokens, the limit, and how many calls were refused.
func (bg *BudgetGate) Status() (spent, limit, denied int) {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	return bg.spent, bg.limit, bg.denied
}
