package oracle

import (
	"context"
	"fmt"

	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/platform/metrics"
)

// Service wraps a Provider with the budget gate, logging and metrics.
// Every oracle call in the simulation goes through here.
type Service struct {
	provider Provider
	budget   *BudgetGate
	log      *logger.Logger

	defaultMaxTokens int
}

// NewService assembles the oracle service.
func NewService(provider Provider, budget *BudgetGate, maxTokens int, log *logger.Logger) *Service {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Service{
		provider:         provider,
		budget:           budget,
		log:              log,
		defaultMaxTokens: maxTokens,
	}
}

// Available reports whether the underlying provider is configured.
func (s *Service) Available() bool {
	return s.provider != nil && s.provider.IsAvailable()
}

// BudgetStatus exposes the gate counters for the status endpoint.
func (s *Service) BudgetStatus() (spent, limit, denied int) {
	return s.budget.Status()
}

// Complete sends a system+user prompt pair and returns the raw text reply.
func (s *Service) Complete(ctx context.Context, system, user string) (string, error) {
	if !s.Available() {
		return "", ErrNotConfigured
	}
	if !s.budget.Allow() {
		metrics.Get().RecordOracleCall(0, 0, ErrBudgetExhausted)
		return "", ErrBudgetExhausted
	}

	messages := []Message{}
	if system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	messages = append(messages, Message{Role: "user", Content: user})

	resp, err := s.provider.Complete(ctx, CompletionRequest{
		Messages:    messages,
		MaxTokens:   s.defaultMaxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		metrics.Get().RecordOracleCall(0, 0, err)
		s.log.Warn("oracle call failed via %s: %v", s.provider.Name(), err)
		return "", fmt.Errorf("oracle: %s completion: %w", s.provider.Name(), err)
	}

	s.budget.Record(resp.TotalTokens)
	metrics.Get().RecordOracleCall(resp.TotalTokens, resp.Latency, nil)
	return resp.Content, nil
}
