package chat

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	ports "kbchat/internal/chat/ports"
)

// Chain tries an ordered list of completion providers, primary first.
// Each provider gets exactly one bounded attempt per request; exhaustion
// is signalled to the caller, never surfaced as an error.
type Chain struct {
	providers []ports.Provider
	timeout   atomic.Int64 // per-provider budget in nanoseconds
	logger    zerolog.Logger
}

// NewChain creates a provider chain with a per-provider call timeout.
func NewChain(providers []ports.Provider, timeout time.Duration, logger zerolog.Logger) *Chain {
	c := &Chain{providers: providers, logger: logger}
	c.SetTimeout(timeout)
	return c
}

// SetTimeout adjusts the per-provider call budget. Safe to call while
// requests are in flight; config reloads apply through it.
func (c *Chain) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = 20 * time.Second
	}
	c.timeout.Store(int64(d))
}

// Complete returns the first successful provider's text. ok is false when
// every provider failed and the caller must supply the offline fallback.
func (c *Chain) Complete(ctx context.Context, messages []ports.PromptMessage) (text string, ok bool) {
	timeout := time.Duration(c.timeout.Load())
	for _, p := range c.providers {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		text, err := p.Complete(callCtx, messages)
		cancel()

		if err == nil {
			c.logger.Info().Str("provider", p.Name()).Msg("completion succeeded")
			return text, true
		}

		evt := c.logger.Error().Str("provider", p.Name())
		var provErr *ports.ProviderError
		if errors.As(err, &provErr) {
			evt = evt.Str("kind", string(provErr.Kind))
		}
		evt.Err(err).Msg("provider failed, trying next")
	}

	return "", false
}
