package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	ports "kbchat/internal/chat/ports"
)

// hangingProvider blocks until its call context expires.
type hangingProvider struct{}

func (hangingProvider) Name() string { return "hanging" }

func (hangingProvider) Complete(ctx context.Context, _ []ports.PromptMessage) (string, error) {
	<-ctx.Done()
	return "", &ports.ProviderError{Provider: "hanging", Kind: ports.FailureNetwork, Err: ctx.Err()}
}

func TestChain_FirstSuccessWins(t *testing.T) {
	first := &stubProvider{name: "first", text: "from first"}
	second := &stubProvider{name: "second", text: "from second"}
	chain := NewChain([]ports.Provider{first, second}, 0, zerolog.Nop())

	text, ok := chain.Complete(context.Background(), nil)

	assert.True(t, ok)
	assert.Equal(t, "from first", text)
	assert.Equal(t, 1, first.calls)
	assert.Zero(t, second.calls)
}

func TestChain_AdvancesPastFailures(t *testing.T) {
	first := &stubProvider{
		name: "first",
		err:  &ports.ProviderError{Provider: "first", Kind: ports.FailureNotConfigured},
	}
	second := &stubProvider{name: "second", text: "from second"}
	chain := NewChain([]ports.Provider{first, second}, 0, zerolog.Nop())

	text, ok := chain.Complete(context.Background(), nil)

	assert.True(t, ok)
	assert.Equal(t, "from second", text)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestChain_ExhaustionIsNotAnError(t *testing.T) {
	first := &stubProvider{name: "first", err: errors.New("boom")}
	second := &stubProvider{name: "second", err: errors.New("boom")}
	chain := NewChain([]ports.Provider{first, second}, 0, zerolog.Nop())

	text, ok := chain.Complete(context.Background(), nil)

	assert.False(t, ok)
	assert.Empty(t, text)
	// One attempt per provider, no retries.
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestChain_TimeoutAdjustsAtRuntime(t *testing.T) {
	second := &stubProvider{name: "second", text: "from second"}
	chain := NewChain([]ports.Provider{hangingProvider{}, second}, time.Hour, zerolog.Nop())

	// A reloaded config tightens the budget; the stuck primary is cut
	// off quickly and the chain still answers.
	chain.SetTimeout(20 * time.Millisecond)

	start := time.Now()
	text, ok := chain.Complete(context.Background(), nil)

	assert.True(t, ok)
	assert.Equal(t, "from second", text)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestChain_EmptyChainSignalsExhaustion(t *testing.T) {
	chain := NewChain(nil, 0, zerolog.Nop())

	_, ok := chain.Complete(context.Background(), nil)
	assert.False(t, ok)
}
