package chatports

import (
	"context"
	"fmt"
)

// FailureKind classifies why a provider call failed. The chain logs the
// kind and moves on; it never retries a provider within one request.
type FailureKind string

const (
	FailureNotConfigured FailureKind = "not_configured"
	FailureAuth          FailureKind = "auth"
	FailureQuota         FailureKind = "quota"
	FailureNetwork       FailureKind = "network"
	FailureBadResponse   FailureKind = "bad_response"
)

// ProviderError wraps a provider failure with its taxonomy kind.
type ProviderError struct {
	Provider string
	Kind     FailureKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Provider is the abstraction for an external text-completion backend.
// A provider with a missing credential must fail with FailureNotConfigured
// without going over the wire.
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []PromptMessage) (string, error)
}
