package llm

import "context"

// pinnedClient wraps a Client and forces every call onto a single tier,
// ignoring the per-stage tier the caller passes. Used when a run requests a
// specific model tier instead of the default per-stage mapping.
type pinnedClient struct {
	inner Client
	tier  ModelTier
}

// Pinned returns a Client that runs every call on the given tier.
func Pinned(inner Client, tier ModelTier) Client {
	return &pinnedClient{inner: inner, tier: tier}
}

func (p *pinnedClient) GenerateContent(ctx context.Context, prompt string, _ ModelTier) (string, error) {
	return p.inner.GenerateContent(ctx, prompt, p.tier)
}

func (p *pinnedClient) GenerateJSON(ctx context.Context, prompt string, _ ModelTier) (string, error) {
	return p.inner.GenerateJSON(ctx, prompt, p.tier)
}

func (p *pinnedClient) GetModel(_ ModelTier) string {
	return p.inner.GetModel(p.tier)
}

// Close is a no-op; the wrapped client owns the underlying connection.
func (p *pinnedClient) Close() error { return nil }
