package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingClient records the tier each call was made with.
type recordingClient struct {
	tiers []ModelTier
}

func (r *recordingClient) GenerateContent(_ context.Context, _ string, tier ModelTier) (string, error) {
	r.tiers = append(r.tiers, tier)
	return "text", nil
}

func (r *recordingClient) GenerateJSON(_ context.Context, _ string, tier ModelTier) (string, error) {
	r.tiers = append(r.tiers, tier)
	return "{}", nil
}

func (r *recordingClient) GetModel(tier ModelTier) string { return "model-" + string(tier) }
func (r *recordingClient) Close() error                   { return nil }

func TestPinnedOverridesCallTier(t *testing.T) {
	inner := &recordingClient{}
	pinned := Pinned(inner, TierAdvanced)

	_, err := pinned.GenerateJSON(context.Background(), "p", TierLite)
	require.NoError(t, err)
	_, err = pinned.GenerateContent(context.Background(), "p", TierStandard)
	require.NoError(t, err)

	assert.Equal(t, []ModelTier{TierAdvanced, TierAdvanced}, inner.tiers)
	assert.Equal(t, "model-advanced", pinned.GetModel(TierLite))
}
