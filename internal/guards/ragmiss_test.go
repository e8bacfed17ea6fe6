package guards

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/strategy-engine/internal/registry"
)

func TestRAGMissHandler_Handle(t *testing.T) {
	handler := NewRAGMissHandler()

	t.Run("empty registry degrades without error", func(t *testing.T) {
		result := handler.Handle(nil, 0.7, "ergonomic chair")
		assert.False(t, result.CannibalizationChecked)
		assert.Empty(t, result.Matches)
		assert.Equal(t, StrategyEmptyRegistry, result.Strategy)
	})

	t.Run("all candidates below threshold", func(t *testing.T) {
		items := []registry.SimilarContent{
			{ContentID: "c1", PrimaryKeyword: "standing desk", Score: 0.41},
			{ContentID: "c2", PrimaryKeyword: "desk mat", Score: 0.35},
		}
		result := handler.Handle(items, 0.7, "ergonomic chair")
		assert.False(t, result.CannibalizationChecked)
		assert.Empty(t, result.Matches)
		assert.Equal(t, StrategyBelowThreshold, result.Strategy)
	})

	t.Run("matches above threshold are kept", func(t *testing.T) {
		items := []registry.SimilarContent{
			{ContentID: "c1", PrimaryKeyword: "ergonomic chair review", Score: 0.91},
			{ContentID: "c2", PrimaryKeyword: "desk mat", Score: 0.2},
			{ContentID: "c3", PrimaryKeyword: "best office chair", Score: 0.74},
		}
		result := handler.Handle(items, 0.7, "ergonomic chair")
		assert.True(t, result.CannibalizationChecked)
		assert.Equal(t, StrategyRAGFound, result.Strategy)
		assert.Len(t, result.Matches, 2)
		assert.Equal(t, "c1", result.Matches[0].ContentID)
		assert.Equal(t, "c3", result.Matches[1].ContentID)
	})
}

func TestRAGMissHandler_HandleError(t *testing.T) {
	handler := NewRAGMissHandler()
	result := handler.HandleError(errors.New("dial tcp: connection refused"), "ergonomic chair")
	assert.False(t, result.CannibalizationChecked)
	assert.Empty(t, result.Matches)
	assert.Equal(t, StrategyUnreachable, result.Strategy)
}
