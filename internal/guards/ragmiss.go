package guards

import (
	"log"

	"github.com/jonathan/strategy-engine/internal/registry"
)

// Strategy labels recorded on a RAGMissResult.
const (
	StrategyRAGFound       = "rag_found"
	StrategyEmptyRegistry  = "empty_registry"
	StrategyBelowThreshold = "below_threshold"
	StrategyUnreachable    = "registry_unreachable"
)

// RAGMissResult is the outcome of the EC3 check. When no usable matches
// exist the cluster is built without cannibalization data and
// CannibalizationChecked stays false so reviewers can see the check was
// skipped, not passed.
type RAGMissResult struct {
	CannibalizationChecked bool
	Matches                []registry.SimilarContent
	Strategy               string
}

// RAGMissHandler (EC3) turns registry misses into a degrade path for the
// cluster-building agent. An empty or unreachable registry is a normal
// condition for a new tenant, never a pipeline failure.
type RAGMissHandler struct{}

// NewRAGMissHandler returns a stateless EC3 handler.
func NewRAGMissHandler() *RAGMissHandler {
	return &RAGMissHandler{}
}

// Handle classifies a registry search result. items is what the registry
// returned, threshold is the minimum similarity score a match must carry to
// count as a cannibalization risk.
func (h *RAGMissHandler) Handle(items []registry.SimilarContent, threshold float64, keyword string) RAGMissResult {
	if len(items) == 0 {
		log.Printf("[EC3] No existing content for %q: building cluster without cannibalization data", keyword)
		return RAGMissResult{Strategy: StrategyEmptyRegistry}
	}

	matches := make([]registry.SimilarContent, 0, len(items))
	for _, item := range items {
		if item.Score >= threshold {
			matches = append(matches, item)
		}
	}
	if len(matches) == 0 {
		log.Printf("[EC3] %d candidates for %q all below threshold %.2f", len(items), keyword, threshold)
		return RAGMissResult{Strategy: StrategyBelowThreshold}
	}

	log.Printf("[EC3] %d cannibalization candidates found for %q", len(matches), keyword)
	return RAGMissResult{
		CannibalizationChecked: true,
		Matches:                matches,
		Strategy:               StrategyRAGFound,
	}
}

// HandleError covers a registry that could not be queried at all. Same
// degrade semantics as an empty registry, with the strategy recording why.
func (h *RAGMissHandler) HandleError(err error, keyword string) RAGMissResult {
	log.Printf("[EC3] Registry unreachable for %q: %v (continuing without cannibalization data)", keyword, err)
	return RAGMissResult{Strategy: StrategyUnreachable}
}
