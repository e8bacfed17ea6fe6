package guards

import (
	"log"

	"github.com/jonathan/strategy-engine/internal/types"
)

// minViableVolume is the monthly search volume below which a cluster is not
// worth targeting for traditional SEO.
const minViableVolume = 100

// SEOStrategyMode is the EC4 decision: which distribution strategy the
// cluster should pursue, with a reason surfaced to the human reviewer.
type SEOStrategyMode struct {
	Mode   types.SEOMode
	Reason string
}

// SEODeadEndHandler (EC4) catches niches where keyword research finds no
// meaningful search volume. Instead of failing the run, the strategy pivots
// to GEO-only: content optimized for AI-assistant citation rather than
// search ranking.
type SEODeadEndHandler struct{}

// NewSEODeadEndHandler returns a stateless EC4 handler.
func NewSEODeadEndHandler() *SEODeadEndHandler {
	return &SEODeadEndHandler{}
}

// Evaluate picks the distribution mode from verified keyword volumes.
// totalVolume is nil when the volume lookup failed or was skipped.
func (h *SEODeadEndHandler) Evaluate(topics []types.TopicNode, totalVolume *int) SEOStrategyMode {
	if totalVolume == nil {
		log.Printf("[EC4] No verified search volume across %d topics: pivoting to GEO-only", len(topics))
		return SEOStrategyMode{
			Mode:   types.SEOModeGEOOnly,
			Reason: "search volume could not be verified; optimizing for AI-assistant citation instead of search ranking",
		}
	}

	if *totalVolume < minViableVolume {
		log.Printf("[EC4] Total search volume %d below viable minimum %d: pivoting to GEO-only", *totalVolume, minViableVolume)
		return SEOStrategyMode{
			Mode:   types.SEOModeGEOOnly,
			Reason: "total monthly search volume is below the viable minimum; optimizing for AI-assistant citation instead of search ranking",
		}
	}

	log.Printf("[EC4] Total search volume %d supports a full SEO+GEO strategy", *totalVolume)
	return SEOStrategyMode{Mode: types.SEOModeFull}
}
