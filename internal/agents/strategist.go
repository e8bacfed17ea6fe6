package agents

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/strategy-engine/internal/guards"
	"github.com/jonathan/strategy-engine/internal/llm"
	"github.com/jonathan/strategy-engine/internal/prompts"
	"github.com/jonathan/strategy-engine/internal/schemas"
	"github.com/jonathan/strategy-engine/internal/seoapi"
	"github.com/jonathan/strategy-engine/internal/types"
)

// Strategist is agent 2: it designs a hub-and-spoke topic cluster for the
// extracted intent, then enriches it with verified keyword volumes and the
// EC4 distribution-mode decision.
type Strategist struct {
	llm     llm.Client
	volumes seoapi.VolumeLookup
	deadEnd *guards.SEODeadEndHandler
}

// NewStrategist creates agent 2.
func NewStrategist(client llm.Client, volumes seoapi.VolumeLookup) *Strategist {
	return &Strategist{
		llm:     client,
		volumes: volumes,
		deadEnd: guards.NewSEODeadEndHandler(),
	}
}

// Generate runs the strategy prompt over the extracted intent. The returned
// strategy carries AI-estimated keywords only; call Enrich to verify volumes
// and decide the distribution mode.
func (s *Strategist) Generate(ctx context.Context, intent *types.ExtractedIntent, feedback string) (*types.SEOStrategy, error) {
	prompt := prompts.Format(prompts.MustGet(promptFile, "generate-strategy"), map[string]string{
		"Persona":    intent.TargetPersona,
		"PainPoints": bulleted(intent.CorePainPoints),
		"Emotions":   bulleted(intent.UnderlyingEmotions),
	})
	prompt = withFeedback(prompt, feedback)

	raw, err := s.llm.GenerateJSON(ctx, prompt, llm.TierForStage(llm.StageGenerateStrategy))
	if err != nil {
		return nil, fmt.Errorf("strategy generation call failed: %w", err)
	}

	var strategy types.SEOStrategy
	if err := decodeValidated(schemas.SchemaStrategy, raw, &strategy); err != nil {
		return nil, err
	}
	return &strategy, nil
}

// Enrich verifies the strategy's primary keywords against the volume
// provider and applies the EC4 decision. The strategy is mutated in place.
// A provider outage leaves every keyword unverified, which EC4 turns into a
// GEO-only pivot rather than a failure.
func (s *Strategist) Enrich(ctx context.Context, strategy *types.SEOStrategy) error {
	keywords := make([]string, 0, len(strategy.ProposedTopics))
	for _, topic := range strategy.ProposedTopics {
		if topic.SEO.PrimaryKeyword != "" {
			keywords = append(keywords, topic.SEO.PrimaryKeyword)
		}
	}

	volumes, err := s.volumes.Volumes(ctx, keywords)
	if err != nil {
		return fmt.Errorf("keyword volume lookup failed: %w", err)
	}

	byKeyword := make(map[string]seoapi.KeywordVolume, len(volumes))
	for _, v := range volumes {
		byKeyword[v.Keyword] = v
	}

	total := 0
	anyVerified := false
	for i := range strategy.ProposedTopics {
		seo := &strategy.ProposedTopics[i].SEO
		v, ok := byKeyword[seo.PrimaryKeyword]
		if !ok || !v.Verified {
			seo.SearchVolume = nil
			seo.SearchVolumeVerified = false
			continue
		}
		seo.SearchVolume = v.SearchVolume
		seo.SearchVolumeVerified = true
		if v.Difficulty != nil {
			difficulty := float64(*v.Difficulty)
			seo.KeywordDifficulty = &difficulty
		}
		total += *v.SearchVolume
		anyVerified = true
	}

	if anyVerified {
		strategy.EstimatedTotalSearchVolume = &total
	} else {
		strategy.EstimatedTotalSearchVolume = nil
	}

	decision := s.deadEnd.Evaluate(strategy.ProposedTopics, strategy.EstimatedTotalSearchVolume)
	strategy.SEOMode = decision.Mode
	strategy.SEOModeReason = decision.Reason

	log.Printf("[Strategist] Enriched %d topics: mode=%s verified_total=%v", len(strategy.ProposedTopics), decision.Mode, strategy.EstimatedTotalSearchVolume)
	return nil
}

func bulleted(items []string) string {
	if len(items) == 0 {
		return "- (none)"
	}
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
