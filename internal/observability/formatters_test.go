package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/strategy-engine/internal/types"
)

func TestPrintIntent(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintIntent(&types.ExtractedIntent{
		TargetPersona:      "first-time condo buyers in Bangkok",
		CorePainPoints:     []string{"ceiling height worries", "budget under 3M THB"},
		UnderlyingEmotions: []string{"anxiety", "hope"},
	})

	out := buf.String()
	assert.Contains(t, out, "EXTRACTED INTENT")
	assert.Contains(t, out, "first-time condo buyers in Bangkok")
	assert.Contains(t, out, "ceiling height worries")
	assert.Contains(t, out, "anxiety, hope")
}

func TestPrintIntentTruncatesLongLists(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	points := make([]string, 8)
	for i := range points {
		points[i] = "pain point"
	}
	p.PrintIntent(&types.ExtractedIntent{TargetPersona: "p", CorePainPoints: points})

	assert.Contains(t, buf.String(), "... and 3 more")
}

func TestPrintStrategy(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	volume := 4200
	p.PrintStrategy(&types.SEOStrategy{
		ClusterPrimaryKeyword:      "low ceiling condo",
		SEOMode:                    types.SEOModeFull,
		EstimatedTotalSearchVolume: &volume,
		ProposedTopics: []types.TopicNode{
			{TopicID: "hub-main", Title: "Low Ceiling Condo Guide", Role: types.RoleHub, ContentType: types.ContentArticle},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "SEO/GEO STRATEGY")
	assert.Contains(t, out, "low ceiling condo")
	assert.Contains(t, out, "4200")
	assert.Contains(t, out, "[hub]")
}

func TestPrintStrategyUnverifiedVolume(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintStrategy(&types.SEOStrategy{
		ClusterPrimaryKeyword: "niche keyword",
		SEOMode:               types.SEOModeGEOOnly,
		SEOModeReason:         "no verifiable search volume",
	})

	out := buf.String()
	assert.Contains(t, out, "unverified")
	assert.Contains(t, out, "geo_only")
}

func TestPrintRunResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRunResult(&types.PipelineState{
		RunID:  "run-1",
		Status: types.RunRejected,
		Error:  "input rejected: input appears to be random characters (confidence=0.95)",
	})

	out := buf.String()
	assert.Contains(t, out, "PIPELINE RESULT")
	assert.Contains(t, out, "rejected")
}

func TestPrinterHandlesNil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintIntent(nil)
	p.PrintStrategy(nil)
	p.PrintBlueprint(nil)
	p.PrintRunResult(nil)

	assert.Empty(t, strings.TrimSpace(buf.String()))
}
