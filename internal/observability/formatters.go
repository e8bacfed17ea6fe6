// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/strategy-engine/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintIntent outputs a human-readable summary of the extracted intent.
func (p *Printer) PrintIntent(intent *types.ExtractedIntent) {
	if intent == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Persona:  %s\n", intent.TargetPersona))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Pain points (%d):\n", len(intent.CorePainPoints)))
	for i, point := range intent.CorePainPoints {
		if i >= maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(intent.CorePainPoints)-maxItemsToShow))
			break
		}
		sb.WriteString(fmt.Sprintf("  - %s\n", point))
	}

	sb.WriteString(fmt.Sprintf("Emotions: %s", strings.Join(intent.UnderlyingEmotions, ", ")))

	p.printBox("EXTRACTED INTENT", sb.String())
}

// PrintStrategy outputs a human-readable summary of the SEO/GEO strategy,
// including the per-topic volume data after enrichment.
func (p *Printer) PrintStrategy(strategy *types.SEOStrategy) {
	if strategy == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Cluster keyword:  %s\n", strategy.ClusterPrimaryKeyword))
	sb.WriteString(fmt.Sprintf("Mode:             %s\n", strategy.SEOMode))
	if strategy.SEOModeReason != "" {
		sb.WriteString(fmt.Sprintf("Reason:           %s\n", strategy.SEOModeReason))
	}
	if strategy.EstimatedTotalSearchVolume != nil {
		sb.WriteString(fmt.Sprintf("Total volume:     %d\n", *strategy.EstimatedTotalSearchVolume))
	} else {
		sb.WriteString("Total volume:     unverified\n")
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Topics (%d):\n", len(strategy.ProposedTopics)))
	for _, topic := range strategy.ProposedTopics {
		volume := "n/a"
		if topic.SEO.SearchVolume != nil {
			volume = fmt.Sprintf("%d", *topic.SEO.SearchVolume)
		}
		sb.WriteString(fmt.Sprintf("  [%s] %s (%s, vol %s)\n", topic.Role, topic.Title, topic.ContentType, volume))
	}

	p.printBox("SEO/GEO STRATEGY", strings.TrimRight(sb.String(), "\n"))
}

// PrintBlueprint outputs a human-readable summary of the final blueprint.
func (p *Printer) PrintBlueprint(blueprint *types.ContentBlueprint) {
	if blueprint == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Blueprint:  %s\n", blueprint.BlueprintID))
	sb.WriteString(fmt.Sprintf("Run:        %s\n", blueprint.PipelineRunID))
	sb.WriteString(fmt.Sprintf("Mode:       %s\n", blueprint.SEOMode))
	sb.WriteString(fmt.Sprintf("Checked:    cannibalization=%t\n", blueprint.CannibalizationChecked))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Hub:    %s\n", blueprint.Hub.Title))
	sb.WriteString(fmt.Sprintf("Spokes (%d):\n", len(blueprint.Spokes)))
	for i, spoke := range blueprint.Spokes {
		if i >= maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(blueprint.Spokes)-maxItemsToShow))
			break
		}
		sb.WriteString(fmt.Sprintf("  - %s (%s)\n", spoke.Title, spoke.ContentType))
	}
	sb.WriteString(fmt.Sprintf("Links:  %d internal", len(blueprint.InternalLinks)))

	p.printBox("CONTENT BLUEPRINT", sb.String())
}

// PrintRunResult outputs the terminal status of a run, with the rejection or
// failure reason when there is one.
func (p *Printer) PrintRunResult(state *types.PipelineState) {
	if state == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:     %s\n", state.RunID))
	sb.WriteString(fmt.Sprintf("Status:  %s", state.Status))
	if state.Error != "" {
		sb.WriteString(fmt.Sprintf("\nDetail:  %s", state.Error))
	}

	p.printBox("PIPELINE RESULT", sb.String())
}
