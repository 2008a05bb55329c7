package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ppetrov/opinia/internal/model"
)

// Renderer turns a report into its output formats
type Renderer struct{}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderJSON returns the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

// RenderMarkdown returns the report as a Markdown document: summary header,
// facet tables, the merged record table, and a diagnostics section.
func (r *Renderer) RenderMarkdown(report *model.Report) string {
	var b strings.Builder

	b.WriteString("# Feedback Triage Report\n\n")
	fmt.Fprintf(&b, "**Source:** %s\n", report.Source)
	fmt.Fprintf(&b, "**Generated:** %s\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "**Model:** %s\n\n", modelLine(report.LLM))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Records: %d\n", report.Stats.Total)
	fmt.Fprintf(&b, "- Annotated: %d (%s)\n", report.Stats.Annotated, percent(report.Stats.Annotated, report.Stats.Total))
	fmt.Fprintf(&b, "- Defaulted: %d\n", report.Stats.Defaulted)
	if report.Stats.Duplicates > 0 {
		fmt.Fprintf(&b, "- Duplicate annotation ids: %d\n", report.Stats.Duplicates)
	}
	b.WriteString("\n")

	b.WriteString("## Facets\n\n")
	for _, f := range report.Facets {
		fmt.Fprintf(&b, "### %s\n\n", titleCase(f.Facet))
		if len(f.Values) == 0 {
			b.WriteString("No values.\n\n")
			continue
		}
		b.WriteString("| Value | Count |\n")
		b.WriteString("|-------|-------|\n")
		for _, v := range f.Values {
			fmt.Fprintf(&b, "| %s | %d |\n", cell(v.Value), v.Count)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Records\n\n")
	if len(report.Records) == 0 {
		b.WriteString("No records.\n\n")
	} else {
		b.WriteString("| ID | Source | Theme | Sentiment | Urgency | Message |\n")
		b.WriteString("|----|--------|-------|-----------|---------|---------|\n")
		for _, rec := range report.Records {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
				rec.ID, cell(rec.Source), cell(rec.Theme), rec.Sentiment, rec.Urgency, cell(truncate(rec.Message, 100)))
		}
		b.WriteString("\n")
	}

	if len(report.Stats.Signals) > 0 || len(report.Warnings) > 0 || report.Diagnostic != "" {
		b.WriteString("## Diagnostics\n\n")
		for _, s := range report.Stats.Signals {
			fmt.Fprintf(&b, "- **%s** [%s]: %s\n", s.Type, s.Severity, s.Description)
		}
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "- **warning**: %s\n", w)
		}
		if report.Diagnostic != "" {
			b.WriteString("\n```\n")
			b.WriteString(strings.TrimSpace(report.Diagnostic))
			b.WriteString("\n```\n")
		}
	}

	return b.String()
}

// modelLine describes the annotation source for the report header
func modelLine(info model.LLMInfo) string {
	if !info.Enabled {
		return "none (annotation disabled)"
	}
	line := info.Provider
	if info.Model != "" {
		line += " " + info.Model
	}
	if info.Cached {
		line += " (cached)"
	}
	return line
}

func percent(part, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", float64(part)/float64(total)*100)
}

// cell escapes characters that would break a Markdown table cell
var cellEscaper = strings.NewReplacer("|", "\\|", "\n", " ", "\r", " ")

func cell(s string) string {
	return cellEscaper.Replace(s)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
