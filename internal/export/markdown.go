package export

import (
	"fmt"
	"strings"

	"github.com/innovaplus/innova/internal/capability"
	"github.com/innovaplus/innova/internal/memory"
)

// MarkdownExporter renders the session as a readable markdown report.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(data Data) (string, error) {
	var b strings.Builder
	b.WriteString("# InnovA+ Session Export\n\n")
	fmt.Fprintf(&b, "_Generated %s. %d capability uses recorded._\n\n", data.Generated.Format("2006-01-02 15:04 MST"), data.UsageCount)

	if prefs := rankedPreferences(data.Preferences); len(prefs) > 0 {
		b.WriteString("## Capability Preferences\n\n")
		b.WriteString("| Capability | Uses |\n|---|---|\n")
		for _, p := range prefs {
			fmt.Fprintf(&b, "| %s | %d |\n", p.Capability, p.Count)
		}
		b.WriteString("\n")
	}

	if len(data.ContentHistory) > 0 {
		b.WriteString("## Generated Content\n\n")
		for i, entry := range data.ContentHistory {
			writeEntry(&b, i+1, entry)
		}
	}

	if len(data.ModificationLog) > 0 {
		b.WriteString("## Modification Log\n\n")
		for _, m := range data.ModificationLog {
			fmt.Fprintf(&b, "- %s `%s` (%s): %s", m.Timestamp.Format("2006-01-02 15:04"), m.OriginalID, m.OriginalKind, m.SpecificChange)
			if m.Reason != "" {
				fmt.Fprintf(&b, ". Reason: %s", m.Reason)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func writeEntry(b *strings.Builder, n int, entry memory.ContentEntry) {
	fmt.Fprintf(b, "### %d. %s: %s\n\n", n, entry.Kind, entry.OriginalPrompt)
	fmt.Fprintf(b, "- **ID:** `%s`\n", entry.ID)
	fmt.Fprintf(b, "- **Created:** %s\n", entry.Timestamp.Format("2006-01-02 15:04"))
	if entry.IsModification() {
		if orig, ok := entry.Metadata[memory.MetaOriginalID].(string); ok {
			fmt.Fprintf(b, "- **Modifies:** `%s`\n", orig)
		}
	}
	if len(entry.ModificationHistory) > 0 {
		fmt.Fprintf(b, "- **Revisions:** %d\n", len(entry.ModificationHistory))
	}
	b.WriteString("\n")

	result, err := capability.Decode(entry.Kind, entry.Result)
	if err != nil {
		b.WriteString("_Result unavailable._\n\n")
		return
	}
	switch r := result.(type) {
	case *capability.CodeResult:
		fmt.Fprintf(b, "```%s\n%s\n```\n\n", r.Language, r.Content)
	case *capability.VRSceneResult:
		fmt.Fprintf(b, "```html\n%s\n```\n\n", r.Content)
	case *capability.ChartResult:
		fmt.Fprintf(b, "```json\n%s\n```\n\n", r.Spec)
	case *capability.ImageResult:
		fmt.Fprintf(b, "![%s](%s)\n\n", r.Prompt, r.URL)
	case *capability.ResearchResult:
		b.WriteString(r.Content + "\n\n")
		if len(r.Sources) > 0 {
			b.WriteString("**Sources:**\n\n")
			for _, s := range r.Sources {
				if s.URL != "" {
					fmt.Fprintf(b, "- [%s](%s) (%s)\n", s.DisplayText, s.URL, s.Kind)
				} else {
					fmt.Fprintf(b, "- %s (%s)\n", s.DisplayText, s.Kind)
				}
			}
			b.WriteString("\n")
		}
	case *capability.AnalysisResult:
		b.WriteString(r.Content + "\n\n")
	case *capability.DocumentResult:
		b.WriteString(r.Content + "\n\n")
	}
}
