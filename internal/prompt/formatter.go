package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/innovaplus/innova/internal/adapter"
	"github.com/innovaplus/innova/internal/llmtext"
	"github.com/innovaplus/innova/internal/memory"
)

// recentTurnExcerpt caps each quoted earlier turn, in runes.
const recentTurnExcerpt = 150

// recentTurnCount is how many earlier turns are quoted in the system prompt.
const recentTurnCount = 3

// Formatter renders session state into prompt-ready sections.
type Formatter struct{}

// NewFormatter creates a Formatter.
func NewFormatter() *Formatter { return &Formatter{} }

// FormatIdentity renders the assistant's fixed role and capability block.
func (f *Formatter) FormatIdentity() string {
	return `You are InnovA+, an advanced AI assistant with comprehensive capabilities and persistent memory.

## Capabilities

1. ANALYSIS: deep reasoning, pros and cons, logical chains, implications
2. RESEARCH: factual information with verifiable sources and citations
3. IMAGE GENERATION: visual content from text descriptions
4. CODE GENERATION: functional code in any programming language with live preview
5. VR/3D SCENES: immersive A-Frame environments
6. DOCUMENTS: professional documents ready for export
7. DATA VISUALIZATION: interactive charts and graphs

## Content modification

- Previously generated content can be modified when the user asks for specific changes
- References such as "the code", "the image" or "the document" point at recent content

## Coherence

- Reference earlier capability usage when relevant
- Be specific about which capabilities will be used and why
- Never contradict earlier statements about your capabilities
- Tell modification requests apart from new requests
`
}

// FormatMemory renders the memory summary. It returns "" for an empty summary.
func (f *Formatter) FormatMemory(s memory.Summary) string {
	if s.TotalUsageCount == 0 && len(s.RecentContent) == 0 && len(s.RecentModifications) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Session memory\n\n")
	fmt.Fprintf(&b, "- Total functions used this session: %d\n", s.TotalUsageCount)

	var recent []string
	for _, u := range s.RecentUsage {
		if u.Succeeded {
			recent = append(recent, string(u.Capability))
		}
	}
	if len(recent) > recentTurnCount {
		recent = recent[len(recent)-recentTurnCount:]
	}
	if len(recent) > 0 {
		fmt.Fprintf(&b, "- Recent successful functions: %s\n", strings.Join(recent, ", "))
	}
	if len(s.TopCapabilities) > 0 {
		fmt.Fprintf(&b, "- Preferred modes: %s\n", joinCapabilities(s.TopCapabilities))
	}
	if len(s.RelatedPastResults) > 0 {
		b.WriteString("- Similar past queries:\n")
		for _, c := range memory.Capabilities {
			if lc, ok := s.RelatedPastResults[c]; ok {
				fmt.Fprintf(&b, "  - %s: %q\n", c, llmtext.Truncate(lc.Query, recentTurnExcerpt))
			}
		}
	}
	if len(s.RecentContent) > 0 {
		b.WriteString("- Recent generated content:\n")
		for _, e := range s.RecentContent {
			fmt.Fprintf(&b, "  - %s: %q\n", e.Kind, e.OriginalPrompt)
		}
	}
	if len(s.RecentModifications) > 0 {
		b.WriteString("- Previous modifications:\n")
		for _, m := range s.RecentModifications {
			fmt.Fprintf(&b, "  - modified %s because: %s\n", m.OriginalKind, m.Reason)
		}
	}
	return b.String()
}

// FormatStatus renders the current turn's session status.
func (f *Formatter) FormatStatus(enabled, planned []memory.Capability, primaryIntent string, historyLen int, live map[string]string) string {
	var b strings.Builder
	b.WriteString("## Current session status\n\n")
	fmt.Fprintf(&b, "- Enabled modes: %s\n", joinCapabilities(enabled))
	fmt.Fprintf(&b, "- Conversation context: %d messages\n", historyLen)
	if len(live) > 0 {
		keys := make([]string, 0, len(live))
		for k := range live {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&b, "- Live data available: %s\n", strings.Join(keys, ", "))
	}
	if primaryIntent == "" {
		primaryIntent = "informational"
	}
	fmt.Fprintf(&b, "- User's primary intent: %s\n", primaryIntent)
	if len(planned) > 0 {
		fmt.Fprintf(&b, "- Planned functions: %s\n", joinCapabilities(planned))
	}
	return b.String()
}

// FormatRecentTurns quotes the last few conversation turns, each cut short.
func (f *Formatter) FormatRecentTurns(history []adapter.Message) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > recentTurnCount {
		history = history[len(history)-recentTurnCount:]
	}
	var b strings.Builder
	b.WriteString("## Context from previous conversation\n\n")
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, llmtext.Truncate(m.Content, recentTurnExcerpt))
	}
	return b.String()
}

// FormatLive renders live data as a JSON object.
func (f *Formatter) FormatLive(live map[string]string) string {
	if len(live) == 0 {
		return ""
	}
	raw, err := json.Marshal(live)
	if err != nil {
		return ""
	}
	return "## Available live data\n\n" + string(raw) + "\n"
}

// FormatClosing renders the final reply instruction.
func (f *Formatter) FormatClosing(language string) string {
	if language == "" {
		language = "Spanish"
	}
	return fmt.Sprintf("Respond in %s with clear, well-formatted content that shows awareness of your capabilities and memory.", language)
}

func joinCapabilities(caps []memory.Capability) string {
	if len(caps) == 0 {
		return "none"
	}
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
