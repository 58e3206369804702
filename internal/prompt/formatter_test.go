package prompt

import (
	"strings"
	"testing"

	"github.com/innovaplus/innova/internal/adapter"
	"github.com/innovaplus/innova/internal/memory"
)

func TestFormatMemory(t *testing.T) {
	f := NewFormatter()
	s := memory.Summary{
		TotalUsageCount: 4,
		RecentUsage: []memory.UsageRecord{
			{Capability: memory.CapResearch, Succeeded: true},
			{Capability: memory.CapGeneral, Succeeded: false},
			{Capability: memory.CapCode, Succeeded: true},
		},
		TopCapabilities:    []memory.Capability{memory.CapCode, memory.CapResearch},
		RelatedPastResults: map[memory.Capability]memory.LastContent{memory.CapCode: {Query: "calculadora en python"}},
		RecentContent:      []memory.ContentEntry{{Kind: memory.KindCode, OriginalPrompt: "calculadora en python"}},
		RecentModifications: []memory.ModificationLogEntry{
			{OriginalKind: memory.KindCode, Reason: "add dark mode"},
		},
	}

	result := f.FormatMemory(s)
	checks := []string{
		"## Session memory",
		"Total functions used this session: 4",
		"Recent successful functions: research, code",
		"Preferred modes: code, research",
		`code: "calculadora en python"`,
		"modified code because: add dark mode",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("missing %q in memory section:\n%s", check, result)
		}
	}
	if strings.Contains(result, "general_query") {
		t.Error("failed usage should not be listed as successful")
	}
}

func TestFormatMemory_Empty(t *testing.T) {
	if got := NewFormatter().FormatMemory(memory.Summary{}); got != "" {
		t.Errorf("expected empty section, got %q", got)
	}
}

func TestFormatStatus(t *testing.T) {
	result := NewFormatter().FormatStatus(
		[]memory.Capability{memory.CapResearch, memory.CapChart},
		[]memory.Capability{memory.CapChart},
		"", 4,
		map[string]string{"time": "10:00", "date": "2026-10-18"},
	)
	checks := []string{
		"Enabled modes: research, chart",
		"Conversation context: 4 messages",
		"Live data available: date, time",
		"primary intent: informational",
		"Planned functions: chart",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("missing %q in status:\n%s", check, result)
		}
	}
}

func TestFormatRecentTurns(t *testing.T) {
	history := []adapter.Message{
		{Role: adapter.RoleUser, Content: "first"},
		{Role: adapter.RoleAssistant, Content: "second"},
		{Role: adapter.RoleUser, Content: "third"},
		{Role: adapter.RoleAssistant, Content: strings.Repeat("x", 200)},
	}
	result := NewFormatter().FormatRecentTurns(history)
	if strings.Contains(result, "first") {
		t.Error("only the last three turns should be quoted")
	}
	if !strings.Contains(result, "user: third") {
		t.Errorf("missing recent turn:\n%s", result)
	}
	if !strings.Contains(result, strings.Repeat("x", 150)+"...") {
		t.Error("long turns should be cut at 150 characters")
	}
}

func TestFormatLive(t *testing.T) {
	f := NewFormatter()
	if got := f.FormatLive(nil); got != "" {
		t.Errorf("expected empty section, got %q", got)
	}
	got := f.FormatLive(map[string]string{"language": "es", "date": "2026-10-18"})
	if !strings.Contains(got, `{"date":"2026-10-18","language":"es"}`) {
		t.Errorf("unexpected live section: %q", got)
	}
}
