// Package export renders session memory into shareable formats.
package export

import (
	"sort"
	"time"

	"github.com/innovaplus/innova/internal/memory"
)

// Data is passed to every Exporter.
type Data struct {
	Generated       time.Time
	ContentHistory  []memory.ContentEntry
	ModificationLog []memory.ModificationLogEntry
	Preferences     map[memory.Capability]int
	UsageCount      int
}

// FromSnapshot collects the exportable parts of a session memory snapshot.
func FromSnapshot(snap memory.SessionMemory, now time.Time) Data {
	return Data{
		Generated:       now.UTC(),
		ContentHistory:  snap.ContentHistory,
		ModificationLog: snap.ModificationLog,
		Preferences:     snap.PreferenceCounts,
		UsageCount:      len(snap.FunctionUsage),
	}
}

// Exporter renders Data to a string in a specific format.
type Exporter interface {
	Export(data Data) (string, error)
}

// registry maps format names to Exporter implementations.
var registry = map[string]Exporter{
	"markdown": &MarkdownExporter{},
	"json":     &JSONExporter{},
	"yaml":     &YAMLExporter{},
}

// Get returns the Exporter registered under name, and whether it was found.
func Get(name string) (Exporter, bool) {
	e, ok := registry[name]
	return e, ok
}

// ValidFormats returns the supported export format names, sorted.
func ValidFormats() []string {
	formats := make([]string, 0, len(registry))
	for k := range registry {
		formats = append(formats, k)
	}
	sort.Strings(formats)
	return formats
}

type preference struct {
	Capability memory.Capability `json:"capability" yaml:"capability"`
	Count      int               `json:"count" yaml:"count"`
}

// rankedPreferences lists counted capabilities, most used first, ties in
// canonical order.
func rankedPreferences(prefs map[memory.Capability]int) []preference {
	var out []preference
	for _, c := range memory.Capabilities {
		if n := prefs[c]; n > 0 {
			out = append(out, preference{Capability: c, Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
