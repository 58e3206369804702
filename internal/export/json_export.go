package export

import (
	"encoding/json"
	"time"

	"github.com/innovaplus/innova/internal/memory"
)

// JSONExporter renders Data as structured JSON.
type JSONExporter struct{}

type jsonOutput struct {
	Generated       time.Time                     `json:"generated"`
	UsageCount      int                           `json:"usage_count"`
	Preferences     []preference                  `json:"preferences"`
	Content         []memory.ContentEntry         `json:"content"`
	ModificationLog []memory.ModificationLogEntry `json:"modification_log"`
}

func (e *JSONExporter) Export(data Data) (string, error) {
	out := jsonOutput{
		Generated:       data.Generated,
		UsageCount:      data.UsageCount,
		Preferences:     rankedPreferences(data.Preferences),
		Content:         data.ContentHistory,
		ModificationLog: data.ModificationLog,
	}
	// Empty collections render as [] rather than null.
	if out.Preferences == nil {
		out.Preferences = []preference{}
	}
	if out.Content == nil {
		out.Content = []memory.ContentEntry{}
	}
	if out.ModificationLog == nil {
		out.ModificationLog = []memory.ModificationLogEntry{}
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
