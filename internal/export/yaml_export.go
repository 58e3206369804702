package export

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLExporter renders Data as YAML. Results are expanded into mappings
// rather than embedded as JSON strings.
type YAMLExporter struct{}

type yamlOutput struct {
	Generated       time.Time          `yaml:"generated"`
	UsageCount      int                `yaml:"usage_count"`
	Preferences     []preference       `yaml:"preferences,omitempty"`
	Content         []yamlEntry        `yaml:"content,omitempty"`
	ModificationLog []yamlModification `yaml:"modification_log,omitempty"`
}

type yamlEntry struct {
	ID             string         `yaml:"id"`
	Timestamp      time.Time      `yaml:"timestamp"`
	Kind           string         `yaml:"kind"`
	OriginalPrompt string         `yaml:"original_prompt"`
	Result         any            `yaml:"result"`
	Metadata       map[string]any `yaml:"metadata,omitempty"`
	Revisions      int            `yaml:"revisions"`
}

type yamlModification struct {
	Timestamp      time.Time `yaml:"timestamp"`
	OriginalID     string    `yaml:"original_id"`
	OriginalKind   string    `yaml:"original_kind"`
	SpecificChange string    `yaml:"specific_change"`
	Reason         string    `yaml:"reason,omitempty"`
}

func (e *YAMLExporter) Export(data Data) (string, error) {
	out := yamlOutput{
		Generated:   data.Generated,
		UsageCount:  data.UsageCount,
		Preferences: rankedPreferences(data.Preferences),
	}
	for _, entry := range data.ContentHistory {
		var result any
		if len(entry.Result) > 0 {
			if err := json.Unmarshal(entry.Result, &result); err != nil {
				return "", fmt.Errorf("export: entry %s: %w", entry.ID, err)
			}
		}
		out.Content = append(out.Content, yamlEntry{
			ID:             entry.ID,
			Timestamp:      entry.Timestamp,
			Kind:           string(entry.Kind),
			OriginalPrompt: entry.OriginalPrompt,
			Result:         result,
			Metadata:       entry.Metadata,
			Revisions:      len(entry.ModificationHistory),
		})
	}
	for _, m := range data.ModificationLog {
		out.ModificationLog = append(out.ModificationLog, yamlModification{
			Timestamp:      m.Timestamp,
			OriginalID:     m.OriginalID,
			OriginalKind:   string(m.OriginalKind),
			SpecificChange: m.SpecificChange,
			Reason:         m.Reason,
		})
	}

	b, err := yaml.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("export: yaml: %w", err)
	}
	return string(b), nil
}
