// Package memory holds the assistant's session memory: capability usage,
// generated content history and modification records.
package memory

import (
	"encoding/json"
	"time"
)

// Capability names a specialized generator the assistant can invoke.
type Capability string

const (
	CapResearch Capability = "research"
	CapAnalysis Capability = "analysis"
	CapImage    Capability = "image"
	CapChart    Capability = "chart"
	CapCode     Capability = "code"
	CapVR       Capability = "vr"
	CapDocument Capability = "document"

	// CapGeneral is recorded for turns that failed before any capability ran.
	CapGeneral Capability = "general_query"
)

// Capabilities lists the dispatchable capabilities in canonical order.
var Capabilities = []Capability{CapResearch, CapAnalysis, CapImage, CapChart, CapCode, CapVR, CapDocument}

// ValidCapability reports whether c is a dispatchable capability.
func ValidCapability(c Capability) bool {
	for _, k := range Capabilities {
		if k == c {
			return true
		}
	}
	return false
}

// ContentKind tags a stored content entry.
type ContentKind string

const (
	KindResearch ContentKind = "research"
	KindAnalysis ContentKind = "analysis"
	KindImage    ContentKind = "image"
	KindChart    ContentKind = "chart"
	KindCode     ContentKind = "code"
	KindVRScene  ContentKind = "vr-scene"
	KindDocument ContentKind = "document"
)

// ContentKind returns the content kind produced by c.
func (c Capability) ContentKind() ContentKind {
	if c == CapVR {
		return KindVRScene
	}
	return ContentKind(c)
}

// Capability returns the capability that produces k.
func (k ContentKind) Capability() Capability {
	if k == KindVRScene {
		return CapVR
	}
	return Capability(k)
}

// UsageRecord is one capability invocation in the usage log.
type UsageRecord struct {
	Timestamp    time.Time      `json:"timestamp"`
	Capability   Capability     `json:"capability"`
	QueryExcerpt string         `json:"query_excerpt"`
	Succeeded    bool           `json:"succeeded"`
	ResultKind   string         `json:"result_kind"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// LastContent is the most recent successful result of one capability.
type LastContent struct {
	Query     string          `json:"query"`
	Result    json.RawMessage `json:"result"`
	Timestamp time.Time       `json:"timestamp"`
}

// Modification is one revision applied to a content entry.
type Modification struct {
	Timestamp      time.Time       `json:"timestamp"`
	RequestText    string          `json:"request_text"`
	SpecificChange string          `json:"specific_change"`
	Result         json.RawMessage `json:"result"`
}

// ContentEntry is one generated artifact.
type ContentEntry struct {
	ID                  string          `json:"id"`
	Timestamp           time.Time       `json:"timestamp"`
	Kind                ContentKind     `json:"kind"`
	OriginalPrompt      string          `json:"original_prompt"`
	Result              json.RawMessage `json:"result"`
	Metadata            map[string]any  `json:"metadata,omitempty"`
	ModificationHistory []Modification  `json:"modification_history"`
}

// IsModification reports whether the entry was derived from another entry.
func (e ContentEntry) IsModification() bool {
	v, _ := e.Metadata[MetaIsModification].(bool)
	return v
}

// ModificationLogEntry records one modification request.
type ModificationLogEntry struct {
	Timestamp      time.Time   `json:"timestamp"`
	OriginalID     string      `json:"original_id"`
	OriginalKind   ContentKind `json:"original_kind"`
	RequestText    string      `json:"request_text"`
	SpecificChange string      `json:"specific_change"`
	Reason         string      `json:"reason"`
}

// Metadata keys written on content entries.
const (
	MetaIsModification     = "isModification"
	MetaOriginalID         = "originalId"
	MetaModificationReason = "modificationReason"
	MetaProcessingTime     = "processingTime"
	MetaPrimaryIntent      = "primaryIntent"
	MetaAspectRatio        = "aspectRatio"
)

// SessionMemory is the persisted state. PreferenceOrder keeps the order in
// which each capability was first counted and breaks ties in rankings.
type SessionMemory struct {
	FunctionUsage    []UsageRecord              `json:"function_usage"`
	LastContent      map[Capability]LastContent `json:"last_content"`
	PreferenceCounts map[Capability]int         `json:"preference_counts"`
	PreferenceOrder  []Capability               `json:"preference_order"`
	ContentHistory   []ContentEntry             `json:"content_history"`
	ModificationLog  []ModificationLogEntry     `json:"modification_log"`
	ActiveTargetID   string                     `json:"active_target_id,omitempty"`
}

// Summary is the read-only digest handed to the intent analyzer and prompts.
type Summary struct {
	RecentUsage         []UsageRecord              `json:"recentUsage"`
	RelatedPastResults  map[Capability]LastContent `json:"relatedPastResults"`
	RecentContent       []ContentEntry             `json:"recentContent"`
	RecentModifications []ModificationLogEntry     `json:"recentModifications"`
	TotalUsageCount     int                        `json:"totalUsageCount"`
	TopCapabilities     []Capability               `json:"topCapabilities"`
}

// HasTop reports whether c is among the top capabilities.
func (s Summary) HasTop(c Capability) bool {
	for _, t := range s.TopCapabilities {
		if t == c {
			return true
		}
	}
	return false
}

// HasRelated reports whether c has a related past result.
func (s Summary) HasRelated(c Capability) bool {
	_, ok := s.RelatedPastResults[c]
	return ok
}
