// Package capability runs the specialized generators (research, analysis,
// image, chart, code, VR scene, document) and dispatches them for a turn.
package capability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/innovaplus/innova/internal/memory"
	"github.com/innovaplus/innova/internal/sources"
)

// Result is the output of one capability. It is implemented only by the
// result types of this package.
type Result interface {
	Capability() memory.Capability
	Kind() memory.ContentKind
	isResult()
}

// Research depth labels.
const (
	DepthBasic         = "basic"
	DepthComprehensive = "comprehensive"
)

// Analysis complexity labels.
const (
	ComplexityModerate = "moderate"
	ComplexityHigh     = "high"
)

// ResearchResult is a sourced research answer.
type ResearchResult struct {
	Content        string           `json:"content"`
	Sources        []sources.Source `json:"sources"`
	ProcessingTime float64          `json:"processing_time"`
	SourceCount    int              `json:"source_count"`
	Depth          string           `json:"depth"`
}

// AnalysisResult is an analytical answer with optional chart data.
type AnalysisResult struct {
	Content        string          `json:"content"`
	ChartData      json.RawMessage `json:"chart_data,omitempty"`
	ProcessingTime float64         `json:"processing_time"`
	Complexity     string          `json:"complexity"`
}

// ImageResult is a generated image reference.
type ImageResult struct {
	URL         string `json:"url"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

// ChartResult is a Chart.js style chart specification.
type ChartResult struct {
	Spec  json.RawMessage `json:"chart_spec"`
	Title string          `json:"title"`
}

// CodeResult is generated source code.
type CodeResult struct {
	Content     string `json:"content"`
	Language    string `json:"language"`
	Framework   string `json:"framework,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// VRSceneResult is a complete A-Frame scene.
type VRSceneResult struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

// DocumentResult is a generated document body.
type DocumentResult struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

func (*ResearchResult) Capability() memory.Capability { return memory.CapResearch }
func (*AnalysisResult) Capability() memory.Capability { return memory.CapAnalysis }
func (*ImageResult) Capability() memory.Capability    { return memory.CapImage }
func (*ChartResult) Capability() memory.Capability    { return memory.CapChart }
func (*CodeResult) Capability() memory.Capability     { return memory.CapCode }
func (*VRSceneResult) Capability() memory.Capability  { return memory.CapVR }
func (*DocumentResult) Capability() memory.Capability { return memory.CapDocument }

func (r *ResearchResult) Kind() memory.ContentKind { return r.Capability().ContentKind() }
func (r *AnalysisResult) Kind() memory.ContentKind { return r.Capability().ContentKind() }
func (r *ImageResult) Kind() memory.ContentKind    { return r.Capability().ContentKind() }
func (r *ChartResult) Kind() memory.ContentKind    { return r.Capability().ContentKind() }
func (r *CodeResult) Kind() memory.ContentKind     { return r.Capability().ContentKind() }
func (r *VRSceneResult) Kind() memory.ContentKind  { return r.Capability().ContentKind() }
func (r *DocumentResult) Kind() memory.ContentKind { return r.Capability().ContentKind() }

func (*ResearchResult) isResult() {}
func (*AnalysisResult) isResult() {}
func (*ImageResult) isResult()    {}
func (*ChartResult) isResult()    {}
func (*CodeResult) isResult()     {}
func (*VRSceneResult) isResult()  {}
func (*DocumentResult) isResult() {}

// Empty reports whether r carries nothing worth showing.
func Empty(r Result) bool {
	switch v := r.(type) {
	case nil:
		return true
	case *ResearchResult:
		return v == nil || strings.TrimSpace(v.Content) == ""
	case *AnalysisResult:
		return v == nil || strings.TrimSpace(v.Content) == ""
	case *ImageResult:
		return v == nil || v.URL == ""
	case *ChartResult:
		return v == nil || len(bytes.TrimSpace(v.Spec)) == 0 || string(bytes.TrimSpace(v.Spec)) == "null"
	case *CodeResult:
		return v == nil || strings.TrimSpace(v.Content) == ""
	case *VRSceneResult:
		return v == nil || strings.TrimSpace(v.Content) == ""
	case *DocumentResult:
		return v == nil || strings.TrimSpace(v.Content) == ""
	default:
		return true
	}
}

// Text returns the main textual body of r: content, image URL or chart spec.
func Text(r Result) string {
	switch v := r.(type) {
	case *ResearchResult:
		return v.Content
	case *AnalysisResult:
		return v.Content
	case *ImageResult:
		return v.URL
	case *ChartResult:
		return string(v.Spec)
	case *CodeResult:
		return v.Content
	case *VRSceneResult:
		return v.Content
	case *DocumentResult:
		return v.Content
	default:
		return ""
	}
}

// Encode serializes r as a JSON object carrying a "type" field with its
// content kind, the form handed to renderers and stored in memory.
func Encode(r Result) (json.RawMessage, error) {
	if r == nil {
		return nil, fmt.Errorf("capability: encode nil result")
	}
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("capability: encode %s: %w", r.Kind(), err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("capability: encode %s: %w", r.Kind(), err)
	}
	kind, _ := json.Marshal(string(r.Kind()))
	fields["type"] = kind
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("capability: encode %s: %w", r.Kind(), err)
	}
	return out, nil
}

// Decode parses a stored result of the given content kind.
func Decode(kind memory.ContentKind, raw json.RawMessage) (Result, error) {
	var r Result
	switch kind {
	case memory.KindResearch:
		r = &ResearchResult{}
	case memory.KindAnalysis:
		r = &AnalysisResult{}
	case memory.KindImage:
		r = &ImageResult{}
	case memory.KindChart:
		r = &ChartResult{}
	case memory.KindCode:
		r = &CodeResult{}
	case memory.KindVRScene:
		r = &VRSceneResult{}
	case memory.KindDocument:
		r = &DocumentResult{}
	default:
		return nil, fmt.Errorf("capability: decode: unknown kind %q", kind)
	}
	if err := json.Unmarshal(raw, r); err != nil {
		return nil, fmt.Errorf("capability: decode %s: %w", kind, err)
	}
	return r, nil
}
