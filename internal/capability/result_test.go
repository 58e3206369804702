package capability

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovaplus/innova/internal/memory"
	"github.com/innovaplus/innova/internal/sources"
)

func TestEncode_AddsType(t *testing.T) {
	raw, err := Encode(&VRSceneResult{Content: "<a-scene></a-scene>", Title: "t"})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "vr-scene", fields["type"])
	assert.Equal(t, "t", fields["title"])
}

func TestEncodeDecode_EveryKind(t *testing.T) {
	results := []Result{
		&ResearchResult{Content: "c", Sources: []sources.Source{{DisplayText: "x", Kind: sources.KindLink}}, SourceCount: 1, Depth: DepthBasic},
		&AnalysisResult{Content: "c", ChartData: json.RawMessage(`{"type":"bar"}`), Complexity: ComplexityModerate},
		&ImageResult{URL: "https://i", Prompt: "p", AspectRatio: "16:9"},
		&ChartResult{Spec: json.RawMessage(`{"type":"pie"}`), Title: "t"},
		&CodeResult{Content: "x", Language: "go", Title: "t"},
		&VRSceneResult{Content: "<a-scene></a-scene>", Title: "t"},
		&DocumentResult{Content: "# d", Title: "t"},
	}
	seen := map[memory.ContentKind]bool{}
	for _, r := range results {
		raw, err := Encode(r)
		require.NoError(t, err)
		back, err := Decode(r.Kind(), raw)
		require.NoError(t, err)
		assert.Equal(t, r.Capability(), back.Capability())
		assert.Equal(t, Text(r), Text(back))
		seen[r.Kind()] = true
	}
	assert.Len(t, seen, len(memory.Capabilities))
}

func TestDecode_UnknownKind(t *testing.T) {
	_, err := Decode("hologram", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestEncode_Nil(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)
}

func TestEmpty(t *testing.T) {
	assert.True(t, Empty(nil))
	assert.True(t, Empty((*CodeResult)(nil)))
	assert.True(t, Empty(&DocumentResult{Content: "  \n"}))
	assert.True(t, Empty(&ImageResult{}))
	assert.True(t, Empty(&ChartResult{Spec: json.RawMessage("null")}))
	assert.False(t, Empty(&ChartResult{Spec: json.RawMessage(`{}`)}))
	assert.False(t, Empty(&ImageResult{URL: "https://x"}))
}

func TestKindMapping(t *testing.T) {
	assert.Equal(t, memory.KindVRScene, (&VRSceneResult{}).Kind())
	assert.Equal(t, memory.CapVR, (&VRSceneResult{}).Capability())
	assert.Equal(t, memory.KindChart, (&ChartResult{}).Kind())
}
