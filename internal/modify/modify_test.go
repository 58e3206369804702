package modify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovaplus/innova/internal/capability"
	"github.com/innovaplus/innova/internal/memory"
	"github.com/innovaplus/innova/internal/testutil"
)

func entries(n int) []memory.ContentEntry {
	out := make([]memory.ContentEntry, n)
	for i := range out {
		out[i] = memory.ContentEntry{
			ID:             fmt.Sprintf("e%d", i+1),
			Kind:           memory.KindCode,
			OriginalPrompt: fmt.Sprintf("prompt %d", i+1),
		}
	}
	return out
}

func TestDetect_NoRecentContentSkipsModel(t *testing.T) {
	llm := testutil.NewLLM(`{"isModification":true,"targetContentId":"e1"}`)
	_, ok := NewDetector(llm, nil).Detect(context.Background(), "cambia el código", nil)
	assert.False(t, ok)
	assert.Zero(t, llm.CallCount())
}

func TestDetect_Modification(t *testing.T) {
	llm := testutil.NewLLM(`{"isModification":true,"targetContentId":"e2","targetType":"image",` +
		`"specificChange":"add dark mode","modificationReason":"easier on the eyes","newRequirements":"dark palette"}`)

	in, ok := NewDetector(llm, nil).Detect(context.Background(), "make the code use dark mode", entries(2))
	require.True(t, ok)
	assert.Equal(t, "e2", in.TargetID)
	assert.Equal(t, memory.KindCode, in.TargetKind)
	assert.Equal(t, "add dark mode", in.SpecificChange)
	assert.Equal(t, "easier on the eyes", in.Reason)
	assert.Equal(t, "dark palette", in.NewRequirements)

	req := llm.Calls()[0]
	assert.True(t, req.JSON)
	assert.Contains(t, req.SystemPrompt, `- code: "prompt 2" (ID: e2)`)
	assert.Contains(t, req.SystemPrompt, `USER MESSAGE: "make the code use dark mode"`)
}

func TestDetect_OnlyRecentWindow(t *testing.T) {
	llm := testutil.NewLLM(`{"isModification":true,"targetContentId":"e1"}`)
	_, ok := NewDetector(llm, nil).Detect(context.Background(), "fix the first one", entries(7))

	assert.False(t, ok, "e1 is outside the recent window")
	prompt := llm.Calls()[0].SystemPrompt
	assert.NotContains(t, prompt, "(ID: e2)")
	assert.Contains(t, prompt, "(ID: e3)")
	assert.Contains(t, prompt, "(ID: e7)")
}

func TestDetect_Negative(t *testing.T) {
	tests := map[string]*testutil.LLM{
		"not a modification": testutil.NewLLM(`{"isModification":false}`),
		"malformed":          testutil.NewLLM("yes, they want changes"),
		"wrong shape":        testutil.NewLLM(`{"isModification":"maybe"}`),
		"unknown target":     testutil.NewLLM(`{"isModification":true,"targetContentId":"zzz"}`),
		"service error":      testutil.Failing(errors.New("timeout")),
	}
	for name, llm := range tests {
		t.Run(name, func(t *testing.T) {
			_, ok := NewDetector(llm, nil).Detect(context.Background(), "change it", entries(3))
			assert.False(t, ok)
		})
	}
}

func TestDetect_NilLLM(t *testing.T) {
	_, ok := NewDetector(nil, nil).Detect(context.Background(), "change it", entries(1))
	assert.False(t, ok)
}

func recordResult(t *testing.T, store *memory.Store, r capability.Result, prompt string, metadata map[string]any) string {
	t.Helper()
	raw, err := capability.Encode(r)
	require.NoError(t, err)
	return store.RecordContent(r.Kind(), prompt, raw, metadata)
}

func TestFulfill_CodeChaining(t *testing.T) {
	store := memory.NewStore(nil, nil)
	targetID := recordResult(t, store,
		&capability.CodeResult{Content: "print(1)", Language: "python", Title: "script"},
		"script", map[string]any{memory.MetaProcessingTime: 1.5})

	llm := testutil.NewLLM("Sure:\n```python\nprint(2)\n```")
	f := NewFulfiller(llm, nil, store, Options{})

	out, err := f.Fulfill(context.Background(),
		Intent{TargetID: targetID, SpecificChange: "print 2", Reason: "wants two"},
		"cambia el código para imprimir 2")
	require.NoError(t, err)

	code, ok := out.Result.(*capability.CodeResult)
	require.True(t, ok)
	assert.Equal(t, "print(2)", code.Content)
	assert.Equal(t, "python", code.Language)
	assert.Equal(t, "Modified: script", code.Title)
	assert.Equal(t, targetID, out.TargetID)
	assert.Equal(t, "script", out.OriginalPrompt)
	assert.Equal(t, "print 2", out.SpecificChange)

	history := store.ContentHistory()
	require.Len(t, history, 2)

	original := history[0]
	assert.Equal(t, targetID, original.ID)
	assert.Equal(t, "script", original.OriginalPrompt)
	require.Len(t, original.ModificationHistory, 1)
	assert.Equal(t, "print 2", original.ModificationHistory[0].SpecificChange)

	derived := history[1]
	assert.Equal(t, out.EntryID, derived.ID)
	assert.Equal(t, "Modified: script", derived.OriginalPrompt)
	assert.Equal(t, memory.KindCode, derived.Kind)
	assert.Equal(t, true, derived.Metadata[memory.MetaIsModification])
	assert.Equal(t, targetID, derived.Metadata[memory.MetaOriginalID])
	assert.Equal(t, "wants two", derived.Metadata[memory.MetaModificationReason])
	assert.Equal(t, 1.5, derived.Metadata[memory.MetaProcessingTime])
	assert.True(t, derived.IsModification())

	snap := store.Snapshot()
	require.Len(t, snap.ModificationLog, 1)
	assert.Equal(t, targetID, snap.ModificationLog[0].OriginalID)
	assert.Equal(t, targetID, store.ActiveTarget())

	prompt := llm.Calls()[0].SystemPrompt
	assert.Contains(t, prompt, "print(1)")
	assert.Contains(t, prompt, `SPECIFIC CHANGE NEEDED: "print 2"`)
	assert.Contains(t, prompt, "(python)")
}

func TestFulfill_ChainedPromptNotDoubled(t *testing.T) {
	store := memory.NewStore(nil, nil)
	first := recordResult(t, store, &capability.DocumentResult{Content: "v1", Title: "informe"}, "informe", nil)
	f := NewFulfiller(testutil.NewLLM("v2", "v3"), nil, store, Options{})

	out, err := f.Fulfill(context.Background(), Intent{TargetID: first, SpecificChange: "shorter"}, "hazlo más corto")
	require.NoError(t, err)
	out, err = f.Fulfill(context.Background(), Intent{TargetID: out.EntryID, SpecificChange: "formal"}, "más formal")
	require.NoError(t, err)

	entry, ok := store.FindEntry(out.EntryID)
	require.True(t, ok)
	assert.Equal(t, "Modified: informe", entry.OriginalPrompt)
	assert.Equal(t, "v3", capability.Text(out.Result))
}

func TestFulfill_Image(t *testing.T) {
	store := memory.NewStore(nil, nil)
	targetID := recordResult(t, store,
		&capability.ImageResult{URL: "https://images.test/old", Prompt: "un gato", AspectRatio: "1:1"}, "un gato", nil)
	images := &testutil.Images{}
	handlers := capability.NewHandlers(nil, images, capability.Options{})

	out, err := NewFulfiller(nil, handlers, store, Options{}).Fulfill(context.Background(),
		Intent{TargetID: targetID, SpecificChange: "con sombrero"}, "pero con sombrero")
	require.NoError(t, err)

	require.Len(t, images.Requests(), 1)
	assert.Equal(t, "un gato, but con sombrero", images.Requests()[0].Prompt)
	assert.Equal(t, "1:1", images.Requests()[0].AspectRatio)
	assert.Equal(t, "https://images.test/un%20gato%2C%20but%20con%20sombrero", out.Result.(*capability.ImageResult).URL)
}

func TestFulfill_VRScene(t *testing.T) {
	store := memory.NewStore(nil, nil)
	targetID := recordResult(t, store, &capability.VRSceneResult{Content: "<a-scene></a-scene>", Title: "un planeta"}, "un planeta", nil)
	llm := testutil.NewLLM(`<a-sphere radius="2"></a-sphere>`)
	handlers := capability.NewHandlers(llm, nil, capability.Options{})

	out, err := NewFulfiller(llm, handlers, store, Options{}).Fulfill(context.Background(),
		Intent{TargetID: targetID, SpecificChange: "con anillos"}, "ponle anillos")
	require.NoError(t, err)

	assert.Equal(t, "un planeta, but con anillos", llm.Calls()[0].UserMessage)
	assert.Contains(t, capability.Text(out.Result), `<a-sphere radius="2"></a-sphere>`)
}

func TestFulfill_ResearchReextractsSources(t *testing.T) {
	store := memory.NewStore(nil, nil)
	targetID := recordResult(t, store, &capability.ResearchResult{Content: "old", Depth: capability.DepthBasic}, "energía solar", nil)
	llm := testutil.NewLLM("Updated. See [NREL](https://www.nrel.gov/solar) and [IEA](https://www.iea.org).")

	out, err := NewFulfiller(llm, nil, store, Options{Language: "en"}).Fulfill(context.Background(),
		Intent{TargetID: targetID, SpecificChange: "add 2025 data"}, "add 2025 data")
	require.NoError(t, err)

	research := out.Result.(*capability.ResearchResult)
	assert.Equal(t, 2, research.SourceCount)
	assert.Len(t, research.Sources, 2)
	assert.Contains(t, llm.Calls()[0].SystemPrompt, "Respond in English only.")
}

func TestFulfill_AnalysisKeepsChartData(t *testing.T) {
	store := memory.NewStore(nil, nil)
	targetID := recordResult(t, store,
		&capability.AnalysisResult{Content: "old", ChartData: []byte(`{"type":"bar"}`), Complexity: capability.ComplexityModerate},
		"ventas", nil)

	out, err := NewFulfiller(testutil.NewLLM("new analysis"), nil, store, Options{}).Fulfill(context.Background(),
		Intent{TargetID: targetID, SpecificChange: "focus on Q4"}, "enfócate en Q4")
	require.NoError(t, err)

	analysis := out.Result.(*capability.AnalysisResult)
	assert.Equal(t, "new analysis", analysis.Content)
	assert.JSONEq(t, `{"type":"bar"}`, string(analysis.ChartData))
}

func TestFulfill_Chart(t *testing.T) {
	store := memory.NewStore(nil, nil)
	targetID := recordResult(t, store, &capability.ChartResult{Spec: []byte(`{"type":"bar"}`), Title: "ventas"}, "ventas", nil)
	llm := testutil.NewLLM(`{"type":"line"}`)

	out, err := NewFulfiller(llm, nil, store, Options{}).Fulfill(context.Background(),
		Intent{TargetID: targetID, SpecificChange: "line chart"}, "mejor en líneas")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"line"}`, capability.Text(out.Result))
	assert.True(t, llm.Calls()[0].JSON)
}

func TestFulfill_TargetMissing(t *testing.T) {
	store := memory.NewStore(nil, nil)
	_, err := NewFulfiller(testutil.NewLLM(), nil, store, Options{}).Fulfill(context.Background(),
		Intent{TargetID: "nope"}, "change it")
	assert.ErrorIs(t, err, memory.ErrNotFound)
	assert.Empty(t, store.Snapshot().ModificationLog)
}

func TestFulfill_GenerationFailureLeavesTarget(t *testing.T) {
	store := memory.NewStore(nil, nil)
	targetID := recordResult(t, store, &capability.DocumentResult{Content: "v1", Title: "t"}, "t", nil)

	_, err := NewFulfiller(testutil.Failing(errors.New("quota")), nil, store, Options{}).Fulfill(context.Background(),
		Intent{TargetID: targetID, SpecificChange: "x"}, "change it")
	require.Error(t, err)

	history := store.ContentHistory()
	require.Len(t, history, 1)
	assert.Empty(t, history[0].ModificationHistory)
	assert.Len(t, store.Snapshot().ModificationLog, 1, "the request is logged before generation")
}

func TestFulfill_ImageWithoutHandlers(t *testing.T) {
	store := memory.NewStore(nil, nil)
	targetID := recordResult(t, store, &capability.ImageResult{URL: "https://x", Prompt: "p"}, "p", nil)
	_, err := NewFulfiller(nil, nil, store, Options{}).Fulfill(context.Background(), Intent{TargetID: targetID}, "change")
	assert.ErrorIs(t, err, capability.ErrDisabled)
}

func TestDerivedPrompt(t *testing.T) {
	assert.Equal(t, "Modified: x", DerivedPrompt("x"))
	assert.Equal(t, "Modified: x", DerivedPrompt("Modified: Modified: x"))
	assert.Equal(t, "x", BasePrompt("Modified: x"))
}
