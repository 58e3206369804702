package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/innovaplus/innova/internal/capability"
	"github.com/innovaplus/innova/internal/sources"
	"github.com/innovaplus/innova/internal/turn"
)

func plain() *Renderer {
	return New(Options{})
}

func TestPlainPassThrough(t *testing.T) {
	r := plain()
	assert.Equal(t, "**hola**", r.Markdown("**hola**"))
	assert.Equal(t, "x := 1", r.Highlight("x := 1", "go"))
}

func TestHighlightColor(t *testing.T) {
	r := New(Options{Color: true})
	out := r.Highlight("package main\n\nfunc main() {}\n", "go")
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "main")
}

func TestMarkdownRendered(t *testing.T) {
	r := New(Options{Markdown: true, Width: 60})
	in := "# Título\n\nUn párrafo."
	out := r.Markdown(in)
	assert.Contains(t, out, "Título")
	assert.Contains(t, out, "Un párrafo.")
	assert.NotEqual(t, in, out)
}

func TestResultKinds(t *testing.T) {
	r := plain()
	cases := []struct {
		name   string
		result capability.Result
		want   []string
	}{
		{
			name: "research",
			result: &capability.ResearchResult{
				Content: "La capital es París.",
				Sources: []sources.Source{{DisplayText: "Wikipedia", URL: "https://es.wikipedia.org"}},
			},
			want: []string{"Research", "La capital es París.", "Sources (1)", "1. Wikipedia https://es.wikipedia.org"},
		},
		{
			name:   "analysis",
			result: &capability.AnalysisResult{Content: "Ventajas y desventajas", ChartData: json.RawMessage(`{"type":"bar"}`)},
			want:   []string{"Analysis", "Ventajas y desventajas", "chart data:", `{"type":"bar"}`},
		},
		{
			name:   "image",
			result: &capability.ImageResult{URL: "https://images.test/gato", Prompt: "un gato"},
			want:   []string{"Image", "https://images.test/gato", "un gato"},
		},
		{
			name:   "chart",
			result: &capability.ChartResult{Spec: json.RawMessage(`{"type":"pie"}`), Title: "presupuesto"},
			want:   []string{"Chart: presupuesto", `{"type":"pie"}`},
		},
		{
			name:   "code",
			result: &capability.CodeResult{Content: "print(1)", Language: "python", Title: "calc"},
			want:   []string{"Code: calc (python)", "print(1)"},
		},
		{
			name:   "vr",
			result: &capability.VRSceneResult{Content: "<a-scene></a-scene>", Title: "planeta"},
			want:   []string{"VR scene: planeta", "<a-scene></a-scene>"},
		},
		{
			name:   "document",
			result: &capability.DocumentResult{Content: "Informe anual", Title: "informe"},
			want:   []string{"Document: informe", "Informe anual"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := r.Result(tc.result)
			for _, w := range tc.want {
				assert.Contains(t, out, w)
			}
		})
	}
	assert.Empty(t, r.Result(nil))
}

func TestReply(t *testing.T) {
	r := plain()
	reply := &turn.Reply{
		Kind: turn.KindResponse,
		Text: "Aquí está tu código.",
		Artifacts: []turn.Artifact{{
			EntryID: "e1",
			Result:  &capability.CodeResult{Content: "print(1)", Language: "python"},
		}},
	}
	out := r.Reply(reply)
	assert.True(t, strings.HasPrefix(out, "Aquí está tu código."))
	assert.Contains(t, out, "print(1)")
	assert.Contains(t, out, "id: e1")
	assert.Empty(t, r.Reply(nil))
}

func TestFailedReply(t *testing.T) {
	out := plain().Reply(&turn.Reply{Text: "Lo siento", Failed: true})
	assert.Equal(t, "Lo siento", out)
}
