// Package render formats replies and generated results for the terminal.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/innovaplus/innova/internal/capability"
	"github.com/innovaplus/innova/internal/turn"
)

// DefaultWidth is the word-wrap width used when Options.Width is zero.
const DefaultWidth = 80

var (
	colorAccent = lipgloss.Color("#C678DD")
	colorMuted  = lipgloss.Color("#636B78")
	colorLink   = lipgloss.Color("#61AFEF")
	colorBorder = lipgloss.Color("#3F4451")
	colorWarn   = lipgloss.Color("#E5C07B")
)

// Options configures a Renderer.
type Options struct {
	Color    bool
	Markdown bool
	Width    int
}

// Renderer turns replies into terminal text.
type Renderer struct {
	opts     Options
	markdown *glamour.TermRenderer

	title  lipgloss.Style
	muted  lipgloss.Style
	link   lipgloss.Style
	warn   lipgloss.Style
	framed lipgloss.Style
}

// New creates a Renderer. Markdown rendering is skipped when glamour cannot
// build a renderer.
func New(opts Options) *Renderer {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	r := &Renderer{opts: opts}
	if opts.Markdown {
		style := glamour.WithStandardStyle("notty")
		if opts.Color {
			style = glamour.WithAutoStyle()
		}
		if tr, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(opts.Width)); err == nil {
			r.markdown = tr
		}
	}

	r.title = lipgloss.NewStyle()
	r.muted = lipgloss.NewStyle()
	r.link = lipgloss.NewStyle()
	r.warn = lipgloss.NewStyle()
	r.framed = lipgloss.NewStyle()
	if opts.Color {
		r.title = r.title.Foreground(colorAccent).Bold(true)
		r.muted = r.muted.Foreground(colorMuted)
		r.link = r.link.Foreground(colorLink).Underline(true)
		r.warn = r.warn.Foreground(colorWarn)
		r.framed = r.framed.Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1)
	}
	return r
}

// Markdown renders text as markdown, or returns it unchanged when markdown
// rendering is off.
func (r *Renderer) Markdown(text string) string {
	if r.markdown == nil {
		return text
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// Highlight applies syntax highlighting to code. Without color it returns
// the code unchanged.
func (r *Renderer) Highlight(code, language string) string {
	if !r.opts.Color {
		return code
	}
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromastyles.Get("monokai")
	if style == nil {
		style = chromastyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// Reply renders a full turn reply: the assistant text followed by every
// generated artifact.
func (r *Renderer) Reply(reply *turn.Reply) string {
	if reply == nil {
		return ""
	}
	var b strings.Builder
	if reply.Failed {
		b.WriteString(r.warn.Render(reply.Text))
	} else {
		b.WriteString(r.Markdown(reply.Text))
	}
	for _, a := range reply.Artifacts {
		b.WriteString("\n\n")
		b.WriteString(r.Result(a.Result))
		if a.EntryID != "" {
			b.WriteString("\n")
			b.WriteString(r.muted.Render(fmt.Sprintf("id: %s", a.EntryID)))
		}
	}
	return b.String()
}

// Result renders one generated result.
func (r *Renderer) Result(res capability.Result) string {
	switch v := res.(type) {
	case *capability.ResearchResult:
		var b strings.Builder
		b.WriteString(r.heading("Research"))
		b.WriteString(r.Markdown(v.Content))
		if len(v.Sources) > 0 {
			b.WriteString("\n\n")
			b.WriteString(r.title.Render(fmt.Sprintf("Sources (%d)", len(v.Sources))))
			for i, s := range v.Sources {
				fmt.Fprintf(&b, "\n  %d. %s", i+1, s.DisplayText)
				if s.URL != "" && s.URL != s.DisplayText {
					b.WriteString(" " + r.link.Render(s.URL))
				}
			}
		}
		return b.String()
	case *capability.AnalysisResult:
		out := r.heading("Analysis") + r.Markdown(v.Content)
		if len(v.ChartData) > 0 {
			out += "\n\n" + r.muted.Render("chart data:") + "\n" + r.Highlight(string(v.ChartData), "json")
		}
		return out
	case *capability.ImageResult:
		out := r.heading("Image") + r.link.Render(v.URL)
		if v.Prompt != "" {
			out += "\n" + r.muted.Render(v.Prompt)
		}
		return out
	case *capability.ChartResult:
		title := "Chart"
		if v.Title != "" {
			title += ": " + v.Title
		}
		return r.heading(title) + r.framed.Render(r.Highlight(string(v.Spec), "json"))
	case *capability.CodeResult:
		title := "Code"
		if v.Title != "" {
			title += ": " + v.Title
		}
		if v.Language != "" {
			title += " (" + v.Language + ")"
		}
		return r.heading(title) + r.framed.Render(r.Highlight(v.Content, v.Language))
	case *capability.VRSceneResult:
		title := "VR scene"
		if v.Title != "" {
			title += ": " + v.Title
		}
		return r.heading(title) + r.framed.Render(r.Highlight(v.Content, "html"))
	case *capability.DocumentResult:
		title := "Document"
		if v.Title != "" {
			title += ": " + v.Title
		}
		return r.heading(title) + r.Markdown(v.Content)
	default:
		return ""
	}
}

func (r *Renderer) heading(text string) string {
	return r.title.Render(text) + "\n"
}
