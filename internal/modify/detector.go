// Package modify recognizes follow-up edits to generated content and produces
// the revised artifacts.
package modify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/innovaplus/innova/internal/adapter"
	"github.com/innovaplus/innova/internal/llmtext"
	"github.com/innovaplus/innova/internal/memory"
)

// Intent describes a requested revision of one content entry.
type Intent struct {
	TargetID        string             `json:"targetContentId"`
	TargetKind      memory.ContentKind `json:"targetType"`
	SpecificChange  string             `json:"specificChange"`
	Reason          string             `json:"modificationReason"`
	NewRequirements string             `json:"newRequirements,omitempty"`
}

type detection struct {
	IsModification bool `json:"isModification"`
	Intent
}

// Detector asks the completion service whether a message edits recent content.
type Detector struct {
	llm    adapter.Completer
	logger *zap.Logger
}

// NewDetector creates a Detector. A nil llm never detects anything.
func NewDetector(llm adapter.Completer, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{llm: llm, logger: logger}
}

// Detect returns the modification intent of message against the last
// memory.RecentContentWindow entries of recent. It reports false without a
// model call when there is no recent content, and false whenever the answer
// is unusable or names an entry outside recent.
func (d *Detector) Detect(ctx context.Context, message string, recent []memory.ContentEntry) (Intent, bool) {
	if len(recent) > memory.RecentContentWindow {
		recent = recent[len(recent)-memory.RecentContentWindow:]
	}
	if len(recent) == 0 || d.llm == nil || strings.TrimSpace(message) == "" {
		return Intent{}, false
	}

	raw, err := adapter.Collect(ctx, d.llm, adapter.CompletionRequest{
		SystemPrompt: detectionPrompt(message, recent),
		UserMessage:  message,
		JSON:         true,
		Temperature:  0.1,
	})
	if err != nil {
		d.logger.Warn("modification detection unavailable", zap.Error(err))
		return Intent{}, false
	}

	var det detection
	if err := llmtext.DecodeObject(raw, &det); err != nil {
		d.logger.Debug("modification detection unparseable", zap.Error(err))
		return Intent{}, false
	}
	if !det.IsModification {
		return Intent{}, false
	}

	for _, e := range recent {
		if e.ID == strings.TrimSpace(det.TargetID) {
			in := det.Intent
			in.TargetID = e.ID
			in.TargetKind = e.Kind
			return in, true
		}
	}
	d.logger.Debug("modification target not in recent content", zap.String("target", det.TargetID))
	return Intent{}, false
}

func detectionPrompt(message string, recent []memory.ContentEntry) string {
	var sb strings.Builder
	sb.WriteString("Analyze if this user message is requesting a modification to recently generated content.\n\n")
	sb.WriteString("RECENT GENERATED CONTENT:\n")
	for _, e := range recent {
		fmt.Fprintf(&sb, "- %s: %q (ID: %s)\n", e.Kind, e.OriginalPrompt, e.ID)
	}
	sb.WriteString(`
MODIFICATION INDICATORS:
- Change verbs: "cambia", "modifica", "ajusta", "corrige", "change", "modify", "adjust", "fix", "update"
- References to earlier output: "el código", "la imagen", "el documento", "the code", "the image", "the document"
- Contrastive connectives: "pero", "sin embargo", "en vez de", "instead", "rather", "but"
- Explicit requests: "hazlo más", "quiero que", "make it more", "I want it to"

`)
	fmt.Fprintf(&sb, "USER MESSAGE: %q\n\n", message)
	sb.WriteString(`If this is a modification request, respond with JSON:
{
  "isModification": true,
  "targetContentId": "ID of the content to modify",
  "targetType": "type of content",
  "specificChange": "what specifically to change",
  "modificationReason": "why the change is needed",
  "newRequirements": "new requirements or specifications"
}

If it is a new request, respond with:
{"isModification": false}`)
	return sb.String()
}
