package turn

import (
	"fmt"
	"strings"

	"github.com/innovaplus/innova/internal/memory"
)

// messages holds the user-facing text of one reply language.
type messages struct {
	capabilityNames map[memory.Capability]string
	actionPlan      string // capabilities, reason
	memoryNote      string // capabilities
	coherenceNote   string // total usage count
	modifying       string // change, kind, reason
	modifyFailed    string
	turnFailed      string
}

var catalog = map[string]messages{
	"es": {
		capabilityNames: map[memory.Capability]string{
			memory.CapResearch: "investigación",
			memory.CapAnalysis: "análisis",
			memory.CapImage:    "generación de imagen",
			memory.CapChart:    "gráficos",
			memory.CapCode:     "generación de código",
			memory.CapVR:       "realidad virtual",
			memory.CapDocument: "documentos",
		},
		actionPlan:    "**🎯 Plan de acción:** Voy a usar %s para responder mejor a tu consulta.\n**💭 Razón:** %s\n\n",
		memoryNote:    "\n\n**🧠 Memoria:** Recordando que anteriormente usé %s para consultas similares.",
		coherenceNote: "\n\n*Tengo acceso completo a generación de imágenes, código, VR, documentos, investigación y análisis profundo. Recordando %d funciones usadas en esta sesión.*",
		modifying:     "🔄 **Modificando contenido anterior**: %s\n\n**Contenido original**: %s\n**Cambio solicitado**: %s",
		modifyFailed:  "No pude modificar el contenido solicitado. ¿Podrías ser más específico sobre qué quieres cambiar?",
		turnFailed:    "Lo siento, ha ocurrido un error. Por favor, inténtalo de nuevo.",
	},
	"en": {
		capabilityNames: map[memory.Capability]string{
			memory.CapResearch: "research",
			memory.CapAnalysis: "analysis",
			memory.CapImage:    "image generation",
			memory.CapChart:    "charts",
			memory.CapCode:     "code generation",
			memory.CapVR:       "VR",
			memory.CapDocument: "documents",
		},
		actionPlan:    "**🎯 Action plan:** I will use %s to better answer your query.\n**💭 Reason:** %s\n\n",
		memoryNote:    "\n\n**🧠 Memory:** Remembering that I previously used %s for similar queries.",
		coherenceNote: "\n\n*I have full access to image generation, coding, VR, documents, research and deep analysis. Remembering %d functions used this session.*",
		modifying:     "🔄 **Modifying previous content**: %s\n\n**Original content**: %s\n**Requested change**: %s",
		modifyFailed:  "I couldn't modify the requested content. Could you be more specific about what you want to change?",
		turnFailed:    "Sorry, an error occurred. Please try again.",
	},
}

// messagesFor returns the catalog of language, English when unknown.
func messagesFor(language string) messages {
	if m, ok := catalog[strings.ToLower(language)]; ok {
		return m
	}
	return catalog["en"]
}

func (m messages) names(caps []memory.Capability) string {
	out := make([]string, len(caps))
	for i, c := range caps {
		if n, ok := m.capabilityNames[c]; ok {
			out[i] = n
		} else {
			out[i] = string(c)
		}
	}
	return strings.Join(out, ", ")
}

// ActionPlan announces the capabilities about to run. Empty when none will.
func (m messages) ActionPlan(caps []memory.Capability, reason string) string {
	if len(caps) == 0 {
		return ""
	}
	return fmt.Sprintf(m.actionPlan, m.names(caps), reason)
}

// MemoryNote names capabilities with related past results. Empty when none.
func (m messages) MemoryNote(s memory.Summary) string {
	var related []memory.Capability
	for _, c := range memory.Capabilities {
		if s.HasRelated(c) {
			related = append(related, c)
		}
	}
	if len(related) == 0 {
		return ""
	}
	return fmt.Sprintf(m.memoryNote, m.names(related))
}

func (m messages) CoherenceNote(total int) string {
	return fmt.Sprintf(m.coherenceNote, total)
}

func (m messages) Modifying(change string, kind memory.ContentKind, reason string) string {
	return fmt.Sprintf(m.modifying, change, kind, reason)
}
