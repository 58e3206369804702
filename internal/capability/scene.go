package capability

import (
	"regexp"
	"strings"

	"github.com/innovaplus/innova/internal/llmtext"
)

var sceneReplacer = strings.NewReplacer(
	"THREE.Geometry", "THREE.BufferGeometry",
	`geometry="primitive: `, `primitive="`,
	`physics="driver: ammo`, `physics="driver: local`,
)

var sceneTagRE = regexp.MustCompile(`(?i)</?a-scene[^>]*>`)

// SanitizeScene rewrites deprecated A-Frame and three.js constructs and drops
// any <a-scene> wrapper so the content can be placed in the scene template.
func SanitizeScene(content string) string {
	out := sceneReplacer.Replace(content)
	out = sceneTagRE.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

const sceneTemplate = `<a-scene physics="driver: local;" renderer="antialias: true" vr-mode-ui="enabled: true">
  <a-assets></a-assets>

  <!-- Environment -->
  <a-entity environment="preset: default; groundColor: #445; grid: cross"></a-entity>

  <!-- Lights -->
  <a-entity light="type: ambient; color: #BBB; intensity: 0.5"></a-entity>
  <a-entity light="type: directional; color: #FFF; intensity: 1" position="-0.5 1 1"></a-entity>

  <!-- Camera -->
  <a-entity position="0 1.6 3">
    <a-entity camera look-controls wasd-controls></a-entity>
  </a-entity>

  <!-- Generated content -->
%s
</a-scene>`

// WrapScene places generated content inside the standard scene with
// environment, lights and camera.
func WrapScene(content string) string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lines[i] = "  " + l
		}
	}
	return strings.Replace(sceneTemplate, "%s", strings.Join(lines, "\n"), 1)
}

var aiPhraseRE = regexp.MustCompile(`(?i)\b(?:as an ai(?: language model)?|i would say|in my analysis|let me explain|i understand|based on my knowledge|i can tell you|from my perspective|como (?:una )?ia|como modelo de lenguaje|en mi opini[oó]n|d[eé]jame explicar)\b[,:]?[ \t]*`)

// CleanDocument strips AI self-reference phrases and template artifacts from
// a generated document.
func CleanDocument(content string) string {
	out := aiPhraseRE.ReplaceAllString(content, "")
	return llmtext.Clean(out)
}
