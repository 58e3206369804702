package adapter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const (
	geminiDefaultModel = "gemini-2.0-flash"
	geminiEmbedModel   = "text-embedding-004"
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
)

// geminiAdapter implements LLMAdapter for Google Gemini. Completions go
// through the REST API; embeddings go through the genai SDK.
type geminiAdapter struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client

	// embedBaseURL overrides the genai endpoint when set.
	embedBaseURL string
	embedOnce    sync.Once
	embedClient  *genai.Client
	embedErr     error
}

// NewGemini creates a Gemini adapter. If apiKey is empty, GEMINI_API_KEY is used.
func NewGemini(apiKey, model string) LLMAdapter {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if model == "" {
		model = geminiDefaultModel
	}
	return &geminiAdapter{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		client:  &http.Client{},
	}
}

func (g *geminiAdapter) Info() ModelInfo {
	return ModelInfo{
		Name:               g.model,
		Provider:           ProviderGemini,
		MaxContextWindow:   1000000,
		SupportsStreaming:  true,
		SupportsJSON:       true,
		EmbeddingDimension: 768, // text-embedding-004
	}
}

func (g *geminiAdapter) genaiClient(ctx context.Context) (*genai.Client, error) {
	g.embedOnce.Do(func() {
		cfg := &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		}
		if g.embedBaseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.embedBaseURL}
		}
		g.embedClient, g.embedErr = genai.NewClient(ctx, cfg)
	})
	return g.embedClient, g.embedErr
}

func (g *geminiAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	client, err := g.genaiClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini embed client: %w", err)
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := client.Models.EmbedContent(ctx, geminiEmbedModel, contents,
		&genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

// ---------- Completion types ----------

// geminiGenerateRequest is the request body for the Gemini generateContent API.
type geminiGenerateRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

// geminiGenerateResponse is the response from the Gemini generateContent API.
type geminiGenerateResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// buildGenerateRequest maps a CompletionRequest onto the Gemini wire format.
// Gemini calls the assistant role "model" and takes system text separately.
func buildGenerateRequest(req CompletionRequest) geminiGenerateRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	systemText := req.systemText(false)
	var contents []geminiContent
	for _, m := range req.turns() {
		switch m.Role {
		case RoleSystem:
			systemText = strings.TrimSpace(systemText + "\n\n" + m.Content)
		case RoleAssistant:
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}

	genReq := geminiGenerateRequest{
		Contents: contents,
		GenerationConfig: &geminiGenerationConfig{
			MaxOutputTokens: maxTokens,
			Temperature:     req.Temperature,
		},
	}
	if systemText != "" {
		genReq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemText}}}
	}
	if req.JSON {
		genReq.GenerationConfig.ResponseMimeType = "application/json"
	}
	return genReq
}

func (g *geminiAdapter) Complete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	body, err := json.Marshal(buildGenerateRequest(req))
	if err != nil {
		return nil, fmt.Errorf("gemini complete marshal: %w", err)
	}

	ch := make(chan StreamChunk, 64)

	if !req.Stream {
		url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, model, g.apiKey)

		go func() {
			defer close(ch)
			text, err := g.doGenerate(ctx, url, body)
			if err != nil {
				ch <- StreamChunk{Error: err}
				return
			}
			ch <- StreamChunk{Text: text}
		}()
		return ch, nil
	}

	// Streaming: use streamGenerateContent endpoint with SSE.
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", g.baseURL, model, g.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini stream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	go func() {
		defer close(ch)

		resp, err := g.client.Do(httpReq)
		if err != nil {
			ch <- StreamChunk{Error: fmt.Errorf("gemini stream: %w", err)}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			ch <- StreamChunk{Error: fmt.Errorf("gemini stream: status %d: %s", resp.StatusCode, respBody)}
			return
		}

		// Gemini SSE: each event is "data: {json}\n\n".
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			var genResp geminiGenerateResponse
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &genResp); err != nil {
				ch <- StreamChunk{Error: fmt.Errorf("gemini stream decode: %w", err)}
				return
			}
			if genResp.Error != nil {
				ch <- StreamChunk{Error: fmt.Errorf("gemini api error %d: %s", genResp.Error.Code, genResp.Error.Message)}
				return
			}
			if text := genResp.text(); text != "" {
				ch <- StreamChunk{Text: text}
			}
		}
		if err := scanner.Err(); err != nil {
			ch <- StreamChunk{Error: fmt.Errorf("gemini stream scan: %w", err)}
		}
	}()

	return ch, nil
}

func (r geminiGenerateResponse) text() string {
	var sb strings.Builder
	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// doGenerate makes a non-streaming generateContent call and returns the text.
func (g *geminiAdapter) doGenerate(ctx context.Context, url string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini complete request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini complete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini complete: status %d: %s", resp.StatusCode, respBody)
	}

	var genResp geminiGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("gemini complete decode: %w", err)
	}
	if genResp.Error != nil {
		return "", fmt.Errorf("gemini api error %d: %s", genResp.Error.Code, genResp.Error.Message)
	}
	return genResp.text(), nil
}
