package adapter

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Image provider names.
const (
	ImageProviderPollinations = "pollinations"
	ImageProviderOpenAI       = "openai"
)

// DefaultAspectRatio is used when a request carries no aspect ratio.
const DefaultAspectRatio = "16:9"

// ImageRequest describes one image to generate.
type ImageRequest struct {
	Prompt      string
	AspectRatio string
}

// Image is a generated image reference.
type Image struct {
	URL string
}

// ImageGenerator produces an image URL from a text prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, req ImageRequest) (Image, error)
}

// NewImageGenerator constructs the ImageGenerator for the named provider.
func NewImageGenerator(provider, apiKey string) (ImageGenerator, error) {
	switch provider {
	case "", ImageProviderPollinations:
		return NewPollinations(), nil
	case ImageProviderOpenAI:
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return &openaiImages{client: openai.NewClient(apiKey)}, nil
	default:
		return nil, fmt.Errorf("adapter: unknown image provider %q; valid providers: pollinations, openai", provider)
	}
}

// imageSize maps an aspect ratio onto pixel dimensions.
func imageSize(aspect string) (int, int) {
	switch aspect {
	case "16:9":
		return 1344, 768
	case "9:16":
		return 768, 1344
	case "4:3":
		return 1152, 864
	case "3:4":
		return 864, 1152
	default:
		return 1024, 1024
	}
}

// Pollinations builds pollinations.ai URLs; the image is rendered on first fetch.
type Pollinations struct {
	BaseURL string
	Seed    func() int
}

// NewPollinations returns a Pollinations generator with a random seed per image.
func NewPollinations() *Pollinations {
	return &Pollinations{
		BaseURL: "https://pollinations.ai/p/",
		Seed:    func() int { return rand.IntN(1000) },
	}
}

func (p *Pollinations) Generate(_ context.Context, req ImageRequest) (Image, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return Image{}, errors.New("pollinations: empty prompt")
	}
	w, h := imageSize(req.AspectRatio)
	q := url.Values{}
	q.Set("width", fmt.Sprint(w))
	q.Set("height", fmt.Sprint(h))
	q.Set("seed", fmt.Sprint(p.Seed()))
	return Image{URL: p.BaseURL + url.PathEscape(prompt) + "?" + q.Encode()}, nil
}

// openaiImages generates images with DALL-E 3.
type openaiImages struct {
	client *openai.Client
}

func (o *openaiImages) Generate(ctx context.Context, req ImageRequest) (Image, error) {
	size := openai.CreateImageSize1024x1024
	switch req.AspectRatio {
	case "16:9", "4:3":
		size = openai.CreateImageSize1792x1024
	case "9:16", "3:4":
		size = openai.CreateImageSize1024x1792
	}
	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          openai.CreateImageModelDallE3,
		Size:           size,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return Image{}, fmt.Errorf("openai image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return Image{}, errors.New("openai image: empty response")
	}
	return Image{URL: resp.Data[0].URL}, nil
}
