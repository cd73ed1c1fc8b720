// Package openai provides a vision.Analyzer implementation using the OpenAI
// Chat Completions API with image input. The image is passed inline as a
// base64 data URL; the model is asked for a strict JSON candidate list which
// is validated at the boundary.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/guesswho/core"
	"github.com/openai/openai-go"
)

const systemPrompt = `You analyze a photo for a "guess the person" game.
Identify every distinct person in the image and describe each with observable
attributes (hair color, glasses, beard, clothing, position in frame, ...).

Reply with exactly one JSON array and nothing else:
  [{"candidateId":"p1","attributes":{"hair":"dark","glasses":true}}, ...]

Rules:
- candidateId values must be unique and stable within the reply.
- List candidates in left-to-right order of appearance.
- An empty array means no person is recognizable.`

// Options configure the OpenAI analyzer adapter.
type Options struct {
	Model               string
	MaxCompletionTokens int64
	// MIMEType of submitted images, used for the data URL.
	MIMEType string
}

// Analyzer wraps the OpenAI Chat Completions API behind the generic
// vision.Analyzer interface.
type Analyzer struct {
	client *openai.Client
	opts   Options
}

// NewAnalyzer creates a new OpenAI analyzer using the official client.
func NewAnalyzer(optFns ...func(o *Options)) *Analyzer {
	client := openai.NewClient()
	return NewAnalyzerFromClient(&client, optFns...)
}

// NewAnalyzerFromClient creates a new OpenAI analyzer from an existing client.
func NewAnalyzerFromClient(client *openai.Client, optFns ...func(o *Options)) *Analyzer {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		MaxCompletionTokens: 1024,
		MIMEType:            "image/jpeg",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Analyzer{client: client, opts: opts}
}

// wireCandidate is the JSON shape the model must produce per candidate.
type wireCandidate struct {
	CandidateID string         `json:"candidateId"`
	Attributes  map[string]any `json:"attributes"`
}

// Analyze implements vision.Analyzer.
func (a *Analyzer) Analyze(ctx context.Context, image []byte) ([]core.Candidate, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", a.opts.MIMEType, base64.StdEncoding.EncodeToString(image))

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
							openai.TextContentPart("Identify the people in this photo."),
							openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
						},
					},
				},
			},
		},
		Model:               a.opts.Model,
		MaxCompletionTokens: openai.Int(a.opts.MaxCompletionTokens),
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: openai api error: %v", core.ErrAnalyzerUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", core.ErrAnalyzerUnavailable)
	}

	var wire []wireCandidate
	if err := json.Unmarshal([]byte(stripFences(resp.Choices[0].Message.Content)), &wire); err != nil {
		return nil, fmt.Errorf("%w: unparseable candidate list: %v", core.ErrAnalyzerUnavailable, err)
	}
	if len(wire) == 0 {
		return nil, core.ErrNoFacesDetected
	}

	seen := make(map[string]bool, len(wire))
	candidates := make([]core.Candidate, 0, len(wire))
	for _, wc := range wire {
		if wc.CandidateID == "" || seen[wc.CandidateID] {
			return nil, fmt.Errorf("%w: missing or duplicate candidateId", core.ErrAnalyzerUnavailable)
		}
		seen[wc.CandidateID] = true
		candidates = append(candidates, core.Candidate{ID: wc.CandidateID, Attributes: wc.Attributes})
	}
	return candidates, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
