// Package openai provides an oracle.Oracle implementation using the OpenAI
// Chat Completions API. It serializes the game state into a single prompt,
// demands a strict JSON reply and validates it at the boundary via
// oracle.ParseDecision.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/guesswho/core"
	"github.com/hupe1980/guesswho/oracle"
	"github.com/openai/openai-go"
)

const systemPrompt = `You are the reasoning engine of a "guess the person" game.
You receive the remaining candidates (with opaque attribute maps), the yes/no/unsure
question history, and the number of questions remaining.

Reply with exactly one JSON object and nothing else:
  {"type":"question","text":"<a single yes/no question>"}
or
  {"type":"guess","candidateId":"<id of one listed candidate>"}

Rules:
- When questions_remaining is 0 you MUST reply with a guess.
- A guess must reference an id from the candidate list verbatim.
- Prefer a guess as soon as one candidate is clearly the best match.`

// Options configure the OpenAI oracle adapter. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Oracle wraps the OpenAI Chat Completions API behind the generic
// oracle.Oracle interface.
type Oracle struct {
	client *openai.Client
	opts   Options
}

// NewOracle creates a new OpenAI oracle using the official client.
func NewOracle(optFns ...func(o *Options)) *Oracle {
	client := openai.NewClient()
	return NewOracleFromClient(&client, optFns...)
}

// NewOracleFromClient creates a new OpenAI oracle from an existing client.
func NewOracleFromClient(client *openai.Client, optFns ...func(o *Options)) *Oracle {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.2,
		MaxCompletionTokens: 512,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Oracle{client: client, opts: opts}
}

// Decide implements oracle.Oracle.
func (o *Oracle) Decide(ctx context.Context, req oracle.Request) (oracle.Decision, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return oracle.Decision{}, fmt.Errorf("%w: marshal request: %v", core.ErrOracleUnavailable, err)
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(string(payload)),
		},
		Model:               o.opts.Model,
		Temperature:         openai.Float(o.opts.Temperature),
		MaxCompletionTokens: openai.Int(o.opts.MaxCompletionTokens),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return oracle.Decision{}, fmt.Errorf("%w: openai api error: %v", core.ErrOracleUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return oracle.Decision{}, fmt.Errorf("%w: no choices returned", core.ErrOracleProtocol)
	}

	return oracle.ParseDecision([]byte(stripFences(resp.Choices[0].Message.Content)))
}

// stripFences removes an optional markdown code fence around the JSON reply.
// Anything beyond that normalization is left to strict parsing.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
