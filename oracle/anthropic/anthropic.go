// Package anthropic provides an oracle.Oracle implementation using the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/guesswho/core"
	"github.com/hupe1980/guesswho/oracle"
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

// Options configures the Anthropic oracle adapter (model id, temperature,
// max tokens, API key).
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Oracle wraps the Anthropic Messages API behind the generic oracle.Oracle
// interface.
type Oracle struct {
	client *anthropic.Client
	opts   Options
}

// NewOracle creates a new Anthropic oracle using the official client.
func NewOracle(optFns ...func(o *Options)) *Oracle {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.2,
		MaxTokens:   512,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Oracle{client: &client, opts: opts}
}

// NewOracleFromClient creates a new Anthropic oracle from an existing client.
func NewOracleFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Oracle {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.2,
		MaxTokens:   512,
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

	params := anthropic.MessageNewParams{
		Model:       o.opts.Model,
		MaxTokens:   o.opts.MaxTokens,
		Temperature: anthropic.Float(o.opts.Temperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(string(payload))),
		},
	}

	resp, err := o.client.Messages.New(ctx, params)
	if err != nil {
		return oracle.Decision{}, fmt.Errorf("%w: anthropic api error: %v", core.ErrOracleUnavailable, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	if text.Len() == 0 {
		return oracle.Decision{}, fmt.Errorf("%w: empty reply", core.ErrOracleProtocol)
	}

	return oracle.ParseDecision([]byte(stripFences(text.String())))
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
