package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
	logx "github.com/hotelpassarim/concierge/pkg/logger"
)

// Scorer is the language-model intent scoring capability. It compiles its
// graph once and applies a per-call timeout; callers treat every error as a
// signal to fall back to the rule-based result.
type Scorer struct {
	runner  compose.Runnable[map[string]any, scorerLLMOutput]
	timeout time.Duration
	log     zerolog.Logger
}

type scorerLLMOutput struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Sentiment  float64 `json:"sentiment"`
}

var _ contractx.IntentScorer = (*Scorer)(nil)

func NewScorer(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string, timeout time.Duration) (*Scorer, error) {
	runner, err := compileScorerGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile scorer graph: %v", contractx.ErrModelInvoke, err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Scorer{runner: runner, timeout: timeout, log: logx.Component("scorer")}, nil
}

func (s *Scorer) Score(ctx context.Context, text string, language string) (contractx.IntentScore, error) {
	if strings.TrimSpace(text) == "" {
		return contractx.IntentScore{}, fmt.Errorf("%w: message text is required", contractx.ErrValidation)
	}

	payload := map[string]any{
		"message":  text,
		"language": language,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.IntentScore{}, fmt.Errorf("%w: marshal scorer payload: %v", contractx.ErrValidation, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return contractx.IntentScore{}, fmt.Errorf("%w: scorer invoke: %v", contractx.ErrModelTimeout, err)
		}
		return contractx.IntentScore{}, fmt.Errorf("%w: scorer invoke: %v", contractx.ErrModelInvoke, err)
	}

	intent := contractx.Intent(strings.TrimSpace(strings.ToLower(out.Intent)))
	if !knownIntent(intent) {
		return contractx.IntentScore{}, fmt.Errorf("%w: unknown intent %q", contractx.ErrSchemaViolation, out.Intent)
	}

	s.log.Debug().
		Str("intent", string(intent)).
		Float64("confidence", out.Confidence).
		Msg("scored message")

	return contractx.IntentScore{
		Intent:     intent,
		Confidence: clamp(out.Confidence, 0, 1),
		Sentiment:  clamp(out.Sentiment, -1, 1),
	}, nil
}

func knownIntent(in contractx.Intent) bool {
	switch in {
	case contractx.IntentComplaint, contractx.IntentBookingConfirm, contractx.IntentPriceInquiry,
		contractx.IntentAvailability, contractx.IntentServiceRequest, contractx.IntentInfoRequest,
		contractx.IntentGreeting, contractx.IntentUnknown:
		return true
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func compileScorerGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[map[string]any, scorerLLMOutput], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	parser := schema.NewMessageJSONParser[scorerLLMOutput](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, scorerLLMOutput]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add scorer prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add scorer model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add scorer parser node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add scorer edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add scorer edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add scorer edge model->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add scorer edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("nlu.scorer_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile scorer graph: %w", err)
	}
	return runner, nil
}
