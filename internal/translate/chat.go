package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"amharic-translator/internal/logger"
	"amharic-translator/internal/types"
)

// segmentSeparator delimits segments inside a single chat completion so
// a batch of independent texts survives the round trip as a batch.
const segmentSeparator = "\n<<<SEG>>>\n"

const chatSystemPrompt = `You are a professional translator. Translate English text to Amharic.

RULES:
1. The input contains one or more text segments separated by the marker <<<SEG>>> on its own line.
2. Translate each segment independently to Amharic.
3. Output the translated segments separated by the SAME marker, in the SAME order.
4. The output must contain exactly as many segments as the input.
5. Do not translate, remove, or alter the <<<SEG>>> markers.
6. Do not add explanations, notes, or labels. Output only the translations.
7. Preserve numbers, proper nouns, URLs, and email addresses as they are.`

// ChatTranslator translates through an OpenAI-compatible chat model,
// for deployments that front the translation model with a chat API.
type ChatTranslator struct {
	model model.BaseChatModel
	name  string
}

// NewChatTranslator builds a translator over the OpenAI-compatible
// endpoint described by the configuration.
func NewChatTranslator(ctx context.Context, cfg *types.Config) (*ChatTranslator, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, types.NewAppError(types.ErrConfig, "OpenAI API key is not configured", nil)
	}

	modelConfig := &openai.ChatModelConfig{
		Model:  cfg.OpenAIModel,
		APIKey: cfg.OpenAIAPIKey,
	}
	if cfg.OpenAIBaseURL != "" {
		modelConfig.BaseURL = cfg.OpenAIBaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, modelConfig)
	if err != nil {
		return nil, types.NewAppError(types.ErrConfig, "failed to create chat model", err)
	}

	return &ChatTranslator{model: chatModel, name: "openai"}, nil
}

// Name identifies the backend in status messages and logs.
func (t *ChatTranslator) Name() string { return t.name }

// Translate joins the batch with the segment separator, runs one chat
// completion, and splits the response back into per-text translations.
func (t *ChatTranslator) Translate(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	joined := strings.Join(texts, segmentSeparator)

	resp, err := t.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(chatSystemPrompt),
		schema.UserMessage(joined),
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrAPICall, "chat completion failed", err)
	}

	out, err := splitSegments(resp.Content, len(texts))
	if err != nil {
		return nil, err
	}

	logger.Debug("chat translation complete",
		logger.Int("segments", len(texts)),
		logger.Int("responseLength", len(resp.Content)))
	return out, nil
}

// splitSegments recovers expected segments from the model output. Extra
// segments are merged into the last one; too few is an error because
// translations can no longer be matched to their source blocks.
func splitSegments(content string, expected int) ([]string, error) {
	parts := strings.Split(content, strings.TrimSpace(segmentSeparator))
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) > expected {
		merged := strings.Join(parts[expected-1:], " ")
		parts = append(parts[:expected-1], merged)
	}
	if len(parts) < expected {
		return nil, types.NewAppErrorWithDetails(types.ErrAPICall,
			"model dropped segment markers",
			fmt.Sprintf("expected %d segments, got %d", expected, len(parts)), nil)
	}
	return parts, nil
}
