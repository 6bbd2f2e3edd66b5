package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"menulens-server/internal/config"
	"menulens-server/internal/domain/dish"
	"menulens-server/internal/utils/platformerrors"
)

// MenuService extracts structured dish records from a menu photo through an
// OpenAI-compatible multimodal chat-completions endpoint. Any transport
// failure, non-success status, or payload that fails the expected shape is
// an analysis error covering the whole scan.
type MenuService struct {
	cfg     *config.Config
	client  *openai.Client
	timeout time.Duration
	log     zerolog.Logger
}

// NewMenuService creates the provider client.
func NewMenuService(cfg *config.Config, log zerolog.Logger) *MenuService {
	clientCfg := openai.DefaultConfig(cfg.MenuProviderAPIKey)
	clientCfg.BaseURL = strings.TrimSuffix(cfg.MenuProviderBaseURL, "/")

	timeout := 90 * time.Second
	if cfg.MenuAnalysisTimeout > 0 {
		timeout = cfg.MenuAnalysisTimeout
	}

	return &MenuService{
		cfg:     cfg,
		client:  openai.NewClientWithConfig(clientCfg),
		timeout: timeout,
		log:     log.With().Str("component", "menu-service").Logger(),
	}
}

// menuPayload is the JSON shape the extraction prompt demands.
type menuPayload struct {
	Dishes []dish.RawDishRecord `json:"dishes"`
}

// Parse sends the captured image and returns the dish records in menu
// order. No dedup or sort is applied.
func (s *MenuService) Parse(ctx context.Context, image []byte) ([]dish.RawDishRecord, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	mime := mimetype.Detect(image).String()
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := s.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       s.cfg.MenuModel,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: menuExtractionPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	})
	if err != nil {
		s.log.Error().Err(err).Msg("menu analysis request failed")
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeAnalysis, "menu analysis request failed", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeAnalysis, "menu analysis returned an empty response", nil)
	}

	records, err := decodeMenuPayload(resp.Choices[0].Message.Content)
	if err != nil {
		s.log.Error().Err(err).Msg("menu analysis payload rejected")
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeAnalysis, "menu analysis payload rejected", err)
	}
	return records, nil
}

// decodeMenuPayload parses the model output and enforces presence of the
// required fields on every record. One bad record fails the whole scan; the
// caller shows a retryable failure rather than a partial menu.
func decodeMenuPayload(content string) ([]dish.RawDishRecord, error) {
	var payload menuPayload
	if err := json.Unmarshal([]byte(extractJSON(content)), &payload); err != nil {
		return nil, fmt.Errorf("response is not the expected JSON shape: %w", err)
	}

	for i, rec := range payload.Dishes {
		if strings.TrimSpace(rec.OriginalName) == "" {
			return nil, fmt.Errorf("dish %d is missing original_name", i)
		}
		if strings.TrimSpace(rec.EnglishTranslation) == "" {
			return nil, fmt.Errorf("dish %d is missing english_translation", i)
		}
		if strings.TrimSpace(rec.IngredientsOrDescription) == "" {
			return nil, fmt.Errorf("dish %d is missing ingredients_or_description", i)
		}
	}
	return payload.Dishes, nil
}

// extractJSON strips markdown code fences some models wrap around JSON-only
// answers.
func extractJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
