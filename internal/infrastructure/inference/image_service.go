package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"menulens-server/internal/config"
	"menulens-server/internal/domain/dish"
	"menulens-server/internal/utils/httpclients"
	"menulens-server/internal/utils/platformerrors"
)

// ImageService generates dish photos through an OpenAI-compatible images
// endpoint. Every failure is dish-scoped: it never aborts sibling in-flight
// requests for other dishes.
type ImageService struct {
	cfg     *config.Config
	client  *resty.Client
	timeout time.Duration
	log     zerolog.Logger
}

// NewImageService creates the provider client.
func NewImageService(cfg *config.Config, log zerolog.Logger) *ImageService {
	timeout := 120 * time.Second
	if cfg.ImageGenerationTimeout > 0 {
		timeout = cfg.ImageGenerationTimeout
	}
	return &ImageService{
		cfg:     cfg,
		client:  httpclients.NewClient("image-generation"),
		timeout: timeout,
		log:     log.With().Str("component", "image-service").Logger(),
	}
}

// imageRequest is the request format for the image provider.
type imageRequest struct {
	Prompt         string `json:"prompt"`
	Size           string `json:"size,omitempty"`
	N              int    `json:"n,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
	Model          string `json:"model,omitempty"`
}

// imageResponse is the response format from the image provider.
type imageResponse struct {
	Created int64             `json:"created"`
	Data    []imageDataItem   `json:"data"`
	Error   *imageErrorDetail `json:"error,omitempty"`
}

type imageDataItem struct {
	B64JSON       string `json:"b64_json,omitempty"`
	URL           string `json:"url,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type imageErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// Generate requests one photo for a dish. Both inputs are expected non-empty
// by contract; validation belongs to the caller.
func (s *ImageService) Generate(ctx context.Context, subjectName, description string) (dish.ImageRef, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := &imageRequest{
		Prompt:         buildFoodPrompt(subjectName, description),
		Size:           s.cfg.ImageSize,
		N:              1,
		ResponseFormat: s.cfg.ImageResponseFormat,
		Model:          s.cfg.ImageModel,
	}

	resp, err := s.callProvider(callCtx, req)
	if err != nil {
		return dish.ImageRef{}, err
	}

	ref := toImageRef(resp)
	if ref.IsZero() {
		return dish.ImageRef{}, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeGeneration, "image provider returned no usable image payload", nil)
	}
	return ref, nil
}

// callProvider makes the HTTP call to the image provider.
func (s *ImageService) callProvider(ctx context.Context, req *imageRequest) (*imageResponse, error) {
	endpoint := joinProviderEndpoint(s.cfg.ImageProviderBaseURL, "/images/generations")

	s.log.Debug().
		Str("endpoint", endpoint).
		Str("model", req.Model).
		Msg("calling image provider")

	r := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req)
	if s.cfg.ImageProviderAPIKey != "" {
		r.SetHeader("Authorization", "Bearer "+s.cfg.ImageProviderAPIKey)
	}

	resp, err := r.Post(endpoint)
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", endpoint).Msg("image provider call failed")
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeGeneration,
			fmt.Sprintf("image provider call failed: %v", err), nil)
	}

	respBytes := resp.Bytes()
	if resp.StatusCode() >= 400 {
		var errResp imageResponse
		if parseErr := json.Unmarshal(respBytes, &errResp); parseErr == nil && errResp.Error != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
				platformerrors.ErrorTypeGeneration,
				fmt.Sprintf("image provider error: %s", errResp.Error.Message), nil)
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeGeneration,
			fmt.Sprintf("image provider returned status %d", resp.StatusCode()), nil)
	}

	var result imageResponse
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeGeneration, "failed to parse image provider response", err)
	}
	return &result, nil
}

func toImageRef(resp *imageResponse) dish.ImageRef {
	if len(resp.Data) == 0 {
		return dish.ImageRef{}
	}
	item := resp.Data[0]
	ref := dish.ImageRef{URL: item.URL, B64JSON: item.B64JSON}
	if ref.B64JSON != "" {
		ref.MimeType = "image/png"
	}
	return ref
}

func buildFoodPrompt(subjectName, description string) string {
	var b strings.Builder
	b.WriteString("Professional food photography of ")
	b.WriteString(subjectName)
	b.WriteString(", appetizing presentation on a restaurant table, natural lighting, shallow depth of field.")
	if strings.TrimSpace(description) != "" {
		b.WriteString(" The dish contains: ")
		b.WriteString(description)
		b.WriteString(".")
	}
	return b.String()
}

func joinProviderEndpoint(baseURL, path string) string {
	trimmedBase := strings.TrimSuffix(baseURL, "/")
	normalizedPath := "/" + strings.TrimPrefix(path, "/")
	if strings.HasSuffix(trimmedBase, "/v1") {
		return trimmedBase + normalizedPath
	}
	return trimmedBase + "/v1" + normalizedPath
}
