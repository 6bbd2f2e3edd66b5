package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"menulens-server/internal/config"
	"menulens-server/internal/domain/scan"
	"menulens-server/internal/interfaces/httpserver/requests"
	"menulens-server/internal/interfaces/httpserver/responses"
	"menulens-server/internal/utils/platformerrors"
)

// ScanHandler exposes the menu-scan endpoints.
type ScanHandler struct {
	cfg     *config.Config
	service *scan.Service
	log     zerolog.Logger
}

func NewScanHandler(cfg *config.Config, service *scan.Service, log zerolog.Logger) *ScanHandler {
	return &ScanHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "scan-handler").Logger(),
	}
}

// Analyze godoc
// @Summary      Scan a menu photo
// @Description  Accepts a data URL or multipart upload, runs menu analysis and installs a fresh dish collection.
// @Tags         scans
// @Accept       json
// @Produce      json
// @Param        request  body      requests.AnalyzeRequest  true  "Menu image"
// @Success      200      {object}  responses.ScanResponse
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      409      {object}  platformerrors.HTTPErrorResponse
// @Failure      502      {object}  platformerrors.HTTPErrorResponse
// @Router       /v1/scans [post]
func (h *ScanHandler) Analyze(c *gin.Context) {
	image, ok := h.readImage(c)
	if !ok {
		return
	}

	scanID, dishes, err := h.service.Analyze(c.Request.Context(), image)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, responses.BuildScanResponse(scanID, false, dishes))
}

// Current godoc
// @Summary      Current scan session
// @Description  Returns the current dish collection with per-dish generation state.
// @Tags         scans
// @Produce      json
// @Success      200  {object}  responses.ScanResponse
// @Router       /v1/scans/current [get]
func (h *ScanHandler) Current(c *gin.Context) {
	scanID, dishes := h.service.Current()
	c.JSON(http.StatusOK, responses.BuildScanResponse(scanID, h.service.IsAnalyzing(), dishes))
}

// Viewport godoc
// @Summary      Report viewport geometry
// @Description  Feeds one viewport report into the visibility trigger; cards entering view start image generation.
// @Tags         scans
// @Accept       json
// @Produce      json
// @Param        request  body  requests.ViewportReport  true  "Viewport geometry"
// @Success      202  {object}  map[string]string
// @Failure      400  {object}  platformerrors.HTTPErrorResponse
// @Router       /v1/viewport [post]
func (h *ScanHandler) Viewport(c *gin.Context) {
	var req requests.ViewportReport
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}

	h.service.ReportViewport(req.Viewport, req.Cards)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// Reset godoc
// @Summary      Reset the scan session
// @Description  Drops the current dish collection; late generation results are discarded.
// @Tags         scans
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /v1/reset [post]
func (h *ScanHandler) Reset(c *gin.Context) {
	h.service.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (h *ScanHandler) readImage(c *gin.Context) ([]byte, bool) {
	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, _, err := c.Request.FormFile("image")
		if err != nil {
			platformerrors.WriteValidationError(c, "image file is required")
			return nil, false
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, h.cfg.MenuMaxImageBytes+1))
		if err != nil {
			platformerrors.WriteValidationError(c, "failed to read image file")
			return nil, false
		}
		return data, true
	}

	var req requests.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return nil, false
	}
	data, err := req.Image.Bytes()
	if err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return nil, false
	}
	return data, true
}
