package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"menulens-server/internal/domain/dish"
	"menulens-server/internal/domain/scan"
	"menulens-server/internal/interfaces/httpserver/responses"
	"menulens-server/internal/utils/platformerrors"
)

// DishHandler exposes the per-dish endpoints.
type DishHandler struct {
	service *scan.Service
	log     zerolog.Logger
}

func NewDishHandler(service *scan.Service, log zerolog.Logger) *DishHandler {
	return &DishHandler{
		service: service,
		log:     log.With().Str("component", "dish-handler").Logger(),
	}
}

// Get godoc
// @Summary      Fetch one dish
// @Tags         dishes
// @Produce      json
// @Param        id   path      string  true  "Dish ID"
// @Success      200  {object}  responses.DishResponse
// @Failure      404  {object}  platformerrors.HTTPErrorResponse
// @Router       /v1/dishes/{id} [get]
func (h *DishHandler) Get(c *gin.Context) {
	d, ok := h.service.Dish(c.Param("id"))
	if !ok {
		platformerrors.WriteNotFound(c, "dish not found")
		return
	}
	c.JSON(http.StatusOK, responses.BuildDishResponse(d))
}

// Visible godoc
// @Summary      Mark a dish card as visible
// @Description  Client-side observer path. Starts image generation if the dish has not been requested yet.
// @Tags         dishes
// @Produce      json
// @Param        id   path      string  true  "Dish ID"
// @Success      202  {object}  responses.DishResponse
// @Failure      404  {object}  platformerrors.HTTPErrorResponse
// @Router       /v1/dishes/{id}/visible [post]
func (h *DishHandler) Visible(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.service.Dish(id); !ok {
		platformerrors.WriteNotFound(c, "dish not found")
		return
	}

	h.service.DishVisible(c.Request.Context(), id)

	d, ok := h.service.Dish(id)
	if !ok {
		platformerrors.WriteNotFound(c, "dish not found")
		return
	}
	c.JSON(http.StatusAccepted, responses.BuildDishResponse(d))
}

// Retry godoc
// @Summary      Retry a failed image generation
// @Description  Only dishes in the failed state are re-queued; any other state is left untouched.
// @Tags         dishes
// @Produce      json
// @Param        id   path      string  true  "Dish ID"
// @Success      202  {object}  responses.DishResponse
// @Failure      404  {object}  platformerrors.HTTPErrorResponse
// @Router       /v1/dishes/{id}/retry [post]
func (h *DishHandler) Retry(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.service.Dish(id); !ok {
		platformerrors.WriteNotFound(c, "dish not found")
		return
	}

	h.service.RetryDish(c.Request.Context(), id)

	d, ok := h.service.Dish(id)
	if !ok {
		platformerrors.WriteNotFound(c, "dish not found")
		return
	}
	c.JSON(http.StatusAccepted, responses.BuildDishResponse(d))
}

// Image godoc
// @Summary      Fetch the generated dish image
// @Description  Redirects to the stored image when a URL is available, otherwise streams inline image bytes.
// @Tags         dishes
// @Produce      png
// @Param        id   path  string  true  "Dish ID"
// @Success      200
// @Success      302
// @Failure      404  {object}  platformerrors.HTTPErrorResponse
// @Router       /v1/dishes/{id}/image [get]
func (h *DishHandler) Image(c *gin.Context) {
	d, ok := h.service.Dish(c.Param("id"))
	if !ok {
		platformerrors.WriteNotFound(c, "dish not found")
		return
	}
	if d.GenerationState != dish.StateSucceeded || d.ImageRef == nil || d.ImageRef.IsZero() {
		platformerrors.WriteNotFound(c, "dish image not available")
		return
	}

	if d.ImageRef.URL != "" {
		c.Redirect(http.StatusFound, d.ImageRef.URL)
		return
	}

	data, err := base64.StdEncoding.DecodeString(d.ImageRef.B64JSON)
	if err != nil {
		h.log.Error().Err(err).Str("dish_id", d.ID).Msg("corrupt inline image payload")
		platformerrors.WriteNotFound(c, "dish image not available")
		return
	}

	mime := d.ImageRef.MimeType
	if mime == "" {
		mime = "image/png"
	}
	c.Data(http.StatusOK, mime, data)
}
