package v1

import (
	"github.com/gin-gonic/gin"

	"menulens-server/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")

	group.POST("/scans", r.handlers.Scan.Analyze)
	group.GET("/scans/current", r.handlers.Scan.Current)
	group.POST("/viewport", r.handlers.Scan.Viewport)
	group.POST("/reset", r.handlers.Scan.Reset)

	group.GET("/dishes/:id", r.handlers.Dish.Get)
	group.POST("/dishes/:id/visible", r.handlers.Dish.Visible)
	group.POST("/dishes/:id/retry", r.handlers.Dish.Retry)
	group.GET("/dishes/:id/image", r.handlers.Dish.Image)
}
