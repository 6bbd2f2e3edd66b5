package handlers

import (
	"github.com/rs/zerolog"

	"menulens-server/internal/config"
	"menulens-server/internal/domain/scan"
)

// Provider wires HTTP handlers.
type Provider struct {
	Scan *ScanHandler
	Dish *DishHandler
}

func NewProvider(cfg *config.Config, service *scan.Service, log zerolog.Logger) *Provider {
	return &Provider{
		Scan: NewScanHandler(cfg, service, log),
		Dish: NewDishHandler(service, log),
	}
}
