package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/placepinapp/placepin-server/internal/config"
	"github.com/placepinapp/placepin-server/internal/geocode"
	"github.com/placepinapp/placepin-server/internal/logger"
)

// GeocoderHandle wraps the cached geocoder with shutdown capability.
type GeocoderHandle struct {
	*geocode.CachedGeocoder
}

// Shutdown implements do.Shutdownable.
func (h *GeocoderHandle) Shutdown() error {
	return h.Close()
}

// ProvideGeocoder provides the Nominatim client behind a SQLite cache.
func ProvideGeocoder(i do.Injector) (*GeocoderHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := geocode.NewClient(cfg.Geocoder.BaseURL, log.Logger)

	cachePath := filepath.Join(cfg.Data.BasePath, "geocode.db")
	cached, err := geocode.NewCachedGeocoder(client, cachePath, cfg.Geocoder.CacheTTL, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Geocoder initialized", "cache", cachePath)

	return &GeocoderHandle{CachedGeocoder: cached}, nil
}
