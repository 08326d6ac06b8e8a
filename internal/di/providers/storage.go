package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/placepinapp/placepin-server/internal/config"
	"github.com/placepinapp/placepin-server/internal/logger"
	"github.com/placepinapp/placepin-server/internal/media/images"
)

// ProvideImageStorage provides the place image storage.
func ProvideImageStorage(i do.Injector) (*images.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	storage, err := images.NewStorage(cfg.Data.BasePath, "images")
	if err != nil {
		return nil, fmt.Errorf("image storage: %w", err)
	}

	log.Info("Image storage initialized")

	return storage, nil
}

// ProvideImageUploader provides the upload pipeline (validation, BlurHash).
func ProvideImageUploader(i do.Injector) (*images.Uploader, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storage := do.MustInvoke[*images.Storage](i)

	return images.NewUploader(storage, cfg.Uploads.MaxBytes, log.Logger), nil
}
