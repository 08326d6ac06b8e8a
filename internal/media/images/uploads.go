package images

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"

	domainerrors "github.com/placepinapp/placepin-server/internal/errors"
)

// Uploader validates and stores user-uploaded images.
type Uploader struct {
	storage  *Storage
	maxBytes int
	logger   *slog.Logger
}

// StoredImage describes a stored upload.
type StoredImage struct {
	Name     string // Filename within the storage directory
	BlurHash string // Placeholder hash for clients
	Format   string // jpeg, png, gif, webp
}

// NewUploader creates an uploader writing into the given storage.
// maxBytes caps the accepted upload size; zero means 5 MiB.
func NewUploader(storage *Storage, maxBytes int, logger *slog.Logger) *Uploader {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &Uploader{
		storage:  storage,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Store validates the upload and persists it under the given base name.
// The stored filename is baseName plus the sniffed format's extension.
// Rejects anything that is not a decodable jpeg, png, gif, or webp.
func (u *Uploader) Store(baseName string, imgData []byte) (*StoredImage, error) {
	if len(imgData) == 0 {
		return nil, domainerrors.Validation("image data is empty")
	}
	if len(imgData) > u.maxBytes {
		return nil, domainerrors.Validationf("image exceeds maximum size of %d bytes", u.maxBytes)
	}

	// DecodeConfig sniffs the format without decoding full pixel data.
	_, format, err := image.DecodeConfig(bytes.NewReader(imgData))
	if err != nil {
		return nil, domainerrors.Validation("unsupported or corrupt image").WithCause(err)
	}

	hash, err := ComputeBlurHash(imgData)
	if err != nil {
		return nil, fmt.Errorf("compute blurhash: %w", err)
	}

	name := baseName + "." + extensionFor(format)
	if err := u.storage.Save(name, imgData); err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	if u.logger != nil {
		u.logger.Debug("stored uploaded image",
			"name", name,
			"format", format,
			"size", len(imgData),
		)
	}

	return &StoredImage{
		Name:     name,
		BlurHash: hash,
		Format:   format,
	}, nil
}

func extensionFor(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
