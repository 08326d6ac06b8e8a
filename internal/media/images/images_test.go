package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/placepinapp/placepin-server/internal/errors"
)

// encodeTestPNG produces a small valid PNG with a gradient so blurhash has
// something to chew on.
func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / width), G: uint8(y * 255 / height), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestStorage_SaveGetDelete(t *testing.T) {
	storage, err := NewStorage(t.TempDir(), "places")
	require.NoError(t, err)

	data := []byte("not really an image, storage does not care")
	require.NoError(t, storage.Save("img-1.jpg", data))
	assert.True(t, storage.Exists("img-1.jpg"))

	got, err := storage.Get("img-1.jpg")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	hash, err := storage.Hash("img-1.jpg")
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	require.NoError(t, storage.Delete("img-1.jpg"))
	assert.False(t, storage.Exists("img-1.jpg"))

	// Deleting again is harmless.
	require.NoError(t, storage.Delete("img-1.jpg"))

	_, err = storage.Get("img-1.jpg")
	require.Error(t, err)
}

func TestComputeBlurHash(t *testing.T) {
	hash, err := ComputeBlurHash(encodeTestPNG(t, 200, 150))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	_, err = ComputeBlurHash([]byte("garbage"))
	require.Error(t, err)
}

func TestUploader_Store(t *testing.T) {
	storage, err := NewStorage(t.TempDir(), "places")
	require.NoError(t, err)
	uploader := NewUploader(storage, 0, nil)

	stored, err := uploader.Store("place-abc", encodeTestPNG(t, 100, 100))
	require.NoError(t, err)
	assert.Equal(t, "place-abc.png", stored.Name)
	assert.Equal(t, "png", stored.Format)
	assert.NotEmpty(t, stored.BlurHash)
	assert.True(t, storage.Exists(stored.Name))
}

func TestUploader_RejectsGarbage(t *testing.T) {
	storage, err := NewStorage(t.TempDir(), "places")
	require.NoError(t, err)
	uploader := NewUploader(storage, 0, nil)

	_, err = uploader.Store("place-abc", []byte("definitely not an image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = uploader.Store("place-abc", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestUploader_RejectsOversized(t *testing.T) {
	storage, err := NewStorage(t.TempDir(), "places")
	require.NoError(t, err)
	uploader := NewUploader(storage, 64, nil)

	_, err = uploader.Store("place-abc", encodeTestPNG(t, 100, 100))
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
