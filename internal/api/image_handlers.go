package api

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
)

func (s *Server) registerImageRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "uploadPlaceImage",
		Method:      http.MethodPost,
		Path:        "/api/v1/places/{id}/image",
		Summary:     "Upload place image",
		Description: "Stores an image for a place and computes its BlurHash placeholder. Only the creator may upload.",
		Tags:        []string{"Places"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUploadPlaceImage)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPlaceImage",
		Method:      http.MethodGet,
		Path:        "/api/v1/places/{id}/image",
		Summary:     "Get place image",
		Description: "Redirects to the image file for a place",
		Tags:        []string{"Places"},
	}, s.handleGetPlaceImage)

	// Raw byte serving stays on chi; huma's typed model buys nothing here.
	s.router.Get("/images/{name}", s.handleServeImage)
}

// === DTOs ===

// UploadPlaceImageInput carries the raw image bytes for a place.
type UploadPlaceImageInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Place ID"`
	RawBody       []byte `contentType:"image/jpeg,image/png,image/gif,image/webp"`
}

// PlaceImageResponse describes a stored place image.
type PlaceImageResponse struct {
	Image     string `json:"image" doc:"Image file name, served under /images/"`
	ImageHash string `json:"image_hash" doc:"BlurHash placeholder"`
}

// PlaceImageOutput wraps the image response for Huma.
type PlaceImageOutput struct {
	Body PlaceImageResponse
}

// GetPlaceImageInput contains parameters for fetching a place image.
type GetPlaceImageInput struct {
	ID string `path:"id" doc:"Place ID"`
}

// ImageRedirectOutput redirects to the raw image route.
type ImageRedirectOutput struct {
	Status   int
	Location string `header:"Location"`
}

// StatusCode implements huma's status override.
func (o *ImageRedirectOutput) StatusCode() int {
	return o.Status
}

// === Handlers ===

func (s *Server) handleUploadPlaceImage(ctx context.Context, input *UploadPlaceImageInput) (*PlaceImageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	stored, err := s.uploader.Store(input.ID, input.RawBody)
	if err != nil {
		return nil, err
	}

	place, err := s.services.Place.SetPlaceImage(ctx, input.ID, userID, stored.Name, stored.BlurHash)
	if err != nil {
		// The place rejected the image, drop the orphaned file.
		_ = s.imageStorage.Delete(stored.Name)
		return nil, err
	}

	return &PlaceImageOutput{
		Body: PlaceImageResponse{
			Image:     place.Image,
			ImageHash: place.ImageHash,
		},
	}, nil
}

func (s *Server) handleGetPlaceImage(ctx context.Context, input *GetPlaceImageInput) (*ImageRedirectOutput, error) {
	place, err := s.services.Place.GetPlace(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if place.Image == "" {
		return nil, huma.Error404NotFound("Place has no image")
	}

	return &ImageRedirectOutput{
		Status:   http.StatusTemporaryRedirect,
		Location: "/images/" + place.Image,
	}, nil
}

func (s *Server) handleServeImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != path.Base(name) {
		http.Error(w, "invalid image name", http.StatusBadRequest)
		return
	}

	data, err := s.imageStorage.Get(name)
	if err != nil {
		http.Error(w, "image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", imageContentType(name))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Write(data)
}

func imageContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
