package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/placepinapp/placepin-server/internal/domain"
	"github.com/placepinapp/placepin-server/internal/service"
)

func (s *Server) registerPlaceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createPlace",
		Method:      http.MethodPost,
		Path:        "/api/v1/places",
		Summary:     "Create place",
		Description: "Geocodes the address and creates a place owned by the caller",
		Tags:        []string{"Places"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreatePlace)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchPlaces",
		Method:      http.MethodGet,
		Path:        "/api/v1/places/search",
		Summary:     "Search places",
		Description: "Full-text search over place titles, descriptions, and addresses",
		Tags:        []string{"Places"},
	}, s.handleSearchPlaces)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPlace",
		Method:      http.MethodGet,
		Path:        "/api/v1/places/{id}",
		Summary:     "Get place",
		Description: "Returns a place by ID",
		Tags:        []string{"Places"},
	}, s.handleGetPlace)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePlace",
		Method:      http.MethodPatch,
		Path:        "/api/v1/places/{id}",
		Summary:     "Update place",
		Description: "Updates a place's title and description. Only the creator may edit.",
		Tags:        []string{"Places"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdatePlace)

	huma.Register(s.api, huma.Operation{
		OperationID: "deletePlace",
		Method:      http.MethodDelete,
		Path:        "/api/v1/places/{id}",
		Summary:     "Delete place",
		Description: "Deletes a place and unlinks it from its creator. Only the creator may delete.",
		Tags:        []string{"Places"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeletePlace)
}

// === DTOs ===

// CreatePlaceRequest is the request body for creating a place.
type CreatePlaceRequest struct {
	Title       string `json:"title" validate:"required,max=200" doc:"Place title"`
	Description string `json:"description" validate:"required,min=5,max=2000" doc:"Place description"`
	Address     string `json:"address" validate:"required,max=500" doc:"Postal address, geocoded on create"`
}

// CreatePlaceInput wraps the create place request for Huma.
type CreatePlaceInput struct {
	Authorization string `header:"Authorization"`
	Body          CreatePlaceRequest
}

// UpdatePlaceRequest is the request body for updating a place. Both fields
// are optional; an omitted field keeps its current value. Address and
// coordinates are immutable after create.
type UpdatePlaceRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200" doc:"New title"`
	Description *string `json:"description,omitempty" validate:"omitempty,min=5,max=2000" doc:"New description"`
}

// UpdatePlaceInput wraps the update place request for Huma.
type UpdatePlaceInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Place ID"`
	Body          UpdatePlaceRequest
}

// GetPlaceInput contains parameters for fetching a place.
type GetPlaceInput struct {
	ID string `path:"id" doc:"Place ID"`
}

// DeletePlaceInput contains parameters for deleting a place.
type DeletePlaceInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Place ID"`
}

// SearchPlacesInput contains the search query parameters.
type SearchPlacesInput struct {
	Query string `query:"q" doc:"Search query"`
	Limit int    `query:"limit" default:"25" minimum:"1" maximum:"100" doc:"Maximum results"`
}

// LocationResponse contains geocoded coordinates.
type LocationResponse struct {
	Lat float64 `json:"lat" doc:"Latitude"`
	Lng float64 `json:"lng" doc:"Longitude"`
}

// PlaceResponse contains place data in API responses.
type PlaceResponse struct {
	ID          string           `json:"id" doc:"Place ID"`
	Title       string           `json:"title" doc:"Place title"`
	Slug        string           `json:"slug,omitempty" doc:"URL-safe slug"`
	Description string           `json:"description" doc:"Place description"`
	Address     string           `json:"address" doc:"Postal address"`
	Location    LocationResponse `json:"location" doc:"Geocoded coordinates"`
	Image       string           `json:"image,omitempty" doc:"Image file name"`
	ImageHash   string           `json:"image_hash,omitempty" doc:"BlurHash placeholder"`
	Creator     string           `json:"creator" doc:"Creator user ID"`
	CreatedAt   time.Time        `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt   time.Time        `json:"updated_at" doc:"Last update timestamp"`
}

// PlaceOutput wraps a single place for Huma.
type PlaceOutput struct {
	Body PlaceResponse
}

// ListPlacesResponse contains a list of places.
type ListPlacesResponse struct {
	Places []PlaceResponse `json:"places" doc:"Places"`
}

// ListPlacesOutput wraps the place list for Huma.
type ListPlacesOutput struct {
	Body ListPlacesResponse
}

// === Handlers ===

func (s *Server) handleCreatePlace(ctx context.Context, input *CreatePlaceInput) (*PlaceOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	place, err := s.services.Place.CreatePlace(ctx, service.CreatePlaceRequest{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		Address:     input.Body.Address,
		CreatorID:   userID,
	})
	if err != nil {
		return nil, err
	}

	return &PlaceOutput{Body: mapPlaceResponse(place)}, nil
}

func (s *Server) handleGetPlace(ctx context.Context, input *GetPlaceInput) (*PlaceOutput, error) {
	place, err := s.services.Place.GetPlace(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &PlaceOutput{Body: mapPlaceResponse(place)}, nil
}

func (s *Server) handleUpdatePlace(ctx context.Context, input *UpdatePlaceInput) (*PlaceOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	place, err := s.services.Place.UpdatePlace(ctx, input.ID, userID, service.UpdatePlaceRequest{
		Title:       input.Body.Title,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, err
	}

	return &PlaceOutput{Body: mapPlaceResponse(place)}, nil
}

func (s *Server) handleDeletePlace(ctx context.Context, input *DeletePlaceInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Place.DeletePlace(ctx, input.ID, userID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Place deleted"}}, nil
}

func (s *Server) handleSearchPlaces(ctx context.Context, input *SearchPlacesInput) (*ListPlacesOutput, error) {
	places, err := s.services.Place.SearchPlaces(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, err
	}

	out := make([]PlaceResponse, 0, len(places))
	for _, place := range places {
		out = append(out, mapPlaceResponse(place))
	}

	return &ListPlacesOutput{Body: ListPlacesResponse{Places: out}}, nil
}

// === Helpers ===

func mapPlaceResponse(place *domain.Place) PlaceResponse {
	return PlaceResponse{
		ID:          place.ID,
		Title:       place.Title,
		Slug:        place.Slug,
		Description: place.Description,
		Address:     place.Address,
		Location:    LocationResponse{Lat: place.Location.Lat, Lng: place.Location.Lng},
		Image:       place.Image,
		ImageHash:   place.ImageHash,
		Creator:     place.CreatorID,
		CreatedAt:   place.CreatedAt,
		UpdatedAt:   place.UpdatedAt,
	}
}
