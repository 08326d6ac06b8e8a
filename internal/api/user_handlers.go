package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/placepinapp/placepin-server/internal/domain"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/users",
		Summary:     "List users",
		Description: "Returns all registered users",
		Tags:        []string{"Users"},
	}, s.handleListUsers)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me",
		Summary:     "Get current user",
		Description: "Returns the authenticated user's account",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}",
		Summary:     "Get user",
		Description: "Returns a user by ID",
		Tags:        []string{"Users"},
	}, s.handleGetUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUserPlaces",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/places",
		Summary:     "Get user places",
		Description: "Returns all places created by a user",
		Tags:        []string{"Users"},
	}, s.handleGetUserPlaces)
}

// === DTOs ===

// ListUsersResponse contains a list of users.
type ListUsersResponse struct {
	Users []UserResponse `json:"users" doc:"Registered users"`
}

// ListUsersOutput wraps the user list for Huma.
type ListUsersOutput struct {
	Body ListUsersResponse
}

// GetCurrentUserInput contains parameters for fetching the caller's account.
type GetCurrentUserInput struct {
	Authorization string `header:"Authorization"`
}

// GetUserInput contains parameters for fetching a user.
type GetUserInput struct {
	ID string `path:"id" doc:"User ID"`
}

// UserOutput wraps a single user for Huma.
type UserOutput struct {
	Body UserResponse
}

// GetUserPlacesInput contains parameters for listing a user's places.
type GetUserPlacesInput struct {
	ID string `path:"id" doc:"User ID"`
}

// === Handlers ===

func (s *Server) handleListUsers(ctx context.Context, _ *struct{}) (*ListUsersOutput, error) {
	users, err := s.services.User.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, mapUserResponse(user))
	}

	return &ListUsersOutput{Body: ListUsersResponse{Users: out}}, nil
}

func (s *Server) handleGetCurrentUser(ctx context.Context, _ *GetCurrentUserInput) (*UserOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handleGetUser(ctx context.Context, input *GetUserInput) (*UserOutput, error) {
	user, err := s.services.User.GetUser(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handleGetUserPlaces(ctx context.Context, input *GetUserPlacesInput) (*ListPlacesOutput, error) {
	places, err := s.services.Place.PlacesByUser(ctx, input.ID)
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

// mapUserResponse converts a domain user to its API shape.
// The password hash never crosses this boundary.
func mapUserResponse(user *domain.User) UserResponse {
	places := user.PlaceIDs
	if places == nil {
		places = []string{}
	}
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Image:     user.Image,
		Places:    places,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
