package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/placepinapp/placepin-server/internal/domain"
	domainerrors "github.com/placepinapp/placepin-server/internal/errors"
	"github.com/placepinapp/placepin-server/internal/id"
	"github.com/placepinapp/placepin-server/internal/store"
	"github.com/placepinapp/placepin-server/internal/util"
)

// Geocoder resolves a postal address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Location, error)
}

// PlaceIndexer maintains the full-text search index for places.
// PlaceService tolerates a nil indexer so search can be disabled.
type PlaceIndexer interface {
	Index(place *domain.Place) error
	Remove(placeID string) error
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// PlaceService owns the place lifecycle. Creates and deletes touch both the
// place document and its creator's place list, so they run inside a store
// transaction; content updates touch the place document alone.
type PlaceService struct {
	store    *store.Store
	geocoder Geocoder
	search   PlaceIndexer
	logger   *slog.Logger
}

// NewPlaceService creates a new place service. The indexer may be nil.
func NewPlaceService(store *store.Store, geocoder Geocoder, search PlaceIndexer, logger *slog.Logger) *PlaceService {
	return &PlaceService{
		store:    store,
		geocoder: geocoder,
		search:   search,
		logger:   logger,
	}
}

// CreatePlaceRequest carries the caller-supplied fields for a new place.
// Coordinates are never accepted from the client; they come from the geocoder.
type CreatePlaceRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,min=5,max=2000"`
	Address     string `json:"address" validate:"required,max=500"`
	CreatorID   string `json:"creator" validate:"required"`
}

// UpdatePlaceRequest carries the mutable fields of a place. Address and
// coordinates are fixed at creation time. Nil fields are left unchanged, so
// a caller may update the title or the description alone.
type UpdatePlaceRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,min=5,max=2000"`
}

// CreatePlace geocodes the address, then inserts the place and appends its ID
// to the creator's place list in one transaction. Either both documents change
// or neither does.
func (s *PlaceService) CreatePlace(ctx context.Context, req CreatePlaceRequest) (*domain.Place, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	// Fail fast on a bad creator before paying for geocoding.
	if _, err := s.store.GetUser(ctx, req.CreatorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.ReferenceNotFoundf("creator %s does not exist", req.CreatorID)
		}
		return nil, fmt.Errorf("check creator: %w", err)
	}

	location, err := s.geocoder.Geocode(ctx, req.Address)
	if err != nil {
		var derr *domainerrors.Error
		if errors.As(err, &derr) {
			return nil, err
		}
		return nil, domainerrors.GeocodeFailed("could not resolve address to coordinates").WithCause(err)
	}

	placeID, err := id.Generate("place")
	if err != nil {
		return nil, fmt.Errorf("generate place ID: %w", err)
	}

	place := &domain.Place{
		Title:       req.Title,
		Slug:        util.Slugify(req.Title),
		Description: req.Description,
		Address:     req.Address,
		Location:    location,
		CreatorID:   req.CreatorID,
	}
	place.ID = placeID
	place.InitTimestamps()

	err = s.store.WithTxn(ctx, func(tx *store.Tx) error {
		// Re-read the creator inside the transaction so a concurrent change
		// to the same user surfaces as a conflict instead of a lost update.
		user, err := s.store.GetUserIn(tx, req.CreatorID)
		if err != nil {
			return err
		}
		if err := s.store.CreatePlaceIn(tx, place); err != nil {
			return err
		}
		user.AddPlace(placeID)
		user.Touch()
		return s.store.UpdateUserIn(tx, user)
	})
	if errors.Is(err, store.ErrTxnTimeout) {
		// The commit cannot be interrupted once started; it may land shortly
		// after its deadline. Re-read before reporting a failure that in fact
		// applied.
		if s.commitLanded(func() bool {
			_, getErr := s.store.GetPlace(ctx, placeID)
			return getErr == nil
		}) {
			err = nil
		}
	}
	if err != nil {
		return nil, s.translateTxnError(err, "create place", req.CreatorID)
	}

	s.indexPlace(place)

	if s.logger != nil {
		s.logger.Info("place created",
			"place_id", placeID,
			"creator_id", req.CreatorID,
			"title", req.Title,
		)
	}

	return place, nil
}

// UpdatePlace changes a place's title and/or description. Only the creator
// may update a place. This is a single-document write and needs no
// transaction.
func (s *PlaceService) UpdatePlace(ctx context.Context, placeID, callerID string, req UpdatePlaceRequest) (*domain.Place, error) {
	if req.Title == nil && req.Description == nil {
		return nil, domainerrors.Validation("nothing to update: provide a title or a description")
	}
	// The validator skips empty strings behind a pointer, so catch those here.
	if req.Title != nil && *req.Title == "" {
		return nil, domainerrors.Validation("title must not be empty")
	}
	if req.Description != nil && *req.Description == "" {
		return nil, domainerrors.Validation("description must not be empty")
	}
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	place, err := s.store.GetPlace(ctx, placeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("place %s not found", placeID)
		}
		return nil, fmt.Errorf("get place: %w", err)
	}

	if place.CreatorID != callerID {
		return nil, domainerrors.Forbidden("only the creator may edit this place")
	}

	if req.Title != nil {
		place.Title = *req.Title
		place.Slug = util.Slugify(*req.Title)
	}
	if req.Description != nil {
		place.Description = *req.Description
	}
	place.Touch()

	if err := s.store.UpdatePlace(ctx, place); err != nil {
		return nil, fmt.Errorf("update place: %w", err)
	}

	s.indexPlace(place)

	return place, nil
}

// SetPlaceImage records the stored image path and its blurhash placeholder.
func (s *PlaceService) SetPlaceImage(ctx context.Context, placeID, callerID, imagePath, imageHash string) (*domain.Place, error) {
	place, err := s.store.GetPlace(ctx, placeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("place %s not found", placeID)
		}
		return nil, fmt.Errorf("get place: %w", err)
	}

	if place.CreatorID != callerID {
		return nil, domainerrors.Forbidden("only the creator may edit this place")
	}

	place.Image = imagePath
	place.ImageHash = imageHash
	place.Touch()

	if err := s.store.UpdatePlace(ctx, place); err != nil {
		return nil, fmt.Errorf("update place: %w", err)
	}

	return place, nil
}

// DeletePlace removes the place and its ID from the creator's place list in
// one transaction. Deleting a place that does not exist is an error; the
// caller asked to remove something specific.
func (s *PlaceService) DeletePlace(ctx context.Context, placeID, callerID string) error {
	place, err := s.store.GetPlace(ctx, placeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFoundf("place %s not found", placeID)
		}
		return fmt.Errorf("get place: %w", err)
	}

	if place.CreatorID != callerID {
		return domainerrors.Forbidden("only the creator may delete this place")
	}

	err = s.store.WithTxn(ctx, func(tx *store.Tx) error {
		user, err := s.store.GetUserIn(tx, place.CreatorID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// The place points at a user that is gone. Refuse to delete
				// blind; this is corruption worth surfacing, not papering over.
				return domainerrors.ReferenceNotFoundf("creator %s of place %s does not exist", place.CreatorID, placeID)
			}
			return err
		}
		if err := s.store.DeletePlaceIn(tx, placeID); err != nil {
			return err
		}
		user.RemovePlace(placeID)
		user.Touch()
		return s.store.UpdateUserIn(tx, user)
	})
	if errors.Is(err, store.ErrTxnTimeout) {
		if s.commitLanded(func() bool {
			_, getErr := s.store.GetPlace(ctx, placeID)
			return errors.Is(getErr, store.ErrNotFound)
		}) {
			err = nil
		}
	}
	if err != nil {
		return s.translateTxnError(err, "delete place", place.CreatorID)
	}

	if s.search != nil {
		if err := s.search.Remove(placeID); err != nil && s.logger != nil {
			s.logger.Warn("failed to remove place from search index",
				"place_id", placeID,
				"error", err,
			)
		}
	}

	if s.logger != nil {
		s.logger.Info("place deleted",
			"place_id", placeID,
			"creator_id", place.CreatorID,
		)
	}

	return nil
}

// GetPlace retrieves a single place by ID. The creator link is verified on
// every read: a place whose creator is gone, or whose creator no longer lists
// it, is corrupt and is reported, never returned as if healthy.
func (s *PlaceService) GetPlace(ctx context.Context, placeID string) (*domain.Place, error) {
	place, err := s.store.GetPlace(ctx, placeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("place %s not found", placeID)
		}
		return nil, fmt.Errorf("get place: %w", err)
	}
	if err := s.verifyCreatorLink(ctx, place); err != nil {
		return nil, err
	}
	return place, nil
}

// PlacesByUser returns every place created by the given user, empty slice
// included. An unknown user is an error; a user with no places is not. A
// place the user's own list does not carry is corrupt and is reported.
func (s *PlaceService) PlacesByUser(ctx context.Context, userID string) ([]*domain.Place, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("user %s not found", userID)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	places, err := s.store.ListPlacesByCreator(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	for _, place := range places {
		if !user.OwnsPlace(place.ID) {
			return nil, domainerrors.ReferenceNotFoundf("place %s is missing from the place list of its creator %s", place.ID, userID)
		}
	}
	return places, nil
}

// verifyCreatorLink checks both directions of the place/creator relationship.
func (s *PlaceService) verifyCreatorLink(ctx context.Context, place *domain.Place) error {
	creator, err := s.store.GetUser(ctx, place.CreatorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.ReferenceNotFoundf("creator %s of place %s does not exist", place.CreatorID, place.ID)
		}
		return fmt.Errorf("get creator: %w", err)
	}
	if !creator.OwnsPlace(place.ID) {
		return domainerrors.ReferenceNotFoundf("place %s is missing from the place list of its creator %s", place.ID, place.CreatorID)
	}
	return nil
}

// SearchPlaces runs a full-text query over place titles, descriptions, and
// addresses. Index hits that point at places deleted since the last index
// update are silently skipped.
func (s *PlaceService) SearchPlaces(ctx context.Context, query string, limit int) ([]*domain.Place, error) {
	if s.search == nil {
		return nil, domainerrors.StoreUnavailable("search is not enabled on this server")
	}
	if query == "" {
		return nil, domainerrors.Validation("query must not be empty")
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	ids, err := s.search.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search places: %w", err)
	}

	places := make([]*domain.Place, 0, len(ids))
	for _, placeID := range ids {
		place, err := s.store.GetPlace(ctx, placeID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get place %s: %w", placeID, err)
		}
		places = append(places, place)
	}
	return places, nil
}

// translateTxnError maps store transaction failures onto domain errors. A
// conflict that survived all retries means the same user's place list was
// under sustained contention.
func (s *PlaceService) translateTxnError(err error, op, userID string) error {
	var derr *domainerrors.Error
	switch {
	case errors.As(err, &derr):
		return err
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.ReferenceNotFoundf("creator %s does not exist", userID)
	case errors.Is(err, store.ErrTxnConflict):
		return domainerrors.TransactionFailed(op + " lost a write conflict after retries").WithCause(err)
	case errors.Is(err, store.ErrTxnTimeout):
		return domainerrors.TransactionFailed(op + " timed out waiting for commit").WithCause(err)
	case errors.Is(err, store.ErrUnavailable):
		return domainerrors.StoreUnavailable("store is not accepting writes").WithCause(err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

const (
	commitRecheckWindow   = 500 * time.Millisecond
	commitRecheckInterval = 10 * time.Millisecond
)

// commitLanded polls briefly after a commit timeout. The underlying commit
// cannot be interrupted and may apply its writes shortly after the deadline;
// applied must report whether the transaction's effects are visible.
func (s *PlaceService) commitLanded(applied func() bool) bool {
	deadline := time.Now().Add(commitRecheckWindow)
	for {
		if applied() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(commitRecheckInterval)
	}
}

func (s *PlaceService) indexPlace(place *domain.Place) {
	if s.search == nil {
		return
	}
	if err := s.search.Index(place); err != nil && s.logger != nil {
		s.logger.Warn("failed to index place",
			"place_id", place.ID,
			"error", err,
		)
	}
}
