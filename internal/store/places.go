package store

import (
	"context"
	"fmt"
	"iter"

	"github.com/placepinapp/placepin-server/internal/domain"
)

// GetPlace retrieves a place by ID.
func (s *Store) GetPlace(ctx context.Context, id string) (*domain.Place, error) {
	return s.Places.Get(ctx, id)
}

// GetPlaceIn retrieves a place by ID through an open transaction.
func (s *Store) GetPlaceIn(tx *Tx, id string) (*domain.Place, error) {
	return s.Places.GetIn(tx, id)
}

// CreatePlaceIn stages the creation of a place into an open transaction.
// Places are only ever born inside a transaction that also updates the
// owner's place list; there is deliberately no standalone CreatePlace.
func (s *Store) CreatePlaceIn(tx *Tx, place *domain.Place) error {
	return s.Places.CreateIn(tx, place.ID, place)
}

// UpdatePlace updates an existing place in a single-document write.
// Safe outside the coordinator because it never touches the owner document.
func (s *Store) UpdatePlace(ctx context.Context, place *domain.Place) error {
	place.Touch()
	return s.Places.Update(ctx, place.ID, place)
}

// DeletePlaceIn stages the deletion of a place into an open transaction.
// Returns ErrNotFound if the place does not exist.
func (s *Store) DeletePlaceIn(tx *Tx, id string) error {
	return s.Places.DeleteIn(tx, id)
}

// PlacesByCreator returns a lazy iterator over all places created by the
// given user, via the creator index. Single-use, finite.
func (s *Store) PlacesByCreator(ctx context.Context, creatorID string) iter.Seq2[*domain.Place, error] {
	return s.Places.FindByIndex(ctx, "creator", creatorID)
}

// AllPlaces returns a lazy iterator over every stored place. Used for
// search index rebuilds. Single-use, finite.
func (s *Store) AllPlaces(ctx context.Context) iter.Seq2[*domain.Place, error] {
	return s.Places.List(ctx)
}

// ListPlacesByCreator collects the creator index into a slice, preserving
// index order. Returns an empty slice, not nil, when the user has no places.
func (s *Store) ListPlacesByCreator(ctx context.Context, creatorID string) ([]*domain.Place, error) {
	places := []*domain.Place{}
	for place, err := range s.PlacesByCreator(ctx, creatorID) {
		if err != nil {
			return nil, fmt.Errorf("list places by creator: %w", err)
		}
		places = append(places, place)
	}
	return places, nil
}
