package domain

import "slices"

// User represents a registered account.
//
// PlaceIDs is the denormalized list of places the user owns, in insertion
// order. It is only ever mutated inside the place create/delete transactions;
// nothing else may touch it.
type User struct {
	Timestamps
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	Image        string   `json:"image,omitempty"`
	PlaceIDs     []string `json:"places"`
}

// OwnsPlace returns true if the given place ID is in the user's place list.
func (u *User) OwnsPlace(placeID string) bool {
	return slices.Contains(u.PlaceIDs, placeID)
}

// AddPlace appends a place ID to the user's place list.
// Idempotent: adding an ID that is already present is a no-op, preserving the
// exactly-once invariant.
func (u *User) AddPlace(placeID string) {
	if u.OwnsPlace(placeID) {
		return
	}
	u.PlaceIDs = append(u.PlaceIDs, placeID)
}

// RemovePlace removes a place ID from the user's place list.
// Returns true if the ID was present.
func (u *User) RemovePlace(placeID string) bool {
	i := slices.Index(u.PlaceIDs, placeID)
	if i < 0 {
		return false
	}
	u.PlaceIDs = slices.Delete(u.PlaceIDs, i, i+1)
	return true
}
