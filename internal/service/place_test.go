package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placepinapp/placepin-server/internal/domain"
	domainerrors "github.com/placepinapp/placepin-server/internal/errors"
	"github.com/placepinapp/placepin-server/internal/id"
	"github.com/placepinapp/placepin-server/internal/store"
)

// stubGeocoder returns a fixed location for any address, or a canned error.
type stubGeocoder struct {
	location domain.Location
	err      error
}

func (g *stubGeocoder) Geocode(_ context.Context, _ string) (domain.Location, error) {
	if g.err != nil {
		return domain.Location{}, g.err
	}
	return g.location, nil
}

// memIndexer records index operations and answers substring queries.
type memIndexer struct {
	mu     sync.Mutex
	places map[string]*domain.Place
}

func newMemIndexer() *memIndexer {
	return &memIndexer{places: make(map[string]*domain.Place)}
}

func (m *memIndexer) Index(place *domain.Place) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *place
	m.places[place.ID] = &copied
	return nil
}

func (m *memIndexer) Remove(placeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.places, placeID)
	return nil
}

func (m *memIndexer) Search(_ context.Context, query string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	query = strings.ToLower(query)
	var ids []string
	for placeID, place := range m.places {
		if len(ids) >= limit {
			break
		}
		text := strings.ToLower(place.Title + " " + place.Description + " " + place.Address)
		if strings.Contains(text, query) {
			ids = append(ids, placeID)
		}
	}
	return ids, nil
}

// setupPlaceTest creates a place service backed by a temporary store.
func setupPlaceTest(t *testing.T) (*PlaceService, *store.Store, *memIndexer) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "placepin-place-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	s, err := store.New(filepath.Join(tmpDir, "data"), nil, store.DefaultTxnOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	indexer := newMemIndexer()
	geocoder := &stubGeocoder{location: domain.Location{Lat: 40.7484474, Lng: -73.9871516}}
	svc := NewPlaceService(s, geocoder, indexer, slog.New(slog.DiscardHandler))

	return svc, s, indexer
}

func strPtr(s string) *string { return &s }

// createCorruptPlace writes a place record directly, bypassing the service,
// so tests can manufacture a broken creator link.
func createCorruptPlace(t *testing.T, s *store.Store, creatorID string) *domain.Place {
	t.Helper()

	place := &domain.Place{
		Title:       "Detached Spot",
		Slug:        "detached-spot",
		Description: "A place nobody admits to creating",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   creatorID,
	}
	place.ID = id.MustGenerate("place")
	place.InitTimestamps()

	require.NoError(t, s.WithTxn(context.Background(), func(tx *store.Tx) error {
		return s.CreatePlaceIn(tx, place)
	}))
	return place
}

// createTestUser persists a user with no places.
func createTestUser(t *testing.T, s *store.Store, email string) *domain.User {
	t.Helper()

	userID, err := id.Generate("user")
	require.NoError(t, err)

	user := &domain.User{
		Name:     "Test User",
		Email:    email,
		PlaceIDs: []string{},
	}
	user.ID = userID
	user.InitTimestamps()

	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

func TestCreatePlace_Success(t *testing.T) {
	svc, s, indexer := setupPlaceTest(t)
	ctx := context.Background()
	user := createTestUser(t, s, "creator@example.com")

	place, err := svc.CreatePlace(ctx, CreatePlaceRequest{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world!",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   user.ID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, place.ID)
	assert.Equal(t, user.ID, place.CreatorID)
	assert.InDelta(t, 40.7484474, place.Location.Lat, 1e-9)
	assert.InDelta(t, -73.9871516, place.Location.Lng, 1e-9)

	// Both sides of the relationship landed.
	stored, err := s.GetPlace(ctx, place.ID)
	require.NoError(t, err)
	assert.Equal(t, place.Title, stored.Title)

	creator, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, creator.PlaceIDs, place.ID)

	// And the place is searchable.
	hits, err := svc.SearchPlaces(ctx, "empire", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, place.ID, hits[0].ID)

	indexer.mu.Lock()
	_, indexed := indexer.places[place.ID]
	indexer.mu.Unlock()
	assert.True(t, indexed)
}

func TestCreatePlace_UnknownCreator(t *testing.T) {
	svc, _, _ := setupPlaceTest(t)

	_, err := svc.CreatePlace(context.Background(), CreatePlaceRequest{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world!",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   "user-missing",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrReferenceNotFound)
}

func TestCreatePlace_ValidationRejectsShortDescription(t *testing.T) {
	svc, s, _ := setupPlaceTest(t)
	user := createTestUser(t, s, "creator@example.com")

	_, err := svc.CreatePlace(context.Background(), CreatePlaceRequest{
		Title:       "Empire State Building",
		Description: "tiny",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   user.ID,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCreatePlace_GeocodeFailure(t *testing.T) {
	svc, s, _ := setupPlaceTest(t)
	user := createTestUser(t, s, "creator@example.com")
	svc.geocoder = &stubGeocoder{err: errors.New("upstream said no")}

	_, err := svc.CreatePlace(context.Background(), CreatePlaceRequest{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world!",
		Address:     "nowhere at all",
		CreatorID:   user.ID,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrGeocodeFailed)

	// The failed create left nothing behind.
	stored, err := s.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PlaceIDs)
}

func TestUpdatePlace_OnlyCreatorMayEdit(t *testing.T) {
	svc, s, _ := setupPlaceTest(t)
	ctx := context.Background()
	creator := createTestUser(t, s, "creator@example.com")
	other := createTestUser(t, s, "other@example.com")

	place, err := svc.CreatePlace(ctx, CreatePlaceRequest{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world!",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   creator.ID,
	})
	require.NoError(t, err)

	_, err = svc.UpdatePlace(ctx, place.ID, other.ID, UpdatePlaceRequest{
		Title:       strPtr("Renamed"),
		Description: strPtr("A perfectly fine description"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	updated, err := svc.UpdatePlace(ctx, place.ID, creator.ID, UpdatePlaceRequest{
		Title:       strPtr("Renamed"),
		Description: strPtr("A perfectly fine description"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	// Address and coordinates are immutable through update.
	assert.Equal(t, place.Address, updated.Address)
	assert.Equal(t, place.Location, updated.Location)
}

func TestUpdatePlace_NotFound(t *testing.T) {
	svc, s, _ := setupPlaceTest(t)
	user := createTestUser(t, s, "creator@example.com")

	_, err := svc.UpdatePlace(context.Background(), "place-missing", user.ID, UpdatePlaceRequest{
		Title:       strPtr("Whatever"),
		Description: strPtr("A perfectly fine description"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestUpdatePlace_SingleField(t *testing.T) {
	svc, s, _ := setupPlaceTest(t)
	ctx := context.Background()
	user := createTestUser(t, s, "creator@example.com")

	place, err := svc.CreatePlace(ctx, CreatePlaceRequest{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world!",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   user.ID,
	})
	require.NoError(t, err)

	// Title alone: description stays, slug follows the new title.
	updated, err := svc.UpdatePlace(ctx, place.ID, user.ID, UpdatePlaceRequest{
		Title: strPtr("Empire State"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Empire State", updated.Title)
	assert.Equal(t, "empire-state", updated.Slug)
	assert.Equal(t, place.Description, updated.Description)

	// Description alone: title and slug stay.
	updated, err = svc.UpdatePlace(ctx, place.ID, user.ID, UpdatePlaceRequest{
		Description: strPtr("Still one of the most famous sights around."),
	})
	require.NoError(t, err)
	assert.Equal(t, "Empire State", updated.Title)
	assert.Equal(t, "empire-state", updated.Slug)
	assert.Equal(t, "Still one of the most famous sights around.", updated.Description)
}

func TestUpdatePlace_RejectsEmptyUpdate(t *testing.T) {
	svc, s, _ := setupPlaceTest(t)
	ctx := context.Background()
	user := createTestUser(t, s, "creator@example.com")

	place, err := svc.CreatePlace(ctx, CreatePlaceRequest{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world!",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   user.ID,
	})
	require.NoError(t, err)

	_, err = svc.UpdatePlace(ctx, place.ID, user.ID, UpdatePlaceRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.UpdatePlace(ctx, place.ID, user.ID, UpdatePlaceRequest{Title: strPtr("")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.UpdatePlace(ctx, place.ID, user.ID, UpdatePlaceRequest{Description: strPtr("")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestDeletePlace_RemovesBothSides(t *testing.T) {
	svc, s, indexer := setupPlaceTest(t)
	ctx := context.Background()
	user := createTestUser(t, s, "creator@example.com")

	place, err := svc.CreatePlace(ctx, CreatePlaceRequest{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world!",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   user.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePlace(ctx, place.ID, user.ID))

	_, err = s.GetPlace(ctx, place.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	stored, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.NotContains(t, stored.PlaceIDs, place.ID)

	indexer.mu.Lock()
	_, indexed := indexer.places[place.ID]
	indexer.mu.Unlock()
	assert.False(t, indexed)
}

func TestDeletePlace_MissingPlace(t *testing.T) {
	svc, s, _ := setupPlaceTest(t)
	user := createTestUser(t, s, "creator@example.com")

	err := svc.DeletePlace(context.Background(), "place-missing", user.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestDeletePlace_OnlyCreatorMayDelete(t *testing.T) {
	svc, s, _ := setupPlaceTest(t)
	ctx := context.Background()
	creator := createTestUser(t, s, "creator@example.com")
	other := createTestUser(t, s, "other@example.com")

	place, err := svc.CreatePlace(ctx, CreatePlaceRequest{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world!",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   creator.ID,
	})
	require.NoError(t, err)

	err = svc.DeletePlace(ctx, place.ID, other.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	// Still fully intact.
	_, err = s.GetPlace(ctx, place.ID)
	require.NoError(t, err)
}

func TestPlacesByUser(t *testing.T) {
	svc, s, _ := setupPlaceTest(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice@example.com")
	bob := createTestUser(t, s, "bob@example.com")

	for _, title := range []string{"First Spot", "Second Spot"} {
		_, err := svc.CreatePlace(ctx, CreatePlaceRequest{
			Title:       title,
			Description: "A place worth remembering",
			Address:     "20 W 34th St, New York, NY 10001",
			CreatorID:   alice.ID,
		})
		require.NoError(t, err)
	}

	places, err := svc.PlacesByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, places, 2)

	// A user with no places gets an empty list, not an error.
	places, err = svc.PlacesByUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, places)

	// An unknown user is an error.
	_, err = svc.PlacesByUser(ctx, "user-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestGetPlace_MissingCreatorIsReported(t *testing.T) {
	svc, s, _ := setupPlaceTest(t)
	place := createCorruptPlace(t, s, "user-ghost")

	_, err := svc.GetPlace(context.Background(), place.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrReferenceNotFound)
}

func TestGetPlace_UnlistedByCreatorIsReported(t *testing.T) {
	svc, s, _ := setupPlaceTest(t)
	user := createTestUser(t, s, "creator@example.com")
	// The creator exists but never listed the place.
	place := createCorruptPlace(t, s, user.ID)

	_, err := svc.GetPlace(context.Background(), place.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrReferenceNotFound)
}

func TestPlacesByUser_BrokenLinkIsReported(t *testing.T) {
	svc, s, _ := setupPlaceTest(t)
	ctx := context.Background()
	user := createTestUser(t, s, "creator@example.com")

	place, err := svc.CreatePlace(ctx, CreatePlaceRequest{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world!",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   user.ID,
	})
	require.NoError(t, err)

	// Strip the link from the user side, bypassing the service.
	stored, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	stored.RemovePlace(place.ID)
	require.NoError(t, s.UpdateUser(ctx, stored))

	_, err = svc.PlacesByUser(ctx, user.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrReferenceNotFound)

	_, err = svc.GetPlace(ctx, place.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrReferenceNotFound)
}

// setupTightCommitTest builds a place service whose store commits are given
// effectively no deadline. The commits themselves still apply; only the
// reported outcome races.
func setupTightCommitTest(t *testing.T) (*PlaceService, *store.Store) {
	t.Helper()

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data"), nil, store.TxnOptions{
		CommitTimeout: time.Nanosecond,
		MaxRetries:    3,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	geocoder := &stubGeocoder{location: domain.Location{Lat: 40.7484474, Lng: -73.9871516}}
	return NewPlaceService(s, geocoder, nil, slog.New(slog.DiscardHandler)), s
}

func TestCreatePlace_CommitOutlivesDeadline(t *testing.T) {
	svc, s := setupTightCommitTest(t)
	ctx := context.Background()
	user := createTestUser(t, s, "creator@example.com")

	place, err := svc.CreatePlace(ctx, CreatePlaceRequest{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world!",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   user.ID,
	})
	require.NoError(t, err)

	// The commit landed despite the expired deadline, on both sides.
	_, err = s.GetPlace(ctx, place.ID)
	require.NoError(t, err)
	stored, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.PlaceIDs, place.ID)
}

func TestDeletePlace_CommitOutlivesDeadline(t *testing.T) {
	svc, s := setupTightCommitTest(t)
	ctx := context.Background()
	user := createTestUser(t, s, "creator@example.com")

	place, err := svc.CreatePlace(ctx, CreatePlaceRequest{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world!",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   user.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePlace(ctx, place.ID, user.ID))

	_, err = s.GetPlace(ctx, place.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	stored, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.NotContains(t, stored.PlaceIDs, place.ID)
}

func TestConcurrentCreates_SameCreator(t *testing.T) {
	svc, s, _ := setupPlaceTest(t)
	ctx := context.Background()
	user := createTestUser(t, s, "creator@example.com")

	const n = 4
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.CreatePlace(ctx, CreatePlaceRequest{
				Title:       "Concurrent Spot",
				Description: "A place worth remembering",
				Address:     "20 W 34th St, New York, NY 10001",
				CreatorID:   user.ID,
			})
		}()
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
		} else {
			// Retries exhausted under contention is the only acceptable failure.
			assert.ErrorIs(t, err, domainerrors.ErrTransactionFailed)
		}
	}
	require.Positive(t, created)

	// The user's place list matches exactly the places that exist.
	stored, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, stored.PlaceIDs, created)
	for _, placeID := range stored.PlaceIDs {
		_, err := s.GetPlace(ctx, placeID)
		assert.NoError(t, err)
	}
}
