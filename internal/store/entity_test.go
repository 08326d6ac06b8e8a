package store_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/placepinapp/placepin-server/internal/store"
)

type TestEntity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func setupTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "entity-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := store.New(dbPath, nil, store.DefaultTxnOptions())
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return s, cleanup
}

func TestEntity_Create_Success(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := store.NewEntity[TestEntity](s, "test:")

	testData := &TestEntity{
		ID:    "1",
		Name:  "John Doe",
		Email: "john@example.com",
	}

	err := entity.Create(context.Background(), "1", testData)
	require.NoError(t, err)

	// Verify we can retrieve it
	retrieved, err := entity.Get(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, testData.ID, retrieved.ID)
	require.Equal(t, testData.Name, retrieved.Name)
	require.Equal(t, testData.Email, retrieved.Email)
}

func TestEntity_Create_AlreadyExists(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := store.NewEntity[TestEntity](s, "test:")

	testData := &TestEntity{ID: "1", Name: "John Doe", Email: "john@example.com"}

	err := entity.Create(context.Background(), "1", testData)
	require.NoError(t, err)

	err = entity.Create(context.Background(), "1", testData)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestEntity_Get_NotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := store.NewEntity[TestEntity](s, "test:")

	_, err := entity.Get(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_Update_Success(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := store.NewEntity[TestEntity](s, "test:")

	testData := &TestEntity{ID: "1", Name: "John Doe", Email: "john@example.com"}
	require.NoError(t, entity.Create(context.Background(), "1", testData))

	testData.Name = "Jane Doe"
	require.NoError(t, entity.Update(context.Background(), "1", testData))

	retrieved, err := entity.Get(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", retrieved.Name)
}

func TestEntity_Update_NotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := store.NewEntity[TestEntity](s, "test:")

	err := entity.Update(context.Background(), "missing", &TestEntity{ID: "missing"})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_Delete_Idempotent(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := store.NewEntity[TestEntity](s, "test:")

	testData := &TestEntity{ID: "1", Name: "John Doe", Email: "john@example.com"}
	require.NoError(t, entity.Create(context.Background(), "1", testData))

	require.NoError(t, entity.Delete(context.Background(), "1"))

	_, err := entity.Get(context.Background(), "1")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Deleting again is not an error
	require.NoError(t, entity.Delete(context.Background(), "1"))
}

func TestEntity_UniqueIndex_Conflict(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := store.NewEntity[TestEntity](s, "test:").
		WithUniqueIndex("email", func(e *TestEntity) []string {
			return []string{e.Email}
		})

	require.NoError(t, entity.Create(context.Background(), "1",
		&TestEntity{ID: "1", Name: "John", Email: "shared@example.com"}))

	err := entity.Create(context.Background(), "2",
		&TestEntity{ID: "2", Name: "Jane", Email: "shared@example.com"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestEntity_GetByIndex(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := store.NewEntity[TestEntity](s, "test:").
		WithUniqueIndex("email", func(e *TestEntity) []string {
			return []string{e.Email}
		})

	require.NoError(t, entity.Create(context.Background(), "1",
		&TestEntity{ID: "1", Name: "John", Email: "john@example.com"}))

	retrieved, err := entity.GetByIndex(context.Background(), "email", "john@example.com")
	require.NoError(t, err)
	require.Equal(t, "1", retrieved.ID)

	_, err = entity.GetByIndex(context.Background(), "email", "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_MultiIndex_FindByIndex(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := store.NewEntity[TestEntity](s, "test:").
		WithIndex("name", func(e *TestEntity) []string {
			return []string{e.Name}
		})

	for i := range 3 {
		id := fmt.Sprintf("%d", i)
		require.NoError(t, entity.Create(context.Background(), id,
			&TestEntity{ID: id, Name: "shared", Email: fmt.Sprintf("u%d@example.com", i)}))
	}
	require.NoError(t, entity.Create(context.Background(), "other",
		&TestEntity{ID: "other", Name: "different", Email: "other@example.com"}))

	var found []string
	for e, err := range entity.FindByIndex(context.Background(), "name", "shared") {
		require.NoError(t, err)
		found = append(found, e.ID)
	}
	require.Len(t, found, 3)
	require.NotContains(t, found, "other")
}

func TestEntity_MultiIndex_RemovedOnDelete(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := store.NewEntity[TestEntity](s, "test:").
		WithIndex("name", func(e *TestEntity) []string {
			return []string{e.Name}
		})

	require.NoError(t, entity.Create(context.Background(), "1",
		&TestEntity{ID: "1", Name: "shared", Email: "a@example.com"}))
	require.NoError(t, entity.Create(context.Background(), "2",
		&TestEntity{ID: "2", Name: "shared", Email: "b@example.com"}))

	require.NoError(t, entity.Delete(context.Background(), "1"))

	var found []string
	for e, err := range entity.FindByIndex(context.Background(), "name", "shared") {
		require.NoError(t, err)
		found = append(found, e.ID)
	}
	require.Equal(t, []string{"2"}, found)
}

func TestEntity_List_SkipsIndexKeys(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := store.NewEntity[TestEntity](s, "test:").
		WithUniqueIndex("email", func(e *TestEntity) []string {
			return []string{e.Email}
		})

	for i := range 5 {
		id := fmt.Sprintf("%d", i)
		require.NoError(t, entity.Create(context.Background(), id,
			&TestEntity{ID: id, Name: "n", Email: fmt.Sprintf("u%d@example.com", i)}))
	}

	count := 0
	for _, err := range entity.List(context.Background()) {
		require.NoError(t, err)
		count++
	}
	require.Equal(t, 5, count)
}

func TestEntity_List_EarlyStop(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	entity := store.NewEntity[TestEntity](s, "test:")

	for i := range 10 {
		id := fmt.Sprintf("%d", i)
		require.NoError(t, entity.Create(context.Background(), id, &TestEntity{ID: id}))
	}

	count := 0
	for _, err := range entity.List(context.Background()) {
		require.NoError(t, err)
		count++
		if count == 3 {
			break
		}
	}
	require.Equal(t, 3, count)
}
