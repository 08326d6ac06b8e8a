package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic CRUD operations for any domain type.
//
// Every mutating operation has an *In variant accepting a transaction handle.
// Writes issued through a handle are staged and only become visible to other
// operations after the owning transaction commits.
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []Index[T]
}

// Index defines a secondary index on an entity.
//
// Unique indexes map one value to one record ID and reject conflicting
// writes. Multi-valued indexes map one value to many record IDs and are
// queried with FindByIndex.
type Index[T any] struct {
	name            string
	unique          bool
	keyGen          func(*T) []string
	lookupTransform func(string) string // Optional transformation for lookups
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{
		store:   s,
		prefix:  prefix,
		indexes: make([]Index[T], 0),
	}
}

// WithIndex adds a multi-valued secondary index to the entity.
// Query it with FindByIndex.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:   name,
		keyGen: keyGen,
	})
	return e
}

// WithUniqueIndex adds a unique secondary index to the entity.
// Create and Update fail with ErrAlreadyExists when the indexed value is taken.
func (e *Entity[T]) WithUniqueIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:   name,
		unique: true,
		keyGen: keyGen,
	})
	return e
}

// WithUniqueIndexTransform adds a unique secondary index with lookup transformation.
// The lookupTransform function is applied to search values before index lookup,
// enabling case-insensitive searches, normalization, etc.
func (e *Entity[T]) WithUniqueIndexTransform(name string, keyGen func(*T) []string, lookupTransform func(string) string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:            name,
		unique:          true,
		keyGen:          keyGen,
		lookupTransform: lookupTransform,
	})
	return e
}

// indexEntryKey returns the full database key for one index entry.
// Multi-valued indexes append the record ID so entries never collide.
func (e *Entity[T]) indexEntryKey(idx Index[T], value, id string) string {
	if idx.unique {
		return e.prefix + "idx:" + idx.name + ":" + value
	}
	return e.prefix + "idx:" + idx.name + ":" + value + ":" + id
}

// Create creates a new entity with the given ID.
// Returns ErrAlreadyExists if an entity with this ID already exists.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := e.store.db.Update(func(txn *badger.Txn) error {
		return e.createTxn(txn, id, entity)
	})
	return translate(err)
}

// CreateIn stages the creation of a new entity into an open transaction.
func (e *Entity[T]) CreateIn(tx *Tx, id string, entity *T) error {
	if tx.done {
		return ErrTxnDone
	}
	return e.createTxn(tx.txn, id, entity)
}

func (e *Entity[T]) createTxn(txn *badger.Txn, id string, entity *T) error {
	key := e.prefix + id

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	// Check if key already exists
	_, err = txn.Get([]byte(key))
	if err == nil {
		return ErrAlreadyExists
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("failed to check existing key: %w", err)
	}

	// Check for unique index conflicts
	for _, idx := range e.indexes {
		if !idx.unique {
			continue
		}
		for _, indexValue := range idx.keyGen(entity) {
			idxKey := e.indexEntryKey(idx, indexValue, id)
			_, err := txn.Get([]byte(idxKey))
			if err == nil {
				return fmt.Errorf("index %s conflict on key %s: %w", idx.name, indexValue, ErrAlreadyExists)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("failed to check index key: %w", err)
			}
		}
	}

	// Set the primary key
	if err := txn.Set([]byte(key), data); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	// Set index keys
	for _, idx := range e.indexes {
		for _, indexValue := range idx.keyGen(entity) {
			idxKey := e.indexEntryKey(idx, indexValue, id)
			if err := txn.Set([]byte(idxKey), []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}

	return nil
}

// Get retrieves an entity by ID.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.getTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return entity, nil
}

// GetIn retrieves an entity by ID through an open transaction.
// The read is tracked by the transaction: a concurrent commit that modifies
// this record causes this transaction's commit to fail with ErrTxnConflict.
func (e *Entity[T]) GetIn(tx *Tx, id string) (*T, error) {
	if tx.done {
		return nil, ErrTxnDone
	}
	entity, err := e.getTxn(tx.txn, id)
	if err != nil {
		return nil, translate(err)
	}
	return entity, nil
}

func (e *Entity[T]) getTxn(txn *badger.Txn, id string) (*T, error) {
	key := buildKey(e.prefix, id)
	defer releaseKey(key)

	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var entity T
	err = item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, &entity); err != nil {
			return fmt.Errorf("failed to unmarshal entity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// GetByIndex retrieves an entity by unique secondary index.
// If the index has a lookup transform, it will be applied to the value before lookup.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	transformedValue := e.transformLookup(indexName, value)

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		indexKey := buildIndexKey(e.prefix, indexName, transformedValue)
		defer releaseKey(indexKey)

		item, err := txn.Get(indexKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}

		entity, err = e.getTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return entity, nil
}

// Update updates an existing entity.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Update(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := e.store.db.Update(func(txn *badger.Txn) error {
		return e.updateTxn(txn, id, entity)
	})
	return translate(err)
}

// UpdateIn stages an update of an existing entity into an open transaction.
func (e *Entity[T]) UpdateIn(tx *Tx, id string, entity *T) error {
	if tx.done {
		return ErrTxnDone
	}
	return translate(e.updateTxn(tx.txn, id, entity))
}

func (e *Entity[T]) updateTxn(txn *badger.Txn, id string, entity *T) error {
	key := e.prefix + id

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	// Get the old entity to clean up old indexes
	oldEntity, err := e.getTxn(txn, id)
	if err != nil {
		return err
	}

	// Delete old index keys
	for _, idx := range e.indexes {
		for _, indexValue := range idx.keyGen(oldEntity) {
			idxKey := e.indexEntryKey(idx, indexValue, id)
			if err := txn.Delete([]byte(idxKey)); err != nil {
				return fmt.Errorf("failed to delete old index key: %w", err)
			}
		}
	}

	// Check for new unique index conflicts (excluding old keys)
	for _, idx := range e.indexes {
		if !idx.unique {
			continue
		}
		oldKeys := make(map[string]bool)
		for _, k := range idx.keyGen(oldEntity) {
			oldKeys[k] = true
		}

		for _, indexValue := range idx.keyGen(entity) {
			// Skip if this is an old key being reused
			if oldKeys[indexValue] {
				continue
			}

			idxKey := e.indexEntryKey(idx, indexValue, id)
			_, err := txn.Get([]byte(idxKey))
			if err == nil {
				return fmt.Errorf("index %s conflict on key %s: %w", idx.name, indexValue, ErrAlreadyExists)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("failed to check index key: %w", err)
			}
		}
	}

	// Set the primary key
	if err := txn.Set([]byte(key), data); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	// Set new index keys
	for _, idx := range e.indexes {
		for _, indexValue := range idx.keyGen(entity) {
			idxKey := e.indexEntryKey(idx, indexValue, id)
			if err := txn.Set([]byte(idxKey), []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}

	return nil
}

// Delete deletes an entity by ID.
// This operation is idempotent - it does not return an error if the entity
// does not exist. Use DeleteIn when the caller must know the record was there.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := e.store.db.Update(func(txn *badger.Txn) error {
		err := e.deleteTxn(txn, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	})
	return translate(err)
}

// DeleteIn stages the deletion of an entity into an open transaction.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) DeleteIn(tx *Tx, id string) error {
	if tx.done {
		return ErrTxnDone
	}
	return translate(e.deleteTxn(tx.txn, id))
}

func (e *Entity[T]) deleteTxn(txn *badger.Txn, id string) error {
	key := e.prefix + id

	// Get the entity to clean up indexes
	entity, err := e.getTxn(txn, id)
	if err != nil {
		return err
	}

	// Delete index keys
	for _, idx := range e.indexes {
		for _, indexValue := range idx.keyGen(entity) {
			idxKey := e.indexEntryKey(idx, indexValue, id)
			if err := txn.Delete([]byte(idxKey)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}

	// Delete the primary key
	if err := txn.Delete([]byte(key)); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}

// FindByIndex returns a lazy iterator over all entities matching a
// multi-valued index value. The sequence is finite and single-use; it cannot
// be restarted after full consumption.
func (e *Entity[T]) FindByIndex(ctx context.Context, indexName, value string) iter.Seq2[*T, error] {
	transformedValue := e.transformLookup(indexName, value)
	prefix := []byte(e.prefix + "idx:" + indexName + ":" + transformedValue + ":")

	return func(yield func(*T, error) bool) {
		//nolint:errcheck // Iteration errors are yielded to the consumer.
		e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return err
				}

				var id string
				if err := it.Item().Value(func(val []byte) error {
					id = string(val)
					return nil
				}); err != nil {
					yield(nil, err)
					return err
				}

				entity, err := e.getTxn(txn, id)
				if err != nil {
					yield(nil, translate(err))
					return err
				}

				if !yield(entity, nil) {
					return nil // Consumer stopped early
				}
			}

			return nil
		})
	}
}

// List returns a lazy iterator over all entities.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		//nolint:errcheck // Iteration errors are yielded to the consumer.
		e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek([]byte(e.prefix)); it.ValidForPrefix([]byte(e.prefix)); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return err
				}

				// Skip index keys
				key := string(it.Item().Key())
				if len(key) > len(e.prefix) {
					remainder := key[len(e.prefix):]
					if strings.HasPrefix(remainder, "idx:") {
						continue
					}
				}

				var entity T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				})
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(&entity, nil) {
					return nil // Consumer stopped early
				}
			}

			return nil
		})
	}
}

// transformLookup applies the index's lookup transform, if any.
func (e *Entity[T]) transformLookup(indexName, value string) string {
	for _, idx := range e.indexes {
		if idx.name == indexName && idx.lookupTransform != nil {
			return idx.lookupTransform(value)
		}
	}
	return value
}
