package badgerfx

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Entity is a storable record with a primary key and secondary index keys.
type Entity interface {
	StorageKey() string
	StorageIndexes() []string
	MarshalStorage() ([]byte, error)
	UnmarshalStorage([]byte) error
}

type EntityFactory[T Entity] func() T

// Repository provides key/index CRUD over badger transactions for one
// entity type. Transaction scoping stays with the caller so domain
// repositories can compose multi-key invariants atomically.
type Repository[T Entity] struct {
	factory EntityFactory[T]
}

func NewRepository[T Entity](factory EntityFactory[T]) *Repository[T] {
	return &Repository[T]{
		factory: factory,
	}
}

// Read loads the entity stored under key.
func (r *Repository[T]) Read(txn *badger.Txn, key string) (T, error) {
	var zero T

	item, err := txn.Get([]byte(key))
	if err != nil {
		return zero, fmt.Errorf("failed to get entity: %w", err)
	}

	entity := r.factory()
	if valErr := item.Value(func(val []byte) error {
		return entity.UnmarshalStorage(val)
	}); valErr != nil {
		return zero, fmt.Errorf("failed to unmarshal entity: %w", valErr)
	}

	return entity, nil
}

// ReadByIndex follows a secondary index key to the entity it points at.
func (r *Repository[T]) ReadByIndex(txn *badger.Txn, index string) (T, error) {
	var zero T

	item, err := txn.Get([]byte(index))
	if err != nil {
		return zero, fmt.Errorf("failed to get entity index: %w", err)
	}

	key, err := item.ValueCopy(nil)
	if err != nil {
		return zero, fmt.Errorf("failed to get entity key: %w", err)
	}

	return r.Read(txn, string(key))
}

// List returns all entities under prefix, in key order (reverse when the
// iterator options say so).
func (r *Repository[T]) List(txn *badger.Txn, prefix string, options badger.IteratorOptions) ([]T, error) {
	validPrefix := []byte(prefix)
	seekPrefix := []byte(prefix)
	if options.Reverse {
		seekPrefix = append(seekPrefix, SeekEnd)
	}

	it := txn.NewIterator(options)
	defer it.Close()

	var entities []T
	for it.Seek(seekPrefix); it.ValidForPrefix(validPrefix); it.Next() {
		item := it.Item()

		entity := r.factory()
		if err := item.Value(func(val []byte) error {
			return entity.UnmarshalStorage(val)
		}); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
		}

		entities = append(entities, entity)
	}

	return entities, nil
}

// ListByIndex returns the entities pointed at by every index key under
// prefix, in index-key order (reverse when the iterator options say so).
func (r *Repository[T]) ListByIndex(txn *badger.Txn, prefix string, options badger.IteratorOptions) ([]T, error) {
	validPrefix := []byte(prefix)
	seekPrefix := []byte(prefix)
	if options.Reverse {
		seekPrefix = append(seekPrefix, SeekEnd)
	}

	it := txn.NewIterator(options)
	defer it.Close()

	var entities []T
	for it.Seek(seekPrefix); it.ValidForPrefix(validPrefix); it.Next() {
		key, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get entity key: %w", err)
		}

		entity, err := r.Read(txn, string(key))
		if err != nil {
			return nil, err
		}

		entities = append(entities, entity)
	}

	return entities, nil
}

// Write stores the entity and refreshes its index keys.
func (r *Repository[T]) Write(txn *badger.Txn, entity T) error {
	data, err := entity.MarshalStorage()
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	if indexErr := r.CreateIndexes(txn, entity); indexErr != nil {
		return indexErr
	}

	if setErr := txn.Set([]byte(entity.StorageKey()), data); setErr != nil {
		return fmt.Errorf("failed to store entity: %w", setErr)
	}

	return nil
}

// Delete removes the entity stored under key along with its index keys.
func (r *Repository[T]) Delete(txn *badger.Txn, key string) error {
	entity, err := r.Read(txn, key)
	if err != nil {
		return err
	}

	if indexErr := r.DeleteIndexes(txn, entity); indexErr != nil {
		return indexErr
	}

	if delErr := txn.Delete([]byte(entity.StorageKey())); delErr != nil {
		return fmt.Errorf("failed to delete entity: %w", delErr)
	}

	return nil
}

func (r *Repository[T]) CreateIndexes(txn *badger.Txn, entity T) error {
	key := []byte(entity.StorageKey())
	for _, index := range entity.StorageIndexes() {
		if err := txn.Set([]byte(index), key); err != nil {
			return fmt.Errorf("failed to set entity index: %w", err)
		}
	}

	return nil
}

func (r *Repository[T]) DeleteIndexes(txn *badger.Txn, entity T) error {
	for _, index := range entity.StorageIndexes() {
		if err := txn.Delete([]byte(index)); err != nil {
			return fmt.Errorf("failed to delete entity index: %w", err)
		}
	}

	return nil
}
