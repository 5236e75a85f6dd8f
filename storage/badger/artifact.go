package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/origin-steward/steward/core"
	"github.com/origin-steward/steward/storage"
)

// ArtifactRepository implements storage.ArtifactRepository for BadgerDB.
type ArtifactRepository struct {
	backend *Backend
}

var _ storage.ArtifactRepository = (*ArtifactRepository)(nil)

// NewArtifactRepository creates a new ArtifactRepository.
func NewArtifactRepository(backend *Backend) (*ArtifactRepository, error) {
	return &ArtifactRepository{
		backend: backend,
	}, nil
}

// Close releases resources. ArtifactRepository has no resources to release.
func (r *ArtifactRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ArtifactRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// PutArtifact stores an artifact. Inserts are idempotent per drop: when an
// artifact for the same DropId already exists the existing one is returned.
func (r *ArtifactRepository) PutArtifact(ctx context.Context, artifact *core.Artifact) (*core.Artifact, bool, error) {
	var result *core.Artifact
	var inserted bool

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Drop-provenance index guards against duplicate ingestion
		if artifact.DropId != 0 {
			existing, err := findByDrop(tx, artifact.DropId)
			if err != nil {
				return err
			}
			if existing != nil {
				result = existing
				inserted = false
				return nil
			}
		}

		if artifact.Id == 0 {
			artifact.Id = core.RandomID()
		}
		artifact.InsertedAt = time.Now().UTC()
		artifact.UpdatedAt = artifact.InsertedAt
		if artifact.CreatedAt.IsZero() {
			artifact.CreatedAt = artifact.InsertedAt
		}

		key := makeArtifactKey(artifact.Id)
		if err := tx.Set(key, storage.MarshalArtifact(artifact)); err != nil {
			return err
		}

		dateKey := makeArtifactDateKey(artifact.CreatedAt, artifact.Id)
		if err := tx.Set(dateKey, storage.MarshalID(artifact.Id)); err != nil {
			return err
		}

		if artifact.DropId != 0 {
			dropKey := makeArtifactDropKey(artifact.DropId)
			if err := tx.Set(dropKey, storage.MarshalID(artifact.Id)); err != nil {
				return err
			}
		}

		result = artifact
		inserted = true
		return tx.Commit()
	}, true)

	return result, inserted, err
}

// UpdateArtifact overwrites an existing artifact.
func (r *ArtifactRepository) UpdateArtifact(ctx context.Context, artifact *core.Artifact) (*core.Artifact, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeArtifactKey(artifact.Id)

		old, err := readArtifact(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		artifact.InsertedAt = old.InsertedAt
		artifact.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalArtifact(artifact)); err != nil {
			return err
		}

		// Move the creation-time index entry if CreatedAt changed
		if !old.CreatedAt.Equal(artifact.CreatedAt) {
			if err := tx.Delete(makeArtifactDateKey(old.CreatedAt, old.Id)); err != nil {
				return err
			}
			if err := tx.Set(makeArtifactDateKey(artifact.CreatedAt, artifact.Id), storage.MarshalID(artifact.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return artifact, err
}

// GetArtifact retrieves a single artifact by ID.
func (r *ArtifactRepository) GetArtifact(ctx context.Context, id core.ID) (*core.Artifact, error) {
	var result *core.Artifact
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readArtifact(tx, makeArtifactKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetArtifacts retrieves multiple artifacts by their IDs. Missing artifacts
// are skipped.
func (r *ArtifactRepository) GetArtifacts(ctx context.Context, ids ...core.ID) ([]*core.Artifact, error) {
	var results []*core.Artifact
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			artifact, err := readArtifact(tx, makeArtifactKey(id))
			if err != nil {
				return err
			}
			if artifact != nil {
				results = append(results, artifact)
			}
		}
		return nil
	}, false)
	return results, err
}

// ListRecentArtifacts returns up to limit artifacts, most recent first.
func (r *ArtifactRepository) ListRecentArtifacts(ctx context.Context, limit int) ([]*core.Artifact, error) {
	var results []*core.Artifact

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(artifactDatePrefix + ":")
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for iter.Seek(seekKey); iter.Valid(); iter.Next() {
			if !hasPrefix(iter.Item().Key(), prefix) {
				break
			}

			var id core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}

			artifact, err := readArtifact(tx, makeArtifactKey(id))
			if err != nil {
				return err
			}
			if artifact != nil {
				results = append(results, artifact)
			}
			if limit > 0 && len(results) >= limit {
				break
			}
		}
		return nil
	}, false)

	return results, err
}

// GetArtifactsByDateRange retrieves artifacts where start <= CreatedAt < end,
// ordered by creation time.
func (r *ArtifactRepository) GetArtifactsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Artifact, error) {
	var results []*core.Artifact

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(artifactDatePrefix + ":")
		endKey := makePartialArtifactDateKey(end)
		for iter.Seek(makePartialArtifactDateKey(start)); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if !hasPrefix(key, prefix) || string(key) >= string(endKey) {
				break
			}

			var id core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}

			artifact, err := readArtifact(tx, makeArtifactKey(id))
			if err != nil {
				return err
			}
			if artifact != nil {
				results = append(results, artifact)
			}
		}
		return nil
	}, false)

	return results, err
}

// FindArtifactByDrop returns the artifact created from the given drop.
func (r *ArtifactRepository) FindArtifactByDrop(ctx context.Context, dropID core.ID) (*core.Artifact, error) {
	var result *core.Artifact
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = findByDrop(tx, dropID)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// CountArtifacts returns the total number of artifacts.
func (r *ArtifactRepository) CountArtifacts(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(artifactDatePrefix + ":")
		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			if !hasPrefix(iter.Item().Key(), prefix) {
				break
			}
			count++
		}
		return nil
	}, false)
	return count, err
}

// findByDrop resolves the drop-provenance index to a full artifact.
func findByDrop(tx *badger.Txn, dropID core.ID) (*core.Artifact, error) {
	item, err := tx.Get(makeArtifactDropKey(dropID))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var artifactID core.ID
	err = item.Value(func(val []byte) error {
		var err error
		artifactID, err = storage.UnmarshalID(val)
		return err
	})
	if err != nil {
		return nil, err
	}

	return readArtifact(tx, makeArtifactKey(artifactID))
}

// readArtifact reads an artifact from the transaction. Returns nil when absent.
func readArtifact(tx *badger.Txn, key []byte) (*core.Artifact, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var artifact *core.Artifact
	err = item.Value(func(val []byte) error {
		var err error
		artifact, err = storage.UnmarshalArtifact(val)
		return err
	})
	return artifact, err
}
