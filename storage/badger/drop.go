package badger

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/origin-steward/steward/core"
	"github.com/origin-steward/steward/storage"
)

// DropRepository implements storage.DropRepository for BadgerDB.
type DropRepository struct {
	backend *Backend
}

var _ storage.DropRepository = (*DropRepository)(nil)

// NewDropRepository creates a new DropRepository.
func NewDropRepository(backend *Backend) (*DropRepository, error) {
	return &DropRepository{
		backend: backend,
	}, nil
}

// Close releases resources. DropRepository has no resources to release.
func (r *DropRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DropRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddDrop inserts a drop unless its content-derived ID is already present.
func (r *DropRepository) AddDrop(ctx context.Context, drop *core.Drop) (*core.Drop, bool, error) {
	var result *core.Drop
	var inserted bool

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDropKey(drop.Id)

		existing, err := readDrop(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			inserted = false
			return nil
		}

		drop.InsertedAt = time.Now().UTC()
		drop.UpdatedAt = drop.InsertedAt
		if drop.Status == 0 {
			drop.Status = core.StatusPending
		}

		if err := tx.Set(key, storage.MarshalDrop(drop)); err != nil {
			return err
		}

		// Arrival index, used for ordering and daily counts
		dateKey := makeDropDateKey(drop.ReceivedAt, drop.Id)
		if err := tx.Set(dateKey, storage.MarshalID(drop.Id)); err != nil {
			return err
		}

		result = drop
		inserted = true
		return tx.Commit()
	}, true)

	return result, inserted, err
}

// ClaimDrop atomically moves a drop from pending to processing. A
// concurrent claim surfaces as a transaction conflict and reports false.
func (r *DropRepository) ClaimDrop(ctx context.Context, id core.ID) (bool, error) {
	var claimed bool

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDropKey(id)
		drop, err := readDrop(tx, key)
		if err != nil {
			return err
		}
		if drop == nil {
			return storage.ErrNotFound
		}
		if drop.Status != core.StatusPending {
			claimed = false
			return nil
		}

		drop.Status = core.StatusProcessing
		drop.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalDrop(drop)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		claimed = true
		return nil
	}, true)

	if err == badger.ErrConflict {
		return false, nil
	}
	return claimed, err
}

// CompleteDrop marks a processing drop completed.
func (r *DropRepository) CompleteDrop(ctx context.Context, id core.ID) error {
	return r.transition(id, core.StatusProcessing, core.StatusCompleted, "")
}

// FailDrop marks a drop failed and records the reason. Pending drops may
// fail directly, skipping the processing state, when validation rejects
// them before any worker claims them.
func (r *DropRepository) FailDrop(ctx context.Context, id core.ID, reason string) error {
	err := r.transition(id, core.StatusProcessing, core.StatusFailed, reason)
	if err == storage.ErrInvalidTransition {
		return r.transition(id, core.StatusPending, core.StatusFailed, reason)
	}
	return err
}

// RecoverProcessingDrops resets drops stranded in processing back to
// pending. Run it before workers start; a concurrent claim would race the
// reset. Drops settled between the scan and the reset are skipped.
func (r *DropRepository) RecoverProcessingDrops(ctx context.Context) (int, error) {
	stranded, err := r.GetDropsByStatus(ctx, core.StatusProcessing, 0)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, drop := range stranded {
		err := r.transition(drop.Id, core.StatusProcessing, core.StatusPending, "")
		if err == storage.ErrInvalidTransition {
			continue
		}
		if err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}

func (r *DropRepository) transition(id core.ID, from, to core.DropStatus, reason string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDropKey(id)
		drop, err := readDrop(tx, key)
		if err != nil {
			return err
		}
		if drop == nil {
			return storage.ErrNotFound
		}
		if drop.Status != from {
			return storage.ErrInvalidTransition
		}

		drop.Status = to
		drop.Error = reason
		drop.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalDrop(drop)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetDrop retrieves a single drop by ID.
func (r *DropRepository) GetDrop(ctx context.Context, id core.ID) (*core.Drop, error) {
	var result *core.Drop
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDrop(tx, makeDropKey(id))
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

// GetDropsByStatus retrieves up to limit drops in the given state, ordered
// by arrival time.
func (r *DropRepository) GetDropsByStatus(ctx context.Context, status core.DropStatus, limit int) ([]*core.Drop, error) {
	var results []*core.Drop

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(dropDatePrefix + ":")
		for iter.Seek(prefix); iter.Valid(); iter.Next() {
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

			drop, err := readDrop(tx, makeDropKey(id))
			if err != nil {
				return err
			}
			if drop == nil || drop.Status != status {
				continue
			}

			results = append(results, drop)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
		return nil
	}, false)

	return results, err
}

// CountDropsByStatus returns the number of drops per status.
func (r *DropRepository) CountDropsByStatus(ctx context.Context) (map[core.DropStatus]int, error) {
	counts := make(map[core.DropStatus]int)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(dropPrefix + ":")
		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			if !hasPrefix(iter.Item().Key(), prefix) {
				break
			}

			err := iter.Item().Value(func(val []byte) error {
				drop, err := storage.UnmarshalDrop(val)
				if err != nil {
					return err
				}
				counts[drop.Status]++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)

	return counts, err
}

// GetDailyDropCounts returns per-day drop counts for the last days days,
// oldest first. Days without drops are present with a zero count.
func (r *DropRepository) GetDailyDropCounts(ctx context.Context, days int) ([]core.DailyCount, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))

	counts := make(map[string]int, days)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(dropDatePrefix + ":")
		seekKey := makePartialDropDateKey(start)
		for iter.Seek(seekKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if !hasPrefix(key, prefix) {
				break
			}

			ts, err := dateKeyTimestamp(key, prefix)
			if err != nil {
				return err
			}
			counts[ts.Format("2006-01-02")]++
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	results := make([]core.DailyCount, 0, days)
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		results = append(results, core.DailyCount{Date: date, Count: counts[date]})
	}
	return results, nil
}

// LastReceivedAt returns the arrival time of the most recent drop, or the
// zero time when the store is empty.
func (r *DropRepository) LastReceivedAt(ctx context.Context) (time.Time, error) {
	var last time.Time

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(dropDatePrefix + ":")

		// Seek to just past the largest possible key under the prefix
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		iter.Seek(seekKey)
		if !iter.Valid() || !hasPrefix(iter.Item().Key(), prefix) {
			return nil
		}

		ts, err := dateKeyTimestamp(iter.Item().Key(), prefix)
		if err != nil {
			return err
		}
		last = ts
		return nil
	}, false)

	return last, err
}

// dateKeyTimestamp extracts the BigEndian timestamp from a date index key.
func dateKeyTimestamp(key, prefix []byte) (time.Time, error) {
	if len(key) < len(prefix)+8 {
		return time.Time{}, storage.ErrSerializationFailed
	}
	micros := int64(binary.BigEndian.Uint64(key[len(prefix):]))
	return time.UnixMicro(micros).UTC(), nil
}

// readDrop reads a drop from the transaction. Returns nil when absent.
func readDrop(tx *badger.Txn, key []byte) (*core.Drop, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var drop *core.Drop
	err = item.Value(func(val []byte) error {
		var err error
		drop, err = storage.UnmarshalDrop(val)
		return err
	})
	return drop, err
}
