package journal

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/taskgate/backend/internal/infrastructure/docstore"
)

// Journal persists pending cross-reference repairs in the document store's
// journal bucket, ordered by enqueue time.
type Journal struct {
	store  *docstore.Store
	bucket []byte
}

func New(store *docstore.Store) *Journal {
	return &Journal{
		store:  store,
		bucket: []byte(docstore.BucketJournal),
	}
}

// Enqueue stores a repair entry.
func (j *Journal) Enqueue(entry Entry) error {
	if j == nil || j.store == nil {
		return bolt.ErrDatabaseNotOpen
	}
	entry.normalize()
	entry.bucketKey = []byte(buildKey(entry))

	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return j.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(j.bucket).Put(entry.bucketKey, payload)
	})
}

// GetBatch returns up to limit entries without removing them.
func (j *Journal) GetBatch(limit int) ([]Entry, error) {
	if j == nil || j.store == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var entries []Entry
	err := j.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(j.bucket).Cursor()
		for k, v := c.First(); k != nil && len(entries) < limit; k, v = c.Next() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			entry.bucketKey = append([]byte(nil), k...)
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// Remove deletes the provided entry from the journal.
func (j *Journal) Remove(entry Entry) error {
	if j == nil || j.store == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if len(entry.bucketKey) == 0 {
		entry.bucketKey = []byte(buildKey(entry))
	}
	return j.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(j.bucket).Delete(entry.bucketKey)
	})
}

// Requeue re-inserts an entry after bumping its timestamp.
func (j *Journal) Requeue(entry Entry) error {
	entry.bucketKey = nil
	entry.Timestamp = time.Now()
	return j.Enqueue(entry)
}

// Size returns the number of pending entries.
func (j *Journal) Size() (int, error) {
	if j == nil || j.store == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := j.store.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(j.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

func buildKey(entry Entry) string {
	return fmt.Sprintf("%020d_%s", entry.Timestamp.UnixNano(), entry.ID)
}
