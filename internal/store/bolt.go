// Package store is a best-effort local cache of listing creation
// timestamps, used only to annotate the wardrobe table when the API
// response omits the creation date. The republish pipeline never depends
// on it.
package store

import (
	"encoding/binary"
	"strconv"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "listing_created_at"

// SeenStore remembers when listings were first seen with a known creation
// time, keyed by listing id.
type SeenStore struct {
	db *bolt.DB
}

// Open opens (or creates) the cache file and ensures the bucket exists.
func Open(path string) (*SeenStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SeenStore{db: db}, nil
}

// Close releases the database file lock.
func (s *SeenStore) Close() error {
	return s.db.Close()
}

// Put records a listing's creation time. Re-putting the same value is a
// harmless overwrite.
func (s *SeenStore) Put(listingID int64, createdAt time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var value [8]byte
		binary.BigEndian.PutUint64(value[:], uint64(createdAt.UTC().Unix()))
		return b.Put(key(listingID), value[:])
	})
}

// Get returns the cached creation time for a listing, with ok=false when
// the listing was never recorded.
func (s *SeenStore) Get(listingID int64) (time.Time, bool, error) {
	var created time.Time
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		v := b.Get(key(listingID))
		if v == nil || len(v) != 8 {
			return nil
		}
		created = time.Unix(int64(binary.BigEndian.Uint64(v)), 0).UTC()
		ok = true
		return nil
	})
	if err != nil {
		return time.Time{}, false, err
	}
	return created, ok, nil
}

// Delete forgets a listing, e.g. after it was republished under a new id.
func (s *SeenStore) Delete(listingID int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete(key(listingID))
	})
}

func key(listingID int64) []byte {
	return []byte(strconv.FormatInt(listingID, 10))
}
