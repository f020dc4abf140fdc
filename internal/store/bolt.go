package store

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const boltBucket = "docket"

// BoltBlob implements Blob on a single bbolt bucket.
type BoltBlob struct {
	db     *bolt.DB
	bucket []byte
}

// NewBoltBlob opens the bbolt file at path and ensures the bucket exists.
func NewBoltBlob(path string) (*BoltBlob, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket %s: %w", boltBucket, err)
	}

	return &BoltBlob{db: db, bucket: []byte(boltBucket)}, nil
}

// Load returns a copy of the value stored under key.
func (b *BoltBlob) Load(_ context.Context, key string) ([]byte, error) {
	if b == nil || b.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(b.bucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid for the life of the transaction.
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Save replaces the value stored under key.
func (b *BoltBlob) Save(_ context.Context, key string, value []byte) error {
	if b == nil || b.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("saving key %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (b *BoltBlob) Delete(_ context.Context, key string) error {
	if b == nil || b.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Delete([]byte(key))
	})
}

// Close closes the bolt database.
func (b *BoltBlob) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
