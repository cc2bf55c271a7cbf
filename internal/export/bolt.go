package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

const recordsBucket = "records"

// BoltStore keeps the detailed records of the latest run in a BoltDB file,
// keyed by source file name. Every Put replaces the previous run's contents.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the database at path
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(recordsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Put replaces the stored records with records in a single transaction
func (b *BoltStore) Put(_ context.Context, records []*receipt.Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(recordsBucket)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("clearing records: %w", err)
		}
		bucket, err := tx.CreateBucket([]byte(recordsBucket))
		if err != nil {
			return fmt.Errorf("creating records bucket: %w", err)
		}
		for _, record := range records {
			data, err := json.Marshal(record)
			if err != nil {
				return fmt.Errorf("marshaling record: %w", err)
			}
			if err := bucket.Put([]byte(record.SourceFile), data); err != nil {
				return fmt.Errorf("storing %s: %w", record.SourceFile, err)
			}
		}
		return nil
	})
}

// get retrieves a record by source file name
func (b *BoltStore) get(sourceFile string) (*receipt.Record, error) {
	var record *receipt.Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(recordsBucket)).Get([]byte(sourceFile))
		if data == nil {
			return fmt.Errorf("record not found: %s", sourceFile)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// list returns all stored records ordered by source file name
func (b *BoltStore) list() ([]*receipt.Record, error) {
	records := make([]*receipt.Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(recordsBucket)).ForEach(func(k, v []byte) error {
			var record receipt.Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling record: %w", err)
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Location returns the database file path
func (b *BoltStore) Location() string {
	return b.db.Path()
}

// Close closes the database
func (b *BoltStore) Close() error {
	return b.db.Close()
}
