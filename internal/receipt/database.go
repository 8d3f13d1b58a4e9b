package receipt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	uploadsBucket = "uploads"
	historyBucket = "history"
)

// ErrNotFound is returned when an upload does not exist
var ErrNotFound = errors.New("upload not found")

// DB defines the interface for database operations
type DB interface {
	// SaveUpload creates or replaces an upload
	SaveUpload(upload *Upload) error

	// GetUpload retrieves an upload by ID
	GetUpload(id string) (*Upload, error)

	// ListUploads returns all uploads
	ListUploads() ([]*Upload, error)

	// DeleteUpload removes an upload
	DeleteUpload(id string) error

	// AppendHistory records a submission, keeping only the newest keep entries
	AppendHistory(entry HistoryEntry, keep int) error

	// ListHistory returns up to limit of the newest entries, oldest first
	ListHistory(limit int) ([]HistoryEntry, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{uploadsBucket, historyBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveUpload saves an upload to the database
func (b *BoltDB) SaveUpload(upload *Upload) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(upload)
		if err != nil {
			return fmt.Errorf("marshaling upload: %w", err)
		}
		return tx.Bucket([]byte(uploadsBucket)).Put([]byte(upload.ID), data)
	})
}

// GetUpload retrieves an upload by ID
func (b *BoltDB) GetUpload(id string) (*Upload, error) {
	var upload *Upload
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(uploadsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &upload)
	})
	if err != nil {
		return nil, err
	}
	return upload, nil
}

// ListUploads returns all uploads in key order
func (b *BoltDB) ListUploads() ([]*Upload, error) {
	uploads := make([]*Upload, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(uploadsBucket)).ForEach(func(k, v []byte) error {
			var upload Upload
			if err := json.Unmarshal(v, &upload); err != nil {
				return fmt.Errorf("unmarshaling upload %s: %w", k, err)
			}
			uploads = append(uploads, &upload)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return uploads, nil
}

// DeleteUpload removes an upload from the database
func (b *BoltDB) DeleteUpload(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(uploadsBucket)).Delete([]byte(id))
	})
}

// AppendHistory stores entry under the next sequence number and trims the oldest
// entries so at most keep remain. keep <= 0 keeps everything.
func (b *BoltDB) AppendHistory(entry HistoryEntry, keep int) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(historyBucket))

		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("allocating history key: %w", err)
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshaling history entry: %w", err)
		}
		if err := bucket.Put(sequenceKey(seq), data); err != nil {
			return err
		}

		if keep <= 0 {
			return nil
		}
		count := 0
		c := bucket.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			count++
		}
		excess := count - keep
		for k, _ := c.First(); k != nil && excess > 0; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return fmt.Errorf("trimming history: %w", err)
			}
			excess--
		}
		return nil
	})
}

// ListHistory returns the newest limit entries, oldest first. limit <= 0 returns all.
func (b *BoltDB) ListHistory(limit int) ([]HistoryEntry, error) {
	entries := make([]HistoryEntry, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(historyBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) == limit {
				break
			}
			var entry HistoryEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshaling history entry: %w", err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}

// sequenceKey encodes seq big-endian so keys sort in insertion order
func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
