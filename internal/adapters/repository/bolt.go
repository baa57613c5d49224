package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/okian/routinerec/internal/domain/model"
)

const usersBucket = "users"

// BoltStore keeps user records in a BoltDB file, one key per user.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens or creates a BoltDB store at path.
func OpenBolt(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	s := &BoltStore{db: db}
	if err := s.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load implements Store.
func (s *BoltStore) Load(ctx context.Context, id string) (model.UserData, error) {
	if err := ctx.Err(); err != nil {
		return model.UserData{}, err
	}
	if s == nil || s.db == nil {
		return model.UserData{}, ErrClosed
	}
	if err := checkID(id); err != nil {
		return model.UserData{}, err
	}

	var payload []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usersBucket))
		if bucket == nil {
			return fmt.Errorf("users bucket is missing")
		}
		v := bucket.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction.
		payload = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return model.UserData{}, err
	}
	return decode(payload)
}

// Save implements Store.
func (s *BoltStore) Save(ctx context.Context, id string, data model.UserData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return ErrClosed
	}
	if err := checkID(id); err != nil {
		return err
	}

	payload, err := encode(data)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usersBucket))
		if bucket == nil {
			return fmt.Errorf("users bucket is missing")
		}
		return bucket.Put([]byte(id), payload)
	})
}

// IDs lists every stored user id in key order.
func (s *BoltStore) IDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usersBucket))
		if bucket == nil {
			return fmt.Errorf("users bucket is missing")
		}
		return bucket.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

func (s *BoltStore) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(usersBucket)); err != nil {
			return fmt.Errorf("create users bucket: %w", err)
		}
		return nil
	})
}
