package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketSessions = []byte("sessions")

// BoltStore keeps sessions in a BoltDB file so they survive restarts
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewBoltStore opens (or creates) the database at dbPath
func NewBoltStore(dbPath string) (*BoltStore, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions bucket: %w", err)
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Close closes the database file
func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get loads the session, expired records are removed on read
func (s *BoltStore) Get(_ context.Context, id string) (*Session, error) {
	var sess *Session

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}

		sess = &Session{}
		if err := json.Unmarshal(data, sess); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sess.Expired(s.now()) {
		// Удаляем истекшую сессию, ошибка удаления не влияет на результат
		_ = s.Delete(context.Background(), id)
		return nil, ErrNotFound
	}

	return sess, nil
}

// Save writes the session
func (s *BoltStore) Save(_ context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketSessions).Put([]byte(sess.ID), data); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
}

// Delete removes the session
func (s *BoltStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketSessions).Delete([]byte(id)); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
}

// RemoveExpired deletes every expired session and returns how many were removed
func (s *BoltStore) RemoveExpired() (int, error) {
	now := s.now()
	removed := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		var stale [][]byte

		err := b.ForEach(func(k, v []byte) error {
			var sess Session
			if err := json.Unmarshal(v, &sess); err != nil || sess.Expired(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})

	return removed, err
}
