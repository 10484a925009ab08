// Package boltrepo persists the session in a BBolt file.
package boltrepo

import (
	"fmt"

	"github.com/jrsteele09/notes-auth-client/session"
	"go.etcd.io/bbolt"
)

var bucketName = []byte("session")

// Repo implements session.Repo backed by a BBolt database.
type Repo struct {
	db *bbolt.DB
}

var _ session.Repo = (*Repo)(nil)

// New returns a Repo backed by the given BBolt database.
func New(db *bbolt.DB) (*Repo, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating session bucket: %w", err)
	}
	return &Repo{db: db}, nil
}

// NewFromFile opens a BBolt database at the given path and returns a new Repo.
func NewFromFile(path string, options *bbolt.Options) (*Repo, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	r, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the underlying BBolt database.
func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) Put(rec session.Record) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if err := b.Put([]byte(session.TokenKey), []byte(rec.Token)); err != nil {
			return err
		}
		return b.Put([]byte(session.UserKey), rec.User)
	})
}

func (r *Repo) Get() (*session.Record, error) {
	var rec session.Record
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		tok := b.Get([]byte(session.TokenKey))
		user := b.Get([]byte(session.UserKey))
		if tok == nil || user == nil {
			return session.ErrNotFound
		}
		// values are only valid for the life of the transaction
		rec.Token = string(tok)
		rec.User = append([]byte(nil), user...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) Delete() error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if err := b.Delete([]byte(session.TokenKey)); err != nil {
			return err
		}
		return b.Delete([]byte(session.UserKey))
	})
}
