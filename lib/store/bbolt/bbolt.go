// Package bbolt implements store.Interface on top of bbolt[1], giving a
// single node durable challenge state across restarts.
//
// All values live in one bucket. Each value is framed as an 8 byte big-endian
// unix-nanosecond expiry followed by the payload, so the cleanup sweep can
// judge staleness from the first 8 bytes without decoding the payload.
//
// bbolt locks the database file per process. When multiple Cerberus instances
// need to share challenge state, use the valkey backend instead.
//
// [1]: https://github.com/etcd-io/bbolt
package bbolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/GreenledgerHQ/cerberus/lib/store"
	"go.etcd.io/bbolt"
)

var bucketName = []byte("challenges")

const frameHeaderLen = 8

type Store struct {
	bdb *bbolt.DB
}

func frame(value []byte, expires time.Time) []byte {
	result := make([]byte, frameHeaderLen+len(value))
	binary.BigEndian.PutUint64(result, uint64(expires.UnixNano()))
	copy(result[frameHeaderLen:], value)
	return result
}

func unframe(raw []byte) (value []byte, expires time.Time, err error) {
	if len(raw) < frameHeaderLen {
		return nil, time.Time{}, fmt.Errorf("[unexpected] %w: frame too short (%d bytes)", store.ErrCantDecode, len(raw))
	}

	expires = time.Unix(0, int64(binary.BigEndian.Uint64(raw)))
	value = make([]byte, len(raw)-frameHeaderLen)
	copy(value, raw[frameHeaderLen:])
	return value, expires, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.bdb.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		if bkt == nil || bkt.Get([]byte(key)) == nil {
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		return bkt.Delete([]byte(key))
	})
}

// Get returns the payload for key. A value past its expiry reads as missing,
// its deletion is left to the cleanup sweep.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var result []byte

	if err := s.bdb.View(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		if bkt == nil {
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		raw := bkt.Get([]byte(key))
		if raw == nil {
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		value, expires, err := unframe(raw)
		if err != nil {
			return err
		}

		if time.Now().After(expires) {
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		result = value
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	framed := frame(value, time.Now().Add(expiry))

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return fmt.Errorf("%w: %w (create bucket)", store.ErrCantEncode, err)
		}

		if err := bkt.Put([]byte(key), framed); err != nil {
			return fmt.Errorf("%w: %q: %w", store.ErrCantEncode, key, err)
		}

		return nil
	})
}

func (s *Store) cleanup(ctx context.Context) error {
	now := time.Now()

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		if bkt == nil {
			return nil
		}

		c := bkt.Cursor()
		for key, raw := c.First(); key != nil; key, raw = c.Next() {
			_, expires, err := unframe(raw)
			if err != nil {
				slog.Warn("dropping undecodable value during cleanup", "key", string(key), "err", err)
				if err := c.Delete(); err != nil {
					return err
				}
				continue
			}

			if now.After(expires) {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

func (s *Store) cleanupThread(ctx context.Context) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.cleanup(ctx); err != nil {
				slog.Error("error during bbolt cleanup", "err", err)
			}
		}
	}
}
