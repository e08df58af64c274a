// Package cache implements the persistent cross-run attribute cache. It is
// a single bbolt database shared by all workers and, through bbolt's file
// locking, safe against concurrent ff processes.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	bolt "go.etcd.io/bbolt"

	"github.com/lexandro/ff/types"
)

var bucketName = []byte("attributes")

// Cache is a persistent key-value store for attribute values. Records are
// keyed by (path, attribute) and carry the (mtime, size) pair they were
// computed for; a record is only honored while both still match the live
// stat.
type Cache struct {
	db *bolt.DB

	hits   *xsync.Counter
	misses *xsync.Counter
}

type record struct {
	MtimeNs int64    `json:"mtime"`
	Size    int64    `json:"size"`
	Err     bool     `json:"err,omitempty"`
	Kind    int      `json:"kind"`
	Str     string   `json:"str,omitempty"`
	Num     int64    `json:"num,omitempty"`
	Bool    bool     `json:"bool,omitempty"`
	List    []string `json:"list,omitempty"`
}

// Open opens or creates the cache database. Concurrent processes block on
// the file lock for at most a second before failing.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache: %w", err)
	}

	return &Cache{db: db, hits: xsync.NewCounter(), misses: xsync.NewCounter()}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Hits returns the number of honored cache hits.
func (c *Cache) Hits() int64 { return c.hits.Value() }

// Misses returns the number of cache misses.
func (c *Cache) Misses() int64 { return c.misses.Value() }

func key(path, attribute string) []byte {
	k := make([]byte, 0, len(path)+len(attribute)+1)
	k = append(k, path...)
	k = append(k, 0)
	return append(k, attribute...)
}

// Get implements attr.Store. A record whose stored mtime or size differs
// from the live values is evicted and reported as a miss.
func (c *Cache) Get(path string, mtimeNs, size int64, attribute string) (types.Value, bool, bool) {
	var data []byte
	c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketName).Get(key(path, attribute)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})

	if data == nil {
		c.misses.Inc()
		return types.Value{}, false, false
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil || rec.MtimeNs != mtimeNs || rec.Size != size {
		c.delete(path, attribute)
		c.misses.Inc()
		return types.Value{}, false, false
	}

	c.hits.Inc()
	return types.Value{
		Kind: types.Kind(rec.Kind),
		Str:  rec.Str,
		Num:  rec.Num,
		Bool: rec.Bool,
		List: rec.List,
	}, rec.Err, true
}

// Put implements attr.Store. Writes are batched so that all workers can
// write through concurrently without serializing on full transactions.
func (c *Cache) Put(path string, mtimeNs, size int64, attribute string, v types.Value, isErr bool) {
	data, err := json.Marshal(record{
		MtimeNs: mtimeNs,
		Size:    size,
		Err:     isErr,
		Kind:    int(v.Kind),
		Str:     v.Str,
		Num:     v.Num,
		Bool:    v.Bool,
		List:    v.List,
	})
	if err != nil {
		return
	}

	c.db.Batch(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key(path, attribute), data)
	})
}

func (c *Cache) delete(path, attribute string) {
	c.db.Batch(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key(path, attribute))
	})
}

// Clean removes records whose file no longer exists or whose stat no
// longer matches. It returns the number of removed records.
func (c *Cache) Clean() (int, error) {
	type statKey struct {
		mtimeNs int64
		size    int64
		ok      bool
	}
	stats := make(map[string]statKey)
	var stale [][]byte

	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, v []byte) error {
			path := pathOf(k)

			st, seen := stats[path]
			if !seen {
				if info, err := os.Lstat(path); err == nil {
					st = statKey{mtimeNs: info.ModTime().UnixNano(), size: info.Size(), ok: true}
				}
				stats[path] = st
			}

			var rec record
			if !st.ok || json.Unmarshal(v, &rec) != nil ||
				rec.MtimeNs != st.mtimeNs || rec.Size != st.size {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	return len(stale), err
}

// Vacuum compacts the database file in place.
func (c *Cache) Vacuum() error {
	path := c.db.Path()
	tmp := path + ".compact"

	dst, err := bolt.Open(tmp, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return err
	}
	if err := bolt.Compact(dst, c.db, 0); err != nil {
		dst.Close()
		os.Remove(tmp)
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	if err := c.db.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	c.db, err = bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	return err
}

func pathOf(k []byte) string {
	for i, b := range k {
		if b == 0 {
			return string(k[:i])
		}
	}
	return string(k)
}
