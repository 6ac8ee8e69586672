package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"guidecache/pkg/logger"
)

var (
	db     *pebble.DB
	dbPath string
)

// ErrNotFound is returned by Get when a partition holds no entry for the
// requested URL.
var ErrNotFound = errors.New("cache entry not found")

// Partition names an independently addressable cache bucket. Entries are
// keyed by exact request URL within a partition; lookups are exact-match.
type Partition string

const (
	// Assets holds binary media and content JSON.
	Assets Partition = "asset"
	// Data holds locale data files and persisted metadata records.
	Data Partition = "data"
	// Static holds immutable framework/build output.
	Static Partition = "static"
	// Pages holds rendered navigation views.
	Pages Partition = "page"
)

// Partitions lists every cache partition, in reporting order.
var Partitions = []Partition{Assets, Data, Static, Pages}

// Entry is the envelope stored for each cached response. Writers always
// store complete, well-formed entries; a partial body is never persisted.
type Entry struct {
	URL         string `json:"url"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	FetchedAt   int64  `json:"fetched_at"`
	Body        []byte `json:"body"`
}

func key(p Partition, url string) []byte {
	return []byte(string(p) + ":" + url)
}

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_cache_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("cache_db_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("cache_db_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("cache_db_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// Put stores a complete entry under its exact URL in the given partition.
// Cache writes are atomic replace-by-key; the last writer wins, which is
// acceptable because content at a given URL is treated as immutable.
func Put(p Partition, url string, e Entry) error {
	if db == nil {
		return fmt.Errorf("cache not opened; call store.Open first")
	}
	if e.URL == "" {
		e.URL = url
	}
	if e.FetchedAt == 0 {
		e.FetchedAt = time.Now().UTC().UnixNano()
	}
	v, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := db.Set(key(p, url), v, pebble.Sync); err != nil {
		logger.Error("cache_put_failed", "partition", string(p), "url", url, "error", err)
		return err
	}
	logger.Debug("cache_put", "partition", string(p), "url", url, "len", len(e.Body))
	return nil
}

// Get returns the entry stored for url in the given partition, or
// ErrNotFound.
func Get(p Partition, url string) (Entry, error) {
	var e Entry
	if db == nil {
		return e, fmt.Errorf("cache not opened; call store.Open first")
	}
	v, closer, err := db.Get(key(p, url))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return e, ErrNotFound
		}
		logger.Error("cache_get_failed", "partition", string(p), "url", url, "error", err)
		return e, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &e); err != nil {
		return e, fmt.Errorf("corrupt cache entry for %s: %w", url, err)
	}
	return e, nil
}

// Has reports whether the partition holds an entry for url.
func Has(p Partition, url string) bool {
	if db == nil {
		return false
	}
	_, closer, err := db.Get(key(p, url))
	if err != nil {
		return false
	}
	_ = closer.Close()
	return true
}

// Delete removes the entry for url from the given partition.
func Delete(p Partition, url string) error {
	if db == nil {
		return fmt.Errorf("cache not opened; call store.Open first")
	}
	return db.Delete(key(p, url), pebble.Sync)
}

// Keys returns the URLs of every entry in the partition, in key order.
func Keys(p Partition) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("cache not opened; call store.Open first")
	}
	prefix := []byte(string(p) + ":")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		k := append([]byte(nil), iter.Key()...)
		out = append(out, string(k[len(prefix):]))
	}
	return out, iter.Error()
}

// Count returns the number of entries in the partition.
func Count(p Partition) (int, error) {
	keys, err := Keys(p)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// SizeBytes returns the total stored value bytes for the partition.
func SizeBytes(p Partition) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("cache not opened; call store.Open first")
	}
	prefix := []byte(string(p) + ":")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	var total int64
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		total += int64(len(iter.Value()))
	}
	return total, iter.Error()
}

// ValueSize returns the stored value length for url in the partition, or
// ErrNotFound.
func ValueSize(p Partition, url string) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("cache not opened; call store.Open first")
	}
	v, closer, err := db.Get(key(p, url))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	n := int64(len(v))
	_ = closer.Close()
	return n, nil
}

// Purge removes every entry in the partition.
func Purge(p Partition) error {
	if db == nil {
		return fmt.Errorf("cache not opened; call store.Open first")
	}
	prefix := []byte(string(p) + ":")
	if err := db.DeleteRange(prefix, keyUpperBound(prefix), pebble.Sync); err != nil {
		logger.Error("cache_purge_failed", "partition", string(p), "error", err)
		return err
	}
	logger.Info("cache_purged", "partition", string(p))
	return nil
}

// PurgeAll removes every entry from every partition.
func PurgeAll() error {
	for _, p := range Partitions {
		if err := Purge(p); err != nil {
			return err
		}
	}
	return nil
}

// keyUpperBound returns the smallest key greater than every key with the
// given prefix.
func keyUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil // unreachable for non-empty ":"-suffixed prefixes
}
