package hotwire

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Log stores published entries so streams can be resumed.
type Log interface {
	Append(e Entry) error
	// Since returns the entries with an ID greater than id, oldest first.
	Since(id uint64) ([]Entry, error)
	// Last returns the highest stored ID, or 0 when empty.
	Last() (uint64, error)
	Close() error
}

// MemoryLog is a bounded in-memory Log that forgets the oldest entries.
type MemoryLog struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
}

// NewMemoryLog returns a MemoryLog holding at most limit entries.
func NewMemoryLog(limit int) *MemoryLog {
	if limit <= 0 {
		limit = 256
	}
	return &MemoryLog{limit: limit}
}

func (l *MemoryLog) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if over := len(l.entries) - l.limit; over > 0 {
		l.entries = append(l.entries[:0:0], l.entries[over:]...)
	}
	return nil
}

func (l *MemoryLog) Since(id uint64) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if e.ID > id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *MemoryLog) Last() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return 0, nil
	}
	return l.entries[len(l.entries)-1].ID, nil
}

func (l *MemoryLog) Close() error { return nil }

var entriesBucket = []byte("entries")

// BoltLog persists entries in a bbolt database so a restarted dev server
// keeps its event IDs monotonic and can still replay recent updates.
type BoltLog struct {
	db *bolt.DB
}

// OpenBoltLog opens (or creates) the database at path.
func OpenBoltLog(path string) (*BoltLog, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("hotwire: open log %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("hotwire: init log %s: %w", path, err)
	}
	return &BoltLog{db: db}, nil
}

func (l *BoltLog) Append(e Entry) error {
	data, err := EncodeEntry(e)
	if err != nil {
		return err
	}
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).Put(idKey(e.ID), data)
	})
}

func (l *BoltLog) Since(id uint64) ([]Entry, error) {
	var out []Entry
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(entriesBucket).Cursor()
		for k, v := c.Seek(idKey(id + 1)); k != nil; k, v = c.Next() {
			e, err := DecodeEntry(v)
			if err != nil {
				return fmt.Errorf("hotwire: decode entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

func (l *BoltLog) Last() (uint64, error) {
	var last uint64
	err := l.db.View(func(tx *bolt.Tx) error {
		k, _ := tx.Bucket(entriesBucket).Cursor().Last()
		if k != nil {
			last = binary.BigEndian.Uint64(k)
		}
		return nil
	})
	return last, err
}

func (l *BoltLog) Close() error {
	return l.db.Close()
}

func idKey(id uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, id)
	return k
}
