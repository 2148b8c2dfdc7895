package eventlog

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"hashswap/core/types"
)

var bucketEvents = []byte("events")

// ErrClosed is returned when the log is used after Close.
var ErrClosed = errors.New("eventlog: closed")

// Record is one committed event with its position in the log.
type Record struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	Time       time.Time         `json:"time"`
}

// Event returns the event carried by the record.
func (r Record) Event() *types.Event {
	attrs := make(map[string]string, len(r.Attributes))
	for k, v := range r.Attributes {
		attrs[k] = v
	}
	return &types.Event{Type: r.Type, Attributes: attrs}
}

// Log is an append-only, BoltDB-backed event log. Sequences start at 1 and
// are contiguous unless Truncate has discarded a tail.
type Log struct {
	db *bolt.DB
}

// Open initialises (and migrates) the log stored at path.
func Open(path string, options *bolt.Options) (*Log, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEvents)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Log{db: db}, nil
}

// Close releases the underlying Bolt database handle.
func (l *Log) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

func seqKey(seq uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return buf[:]
}

// Append writes the events in one transaction and returns the sequence of
// the first one. Either every event is stored or none is.
func (l *Log) Append(evts []*types.Event, at time.Time) (uint64, error) {
	if l == nil || l.db == nil {
		return 0, ErrClosed
	}
	if len(evts) == 0 {
		return 0, nil
	}
	var first uint64
	err := l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketEvents)
		for i, evt := range evts {
			if evt == nil {
				return fmt.Errorf("eventlog: nil event at index %d", i)
			}
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			if i == 0 {
				first = seq
			}
			payload, err := json.Marshal(Record{
				Sequence:   seq,
				Type:       evt.Type,
				Attributes: evt.Attributes,
				Time:       at.UTC(),
			})
			if err != nil {
				return err
			}
			if err := bucket.Put(seqKey(seq), payload); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return first, nil
}

// Truncate removes every record at or after seq and rewinds the sequence so
// the next Append reuses seq.
func (l *Log) Truncate(seq uint64) error {
	if l == nil || l.db == nil {
		return ErrClosed
	}
	if seq == 0 {
		return fmt.Errorf("eventlog: sequence must be positive")
	}
	return l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketEvents)
		var stale [][]byte
		cursor := bucket.Cursor()
		for k, _ := cursor.Seek(seqKey(seq)); k != nil; k, _ = cursor.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return bucket.SetSequence(seq - 1)
	})
}

// Range returns up to limit records starting at sequence from. A limit of
// zero or less returns everything after from.
func (l *Log) Range(from uint64, limit int) ([]Record, error) {
	if l == nil || l.db == nil {
		return nil, ErrClosed
	}
	if from == 0 {
		from = 1
	}
	out := make([]Record, 0)
	err := l.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(bucketEvents).Cursor()
		for k, v := cursor.Seek(seqKey(from)); k != nil; k, v = cursor.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("eventlog: decode %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Events returns every logged event in order, for replay.
func (l *Log) Events() ([]*types.Event, error) {
	records, err := l.Range(1, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Event, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Event())
	}
	return out, nil
}

// Len returns the number of stored records.
func (l *Log) Len() (int, error) {
	if l == nil || l.db == nil {
		return 0, ErrClosed
	}
	var n int
	err := l.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketEvents).Stats().KeyN
		return nil
	})
	return n, err
}
