// Package audit keeps an append-only local log of workflow events in
// Badger. Every approval, signature and lifecycle mutation is recorded so
// decisions on a dispatch stay accountable after the rows themselves move
// on.
package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Actions recorded by the service.
const (
	ActionDispatchCreated   = "dispatch_created"
	ActionDispatchEmitted   = "dispatch_emitted"
	ActionDispatchCompleted = "dispatch_completed"
	ActionDispatchCancelled = "dispatch_cancelled"
	ActionApproverAdded     = "approver_added"
	ActionApproverRemoved   = "approver_removed"
	ActionDecisionRecorded  = "decision_recorded"
	ActionBulkDecision      = "bulk_decision"
	ActionDispatchSigned    = "dispatch_signed"
)

// Event is one recorded workflow action.
type Event struct {
	Seq        uint64    `json:"seq"`
	DispatchID string    `json:"dispatch_id,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	Action     string    `json:"action"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Log is a Badger-backed append-only event log. Events are stored twice:
// under a monotonic sequence key for Recent, and under a per-dispatch key
// for ForDispatch.
type Log struct {
	db  *badger.DB
	mu  sync.Mutex
	seq uint64
}

const (
	seqPrefix      = "evt/"
	dispatchPrefix = "dsp/"
)

// Open opens (or creates) the log at path and recovers the last sequence
// number.
func Open(path string) (*Log, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}

	l := &Log{db: db}
	err = db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Reverse = true
		itOpts.PrefetchValues = false
		it := txn.NewIterator(itOpts)
		defer it.Close()

		// Reverse iteration from just past the evt/ range lands on the
		// highest sequence key.
		it.Seek([]byte(seqPrefix + "~"))
		if it.ValidForPrefix([]byte(seqPrefix)) {
			key := string(it.Item().Key())
			var seq uint64
			if _, err := fmt.Sscanf(strings.TrimPrefix(key, seqPrefix), "%020d", &seq); err == nil {
				l.seq = seq
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("recover audit sequence: %w", err)
	}
	return l, nil
}

func (l *Log) Close() error {
	return l.db.Close()
}

// Append records an event. Seq and RecordedAt are assigned here.
func (l *Log) Append(ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	ev.Seq = l.seq
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = time.Now()
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	err = l.db.Update(func(txn *badger.Txn) error {
		seqKey := fmt.Sprintf("%s%020d", seqPrefix, ev.Seq)
		if err := txn.Set([]byte(seqKey), value); err != nil {
			return err
		}
		if ev.DispatchID != "" {
			dspKey := fmt.Sprintf("%s%s/%020d", dispatchPrefix, ev.DispatchID, ev.Seq)
			if err := txn.Set([]byte(dspKey), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		l.seq--
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// Recent returns up to n events, newest first. n only bounds the scan; it
// is not used as an allocation hint, so arbitrarily large values are safe.
func (l *Log) Recent(n int) ([]Event, error) {
	events := make([]Event, 0)
	if n <= 0 {
		return events, nil
	}
	err := l.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Reverse = true
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Seek([]byte(seqPrefix + "~")); it.ValidForPrefix([]byte(seqPrefix)) && len(events) < n; it.Next() {
			var ev Event
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			})
			if err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read audit events: %w", err)
	}
	return events, nil
}

// ForDispatch returns every event recorded for a dispatch, oldest first.
func (l *Log) ForDispatch(dispatchID string) ([]Event, error) {
	prefix := []byte(dispatchPrefix + dispatchID + "/")
	var events []Event
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var ev Event
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			})
			if err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read audit events: %w", err)
	}
	return events, nil
}
